package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"scribe/internal/api"
	"scribe/internal/daemon"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/logs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger.With(logging.String(logging.FieldComponent, "ipc")), ctx: ctx}
	if err := rpcServer.RegisterName("Scribe", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	if !status.StartedAt.IsZero() {
		resp.StartedAt = status.StartedAt.Format(time.RFC3339)
	}
	resp.JobDBPath = status.JobDBPath
	resp.LockPath = status.LockPath
	resp.APIAddr = status.APIAddr
	resp.Stats = status.Stats
	resp.StageHealth = append(resp.StageHealth, status.StageHealth...)
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via ipc")
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return errors.New("submit requires a file path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read recording: %w", err)
	}
	view, err := s.daemon.Service().CreateJob(s.ctx, api.CreateJobRequest{
		FileName:       filepath.Base(path),
		Data:           data,
		LanguageHint:   req.Language,
		MinutesEnabled: req.Minutes,
	})
	if err != nil {
		return err
	}
	resp.Job = view
	s.logger.Info("job submitted via ipc", logging.String(logging.FieldJobID, view.ID))
	return nil
}

func (s *service) List(req ListRequest, resp *ListResponse) error {
	stages := make([]jobs.Stage, 0, len(req.Stages))
	for _, raw := range req.Stages {
		stage, ok := jobs.ParseStage(raw)
		if !ok {
			return fmt.Errorf("unknown stage %q", raw)
		}
		stages = append(stages, stage)
	}
	list, err := s.daemon.Service().ListJobs(s.ctx, stages...)
	if err != nil {
		return err
	}
	resp.Jobs = list
	return nil
}

func (s *service) Describe(req DescribeRequest, resp *DescribeResponse) error {
	if strings.TrimSpace(req.ID) == "" {
		return errors.New("describe requires a job id")
	}
	view, err := s.daemon.Service().GetJob(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Job = view
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	view, err := s.daemon.Service().CancelJob(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Job = view
	s.logger.Info("job cancelled via ipc", logging.String(logging.FieldJobID, view.ID))
	return nil
}

func (s *service) Retry(req RetryRequest, resp *RetryResponse) error {
	view, err := s.daemon.Service().RetryJob(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Job = view
	s.logger.Info("job retried via ipc", logging.String(logging.FieldJobID, view.ID))
	return nil
}

func (s *service) Stats(_ StatsRequest, resp *StatsResponse) error {
	stats, err := s.daemon.Service().Stats(s.ctx)
	if err != nil {
		return err
	}
	resp.Stats = stats
	return nil
}

func (s *service) Health(_ HealthRequest, resp *HealthResponse) error {
	resp.Stages = s.daemon.Service().StageHealth(s.ctx)
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	tailReq := logs.Request{
		Offset: req.Offset,
		Lines:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	chunk, err := logs.Tail(ctx, logPath, tailReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = chunk.Offset
			return nil
		}
		return err
	}
	resp.Lines = chunk.Lines
	resp.Offset = chunk.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
