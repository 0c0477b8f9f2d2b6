// Package daemonrun boots the scribed process: logging, storage, pipeline
// wiring, the HTTP gateway, and the IPC control socket.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"scribe/internal/api"
	"scribe/internal/broadcast"
	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/gateway"
	"scribe/internal/ingest"
	"scribe/internal/ipc"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/logs"
	"scribe/internal/minutes"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
	"scribe/internal/scoring"
	"scribe/internal/services/llm"
	"scribe/internal/services/stt"
	"scribe/internal/stage"
	"scribe/internal/stageexec"
	"scribe/internal/storage"
	"scribe/internal/transcription"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the scribe daemon runtime loop and blocks until a signal.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("scribe-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logs.SetPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update scribe.log link: %v\n", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "scribed.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}
	defer store.Close()

	files, err := storage.NewLocal(cfg.Paths.MediaDir)
	if err != nil {
		logger.Error("open media storage", logging.Error(err))
		return err
	}

	hub := broadcast.NewHub()
	runner := stageexec.NewRunner(stageexec.PolicyFromConfig(cfg.Pipeline), logger)
	notifier := notifications.NewService(cfg)
	executors := buildExecutors(cfg, files, logger)

	orch := pipeline.NewOrchestrator(store, hub, runner, executors, notifier, logger)
	ctl := pipeline.NewController(store, files, orch, hub, logger)
	svc := api.NewService(cfg, store, files, orch, ctl, executors)
	gw := gateway.NewServer(cfg, svc, hub, logger)

	d, err := daemon.New(cfg, store, svc, orch, gw, notifier, logger, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start ipc server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return err
	}

	<-signalCtx.Done()
	logger.Info("scribe daemon shutting down")
	return nil
}

func buildExecutors(cfg *config.Config, files storage.Store, logger *slog.Logger) []stage.Executor {
	sttClient := stt.NewClient(stt.Config{
		BaseURL:        cfg.STT.BaseURL,
		APIKey:         cfg.STT.APIKey,
		Model:          cfg.STT.Model,
		TimeoutSeconds: cfg.STT.TimeoutSeconds,
	})
	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	return []stage.Executor{
		ingest.NewExecutor(files, logger),
		transcription.NewExecutor(sttClient, files, logger),
		scoring.NewExecutor(logger),
		minutes.NewExecutor(llmClient, cfg.Minutes.Template, logger),
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
