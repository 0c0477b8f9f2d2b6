package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/gateway"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/logs"
	"scribe/internal/notifications"
	"scribe/internal/pipeline"
)

// Daemon owns the background processing runtime and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	svc      *api.Service
	orch     *pipeline.Orchestrator
	gateway  *gateway.Server
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running     bool
	PID         int
	StartedAt   time.Time
	JobDBPath   string
	LockPath    string
	APIAddr     string
	Stats       map[string]int
	StageHealth []api.StageHealth
}

// New constructs a daemon with initialized dependencies.
func New(
	cfg *config.Config,
	store *jobs.Store,
	svc *api.Service,
	orch *pipeline.Orchestrator,
	gw *gateway.Server,
	notifier notifications.Service,
	logger *slog.Logger,
	logPath string,
) (*Daemon, error) {
	if cfg == nil || store == nil || svc == nil || orch == nil {
		return nil, errors.New("daemon requires config, store, service, and orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "scribed.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		svc:      svc,
		orch:     orch,
		gateway:  gw,
		notifier: notifier,
		logPath:  logPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, binds the HTTP gateway, and resumes jobs
// that were interrupted by the previous shutdown.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribe daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if d.gateway != nil {
		if err := d.gateway.Start(); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx, d.cancel = nil, nil
			return fmt.Errorf("start api gateway: %w", err)
		}
	}
	if err := d.orch.Resume(d.ctx); err != nil {
		d.logger.Warn("resume interrupted jobs",
			logging.Error(err),
			logging.String(logging.FieldComponent, "daemon"),
		)
	}

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("scribe daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.APIAddr()),
	)
	return nil
}

// Stop halts job processing, drains the gateway, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.gateway != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.gateway.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("gateway shutdown", logging.Error(err))
		}
		cancel()
	}
	d.orch.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("scribe daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool { return d.running.Load() }

// Service returns the job API facade for IPC handlers.
func (d *Daemon) Service() *api.Service { return d.svc }

// LogPath returns the active log file path. A daemon constructed without one
// falls back to resolving the scribe.log pointer in the log directory.
func (d *Daemon) LogPath() string {
	if d.logPath != "" {
		return d.logPath
	}
	path, err := logs.CurrentPath(d.cfg.Paths.LogDir)
	if err != nil {
		return ""
	}
	return path
}

// APIAddr returns the bound gateway address, or empty when no gateway runs.
func (d *Daemon) APIAddr() string {
	if d.gateway == nil {
		return ""
	}
	return d.gateway.Addr()
}

// TestNotification sends a test push and reports the outcome.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if err := d.notifier.Test(ctx); err != nil {
		return false, err.Error(), err
	}
	return true, "notification sent", nil
}

// Status collects runtime information for the status command.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:   d.running.Load(),
		PID:       os.Getpid(),
		StartedAt: d.startedAt,
		JobDBPath: d.store.Path(),
		LockPath:  d.lockPath,
		APIAddr:   d.APIAddr(),
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.Stats = stats
	} else {
		d.logger.Warn("collect job stats", logging.Error(err))
	}
	status.StageHealth = d.svc.StageHealth(ctx)
	return status
}
