package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"scribe/internal/broadcast"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/services"
	"scribe/internal/stage"
	"scribe/internal/stageexec"
)

// Orchestrator drives jobs through the stage sequence. Each advancing job
// runs on its own goroutine; Advance is idempotent, so repeated calls for a
// job that is already moving are no-ops.
type Orchestrator struct {
	store     *jobs.Store
	hub       *broadcast.Hub
	runner    *stageexec.Runner
	executors map[jobs.Stage]stage.Executor
	notifier  notifications.Service
	logger    *slog.Logger

	baseCtx context.Context
	stop    context.CancelFunc

	mu      sync.Mutex
	running map[string]*jobRun
	wg      sync.WaitGroup
}

type jobRun struct {
	cancelled atomic.Bool
	abort     context.CancelFunc
}

// NewOrchestrator wires the stage executors into a pipeline.
func NewOrchestrator(
	store *jobs.Store,
	hub *broadcast.Hub,
	runner *stageexec.Runner,
	executors []stage.Executor,
	notifier notifications.Service,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewNop()
	}
	index := make(map[jobs.Stage]stage.Executor, len(executors))
	for _, exec := range executors {
		if exec != nil {
			index[exec.Stage()] = exec
		}
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		store:     store,
		hub:       hub,
		runner:    runner,
		executors: index,
		notifier:  notifier,
		logger:    logger,
		baseCtx:   baseCtx,
		stop:      stop,
		running:   make(map[string]*jobRun),
	}
}

// Advance launches stage processing for the job unless it is already moving
// or terminal. The returned error covers launch problems only; stage
// outcomes surface through the job record and the event stream.
func (o *Orchestrator) Advance(ctx context.Context, jobID string) error {
	job, err := o.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return nil
	}
	if _, ok := o.executors[job.Stage]; !ok {
		return fmt.Errorf("no executor for stage %s", job.Stage)
	}

	o.mu.Lock()
	if o.baseCtx.Err() != nil {
		o.mu.Unlock()
		return errors.New("orchestrator is shut down")
	}
	if _, moving := o.running[jobID]; moving {
		o.mu.Unlock()
		return nil
	}
	runCtx, abort := context.WithCancel(o.baseCtx)
	run := &jobRun{abort: abort}
	o.running[jobID] = run
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		defer o.release(jobID)
		defer abort()
		o.drive(runCtx, run, *job)
	}()
	return nil
}

// Resume relaunches every non-terminal job, normalizing stale running
// statuses left behind by an unclean shutdown.
func (o *Orchestrator) Resume(ctx context.Context) error {
	pending, err := o.store.List(ctx,
		jobs.StageUpload, jobs.StageTranscription, jobs.StageQuality, jobs.StageMinutes)
	if err != nil {
		return err
	}
	for i := range pending {
		job := pending[i]
		if job.Status == jobs.StatusRunning {
			job.SetStageProgress(jobs.StatusPending, 0)
			if err := o.store.Update(ctx, &job); err != nil {
				o.logger.Warn("reset stale job status failed",
					logging.String(logging.FieldJobID, job.ID), logging.Error(err))
				continue
			}
		}
		if err := o.Advance(ctx, job.ID); err != nil {
			o.logger.Warn("resume job failed",
				logging.String(logging.FieldJobID, job.ID), logging.Error(err))
		}
	}
	return nil
}

// RequestCancel flags a live run for cancellation and aborts its in-flight
// stage call. It reports whether a live run was signalled.
func (o *Orchestrator) RequestCancel(jobID string) bool {
	o.mu.Lock()
	run, ok := o.running[jobID]
	o.mu.Unlock()
	if !ok {
		return false
	}
	run.cancelled.Store(true)
	run.abort()
	return true
}

// Close stops accepting work and waits for in-flight jobs to settle.
func (o *Orchestrator) Close() {
	o.stop()
	o.wg.Wait()
}

func (o *Orchestrator) release(jobID string) {
	o.mu.Lock()
	delete(o.running, jobID)
	o.mu.Unlock()
}

// drive walks one job through its remaining stages until it parks in a
// terminal stage, the run is cancelled, or the attempt goes stale.
func (o *Orchestrator) drive(ctx context.Context, run *jobRun, job jobs.Job) {
	logger := o.logger.With(logging.String(logging.FieldJobID, job.ID))
	attempt := job.Attempt

	for !job.Stage.IsTerminal() {
		if run.cancelled.Load() {
			o.finishCancelled(logger, &job)
			return
		}
		exec, ok := o.executors[job.Stage]
		if !ok {
			o.finishFailed(logger, &job, fmt.Errorf("no executor for stage %s", job.Stage))
			return
		}

		job.SetStageProgress(jobs.StatusRunning, 0)
		if err := o.persist(&job); err != nil {
			logger.Error("persist stage start failed", logging.Error(err))
			return
		}
		o.publish(job, false)

		req := stage.Request{
			Job:     job,
			Attempt: attempt,
			Progress: func(percent int) {
				snapshot := job
				snapshot.Progress = percent
				o.publish(snapshot, false)
			},
		}
		result, err := o.runner.Run(ctx, exec, req)

		// A retry may have superseded this run while the stage call was in
		// flight. Its results belong to a dead attempt; discard them.
		current, loadErr := o.store.GetByID(context.Background(), job.ID)
		if loadErr != nil {
			logger.Error("reload job failed", logging.Error(loadErr))
			return
		}
		if current.Attempt != attempt || current.Stage != job.Stage {
			logger.Warn("discarding stale stage result",
				logging.Int(logging.FieldAttempt, attempt),
				logging.String(logging.FieldStage, string(job.Stage)),
			)
			return
		}

		if run.cancelled.Load() {
			o.finishCancelled(logger, &job)
			return
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				// Not an operator cancel, so the daemon is shutting down.
				// Park the job for resume instead of finishing it.
				job.SetStageProgress(jobs.StatusPending, 0)
				if persistErr := o.persist(&job); persistErr != nil {
					logger.Error("park job for resume failed", logging.Error(persistErr))
				}
				return
			}
			o.finishFailed(logger, &job, err)
			return
		}

		o.applyResult(&job, result)
		next := nextStage(job)
		stageLogger := logger.With(logging.String(logging.FieldStage, string(job.Stage)))
		job.Stage = next
		if next == jobs.StageCompleted {
			job.SetStageProgress(jobs.StatusDone, 100)
		} else {
			job.SetStageProgress(jobs.StatusPending, 0)
		}
		if err := o.persist(&job); err != nil {
			stageLogger.Error("persist stage completion failed", logging.Error(err))
			return
		}
		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("next_stage", string(next)),
		)
		o.publish(job, job.Stage.IsTerminal())
	}

	if job.Stage == jobs.StageCompleted {
		o.notify(func(ctx context.Context) error {
			return o.notifier.JobCompleted(ctx, &job)
		}, logger)
	}
}

func (o *Orchestrator) finishCancelled(logger *slog.Logger, job *jobs.Job) {
	job.SetCancelled()
	if err := o.persist(job); err != nil {
		logger.Error("persist cancellation failed", logging.Error(err))
		return
	}
	logger.Info("job cancelled", logging.String(logging.FieldEventType, "job_cancelled"))
	o.publish(*job, true)
	o.notify(func(ctx context.Context) error {
		return o.notifier.JobCancelled(ctx, job)
	}, logger)
}

func (o *Orchestrator) finishFailed(logger *slog.Logger, job *jobs.Job, cause error) {
	failedStage := job.Stage
	job.SetFailed(services.Message(cause))
	if err := o.persist(job); err != nil {
		logger.Error("persist failure failed", logging.Error(err))
		return
	}
	logger.Error("job failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldStage, string(failedStage)),
		logging.Error(cause),
	)
	o.publish(*job, true)
	o.notify(func(ctx context.Context) error {
		return o.notifier.JobFailed(ctx, job)
	}, logger)
}

func (o *Orchestrator) applyResult(job *jobs.Job, result stage.Result) {
	if result.TranscriptJSON != "" {
		job.TranscriptJSON = result.TranscriptJSON
	}
	if result.QualityJSON != "" {
		job.QualityJSON = result.QualityJSON
	}
	if result.MinutesText != "" {
		job.MinutesText = result.MinutesText
	}
}

func (o *Orchestrator) persist(job *jobs.Job) error {
	return o.store.Update(context.Background(), job)
}

func (o *Orchestrator) publish(job jobs.Job, terminal bool) {
	if o.hub == nil {
		return
	}
	o.hub.Publish(broadcast.Event{
		JobID:        job.ID,
		Stage:        job.Stage,
		Status:       job.Status,
		Progress:     job.Progress,
		Attempt:      job.Attempt,
		Terminal:     terminal,
		ErrorMessage: job.ErrorMessage,
	})
}

func (o *Orchestrator) notify(send func(context.Context) error, logger *slog.Logger) {
	if err := send(context.Background()); err != nil {
		logger.Debug("notification failed", logging.Error(err))
	}
}

// nextStage resolves the stage that follows a finished one, honoring the
// per-job minutes toggle.
func nextStage(job jobs.Job) jobs.Stage {
	if job.Stage == jobs.StageQuality && !job.MinutesEnabled {
		return jobs.StageCompleted
	}
	if next, ok := job.Stage.Next(); ok {
		return next
	}
	return jobs.StageCompleted
}
