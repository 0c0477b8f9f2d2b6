package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"scribe/internal/broadcast"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/storage"
)

// Controller exposes the operator-facing job actions: cancel and retry. It
// sits between the API surfaces and the orchestrator.
type Controller struct {
	store  *jobs.Store
	files  storage.Store
	orch   *Orchestrator
	hub    *broadcast.Hub
	logger *slog.Logger
}

// NewController wires the job actions.
func NewController(store *jobs.Store, files storage.Store, orch *Orchestrator, hub *broadcast.Hub, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{store: store, files: files, orch: orch, hub: hub, logger: logger}
}

// Cancel stops a non-terminal job. A live run is flagged and settles through
// the orchestrator; an idle job is parked in the cancelled stage directly.
func (c *Controller) Cancel(ctx context.Context, jobID string) (*jobs.Job, error) {
	job, err := c.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is already %s", jobs.ErrTerminal, jobID, job.Stage)
	}

	if c.orch != nil && c.orch.RequestCancel(jobID) {
		c.logger.Info("cancellation requested",
			logging.String(logging.FieldJobID, jobID),
			logging.String(logging.FieldStage, string(job.Stage)),
		)
		return job, nil
	}

	job.SetCancelled()
	if err := c.store.Update(ctx, job); err != nil {
		return nil, err
	}
	if c.hub != nil {
		c.hub.Publish(broadcast.Event{
			JobID:    job.ID,
			Stage:    job.Stage,
			Status:   job.Status,
			Attempt:  job.Attempt,
			Terminal: true,
		})
	}
	c.logger.Info("idle job cancelled", logging.String(logging.FieldJobID, jobID))
	return job, nil
}

// Retry relaunches a failed job from the stage that broke. The source
// recording must still exist; a vanished source needs a fresh upload, not a
// retry.
func (c *Controller) Retry(ctx context.Context, jobID string) (*jobs.Job, error) {
	job, err := c.store.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Stage != jobs.StageFailed {
		return nil, fmt.Errorf("%w: retry requires a failed job, %s is %s", jobs.ErrInvalidTransition, jobID, job.Stage)
	}

	exists, err := c.files.Exists(ctx, job.SourceRef)
	if err != nil {
		return nil, fmt.Errorf("check source for retry: %w", err)
	}
	if !exists {
		return nil, services.Wrap(services.ErrSourceMissing, string(job.FailedStage), "retry", job.SourceRef, nil)
	}

	reset, err := c.store.ResetForRetry(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if c.hub != nil {
		c.hub.Forget(jobID)
	}
	c.logger.Info("job retry launched",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldStage, string(reset.Stage)),
		logging.Int(logging.FieldAttempt, reset.Attempt),
	)
	if c.orch != nil {
		if err := c.orch.Advance(ctx, jobID); err != nil {
			return nil, err
		}
	}
	return reset, nil
}
