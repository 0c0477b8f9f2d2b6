// Package ingest finalizes uploaded recordings before transcription starts.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/stage"
	"scribe/internal/storage"
)

// Recording containers accepted for transcription.
var supportedExtensions = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".m4a":  {},
	".flac": {},
	".ogg":  {},
	".webm": {},
	".mp4":  {},
	".mkv":  {},
}

// Executor validates that the uploaded recording exists, is non-empty, and
// uses a supported container. Validation failures are permanent: retrying
// cannot repair a bad upload.
type Executor struct {
	store  storage.Store
	logger *slog.Logger
}

// NewExecutor constructs the upload finalize executor.
func NewExecutor(store storage.Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{store: store, logger: logger}
}

// Stage identifies the pipeline stage this executor serves.
func (e *Executor) Stage() jobs.Stage { return jobs.StageUpload }

// Run checks the stored recording referenced by the job.
func (e *Executor) Run(ctx context.Context, req stage.Request) (stage.Result, error) {
	var empty stage.Result
	ref := strings.TrimSpace(req.Job.SourceRef)
	if ref == "" {
		return empty, services.Wrap(services.ErrValidation, "upload", "finalize", "job has no source reference", nil)
	}
	req.ReportProgress(10)

	exists, err := e.store.Exists(ctx, ref)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "upload", "stat source", ref, err)
	}
	if !exists {
		return empty, services.Wrap(services.ErrSourceMissing, "upload", "finalize", ref, nil)
	}
	req.ReportProgress(50)

	ext := strings.ToLower(filepath.Ext(ref))
	if _, ok := supportedExtensions[ext]; !ok {
		detail := fmt.Sprintf("unsupported container %q", ext)
		return empty, services.Wrap(services.ErrValidation, "upload", "finalize", detail, nil)
	}

	data, err := e.store.Fetch(ctx, ref)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "upload", "read source", ref, err)
	}
	if len(data) == 0 {
		return empty, services.Wrap(services.ErrValidation, "upload", "finalize", "recording is empty", nil)
	}

	e.logger.Debug("upload finalized",
		logging.String(logging.FieldJobID, req.Job.ID),
		logging.Int("size_bytes", len(data)),
	)
	req.ReportProgress(100)
	return empty, nil
}

// HealthCheck verifies the storage backend is usable.
func (e *Executor) HealthCheck(ctx context.Context) stage.Health {
	if e.store == nil {
		return stage.Unhealthy("upload", "storage backend not configured")
	}
	if _, err := e.store.Exists(ctx, "healthcheck-probe"); err != nil {
		return stage.Unhealthy("upload", err.Error())
	}
	return stage.Healthy("upload")
}
