// Package transcription turns stored recordings into diarized transcripts.
package transcription

import (
	"context"
	"log/slog"

	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/stage"
	"scribe/internal/storage"
	"scribe/internal/transcript"
)

// Transcriber is the provider contract the stage depends on, implemented by
// the stt client.
type Transcriber interface {
	Transcribe(ctx context.Context, path, languageHint string) (transcript.Transcript, error)
	HealthCheck(ctx context.Context) error
}

// Executor runs the transcription stage for one job attempt.
type Executor struct {
	client Transcriber
	store  storage.Store
	logger *slog.Logger
}

// NewExecutor constructs the transcription executor.
func NewExecutor(client Transcriber, store storage.Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{client: client, store: store, logger: logger}
}

// Stage identifies the pipeline stage this executor serves.
func (e *Executor) Stage() jobs.Stage { return jobs.StageTranscription }

// Run transcribes the job's recording and returns the transcript artifact.
// An empty transcript is a permanent failure: the recording holds no usable
// speech and retrying will not change that.
func (e *Executor) Run(ctx context.Context, req stage.Request) (stage.Result, error) {
	var empty stage.Result
	exists, err := e.store.Exists(ctx, req.Job.SourceRef)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "transcription", "stat source", req.Job.SourceRef, err)
	}
	if !exists {
		return empty, services.Wrap(services.ErrSourceMissing, "transcription", "resolve source", req.Job.SourceRef, nil)
	}
	req.ReportProgress(10)

	tr, err := e.client.Transcribe(ctx, e.store.Path(req.Job.SourceRef), req.Job.LanguageHint)
	if err != nil {
		return empty, err
	}
	req.ReportProgress(90)

	if tr.IsEmpty() {
		return empty, services.Wrap(services.ErrValidation, "transcription", "transcribe", "no speech detected in recording", nil)
	}
	raw, err := transcript.Marshal(tr)
	if err != nil {
		return empty, services.Wrap(services.ErrValidation, "transcription", "encode transcript", "", err)
	}

	e.logger.Debug("transcription finished",
		logging.String(logging.FieldJobID, req.Job.ID),
		logging.Int("segments", len(tr.Segments)),
		logging.Int("speakers", len(tr.Speakers)),
	)
	req.ReportProgress(100)
	return stage.Result{TranscriptJSON: raw}, nil
}

// HealthCheck verifies the speech-to-text endpoint is reachable.
func (e *Executor) HealthCheck(ctx context.Context) stage.Health {
	if e.client == nil {
		return stage.Unhealthy("transcription", "stt client not configured")
	}
	if err := e.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("transcription", err.Error())
	}
	return stage.Healthy("transcription")
}
