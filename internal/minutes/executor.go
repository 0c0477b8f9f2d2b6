// Package minutes generates meeting minutes from finished transcripts.
package minutes

import (
	"context"
	"log/slog"
	"strings"

	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/stage"
	"scribe/internal/transcript"
)

// Summarizer is the provider contract the stage depends on, implemented by
// the llm client.
type Summarizer interface {
	Summarize(ctx context.Context, tr transcript.Transcript, template string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Executor runs the minutes generation stage for one job attempt.
type Executor struct {
	client   Summarizer
	template string
	logger   *slog.Logger
}

// NewExecutor constructs the minutes executor with the configured template.
func NewExecutor(client Summarizer, template string, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{client: client, template: strings.TrimSpace(template), logger: logger}
}

// Stage identifies the pipeline stage this executor serves.
func (e *Executor) Stage() jobs.Stage { return jobs.StageMinutes }

// Run renders minutes for the job's transcript artifact.
func (e *Executor) Run(ctx context.Context, req stage.Request) (stage.Result, error) {
	var empty stage.Result
	tr, err := transcript.Unmarshal(req.Job.TranscriptJSON)
	if err != nil {
		return empty, services.Wrap(services.ErrValidation, "minutes", "decode transcript", "", err)
	}
	req.ReportProgress(10)

	text, err := e.client.Summarize(ctx, tr, e.template)
	if err != nil {
		return empty, err
	}
	if strings.TrimSpace(text) == "" {
		return empty, services.Wrap(services.ErrTransient, "minutes", "summarize", "model returned empty minutes", nil)
	}

	e.logger.Debug("minutes generated",
		logging.String(logging.FieldJobID, req.Job.ID),
		logging.Int("length", len(text)),
	)
	req.ReportProgress(100)
	return stage.Result{MinutesText: text}, nil
}

// HealthCheck verifies the minutes model is usable.
func (e *Executor) HealthCheck(ctx context.Context) stage.Health {
	if e.client == nil {
		return stage.Unhealthy("minutes", "llm client not configured")
	}
	if err := e.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("minutes", err.Error())
	}
	return stage.Healthy("minutes")
}
