// Package scoring runs the deterministic quality assessment stage.
package scoring

import (
	"context"
	"encoding/json"
	"log/slog"

	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/quality"
	"scribe/internal/stage"
	"scribe/internal/transcript"
)

// Executor scores a finished transcript. Scoring never fails a job: when the
// transcript artifact is unreadable the stage degrades to neutral metrics and
// the pipeline continues.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor constructs the quality scoring executor.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{logger: logger}
}

// Stage identifies the pipeline stage this executor serves.
func (e *Executor) Stage() jobs.Stage { return jobs.StageQuality }

// Run computes quality metrics for the job's transcript artifact.
func (e *Executor) Run(_ context.Context, req stage.Request) (stage.Result, error) {
	metrics := e.score(req)
	raw, err := json.Marshal(metrics)
	if err != nil {
		// Metrics is a plain struct; marshal cannot realistically fail, but
		// degrade rather than break the job if it ever does.
		raw, _ = json.Marshal(quality.Default())
	}
	req.ReportProgress(100)
	return stage.Result{QualityJSON: string(raw)}, nil
}

func (e *Executor) score(req stage.Request) quality.Metrics {
	tr, err := transcript.Unmarshal(req.Job.TranscriptJSON)
	if err != nil {
		e.logger.Warn("transcript artifact unreadable, using neutral quality metrics",
			logging.String(logging.FieldJobID, req.Job.ID),
			logging.Error(err),
		)
		return quality.Default()
	}
	return quality.Score(tr.Segments, tr.Speakers)
}

// HealthCheck always reports ready: scoring is pure computation.
func (e *Executor) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("quality")
}
