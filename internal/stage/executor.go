package stage

import (
	"context"

	"scribe/internal/jobs"
)

// Request carries everything an executor needs for a single attempt. The job
// value is a snapshot; executors never write to the store themselves.
type Request struct {
	Job     jobs.Job
	Attempt int
	// Progress reports in-stage progress (0-100). May be nil.
	Progress func(percent int)
}

// Result carries the artifacts a stage produced. The orchestrator persists
// whichever fields the stage filled in.
type Result struct {
	TranscriptJSON string
	QualityJSON    string
	MinutesText    string
}

// Executor runs one pipeline stage for one job attempt. Implementations are
// pure with respect to the job store: they read the request, call their
// providers, and return a result or a classified error.
type Executor interface {
	Stage() jobs.Stage
	Run(context.Context, Request) (Result, error)
	HealthCheck(context.Context) Health
}

// ReportProgress invokes the request callback when one is set, clamping the
// value into range.
func (r Request) ReportProgress(percent int) {
	if r.Progress == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	r.Progress(percent)
}
