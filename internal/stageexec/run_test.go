package stageexec

import (
	"context"
	"errors"
	"testing"
	"time"

	"scribe/internal/jobs"
	"scribe/internal/services"
	"scribe/internal/stage"
)

type scriptedExecutor struct {
	stageName jobs.Stage
	errs      []error
	calls     int
	result    stage.Result
}

func (s *scriptedExecutor) Stage() jobs.Stage { return s.stageName }

func (s *scriptedExecutor) Run(ctx context.Context, _ stage.Request) (stage.Result, error) {
	if err := ctx.Err(); err != nil {
		return stage.Result{}, err
	}
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return stage.Result{}, s.errs[idx]
	}
	return s.result, nil
}

func (s *scriptedExecutor) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(string(s.stageName))
}

func noSleep(t *testing.T, delays *[]time.Duration) Option {
	t.Helper()
	return WithSleeper(func(_ context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	})
}

func testPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 4 * time.Second, StageTimeout: time.Minute}
}

func TestRunRetriesTransientThenSucceeds(t *testing.T) {
	exec := &scriptedExecutor{
		stageName: jobs.StageTranscription,
		errs: []error{
			services.Wrap(services.ErrTransient, "transcription", "call", "flaky", nil),
			services.Wrap(services.ErrTimeout, "transcription", "call", "slow", nil),
		},
		result: stage.Result{TranscriptJSON: "{}"},
	}
	var delays []time.Duration
	runner := NewRunner(testPolicy(), nil, noSleep(t, &delays))

	result, err := runner.Run(context.Background(), exec, stage.Request{Job: jobs.Job{ID: "job-1"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.TranscriptJSON != "{}" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if exec.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", exec.calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) || delays[0] != want[0] || delays[1] != want[1] {
		t.Fatalf("unexpected backoff delays: %v", delays)
	}
}

func TestRunPermanentErrorDoesNotRetry(t *testing.T) {
	permErr := services.Wrap(services.ErrValidation, "upload", "check", "unsupported format", nil)
	exec := &scriptedExecutor{stageName: jobs.StageUpload, errs: []error{permErr, nil}}
	runner := NewRunner(testPolicy(), nil, noSleep(t, nil))

	_, err := runner.Run(context.Background(), exec, stage.Request{Job: jobs.Job{ID: "job-1"}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if exec.calls != 1 {
		t.Fatalf("expected 1 call, got %d", exec.calls)
	}
}

func TestRunStopsAtMaxAttempts(t *testing.T) {
	transient := services.Wrap(services.ErrTransient, "minutes", "call", "still down", nil)
	exec := &scriptedExecutor{
		stageName: jobs.StageMinutes,
		errs:      []error{transient, transient, transient, transient},
	}
	runner := NewRunner(testPolicy(), nil, noSleep(t, nil))

	_, err := runner.Run(context.Background(), exec, stage.Request{Job: jobs.Job{ID: "job-1"}})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if exec.calls != 3 {
		t.Fatalf("expected calls capped at 3, got %d", exec.calls)
	}
}

func TestRunCancelledContextStopsRetry(t *testing.T) {
	transient := services.Wrap(services.ErrTransient, "quality", "call", "flaky", nil)
	exec := &scriptedExecutor{stageName: jobs.StageQuality, errs: []error{transient, transient}}

	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunner(testPolicy(), nil, WithSleeper(func(_ context.Context, _ time.Duration) error {
		cancel()
		return context.Canceled
	}))

	_, err := runner.Run(ctx, exec, stage.Request{Job: jobs.Job{ID: "job-1"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if exec.calls != 1 {
		t.Fatalf("expected retries to stop after cancel, got %d calls", exec.calls)
	}
}

func TestBackoffDelayCaps(t *testing.T) {
	policy := Policy{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	cases := []struct {
		call int
		want time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{9, 5 * time.Second},
	}
	for _, tc := range cases {
		if got := backoffDelay(policy, tc.call); got != tc.want {
			t.Fatalf("call %d: got %v, want %v", tc.call, got, tc.want)
		}
	}
}

func TestNewRunnerClampsAttempts(t *testing.T) {
	exec := &scriptedExecutor{stageName: jobs.StageUpload}
	runner := NewRunner(Policy{MaxAttempts: 0}, nil)
	if _, err := runner.Run(context.Background(), exec, stage.Request{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if exec.calls != 1 {
		t.Fatalf("expected exactly one call, got %d", exec.calls)
	}
}
