// Package stageexec executes pipeline stages with a bounded retry policy.
// Retry lives here, not in the provider clients: executors return classified
// errors and this layer decides whether another attempt is worthwhile.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/stage"
)

// Policy bounds how a stage call is retried.
type Policy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	StageTimeout time.Duration
}

// PolicyFromConfig derives a retry policy from pipeline configuration.
func PolicyFromConfig(cfg config.Pipeline) Policy {
	return Policy{
		MaxAttempts:  cfg.RetryMaxAttempts,
		BaseDelay:    time.Duration(cfg.RetryBaseDelaySeconds) * time.Second,
		MaxDelay:     time.Duration(cfg.RetryMaxDelaySeconds) * time.Second,
		StageTimeout: time.Duration(cfg.StageTimeoutSeconds) * time.Second,
	}
}

// Runner applies a Policy to stage executors.
type Runner struct {
	policy Policy
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSleeper overrides how retry delays are waited out (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(r *Runner) {
		if sleeper != nil {
			r.sleep = sleeper
		}
	}
}

// NewRunner constructs a Runner with the supplied policy.
func NewRunner(policy Policy, logger *slog.Logger, opts ...Option) *Runner {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	runner := &Runner{policy: policy, logger: logger, sleep: sleepContext}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run executes one stage for one job, retrying transient failures with
// exponential backoff. Permanent failures and context cancellation return
// immediately. Each call gets its own deadline from the policy.
func (r *Runner) Run(ctx context.Context, exec stage.Executor, req stage.Request) (stage.Result, error) {
	var empty stage.Result
	if exec == nil {
		return empty, fmt.Errorf("stage executor required")
	}
	name := string(exec.Stage())
	logger := r.logger.With(
		logging.String(logging.FieldStage, name),
		logging.String(logging.FieldJobID, req.Job.ID),
	)

	var lastErr error
	for call := 1; call <= r.policy.MaxAttempts; call++ {
		result, err := r.runOnce(ctx, exec, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return empty, ctx.Err()
		}
		if !services.IsTransient(err) || call == r.policy.MaxAttempts {
			return empty, err
		}

		delay := backoffDelay(r.policy, call)
		logger.Warn("stage call failed, retrying",
			logging.Int(logging.FieldAttempt, call),
			logging.String("retry_in", delay.String()),
			logging.Error(err),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return empty, err
		}
	}
	return empty, lastErr
}

func (r *Runner) runOnce(ctx context.Context, exec stage.Executor, req stage.Request) (stage.Result, error) {
	callCtx := ctx
	if r.policy.StageTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.policy.StageTimeout)
		defer cancel()
	}
	return exec.Run(callCtx, req)
}

// backoffDelay grows from the base delay, doubling per completed call, capped
// at the policy maximum. call 1 -> base, call 2 -> base*2, call 3 -> base*4.
func backoffDelay(policy Policy, call int) time.Duration {
	delay := policy.BaseDelay
	if delay <= 0 {
		return 0
	}
	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = delay
	}
	for i := 1; i < call; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
