package jobs_test

import (
	"context"
	"errors"
	"testing"

	"scribe/internal/jobs"
	"scribe/internal/testsupport"
)

func TestCreateAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.Create(ctx, "meeting.wav", "en", true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Stage != jobs.StageUpload || job.Status != jobs.StatusPending {
		t.Fatalf("unexpected initial state: %s/%s", job.Stage, job.Status)
	}
	if job.Attempt != 1 {
		t.Fatalf("expected attempt 1, got %d", job.Attempt)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.SourceRef != "meeting.wav" || fetched.LanguageHint != "en" || !fetched.MinutesEnabled {
		t.Fatalf("unexpected fetched job: %+v", fetched)
	}
}

func TestCreateRequiresSourceRef(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Create(context.Background(), "  ", "", true); err == nil {
		t.Fatal("expected error for missing source ref")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.GetByID(context.Background(), "nope")
	if !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAdvancesStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.Create(ctx, "meeting.wav", "", true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	job.Stage = jobs.StageTranscription
	job.SetStageProgress(jobs.StatusRunning, 10)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Stage != jobs.StageTranscription || fetched.Status != jobs.StatusRunning || fetched.Progress != 10 {
		t.Fatalf("unexpected state: %+v", fetched)
	}
}

func TestUpdateRejectsRegression(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.Create(ctx, "meeting.wav", "", true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	job.Stage = jobs.StageTranscription
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	job.Stage = jobs.StageUpload
	err = store.Update(ctx, job)
	if !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateRejectsSkippingStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.Create(ctx, "meeting.wav", "", true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	job.Stage = jobs.StageMinutes
	err = store.Update(ctx, job)
	if !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestQualitySkipToCompletedAllowed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.Create(ctx, "meeting.wav", "", false)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, stage := range []jobs.Stage{jobs.StageTranscription, jobs.StageQuality} {
		job.Stage = stage
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("advance to %s failed: %v", stage, err)
		}
	}

	job.Stage = jobs.StageCompleted
	job.Status = jobs.StatusDone
	job.Progress = 100
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("quality skip to completed should be legal: %v", err)
	}
}

func TestTerminalJobRejectsFurtherTransitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.Create(ctx, "meeting.wav", "", true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	job.SetCancelled()
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	job.Stage = jobs.StageTranscription
	err = store.Update(ctx, job)
	if !errors.Is(err, jobs.ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
}

func TestResetForRetryResumesFailedStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.Create(ctx, "meeting.wav", "", true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	job.Stage = jobs.StageTranscription
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	job.SetFailed("provider exploded")
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	retried, err := store.ResetForRetry(ctx, job.ID)
	if err != nil {
		t.Fatalf("ResetForRetry failed: %v", err)
	}
	if retried.Stage != jobs.StageTranscription {
		t.Fatalf("expected resume at transcription, got %s", retried.Stage)
	}
	if retried.Attempt != 2 {
		t.Fatalf("expected attempt 2, got %d", retried.Attempt)
	}
	if retried.Status != jobs.StatusPending || retried.ErrorMessage != "" {
		t.Fatalf("expected clean pending state, got %+v", retried)
	}
}

func TestResetForRetryRequiresFailedJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := store.Create(ctx, "meeting.wav", "", true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := store.ResetForRetry(ctx, job.ID); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestListAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, err := store.Create(ctx, "a.wav", "", true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, "b.wav", "", true); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first.Stage = jobs.StageTranscription
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}

	uploads, err := store.List(ctx, jobs.StageUpload)
	if err != nil {
		t.Fatalf("List filtered failed: %v", err)
	}
	if len(uploads) != 1 {
		t.Fatalf("expected 1 upload job, got %d", len(uploads))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[string(jobs.StageUpload)] != 1 || stats[string(jobs.StageTranscription)] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
