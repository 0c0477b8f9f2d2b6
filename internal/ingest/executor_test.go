package ingest_test

import (
	"context"
	"errors"
	"testing"

	"scribe/internal/ingest"
	"scribe/internal/jobs"
	"scribe/internal/services"
	"scribe/internal/stage"
	"scribe/internal/storage"
)

func newStore(t *testing.T) *storage.Local {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return store
}

func saveRecording(t *testing.T, store *storage.Local, name string, data []byte) string {
	t.Helper()
	ref, err := store.Save(context.Background(), name, data)
	if err != nil {
		t.Fatalf("save recording: %v", err)
	}
	return ref
}

func TestRunAcceptsValidRecording(t *testing.T) {
	store := newStore(t)
	ref := saveRecording(t, store, "standup.wav", []byte("RIFFdata"))
	exec := ingest.NewExecutor(store, nil)

	var progress []int
	req := stage.Request{
		Job:      jobs.Job{ID: "job-1", SourceRef: ref},
		Progress: func(p int) { progress = append(progress, p) },
	}
	if _, err := exec.Run(context.Background(), req); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(progress) == 0 || progress[len(progress)-1] != 100 {
		t.Fatalf("expected final progress 100, got %v", progress)
	}
}

func TestRunRejectsMissingSource(t *testing.T) {
	exec := ingest.NewExecutor(newStore(t), nil)
	req := stage.Request{Job: jobs.Job{ID: "job-1", SourceRef: "gone.wav"}}
	_, err := exec.Run(context.Background(), req)
	if !errors.Is(err, services.ErrSourceMissing) {
		t.Fatalf("expected ErrSourceMissing, got %v", err)
	}
}

func TestRunRejectsEmptyRecording(t *testing.T) {
	store := newStore(t)
	ref := saveRecording(t, store, "empty.wav", nil)
	exec := ingest.NewExecutor(store, nil)

	_, err := exec.Run(context.Background(), stage.Request{Job: jobs.Job{SourceRef: ref}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRunRejectsUnsupportedContainer(t *testing.T) {
	store := newStore(t)
	ref := saveRecording(t, store, "notes.txt", []byte("not audio"))
	exec := ingest.NewExecutor(store, nil)

	_, err := exec.Run(context.Background(), stage.Request{Job: jobs.Job{SourceRef: ref}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRunRejectsBlankSourceRef(t *testing.T) {
	exec := ingest.NewExecutor(newStore(t), nil)
	_, err := exec.Run(context.Background(), stage.Request{Job: jobs.Job{SourceRef: "  "}})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	exec := ingest.NewExecutor(newStore(t), nil)
	if health := exec.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy, got %+v", health)
	}
}
