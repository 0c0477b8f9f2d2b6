package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"scribe/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "transcription", "transcribe", "provider unreachable", base)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected transient marker")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped cause")
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "minutes", "summarize", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("nil marker should default to transient")
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", services.Wrap(services.ErrTransient, "s", "o", "m", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "s", "o", "m", nil), true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"validation", services.Wrap(services.ErrValidation, "s", "o", "m", nil), false},
		{"source missing", services.ErrSourceMissing, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsPermanentInput(t *testing.T) {
	if !services.IsPermanentInput(services.Wrap(services.ErrValidation, "upload", "finalize", "empty media", nil)) {
		t.Fatal("validation errors are permanent input failures")
	}
	if services.IsPermanentInput(services.Wrap(services.ErrTransient, "upload", "finalize", "", nil)) {
		t.Fatal("transient errors are not permanent input failures")
	}
}

func TestMessageStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "transcription", "transcribe", "empty transcript", nil)
	got := services.Message(err)
	want := "transcription: transcribe: empty transcript"
	if got != want {
		t.Fatalf("Message = %q, want %q", got, want)
	}
}

func TestMessagePassthrough(t *testing.T) {
	err := fmt.Errorf("plain failure")
	if got := services.Message(err); got != "plain failure" {
		t.Fatalf("unexpected message: %q", got)
	}
}
