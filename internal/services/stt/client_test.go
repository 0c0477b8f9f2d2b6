package stt_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/services"
	"scribe/internal/services/stt"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.wav")
	if err := os.WriteFile(path, []byte("RIFFfake"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestTranscribeParsesSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language hint = %q, want en", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
            "language": "en",
            "segments": [
                {"id": 0, "start": 0, "end": 5, "text": " hello everyone ", "speaker": "Alice", "confidence": 0.9},
                {"id": 1, "start": 5, "end": 9, "text": "status update", "speaker": "Bob", "confidence": 0.4}
            ]
        }`))
	}))
	defer server.Close()

	client := stt.NewClient(stt.Config{BaseURL: server.URL, Model: "whisper"})
	tr, err := client.Transcribe(context.Background(), writeAudio(t), "en")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(tr.Segments))
	}
	if tr.Segments[0].Text != "hello everyone" {
		t.Fatalf("text not trimmed: %q", tr.Segments[0].Text)
	}
	if len(tr.Speakers) != 2 || tr.Speakers[0].Name != "Alice" {
		t.Fatalf("unexpected speakers: %+v", tr.Speakers)
	}
	if tr.Speakers[1].Confidence == nil || *tr.Speakers[1].Confidence != 0.4 {
		t.Fatalf("confidence not carried: %+v", tr.Speakers[1])
	}
}

func TestTranscribeClassifiesServerErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		marker error
	}{
		{"rate limit", http.StatusTooManyRequests, services.ErrTransient},
		{"server error", http.StatusBadGateway, services.ErrTransient},
		{"request timeout", http.StatusRequestTimeout, services.ErrTimeout},
		{"bad request", http.StatusBadRequest, services.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			client := stt.NewClient(stt.Config{BaseURL: server.URL})
			_, err := client.Transcribe(context.Background(), writeAudio(t), "")
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected marker %v, got %v", tc.marker, err)
			}
		})
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	client := stt.NewClient(stt.Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "gone.wav"), "")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTranscribeEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	client := stt.NewClient(stt.Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.Transcribe(context.Background(), path, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTranscribeRequiresConfig(t *testing.T) {
	client := stt.NewClient(stt.Config{})
	_, err := client.Transcribe(context.Background(), writeAudio(t), "")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
