package scoring_test

import (
	"context"
	"encoding/json"
	"testing"

	"scribe/internal/jobs"
	"scribe/internal/quality"
	"scribe/internal/scoring"
	"scribe/internal/stage"
	"scribe/internal/transcript"
)

func mustMarshal(t *testing.T, tr transcript.Transcript) string {
	t.Helper()
	raw, err := transcript.Marshal(tr)
	if err != nil {
		t.Fatalf("marshal transcript: %v", err)
	}
	return raw
}

func TestRunScoresTranscript(t *testing.T) {
	conf := 0.9
	tr := transcript.Transcript{
		Segments: []transcript.Segment{
			{Index: 0, Speaker: "Alice", Text: "we agreed to ship the release candidate on friday after the regression suite passes cleanly again"},
		},
		Speakers: []transcript.Speaker{{Name: "Alice", Confidence: &conf}},
	}
	exec := scoring.NewExecutor(nil)

	result, err := exec.Run(context.Background(), stage.Request{
		Job: jobs.Job{ID: "job-1", TranscriptJSON: mustMarshal(t, tr)},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	var metrics quality.Metrics
	if err := json.Unmarshal([]byte(result.QualityJSON), &metrics); err != nil {
		t.Fatalf("quality artifact unreadable: %v", err)
	}
	want := quality.Score(tr.Segments, tr.Speakers)
	if metrics.Overall != want.Overall || metrics.Grade != want.Grade {
		t.Fatalf("artifact %+v does not match direct scoring %+v", metrics, want)
	}
	if metrics.Clarity != 100 {
		t.Fatalf("expected full clarity, got %v", metrics.Clarity)
	}
}

func TestRunDegradesOnUnreadableTranscript(t *testing.T) {
	exec := scoring.NewExecutor(nil)

	for _, raw := range []string{"", "not-json"} {
		result, err := exec.Run(context.Background(), stage.Request{
			Job: jobs.Job{ID: "job-1", TranscriptJSON: raw},
		})
		if err != nil {
			t.Fatalf("scoring must never fail the job, got %v", err)
		}
		var metrics quality.Metrics
		if err := json.Unmarshal([]byte(result.QualityJSON), &metrics); err != nil {
			t.Fatalf("quality artifact unreadable: %v", err)
		}
		if def := quality.Default(); metrics.Overall != def.Overall || metrics.Grade != def.Grade {
			t.Fatalf("expected neutral metrics for %q, got %+v", raw, metrics)
		}
	}
}

func TestRunIsDeterministic(t *testing.T) {
	raw := mustMarshal(t, transcript.Transcript{
		Segments: []transcript.Segment{{Index: 0, Speaker: "Bob", Text: "short [inaudible] note"}},
		Speakers: []transcript.Speaker{{Name: "Bob"}},
	})
	exec := scoring.NewExecutor(nil)
	req := stage.Request{Job: jobs.Job{ID: "job-1", TranscriptJSON: raw}}

	first, err := exec.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	second, err := exec.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if first.QualityJSON != second.QualityJSON {
		t.Fatalf("scoring not deterministic:\n%s\n%s", first.QualityJSON, second.QualityJSON)
	}
}
