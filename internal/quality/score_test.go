package quality_test

import (
	"reflect"
	"strings"
	"testing"

	"scribe/internal/quality"
	"scribe/internal/transcript"
)

func conf(v float64) *float64 { return &v }

// scenarioInput builds a 3-segment transcript with one inaudible marker, two
// named speakers with confidences 0.9 and 0.4, and an average segment length
// of 18 words.
func scenarioInput() ([]transcript.Segment, []transcript.Speaker) {
	words := func(n int, marker bool) string {
		parts := make([]string, 0, n)
		for i := 0; i < n; i++ {
			parts = append(parts, "word")
		}
		text := strings.Join(parts, " ")
		if marker {
			text += " [inaudible]"
		}
		return text
	}
	// 18 + 18 + 18 words across 3 segments; the marker counts as one word.
	segments := []transcript.Segment{
		{Index: 0, Speaker: "Alice", Text: words(18, false)},
		{Index: 1, Speaker: "Bob", Text: words(17, true)},
		{Index: 2, Speaker: "Alice", Text: words(18, false)},
	}
	speakers := []transcript.Speaker{
		{Name: "Alice", Confidence: conf(0.9)},
		{Name: "Bob", Confidence: conf(0.4)},
	}
	return segments, speakers
}

func TestScoreScenario(t *testing.T) {
	segments, speakers := scenarioInput()
	m := quality.Score(segments, speakers)

	if m.Clarity != 95 {
		t.Fatalf("clarity = %v, want 95", m.Clarity)
	}
	if m.Confidence != 65 {
		t.Fatalf("confidence = %v, want 65", m.Confidence)
	}
	if m.SegmentQuality < 89 || m.SegmentQuality > 91 {
		t.Fatalf("segment quality = %v, want ~90", m.SegmentQuality)
	}
	if m.SpeakerScore != 50 {
		t.Fatalf("speaker score = %v, want 50", m.SpeakerScore)
	}
	if m.Overall != 79 {
		t.Fatalf("overall = %d, want 79", m.Overall)
	}
	if m.Grade != "C" {
		t.Fatalf("grade = %s, want C", m.Grade)
	}
}

func TestScoreDeterminism(t *testing.T) {
	segments, speakers := scenarioInput()
	first := quality.Score(segments, speakers)
	second := quality.Score(segments, speakers)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical input produced different output:\n%+v\n%+v", first, second)
	}
}

func TestScoreZeroSegments(t *testing.T) {
	m := quality.Score(nil, nil)
	if m.Overall != 0 {
		t.Fatalf("overall = %d, want 0", m.Overall)
	}
	if m.Clarity != 0 || m.Confidence != 0 || m.SegmentQuality != 0 || m.SpeakerScore != 0 {
		t.Fatalf("expected all sub-scores 0, got %+v", m)
	}
	if m.Grade != "F" {
		t.Fatalf("grade = %s, want F", m.Grade)
	}
}

func TestScoreNoInaudibleMarkersFullClarity(t *testing.T) {
	segments := []transcript.Segment{
		{Index: 0, Speaker: "Alice", Text: "clean audio with no problems at all here"},
	}
	m := quality.Score(segments, nil)
	if m.Clarity != 100 {
		t.Fatalf("clarity = %v, want 100", m.Clarity)
	}
}

func TestScoreClarityFloorsAtZero(t *testing.T) {
	text := strings.Repeat("[inaudible] ", 30)
	segments := []transcript.Segment{{Index: 0, Text: text}}
	m := quality.Score(segments, nil)
	if m.Clarity != 0 {
		t.Fatalf("clarity = %v, want 0", m.Clarity)
	}
}

func TestScoreConfidenceDefaultsToNeutral(t *testing.T) {
	segments := []transcript.Segment{{Index: 0, Speaker: "Alice", Text: "hello there everyone"}}
	speakers := []transcript.Speaker{{Name: "Alice"}}
	m := quality.Score(segments, speakers)
	if m.Confidence != 50 {
		t.Fatalf("confidence = %v, want neutral 50", m.Confidence)
	}
}

func TestScoreSpeakerScoreIgnoresUnknown(t *testing.T) {
	segments := []transcript.Segment{{Index: 0, Text: "hello"}}
	speakers := []transcript.Speaker{
		{Name: "Alice"},
		{Name: "unknown"},
		{Name: ""},
	}
	m := quality.Score(segments, speakers)
	if m.SpeakerScore != 25 {
		t.Fatalf("speaker score = %v, want 25", m.SpeakerScore)
	}
}

func TestScoreSpeakerScoreCaps(t *testing.T) {
	segments := []transcript.Segment{{Index: 0, Text: "hello"}}
	var speakers []transcript.Speaker
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		speakers = append(speakers, transcript.Speaker{Name: name})
	}
	m := quality.Score(segments, speakers)
	if m.SpeakerScore != 100 {
		t.Fatalf("speaker score = %v, want capped 100", m.SpeakerScore)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	segments, speakers := scenarioInput()
	m := quality.Score(segments, speakers)
	raw, err := quality.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	restored, err := quality.Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(m, restored) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", m, restored)
	}
}
