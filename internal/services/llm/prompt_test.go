package llm

import (
	"strings"
	"testing"

	"scribe/internal/transcript"
)

func TestBuildMinutesPromptAppendsDetectedMoments(t *testing.T) {
	tr := transcript.Transcript{Segments: []transcript.Segment{
		{Speaker: "Alice", Text: "We decided to ship on Friday."},
		{Speaker: "Bob", Text: "Weather is nice today."},
	}}

	prompt := BuildMinutesPrompt(tr, DefaultMinutesTemplate)
	if !strings.Contains(prompt, "detected moments") {
		t.Fatalf("prompt missing moment hints:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[decision] We decided to ship on Friday.") {
		t.Fatalf("prompt missing decision moment:\n%s", prompt)
	}
}

func TestBuildMinutesPromptOmitsMomentSectionWhenNoneFound(t *testing.T) {
	tr := transcript.Transcript{Segments: []transcript.Segment{
		{Speaker: "Alice", Text: "Hello everyone."},
	}}

	prompt := BuildMinutesPrompt(tr, DefaultMinutesTemplate)
	if strings.Contains(prompt, "detected moments") {
		t.Fatalf("unexpected moment section:\n%s", prompt)
	}
}
