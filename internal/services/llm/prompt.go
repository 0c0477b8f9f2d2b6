package llm

import (
	"fmt"
	"strings"

	"scribe/internal/moments"
	"scribe/internal/transcript"
)

// MinutesSystemPrompt instructs the model to act as a minute taker.
const MinutesSystemPrompt = `You are a meeting minute taker. You receive a diarized meeting transcript and a markdown template. Produce concise, factual minutes that follow the template exactly. Use only information present in the transcript. Respond with markdown only, no commentary.`

// DefaultMinutesTemplate is used when the operator does not configure one.
const DefaultMinutesTemplate = `# Meeting Minutes

## Attendees

## Summary

## Decisions

## Action Items

## Open Questions`

// BuildMinutesPrompt renders the user prompt combining the template and the
// transcript in a speaker-labelled form.
func BuildMinutesPrompt(tr transcript.Transcript, template string) string {
	var b strings.Builder
	b.WriteString("Template:\n\n")
	b.WriteString(strings.TrimSpace(template))
	b.WriteString("\n\nTranscript:\n\n")
	for _, seg := range tr.Segments {
		speaker := strings.TrimSpace(seg.Speaker)
		if speaker == "" {
			speaker = transcript.UnknownSpeaker
		}
		fmt.Fprintf(&b, "[%s] %s\n", speaker, strings.TrimSpace(seg.Text))
	}
	if detected := moments.Detect(tr.Segments); len(detected) > 0 {
		b.WriteString("\nHeuristically detected moments (verify against the transcript):\n\n")
		for _, m := range detected {
			fmt.Fprintf(&b, "- [%s] %s\n", m.Kind, m.Text)
		}
	}
	return b.String()
}
