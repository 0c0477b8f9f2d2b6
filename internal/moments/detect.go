// Package moments extracts key moments (decisions, action items, questions,
// deadlines) from finished transcripts using regex heuristics. The patterns
// are calibration choices inherited from production tuning; keep them as-is.
package moments

import (
	"regexp"
	"strings"

	"scribe/internal/transcript"
)

// Kind classifies a detected moment.
type Kind string

const (
	KindDecision   Kind = "decision"
	KindActionItem Kind = "action_item"
	KindQuestion   Kind = "question"
	KindDeadline   Kind = "deadline"
)

// Moment is one notable point in the meeting.
type Moment struct {
	Kind     Kind    `json:"kind"`
	Speaker  string  `json:"speaker,omitempty"`
	StartSec float64 `json:"start_sec"`
	Text     string  `json:"text"`
}

var patterns = []struct {
	kind Kind
	re   *regexp.Regexp
}{
	{KindDecision, regexp.MustCompile(`(?i)\b(we (have )?decided|it was decided|we agreed|agreement reached|final decision)\b`)},
	{KindActionItem, regexp.MustCompile(`(?i)\b(action item|will take care of|i('ll| will) (do|handle|own|send|prepare)|assigned to|to-?do)\b`)},
	{KindDeadline, regexp.MustCompile(`(?i)\b(by (monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|next week|end of (day|week|month|quarter))|due (on|by)|deadline)\b`)},
	{KindQuestion, regexp.MustCompile(`(?i)\b(open question|unresolved|needs? (a )?decision|who (will|can|should))\b`)},
}

// Detect scans segments in order and returns moments in transcript order.
// A segment yields at most one moment; earlier patterns win.
func Detect(segments []transcript.Segment) []Moment {
	var out []Moment
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		for _, p := range patterns {
			if p.re.MatchString(text) {
				out = append(out, Moment{
					Kind:     p.kind,
					Speaker:  seg.Speaker,
					StartSec: seg.StartSec,
					Text:     text,
				})
				break
			}
		}
	}
	return out
}
