package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// UnknownSpeaker labels segments whose speaker could not be identified.
const UnknownSpeaker = "unknown"

// Segment is one contiguous span of transcribed speech.
type Segment struct {
	Index    int     `json:"index"`
	Speaker  string  `json:"speaker,omitempty"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

// Speaker describes one diarized participant.
type Speaker struct {
	Name       string   `json:"name"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Transcript bundles segments with the speaker roster detected alongside them.
type Transcript struct {
	Segments []Segment `json:"segments"`
	Speakers []Speaker `json:"speakers,omitempty"`
	Language string    `json:"language,omitempty"`
}

var inaudiblePattern = regexp.MustCompile(`(?i)\[\s*(inaudible|unclear|unintelligible|crosstalk)\s*\]`)

// IsEmpty reports whether the transcript carries no usable speech.
func (t Transcript) IsEmpty() bool {
	for _, seg := range t.Segments {
		if strings.TrimSpace(seg.Text) != "" {
			return false
		}
	}
	return true
}

// WordCount returns the total word count across all segments.
func (t Transcript) WordCount() int {
	total := 0
	for _, seg := range t.Segments {
		total += len(strings.Fields(seg.Text))
	}
	return total
}

// InaudibleCount returns the number of inaudible/unclear markers in the text.
func (t Transcript) InaudibleCount() int {
	count := 0
	for _, seg := range t.Segments {
		count += len(inaudiblePattern.FindAllStringIndex(seg.Text, -1))
	}
	return count
}

// NamedSpeakers returns the distinct speakers that carry a real name.
func (t Transcript) NamedSpeakers() []Speaker {
	named := make([]Speaker, 0, len(t.Speakers))
	seen := make(map[string]struct{}, len(t.Speakers))
	for _, sp := range t.Speakers {
		name := strings.TrimSpace(sp.Name)
		if name == "" || strings.EqualFold(name, UnknownSpeaker) {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		named = append(named, sp)
	}
	return named
}

// Marshal serializes a transcript for persistence in the job record.
func Marshal(t Transcript) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	return string(data), nil
}

// Unmarshal restores a transcript persisted by Marshal.
func Unmarshal(raw string) (Transcript, error) {
	var t Transcript
	if strings.TrimSpace(raw) == "" {
		return t, errors.New("empty transcript payload")
	}
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return t, fmt.Errorf("unmarshal transcript: %w", err)
	}
	return t, nil
}
