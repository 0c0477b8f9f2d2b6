package quality

import (
	"encoding/json"
	"fmt"
	"math"

	"scribe/internal/transcript"
)

// Scoring constants. These weights and penalties are calibration choices
// carried over from production tuning; do not adjust them to "round" values.
const (
	clarityPenaltyPerMarker = 5.0
	neutralConfidence       = 50.0
	targetSegmentWords      = 20.0
	pointsPerNamedSpeaker   = 25.0

	weightClarity    = 0.40
	weightConfidence = 0.30
	weightSegments   = 0.15
	weightSpeakers   = 0.15
)

// Metrics is the deterministic quality assessment of a finished transcript.
type Metrics struct {
	Clarity         float64  `json:"clarity"`
	Confidence      float64  `json:"confidence"`
	SegmentQuality  float64  `json:"segment_quality"`
	SpeakerScore    float64  `json:"speaker_score"`
	Overall         int      `json:"overall"`
	Grade           string   `json:"grade"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Score computes quality metrics from transcript segments and the speaker
// roster. It is a pure function: identical input always produces identical
// output, and it performs no I/O.
func Score(segments []transcript.Segment, speakers []transcript.Speaker) Metrics {
	tr := transcript.Transcript{Segments: segments, Speakers: speakers}
	if len(segments) == 0 {
		return Metrics{Grade: gradeFor(0), Recommendations: []string{
			"No speech was detected; check the recording input device.",
		}}
	}

	clarity := clamp(100 - clarityPenaltyPerMarker*float64(tr.InaudibleCount()))
	confidence := confidenceScore(speakers)
	segmentQuality := segmentScore(tr)
	speakerScore := clamp(pointsPerNamedSpeaker * float64(len(tr.NamedSpeakers())))

	weighted := clarity*weightClarity +
		confidence*weightConfidence +
		segmentQuality*weightSegments +
		speakerScore*weightSpeakers
	overall := int(math.Round(clamp(weighted)))

	m := Metrics{
		Clarity:        clarity,
		Confidence:     confidence,
		SegmentQuality: segmentQuality,
		SpeakerScore:   speakerScore,
		Overall:        overall,
		Grade:          gradeFor(overall),
	}
	m.Recommendations = recommend(m, tr)
	return m
}

// Default returns the neutral metrics persisted when scoring itself fails.
// The pipeline never blocks on quality assessment.
func Default() Metrics {
	return Metrics{
		Clarity:        neutralConfidence,
		Confidence:     neutralConfidence,
		SegmentQuality: neutralConfidence,
		SpeakerScore:   neutralConfidence,
		Overall:        int(neutralConfidence),
		Grade:          gradeFor(int(neutralConfidence)),
		Recommendations: []string{
			"Quality assessment was unavailable for this recording.",
		},
	}
}

func confidenceScore(speakers []transcript.Speaker) float64 {
	var sum float64
	var count int
	for _, sp := range speakers {
		if sp.Confidence == nil {
			continue
		}
		sum += *sp.Confidence * 100
		count++
	}
	if count == 0 {
		return neutralConfidence
	}
	return clamp(sum / float64(count))
}

func segmentScore(tr transcript.Transcript) float64 {
	if len(tr.Segments) == 0 {
		return 0
	}
	avgWords := float64(tr.WordCount()) / float64(len(tr.Segments))
	return clamp(avgWords / targetSegmentWords * 100)
}

func gradeFor(overall int) string {
	switch {
	case overall >= 90:
		return "A"
	case overall >= 80:
		return "B"
	case overall >= 70:
		return "C"
	case overall >= 60:
		return "D"
	default:
		return "F"
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Marshal serializes metrics for persistence in the job record.
func Marshal(m Metrics) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal quality metrics: %w", err)
	}
	return string(data), nil
}

// Unmarshal restores metrics persisted by Marshal.
func Unmarshal(raw string) (Metrics, error) {
	var m Metrics
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return m, fmt.Errorf("unmarshal quality metrics: %w", err)
	}
	return m, nil
}
