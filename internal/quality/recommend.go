package quality

import "scribe/internal/transcript"

// recommend derives short, rule-based guidance from the sub-scores. Rules are
// checked in a fixed order so output stays deterministic.
func recommend(m Metrics, tr transcript.Transcript) []string {
	var out []string
	if m.Clarity < 70 {
		out = append(out, "Frequent inaudible passages detected; reduce background noise or move the microphone closer.")
	}
	if m.Confidence < 60 {
		out = append(out, "Speaker identification confidence is low; ask participants to announce themselves.")
	}
	if m.SegmentQuality < 50 {
		out = append(out, "Speech segments are very short; encourage speakers to finish their thoughts before handing over.")
	}
	if m.SpeakerScore < 50 && len(tr.Segments) > 0 {
		out = append(out, "Few participants were identified by name; enable speaker diarization or label speakers manually.")
	}
	return out
}
