// Package intent defines the classification result shared by every recognition
// modality (gesture templates, the neural backend and voice).
package intent

import "fmt"

// Source identifies which modality produced a result.
type Source string

const (
	// SourceTemplate is a result from the gesture template matcher.
	SourceTemplate Source = "gesture-template"
	// SourceNeural is a result from the neural gesture backend.
	SourceNeural Source = "gesture-neural"
	// SourceVoice is a result from the voice intent listener.
	SourceVoice Source = "voice"
)

// IsGesture reports whether the source is one of the gesture backends.
func (s Source) IsGesture() bool {
	return s == SourceTemplate || s == SourceNeural
}

// Result is a single classification outcome. Results are produced fresh per
// classification call and never mutated afterwards.
type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // 0-1, higher is better
	Source     Source  `json:"source"`
}

// Meets reports whether the result confidence is at or above threshold.
func (r Result) Meets(threshold float64) bool {
	return r.Confidence >= threshold
}

func (r Result) String() string {
	return fmt.Sprintf("%s(%s %.3f)", r.Source, r.Label, r.Confidence)
}

// Clamp01 limits a confidence value to the [0, 1] range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
