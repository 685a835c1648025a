package intent

import "testing"

func TestResult_Meets(t *testing.T) {
	tests := []struct {
		confidence float64
		threshold  float64
		expected   bool
	}{
		{0.85, 0.85, true},
		{0.849999, 0.85, false},
		{1.0, 0.85, true},
		{0, 0, true},
	}

	for _, tt := range tests {
		r := Result{Label: "cast_protego", Confidence: tt.confidence, Source: SourceVoice}
		if got := r.Meets(tt.threshold); got != tt.expected {
			t.Errorf("Meets(%f) with confidence %f = %v, expected %v", tt.threshold, tt.confidence, got, tt.expected)
		}
	}
}

func TestSource_IsGesture(t *testing.T) {
	if !SourceTemplate.IsGesture() || !SourceNeural.IsGesture() {
		t.Error("gesture sources should report IsGesture")
	}
	if SourceVoice.IsGesture() {
		t.Error("voice source should not report IsGesture")
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct{ in, expected float64 }{
		{-0.5, 0},
		{0.3, 0.3},
		{1.7, 1},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.expected {
			t.Errorf("Clamp01(%f) = %f, expected %f", tt.in, got, tt.expected)
		}
	}
}
