package arbiter

import (
	"testing"
	"time"

	"github.com/ayusman/wandcast/internal/intent"
)

type staticGate bool

func (g staticGate) Ready() bool { return bool(g) }

func gestureResult(label string) intent.Result {
	return intent.Result{Label: label, Confidence: 0.95, Source: intent.SourceTemplate}
}

func neuralResult(label string) intent.Result {
	return intent.Result{Label: label, Confidence: 0.95, Source: intent.SourceNeural}
}

func voiceResult(label string) intent.Result {
	return intent.Result{Label: label, Confidence: 0.9, Source: intent.SourceVoice}
}

func TestArbiter_BothCastsOnMatch(t *testing.T) {
	a := New(DefaultConfig(), nil)

	var cast []Decision
	a.AddSink(SinkFunc(func(d Decision) { cast = append(cast, d) }))

	if _, ok := a.OfferGesture(gestureResult("cast_stupefy")); ok {
		t.Fatal("gesture alone should not cast")
	}
	a.Advance(500 * time.Millisecond)

	d, ok := a.OfferVoice(voiceResult("cast_stupefy"))
	if !ok {
		t.Fatal("expected cast when gesture and voice agree")
	}
	if d.Spell != "cast_stupefy" || d.Policy != PolicyBoth {
		t.Errorf("unexpected decision %+v", d)
	}
	if d.Gesture == nil || d.Voice == nil {
		t.Error("decision should carry both results")
	}
	if d.ID == "" || d.At != 500*time.Millisecond {
		t.Errorf("unexpected decision metadata %+v", d)
	}
	if len(cast) != 1 {
		t.Errorf("expected sink called once, got %d", len(cast))
	}

	// Both slots clear after a cast
	if _, ok := a.OfferVoice(voiceResult("cast_stupefy")); ok {
		t.Error("a cast must not fire twice from the same gesture")
	}
}

func TestArbiter_BothMismatch(t *testing.T) {
	a := New(DefaultConfig(), nil)

	a.OfferGesture(gestureResult("cast_protego"))
	if _, ok := a.OfferVoice(voiceResult("cast_bombardo")); ok {
		t.Fatal("mismatched intents should not cast")
	}

	// A later matching gesture replaces the earlier one
	if _, ok := a.OfferGesture(gestureResult("cast_bombardo")); !ok {
		t.Error("expected cast after matching gesture")
	}
}

func TestArbiter_WindowExpiry(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		cast    bool
	}{
		{"well inside", time.Second, true},
		{"at the edge", 2 * time.Second, true},
		{"expired", 2*time.Second + time.Millisecond, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(DefaultConfig(), nil)

			a.OfferVoice(voiceResult("cast_stupefy"))
			a.Advance(tt.elapsed)
			if _, ok := a.OfferGesture(gestureResult("cast_stupefy")); ok != tt.cast {
				t.Errorf("cast = %v, expected %v", ok, tt.cast)
			}
		})
	}
}

func TestArbiter_ExpiredVoiceReplaced(t *testing.T) {
	a := New(DefaultConfig(), nil)

	a.OfferVoice(voiceResult("cast_stupefy"))
	a.Advance(3 * time.Second)
	if _, ok := a.OfferGesture(gestureResult("cast_stupefy")); ok {
		t.Fatal("stale voice intent should not cast")
	}

	a.Advance(time.Second)
	if _, ok := a.OfferVoice(voiceResult("cast_stupefy")); !ok {
		t.Error("fresh voice with a gesture inside the window should cast")
	}
}

func TestArbiter_Mapping(t *testing.T) {
	config := DefaultConfig()
	config.Mapping = map[string]string{"cast_lumos": "cast_protego"}
	a := New(config, nil)

	a.OfferGesture(gestureResult("cast_protego"))
	d, ok := a.OfferVoice(voiceResult("cast_lumos"))
	if !ok || d.Spell != "cast_protego" {
		t.Fatalf("expected mapped cast, got %+v ok=%v", d, ok)
	}

	a.OfferGesture(gestureResult("cast_stupefy"))
	if _, ok := a.OfferVoice(voiceResult("cast_stupefy")); ok {
		t.Error("unmapped intent should never cast with an explicit mapping")
	}
}

func TestArbiter_NeuralExcludedUntilReady(t *testing.T) {
	tests := []struct {
		name string
		gate Gate
		cast bool
	}{
		{"no gate", nil, false},
		{"warming", staticGate(false), false},
		{"ready", staticGate(true), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(DefaultConfig(), tt.gate)

			a.OfferVoice(voiceResult("cast_bombardo"))
			if _, ok := a.OfferGesture(neuralResult("cast_bombardo")); ok != tt.cast {
				t.Errorf("cast = %v, expected %v", ok, tt.cast)
			}
		})
	}
}

func TestArbiter_TemplateIgnoresGate(t *testing.T) {
	a := New(DefaultConfig(), staticGate(false))

	a.OfferVoice(voiceResult("cast_bombardo"))
	if _, ok := a.OfferGesture(gestureResult("cast_bombardo")); !ok {
		t.Error("template results do not depend on warm-up")
	}
}

func TestArbiter_Either(t *testing.T) {
	a := New(Config{Policy: PolicyEither}, nil)

	d, ok := a.OfferGesture(gestureResult("cast_protego"))
	if !ok || d.Spell != "cast_protego" || d.Voice != nil {
		t.Fatalf("expected gesture-only cast, got %+v ok=%v", d, ok)
	}

	d, ok = a.OfferVoice(voiceResult("cast_stupefy"))
	if !ok || d.Spell != "cast_stupefy" || d.Gesture != nil {
		t.Fatalf("expected voice-only cast, got %+v ok=%v", d, ok)
	}
}

func TestArbiter_RejectsWrongSource(t *testing.T) {
	a := New(Config{Policy: PolicyEither}, nil)

	if _, ok := a.OfferGesture(voiceResult("cast_stupefy")); ok {
		t.Error("voice result offered as gesture should be ignored")
	}
	if _, ok := a.OfferVoice(gestureResult("cast_stupefy")); ok {
		t.Error("gesture result offered as voice should be ignored")
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in       string
		expected Policy
		wantErr  bool
	}{
		{"", PolicyBoth, false},
		{"both", PolicyBoth, false},
		{"either", PolicyEither, false},
		{"priority", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.expected {
			t.Errorf("ParsePolicy(%q) = %q, %v", tt.in, got, err)
		}
	}
}
