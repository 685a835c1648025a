package voice

import (
	"errors"
	"testing"

	"github.com/ayusman/wandcast/internal/intent"
)

type fakeRecognizer struct {
	handlers    []Handler
	activations int
	err         error
}

func (f *fakeRecognizer) Activate() error {
	f.activations++
	return f.err
}

func (f *fakeRecognizer) Register(h Handler) {
	f.handlers = append(f.handlers, h)
}

func (f *fakeRecognizer) Unregister(h Handler) {
	for i, existing := range f.handlers {
		if existing == h {
			f.handlers = append(f.handlers[:i], f.handlers[i+1:]...)
			return
		}
	}
}

func respond(name string, confidence float64) Response {
	return Response{Intents: []Intent{{Name: name, Confidence: confidence}}}
}

func TestListener_Threshold(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		accepted   bool
	}{
		{"well above", 0.97, true},
		{"exactly at threshold", 0.85, true},
		{"just below", 0.84, false},
		{"zero", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewListener(&fakeRecognizer{}, DefaultConfig())
			l.OnResponse(respond("cast_protego", tt.confidence))

			results := l.Pump()
			if got := len(results) == 1; got != tt.accepted {
				t.Fatalf("accepted = %v, expected %v", got, tt.accepted)
			}
			if tt.accepted {
				r := results[0]
				if r.Label != "cast_protego" || r.Source != intent.SourceVoice || r.Confidence != tt.confidence {
					t.Errorf("unexpected result %+v", r)
				}
			}
		})
	}
}

func TestListener_UsesTopRankedIntent(t *testing.T) {
	l := NewListener(&fakeRecognizer{}, DefaultConfig())
	l.OnResponse(Response{Intents: []Intent{
		{Name: "cast_stupefy", Confidence: 0.5},
		{Name: "cast_bombardo", Confidence: 0.99},
	}})

	if results := l.Pump(); len(results) != 0 {
		t.Errorf("only the first intent counts, got %+v", results)
	}
}

func TestListener_NoIntents(t *testing.T) {
	l := NewListener(&fakeRecognizer{}, DefaultConfig())
	l.OnResponse(Response{Text: "mumble"})

	if results := l.Pump(); len(results) != 0 {
		t.Errorf("expected nothing, got %+v", results)
	}
}

func TestListener_BeginRecordingClearsTranscription(t *testing.T) {
	rec := &fakeRecognizer{}
	l := NewListener(rec, DefaultConfig())

	l.OnTranscription("expecto patronum")
	l.Pump()
	if l.LastTranscription() != "expecto patronum" {
		t.Fatalf("expected transcription, got %q", l.LastTranscription())
	}

	if err := l.BeginRecording(); err != nil {
		t.Fatalf("BeginRecording() error = %v", err)
	}
	if l.LastTranscription() != "" {
		t.Errorf("transcription should be cleared, got %q", l.LastTranscription())
	}
	if rec.activations != 1 {
		t.Errorf("expected recognizer activated once, got %d", rec.activations)
	}
}

func TestListener_BeginRecordingDropsQueuedCallbacks(t *testing.T) {
	l := NewListener(&fakeRecognizer{}, DefaultConfig())

	// Callbacks from the previous utterance are still queued.
	l.OnTranscription("old utterance")
	l.OnResponse(respond("cast_stupefy", 0.95))

	if err := l.BeginRecording(); err != nil {
		t.Fatalf("BeginRecording() error = %v", err)
	}
	if got := l.Pump(); len(got) != 0 {
		t.Errorf("expected queued results to be dropped, got %v", got)
	}
	if l.LastTranscription() != "" {
		t.Errorf("stale transcription attributed to new recording: %q", l.LastTranscription())
	}

	l.OnTranscription("protego")
	l.OnResponse(respond("cast_protego", 0.9))
	got := l.Pump()
	if len(got) != 1 || got[0].Label != "cast_protego" {
		t.Errorf("expected the new recording's intent, got %v", got)
	}
	if l.LastTranscription() != "protego" {
		t.Errorf("LastTranscription() = %q, want protego", l.LastTranscription())
	}
}

func TestListener_ActivateError(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("microphone busy")}
	l := NewListener(rec, DefaultConfig())

	if err := l.BeginRecording(); err == nil {
		t.Error("expected activation error")
	}
}

func TestListener_ListeningState(t *testing.T) {
	l := NewListener(&fakeRecognizer{}, DefaultConfig())

	l.OnStartListening()
	l.Pump()
	if !l.Listening() {
		t.Error("expected listening after start callback")
	}

	l.OnStoppedListening()
	l.Pump()
	if l.Listening() {
		t.Error("expected not listening after stop callback")
	}
}

func TestListener_AttachDetach(t *testing.T) {
	rec := &fakeRecognizer{}
	l := NewListener(rec, DefaultConfig())

	l.Attach()
	l.Attach()
	if len(rec.handlers) != 1 {
		t.Fatalf("expected one registration, got %d", len(rec.handlers))
	}

	l.Detach()
	if len(rec.handlers) != 0 {
		t.Errorf("expected handler removed, got %d", len(rec.handlers))
	}
}

func TestListener_PumpPreservesOrder(t *testing.T) {
	l := NewListener(&fakeRecognizer{}, DefaultConfig())

	l.OnResponse(respond("cast_bombardo", 0.9))
	l.OnResponse(respond("cast_stupefy", 0.95))

	results := l.Pump()
	if len(results) != 2 || results[0].Label != "cast_bombardo" || results[1].Label != "cast_stupefy" {
		t.Errorf("unexpected results %+v", results)
	}
	if more := l.Pump(); len(more) != 0 {
		t.Errorf("queue should be empty, got %+v", more)
	}
}

func TestListener_QueueOverflowDrops(t *testing.T) {
	l := NewListener(&fakeRecognizer{}, Config{QueueSize: 2})

	for i := 0; i < 5; i++ {
		l.OnResponse(respond("cast_protego", 0.9))
	}

	if results := l.Pump(); len(results) != 2 {
		t.Errorf("expected 2 queued results, got %d", len(results))
	}
}
