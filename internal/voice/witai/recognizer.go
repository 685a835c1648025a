package witai

import (
	"context"
	"errors"
	"sync"

	"github.com/ayusman/wandcast/internal/voice"
)

// ErrNotListening is returned by Submit when the recognizer was not activated.
var ErrNotListening = errors.New("recognizer is not listening")

// Resolver turns an utterance into ranked intents.
type Resolver interface {
	Message(ctx context.Context, text string) (voice.Response, error)
}

// Recognizer implements voice.Recognizer for text utterances. Activate opens
// a listening window and Submit closes it with the resolved intents.
type Recognizer struct {
	resolver Resolver

	mu        sync.Mutex
	handlers  []voice.Handler
	listening bool
}

// NewRecognizer creates a Recognizer backed by resolver.
func NewRecognizer(resolver Resolver) *Recognizer {
	return &Recognizer{resolver: resolver}
}

// Register adds a handler. Registering the same handler twice is a no-op.
func (r *Recognizer) Register(h voice.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.handlers {
		if existing == h {
			return
		}
	}
	r.handlers = append(r.handlers, h)
}

// Unregister removes a handler.
func (r *Recognizer) Unregister(h voice.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.handlers {
		if existing == h {
			r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
			return
		}
	}
}

// Activate opens a listening window.
func (r *Recognizer) Activate() error {
	r.mu.Lock()
	if r.listening {
		r.mu.Unlock()
		return nil
	}
	r.listening = true
	handlers := r.snapshot()
	r.mu.Unlock()

	for _, h := range handlers {
		h.OnStartListening()
	}
	return nil
}

// Listening reports whether a listening window is open.
func (r *Recognizer) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listening
}

// Submit delivers an utterance for the open listening window, resolves it and
// closes the window. Handlers see transcription, response and stop in order.
// A resolver error still closes the window.
func (r *Recognizer) Submit(ctx context.Context, text string) error {
	r.mu.Lock()
	if !r.listening {
		r.mu.Unlock()
		return ErrNotListening
	}
	handlers := r.snapshot()
	r.mu.Unlock()

	for _, h := range handlers {
		h.OnTranscription(text)
	}

	resp, err := r.resolver.Message(ctx, text)
	if err == nil {
		for _, h := range handlers {
			h.OnResponse(resp)
		}
	}

	r.mu.Lock()
	r.listening = false
	r.mu.Unlock()
	for _, h := range handlers {
		h.OnStoppedListening()
	}
	return err
}

func (r *Recognizer) snapshot() []voice.Handler {
	out := make([]voice.Handler, len(r.handlers))
	copy(out, r.handlers)
	return out
}
