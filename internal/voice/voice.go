// Package voice turns speech-to-intent responses into voice intent results.
package voice

// DefaultThreshold is the minimum confidence for a voice intent to be accepted.
const DefaultThreshold = 0.85

// Intent is one ranked intent in a recognizer response.
type Intent struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Response is a recognizer result. Intents are ranked best first.
type Response struct {
	Text    string   `json:"text"`
	Intents []Intent `json:"intents"`
}

// Top returns the top-ranked intent.
func (r Response) Top() (Intent, bool) {
	if len(r.Intents) == 0 {
		return Intent{}, false
	}
	return r.Intents[0], true
}

// Handler receives recognizer lifecycle callbacks. Recognizers may call it
// from any goroutine.
type Handler interface {
	OnStartListening()
	OnStoppedListening()
	OnTranscription(text string)
	OnResponse(resp Response)
}

// Recognizer is a speech-to-intent SDK adapter.
type Recognizer interface {
	// Activate starts listening for one utterance.
	Activate() error
	Register(h Handler)
	Unregister(h Handler)
}
