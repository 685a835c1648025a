package voice

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/wandcast/internal/intent"
)

// DefaultQueueSize is the number of callbacks buffered between frames.
const DefaultQueueSize = 32

type eventKind int

const (
	eventStart eventKind = iota
	eventStop
	eventTranscription
	eventResponse
)

// event is a queued callback. gen is the recording it arrived during.
type event struct {
	kind eventKind
	gen  uint64
	text string
	resp Response
}

// Config holds configuration for the Listener.
type Config struct {
	Threshold float64
	QueueSize int
}

// DefaultConfig returns a Config with the default threshold and queue size.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		QueueSize: DefaultQueueSize,
	}
}

// Listener adapts recognizer callbacks into intent results. Callbacks are
// queued as they arrive and processed by Pump on the frame goroutine.
type Listener struct {
	recognizer Recognizer
	config     Config
	events     chan event
	log        *logrus.Entry

	mu            sync.RWMutex
	transcription string
	listening     bool
	attached      bool
	generation    uint64
}

// NewListener creates a Listener for recognizer.
func NewListener(recognizer Recognizer, config Config) *Listener {
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	return &Listener{
		recognizer: recognizer,
		config:     config,
		events:     make(chan event, config.QueueSize),
		log:        logrus.WithField("component", "voice"),
	}
}

// Attach registers the listener with the recognizer.
func (l *Listener) Attach() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.attached || l.recognizer == nil {
		return
	}
	l.recognizer.Register(l)
	l.attached = true
}

// Detach unregisters the listener from the recognizer.
func (l *Listener) Detach() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.attached {
		return
	}
	l.recognizer.Unregister(l)
	l.attached = false
}

// BeginRecording clears the last transcription and activates the recognizer.
// Callbacks still queued from an earlier recording are dropped by Pump.
func (l *Listener) BeginRecording() error {
	l.mu.Lock()
	l.transcription = ""
	l.generation++
	l.mu.Unlock()

	if l.recognizer == nil {
		return nil
	}
	if err := l.recognizer.Activate(); err != nil {
		l.log.WithError(err).Warn("Voice recognizer failed to activate")
		return err
	}
	return nil
}

// LastTranscription returns the most recent transcription.
func (l *Listener) LastTranscription() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.transcription
}

// Listening reports whether the recognizer is capturing audio.
func (l *Listener) Listening() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listening
}

func (l *Listener) OnStartListening() {
	l.enqueue(event{kind: eventStart})
}

func (l *Listener) OnStoppedListening() {
	l.enqueue(event{kind: eventStop})
}

func (l *Listener) OnTranscription(text string) {
	l.enqueue(event{kind: eventTranscription, text: text})
}

func (l *Listener) OnResponse(resp Response) {
	l.enqueue(event{kind: eventResponse, resp: resp})
}

func (l *Listener) enqueue(e event) {
	l.mu.RLock()
	e.gen = l.generation
	l.mu.RUnlock()

	select {
	case l.events <- e:
	default:
		l.log.Warn("Voice event queue full, dropping callback")
	}
}

// Pump processes queued callbacks and returns the accepted intents in arrival
// order. It never blocks.
func (l *Listener) Pump() []intent.Result {
	var accepted []intent.Result
	for {
		select {
		case e := <-l.events:
			if r, ok := l.handle(e); ok {
				accepted = append(accepted, r)
			}
		default:
			return accepted
		}
	}
}

func (l *Listener) handle(e event) (intent.Result, bool) {
	l.mu.RLock()
	current := l.generation
	l.mu.RUnlock()
	if e.gen != current {
		l.log.WithField("kind", e.kind).Debug("Dropping callback from an earlier recording")
		return intent.Result{}, false
	}

	switch e.kind {
	case eventStart:
		l.setListening(true)
		l.log.Debug("Voice listening started")
	case eventStop:
		l.setListening(false)
		l.log.Debug("Voice listening stopped")
	case eventTranscription:
		l.mu.Lock()
		l.transcription = e.text
		l.mu.Unlock()
		l.log.WithField("text", e.text).Debug("Voice transcription")
	case eventResponse:
		return l.evaluate(e.resp)
	}
	return intent.Result{}, false
}

// evaluate applies the confidence threshold to the top-ranked intent.
func (l *Listener) evaluate(resp Response) (intent.Result, bool) {
	top, ok := resp.Top()
	if !ok {
		l.log.WithField("text", resp.Text).Info("Voice response had no intents")
		return intent.Result{}, false
	}

	result := intent.Result{
		Label:      top.Name,
		Confidence: intent.Clamp01(top.Confidence),
		Source:     intent.SourceVoice,
	}
	if !result.Meets(l.config.Threshold) {
		l.log.WithFields(logrus.Fields{
			"intent":     top.Name,
			"confidence": top.Confidence,
		}).Info("Voice intent below threshold")
		return intent.Result{}, false
	}

	l.log.WithFields(logrus.Fields{
		"intent":     top.Name,
		"confidence": top.Confidence,
	}).Info("Voice intent accepted")
	return result, true
}

func (l *Listener) setListening(v bool) {
	l.mu.Lock()
	l.listening = v
	l.mu.Unlock()
}
