// Package arbiter combines gesture and voice intents into cast decisions.
package arbiter

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/wandcast/internal/intent"
)

// DefaultWindow is how long an accepted intent stays eligible for a cast.
const DefaultWindow = 2 * time.Second

// Policy decides which combination of modalities casts a spell.
type Policy string

const (
	// PolicyBoth requires a gesture and a voice intent for the same spell
	// within the window.
	PolicyBoth Policy = "both"
	// PolicyEither casts on any accepted intent.
	PolicyEither Policy = "either"
)

// ParsePolicy converts a config string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyBoth, "":
		return PolicyBoth, nil
	case PolicyEither:
		return PolicyEither, nil
	default:
		return "", fmt.Errorf("unknown arbitration policy %q", s)
	}
}

// Gate reports whether the neural gesture backend is ready.
type Gate interface {
	Ready() bool
}

// Decision is a spell cast.
type Decision struct {
	ID        string         `json:"id"`
	Spell     string         `json:"spell"`
	Policy    Policy         `json:"policy"`
	Gesture   *intent.Result `json:"gesture,omitempty"`
	Voice     *intent.Result `json:"voice,omitempty"`
	At        time.Duration  `json:"at"`
	CreatedAt time.Time      `json:"created_at"`
}

// Sink receives every decision.
type Sink interface {
	OnCast(d Decision)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(d Decision)

// OnCast calls f(d).
func (f SinkFunc) OnCast(d Decision) {
	f(d)
}

// Config holds configuration for the Arbiter.
type Config struct {
	Policy Policy
	Window time.Duration
	// Mapping maps a voice intent to the gesture label it requires. A nil map
	// maps every intent to itself; with a non-nil map, unmapped intents never
	// cast.
	Mapping map[string]string
}

// DefaultConfig returns the both-modalities policy with a two second window.
func DefaultConfig() Config {
	return Config{
		Policy: PolicyBoth,
		Window: DefaultWindow,
	}
}

type slot struct {
	result intent.Result
	at     time.Duration
	set    bool
}

// Arbiter holds the latest accepted gesture and voice intents and emits a
// decision when the configured policy is satisfied. It is driven from the
// frame goroutine; Sinks may be added from any goroutine.
type Arbiter struct {
	config Config
	gate   Gate
	log    *logrus.Entry

	now     time.Duration
	gesture slot
	voice   slot

	mu    sync.RWMutex
	sinks []Sink
}

// New creates an Arbiter. gate may be nil, in which case neural gesture
// results are always excluded.
func New(config Config, gate Gate) *Arbiter {
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	if config.Policy == "" {
		config.Policy = PolicyBoth
	}
	return &Arbiter{
		config: config,
		gate:   gate,
		log:    logrus.WithField("component", "arbiter"),
	}
}

// AddSink registers a decision sink.
func (a *Arbiter) AddSink(s Sink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, s)
}

// Policy returns the active policy.
func (a *Arbiter) Policy() Policy {
	return a.config.Policy
}

// Advance moves the arbiter clock forward by dt.
func (a *Arbiter) Advance(dt time.Duration) {
	if dt > 0 {
		a.now += dt
	}
}

// Now returns the accumulated arbiter time.
func (a *Arbiter) Now() time.Duration {
	return a.now
}

// OfferGesture submits an accepted gesture result.
func (a *Arbiter) OfferGesture(r intent.Result) (Decision, bool) {
	if !r.Source.IsGesture() {
		return Decision{}, false
	}
	if r.Source == intent.SourceNeural && (a.gate == nil || !a.gate.Ready()) {
		a.log.WithField("label", r.Label).Debug("Ignoring neural gesture before warm-up")
		return Decision{}, false
	}

	if a.config.Policy == PolicyEither {
		g := r
		return a.emit(Decision{Spell: r.Label, Policy: PolicyEither, Gesture: &g}), true
	}

	a.gesture = slot{result: r, at: a.now, set: true}
	return a.evaluateBoth()
}

// OfferVoice submits an accepted voice result.
func (a *Arbiter) OfferVoice(r intent.Result) (Decision, bool) {
	if r.Source != intent.SourceVoice {
		return Decision{}, false
	}

	if a.config.Policy == PolicyEither {
		spell, ok := a.spellFor(r.Label)
		if !ok {
			a.log.WithField("intent", r.Label).Debug("Voice intent has no gesture mapping")
			return Decision{}, false
		}
		v := r
		return a.emit(Decision{Spell: spell, Policy: PolicyEither, Voice: &v}), true
	}

	a.voice = slot{result: r, at: a.now, set: true}
	return a.evaluateBoth()
}

// Reset forgets any pending intents.
func (a *Arbiter) Reset() {
	a.gesture = slot{}
	a.voice = slot{}
}

func (a *Arbiter) evaluateBoth() (Decision, bool) {
	if !a.gesture.set || !a.voice.set {
		return Decision{}, false
	}
	if a.expired(a.gesture) || a.expired(a.voice) {
		a.log.Debug("Intent window expired, cannot cast")
		return Decision{}, false
	}

	required, ok := a.spellFor(a.voice.result.Label)
	if !ok {
		a.log.WithField("intent", a.voice.result.Label).Debug("Voice intent has no gesture mapping")
		return Decision{}, false
	}
	if required != a.gesture.result.Label {
		a.log.WithFields(logrus.Fields{
			"gesture":  a.gesture.result.Label,
			"required": required,
		}).Debug("Gesture does not match voice intent")
		return Decision{}, false
	}

	g, v := a.gesture.result, a.voice.result
	a.Reset()
	return a.emit(Decision{
		Spell:   required,
		Policy:  PolicyBoth,
		Gesture: &g,
		Voice:   &v,
	}), true
}

func (a *Arbiter) expired(s slot) bool {
	return a.now-s.at > a.config.Window
}

func (a *Arbiter) spellFor(voiceLabel string) (string, bool) {
	if a.config.Mapping == nil {
		return voiceLabel, true
	}
	spell, ok := a.config.Mapping[voiceLabel]
	return spell, ok
}

func (a *Arbiter) emit(d Decision) Decision {
	d.ID = uuid.New().String()
	d.At = a.now
	d.CreatedAt = time.Now()

	a.log.WithFields(logrus.Fields{
		"spell":  d.Spell,
		"policy": d.Policy,
	}).Info("Spell cast")

	a.mu.RLock()
	sinks := make([]Sink, len(a.sinks))
	copy(sinks, a.sinks)
	a.mu.RUnlock()

	for _, s := range sinks {
		s.OnCast(d)
	}
	return d
}
