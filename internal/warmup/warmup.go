// Package warmup coordinates the one-time warm-up of the neural gesture
// backend across content transitions.
package warmup

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/wandcast/internal/frame"
)

// DefaultTimeout is the accumulated frame time after which warm-up gives up.
const DefaultTimeout = 5 * time.Second

// State is the warm-up lifecycle state.
type State int

const (
	Uninitialized State = iota
	Warming
	Ready
	Failed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Warming:
		return "warming"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions happen without a reset.
func (s State) Terminal() bool {
	return s == Ready || s == Failed
}

// Backend is the inference engine being warmed up.
type Backend interface {
	// StartWarmup begins loading the model. It must not block.
	StartWarmup() error
	// IsWarmedUp reports whether the model is loaded and usable.
	IsWarmedUp() bool
}

// Scheduler runs cooperative tasks on the frame goroutine.
type Scheduler interface {
	Spawn(t frame.Task)
}

// Config holds configuration for the Coordinator.
type Config struct {
	Timeout time.Duration
}

// DefaultConfig returns a Config with a five second timeout.
func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout}
}

// Coordinator drives the backend from Uninitialized to Ready or Failed.
// One Coordinator is shared by every scene for the life of the process.
// State is read with a lock so HTTP handlers can observe it; transitions
// only happen on the frame goroutine.
type Coordinator struct {
	backend   Backend
	scheduler Scheduler
	config    Config
	log       *logrus.Entry

	mu         sync.RWMutex
	state      State
	generation int
	waits      []*Wait
	listeners  []func(State)
}

// New creates a Coordinator. A nil backend makes warm-up fail on its first step.
func New(backend Backend, scheduler Scheduler, config Config) *Coordinator {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Coordinator{
		backend:   backend,
		scheduler: scheduler,
		config:    config,
		log:       logrus.WithField("component", "warmup"),
	}
}

// OnChange registers a callback invoked after every state transition.
func (c *Coordinator) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns the current warm-up state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Ready reports whether the backend finished warming up. It satisfies
// gesture.Gate.
func (c *Coordinator) Ready() bool {
	return c.State() == Ready
}

// StartWarmupDuringTransition begins warm-up if it has not started yet.
// It is a no-op while Warming and in the terminal states.
func (c *Coordinator) StartWarmupDuringTransition() {
	c.mu.Lock()
	if c.state != Uninitialized {
		c.mu.Unlock()
		return
	}
	c.state = Warming
	c.generation++
	gen := c.generation
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	c.log.Info("Starting model warm-up")
	notify(listeners, Warming)
	c.scheduler.Spawn(c.newTask(gen))
}

// EnsureWarmupCompleted starts warm-up if needed and returns a handle the
// caller polls from its own task until Done reports true.
func (c *Coordinator) EnsureWarmupCompleted() *Wait {
	if c.State() == Uninitialized {
		c.StartWarmupDuringTransition()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	w := &Wait{c: c}
	if c.state.Terminal() {
		w.done = true
		w.final = c.state
		return w
	}
	c.waits = append(c.waits, w)
	return w
}

// ResetWarmupState returns to Uninitialized. Outstanding waits are released
// with the state they observed and any running warm-up task is abandoned.
func (c *Coordinator) ResetWarmupState() {
	c.mu.Lock()
	prev := c.state
	c.state = Uninitialized
	c.generation++
	waits := c.waits
	c.waits = nil
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	for _, w := range waits {
		w.release(prev)
	}
	if prev != Uninitialized {
		c.log.Debug("Warm-up state reset")
		notify(listeners, Uninitialized)
	}
}

// finish moves the coordinator into a terminal state if gen is still current.
func (c *Coordinator) finish(gen int, state State) {
	c.mu.Lock()
	if gen != c.generation || c.state != Warming {
		c.mu.Unlock()
		return
	}
	c.state = state
	waits := c.waits
	c.waits = nil
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	for _, w := range waits {
		w.release(state)
	}
	notify(listeners, state)
}

func (c *Coordinator) current(gen int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return gen == c.generation && c.state == Warming
}

func (c *Coordinator) snapshotListeners() []func(State) {
	out := make([]func(State), len(c.listeners))
	copy(out, c.listeners)
	return out
}

func notify(listeners []func(State), s State) {
	for _, fn := range listeners {
		fn(s)
	}
}
