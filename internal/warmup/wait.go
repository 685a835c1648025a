package warmup

import "sync"

// Wait is a handle on a pending warm-up. A cooperative task polls Done each
// frame; State reports the outcome once Done is true.
type Wait struct {
	c     *Coordinator
	mu    sync.Mutex
	done  bool
	final State
}

func (w *Wait) release(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	w.done = true
	w.final = s
}

// Done reports whether warm-up has reached a terminal state or was reset.
func (w *Wait) Done() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// State returns the state observed when the wait completed, or the current
// coordinator state while still pending.
func (w *Wait) State() State {
	w.mu.Lock()
	if w.done {
		defer w.mu.Unlock()
		return w.final
	}
	w.mu.Unlock()
	return w.c.State()
}
