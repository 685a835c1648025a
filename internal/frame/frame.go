// Package frame runs cooperative tasks once per frame on a single goroutine.
package frame

import (
	"context"
	"sync"
	"time"
)

// DefaultFPS is the frame rate used by Run when none is given.
const DefaultFPS = 60

// Task is a unit of cooperative work. Step is called once per frame with the
// time elapsed since the previous frame and returns true when the task is
// finished.
type Task interface {
	Step(dt time.Duration) bool
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func(dt time.Duration) bool

// Step calls f(dt).
func (f TaskFunc) Step(dt time.Duration) bool {
	return f(dt)
}

// Loop owns the set of running tasks. Tasks are stepped in spawn order.
// Spawn may be called from any goroutine; a task spawned during a Tick is
// first stepped on the following Tick.
type Loop struct {
	mu      sync.Mutex
	pending []Task
	tasks   []Task
	frames  uint64
}

// NewLoop creates an empty Loop.
func NewLoop() *Loop {
	return &Loop{}
}

// Spawn schedules t to run from the next frame on.
func (l *Loop) Spawn(t Task) {
	if t == nil {
		return
	}
	l.mu.Lock()
	l.pending = append(l.pending, t)
	l.mu.Unlock()
}

// Tick advances every task by one frame and drops the finished ones.
func (l *Loop) Tick(dt time.Duration) {
	l.mu.Lock()
	l.tasks = append(l.tasks, l.pending...)
	l.pending = nil
	l.frames++
	l.mu.Unlock()

	running := l.tasks[:0]
	for _, t := range l.tasks {
		if !t.Step(dt) {
			running = append(running, t)
		}
	}
	for i := len(running); i < len(l.tasks); i++ {
		l.tasks[i] = nil
	}
	l.tasks = running
}

// Len returns the number of tasks that are running or waiting to start.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks) + len(l.pending)
}

// Frames returns the number of ticks executed so far.
func (l *Loop) Frames() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

// Run ticks the loop at fps until ctx is cancelled. update, if non-nil, is
// called before the tasks on every frame with the same dt.
func (l *Loop) Run(ctx context.Context, fps int, update func(dt time.Duration)) error {
	if fps <= 0 {
		fps = DefaultFPS
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if update != nil {
				update(dt)
			}
			l.Tick(dt)
		}
	}
}
