package frame

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoop_StepsUntilDone(t *testing.T) {
	loop := NewLoop()

	var steps int
	loop.Spawn(TaskFunc(func(dt time.Duration) bool {
		steps++
		return steps == 3
	}))

	for i := 0; i < 5; i++ {
		loop.Tick(16 * time.Millisecond)
	}

	if steps != 3 {
		t.Errorf("expected 3 steps, got %d", steps)
	}
	if loop.Len() != 0 {
		t.Errorf("expected finished task to be removed, got %d tasks", loop.Len())
	}
	if loop.Frames() != 5 {
		t.Errorf("expected 5 frames, got %d", loop.Frames())
	}
}

func TestLoop_SpawnDuringTickStartsNextFrame(t *testing.T) {
	loop := NewLoop()

	var childSteps int
	loop.Spawn(TaskFunc(func(dt time.Duration) bool {
		loop.Spawn(TaskFunc(func(dt time.Duration) bool {
			childSteps++
			return true
		}))
		return true
	}))

	loop.Tick(time.Millisecond)
	if childSteps != 0 {
		t.Fatalf("child task ran in the frame it was spawned")
	}

	loop.Tick(time.Millisecond)
	if childSteps != 1 {
		t.Errorf("expected child to run once, got %d", childSteps)
	}
}

func TestLoop_PassesDelta(t *testing.T) {
	loop := NewLoop()

	var total time.Duration
	loop.Spawn(TaskFunc(func(dt time.Duration) bool {
		total += dt
		return false
	}))

	loop.Tick(10 * time.Millisecond)
	loop.Tick(20 * time.Millisecond)

	if total != 30*time.Millisecond {
		t.Errorf("expected 30ms accumulated, got %v", total)
	}
}

func TestLoop_SpawnNil(t *testing.T) {
	loop := NewLoop()
	loop.Spawn(nil)
	if loop.Len() != 0 {
		t.Errorf("nil task should be ignored")
	}
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	frames := make(chan struct{}, 100)
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx, 200, func(dt time.Duration) {
			select {
			case frames <- struct{}{}:
			default:
			}
		})
	}()

	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not tick")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
