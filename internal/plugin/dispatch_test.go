package plugin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/wandcast/internal/arbiter"
)

func TestDispatcher_Dispatch(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "casts.log")

	// The recording plugin appends each request as one line to out.
	writeScriptPlugin(t, dir, "recorder",
		"#!/bin/sh\ncat >> '"+out+"'\necho >> '"+out+"'\necho '{\"success\":true}'\n",
		"cast_protego")
	writeScriptPlugin(t, dir, "failing", "#!/bin/sh\necho '{\"success\":false,\"error\":\"nope\"}'\n", "*")

	manager := NewManager(dir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	d := NewDispatcher(manager, NewExecutor(5*time.Second), 4)

	if n := d.Dispatch(context.Background(), arbiter.Decision{ID: "d1", Spell: "cast_protego"}); n != 1 {
		t.Errorf("expected 1 successful plugin, got %d", n)
	}
	if n := d.Dispatch(context.Background(), arbiter.Decision{ID: "d2", Spell: "cast_stupefy"}); n != 0 {
		t.Errorf("expected 0 successful plugins, got %d", n)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read plugin output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 recorded request, got %d: %q", len(lines), data)
	}
	if !strings.Contains(lines[0], `"spell":"cast_protego"`) || !strings.Contains(lines[0], `"id":"d1"`) {
		t.Errorf("unexpected request: %s", lines[0])
	}
}

func TestDispatcher_OnCastDropsWhenFull(t *testing.T) {
	d := NewDispatcher(NewManager(t.TempDir()), NewExecutor(0), 1)

	d.OnCast(arbiter.Decision{ID: "d1", Spell: "cast_protego"})
	d.OnCast(arbiter.Decision{ID: "d2", Spell: "cast_protego"})

	if len(d.queue) != 1 {
		t.Fatalf("expected 1 queued cast, got %d", len(d.queue))
	}
	if got := <-d.queue; got.ID != "d1" {
		t.Errorf("expected first cast to be kept, got %s", got.ID)
	}
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	d := NewDispatcher(NewManager(t.TempDir()), NewExecutor(0), 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.OnCast(arbiter.Decision{ID: "d1", Spell: "cast_protego"})
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
