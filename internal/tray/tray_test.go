package tray

import (
	"testing"

	"github.com/ayusman/wandcast/internal/arbiter"
)

func TestTray_StateBeforeReady(t *testing.T) {
	tr := New()

	if got := tr.State(); got.Mode != "recognition" || got.Warmup != "uninitialized" {
		t.Fatalf("unexpected initial state %+v", got)
	}

	tr.OnCast(arbiter.Decision{Spell: "cast_protego"})
	tr.Status("Saved: cast_protego")
	tr.Update(State{Mode: "training", Label: "cast_stupefy", Warmup: "ready"})

	got := tr.State()
	if got.Mode != "training" || got.Label != "cast_stupefy" || got.Warmup != "ready" {
		t.Errorf("Update not applied: %+v", got)
	}
	if got.LastCast != "cast_protego" {
		t.Errorf("expected last cast to survive Update, got %q", got.LastCast)
	}
	if got.Status != "Saved: cast_protego" {
		t.Errorf("expected status to survive Update, got %q", got.Status)
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New()

	var toggled, cycled int
	tr.OnToggleMode(func() { toggled++ })
	tr.OnCycleLabel(func() { cycled++ })

	tr.call(func() func() { return tr.onToggleMode })
	tr.call(func() func() { return tr.onCycleLabel })
	tr.call(func() func() { return tr.onOpen })

	if toggled != 1 || cycled != 1 {
		t.Errorf("expected one call each, got toggled=%d cycled=%d", toggled, cycled)
	}
}
