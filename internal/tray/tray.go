// Package tray provides the system tray menu for wandcast.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/wandcast/internal/arbiter"
)

// State is what the tray menu shows.
type State struct {
	Mode     string
	Label    string
	Warmup   string
	LastCast string
	Status   string
}

// Tray represents the system tray application.
type Tray struct {
	onToggleMode func()
	onCycleLabel func()
	onOpen       func()
	onQuit       func()
	state        State
	mu           sync.RWMutex

	// Menu items stored for later updates
	menuMode     *systray.MenuItem
	menuLabel    *systray.MenuItem
	menuWarmup   *systray.MenuItem
	menuLastCast *systray.MenuItem
	menuStatus   *systray.MenuItem
}

// New creates a new Tray in recognition mode.
func New() *Tray {
	return &Tray{
		state: State{Mode: "recognition", Warmup: "uninitialized"},
	}
}

// OnToggleMode sets the callback for the mode menu item.
func (t *Tray) OnToggleMode(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggleMode = fn
}

// OnCycleLabel sets the callback for the training label menu item.
func (t *Tray) OnCycleLabel(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCycleLabel = fn
}

// OnOpen sets the callback for the dashboard menu item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray loop started by Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Wandcast")
	systray.SetTooltip("Wandcast spell recognition")

	t.mu.Lock()
	t.menuMode = systray.AddMenuItem("", "Switch between recognition and training")
	t.menuLabel = systray.AddMenuItem("", "Cycle the training label")
	systray.AddSeparator()
	t.menuWarmup = systray.AddMenuItem("", "Neural backend state")
	t.menuWarmup.Disable()
	t.menuLastCast = systray.AddMenuItem("", "Last cast spell")
	t.menuLastCast.Disable()
	t.menuStatus = systray.AddMenuItem("", "Last status message")
	t.menuStatus.Disable()
	systray.AddSeparator()
	menuOpen := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Wandcast")
	t.refresh()
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-t.menuMode.ClickedCh:
				t.call(func() func() { return t.onToggleMode })
			case <-t.menuLabel.ClickedCh:
				t.call(func() func() { return t.onCycleLabel })
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// call reads a callback under the lock and runs it outside.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	fn := get()
	t.mu.RUnlock()

	if fn != nil {
		fn()
	}
}

// Update replaces the displayed state.
func (t *Tray) Update(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.LastCast == "" {
		s.LastCast = t.state.LastCast
	}
	if s.Status == "" {
		s.Status = t.state.Status
	}
	t.state = s
	t.refresh()
}

// Status shows a short status message.
func (t *Tray) Status(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = msg
	t.refresh()
}

// OnCast records the last cast spell.
func (t *Tray) OnCast(d arbiter.Decision) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.LastCast = d.Spell
	t.refresh()
}

// State returns the displayed state.
func (t *Tray) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// refresh pushes state to the menu items. Callers hold t.mu. Before the tray
// is ready only the state is kept.
func (t *Tray) refresh() {
	if t.menuMode == nil {
		return
	}

	if t.state.Mode == "training" {
		t.menuMode.SetTitle("● Training")
		t.menuLabel.SetTitle("Label: " + t.state.Label)
		t.menuLabel.Enable()
	} else {
		t.menuMode.SetTitle("○ Recognition")
		t.menuLabel.SetTitle("Label: " + t.state.Label)
		t.menuLabel.Disable()
	}
	t.menuWarmup.SetTitle(fmt.Sprintf("Neural: %s", t.state.Warmup))

	if t.state.LastCast == "" {
		t.menuLastCast.SetTitle("Last: none")
	} else {
		t.menuLastCast.SetTitle("Last: " + t.state.LastCast)
	}
	t.menuStatus.SetTitle(t.state.Status)
}
