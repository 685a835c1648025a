// Package notify shows desktop notifications for status messages and casts.
package notify

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/ayusman/wandcast/internal/arbiter"
)

const appName = "Wandcast"

const maxMessage = 100

// Notifier sends desktop notifications. Delivery happens off the caller's
// goroutine and failures are ignored.
type Notifier struct {
	mu      sync.RWMutex
	enabled bool
	send    func(title, message, icon string) error
	wg      sync.WaitGroup
}

// New creates a new Notifier.
func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled, send: beeep.Notify}
}

// SetEnabled turns notifications on or off.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Enabled reports whether notifications are shown.
func (n *Notifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// Status shows a short status message.
func (n *Notifier) Status(msg string) {
	n.notify("", msg)
}

// OnCast announces a cast spell.
func (n *Notifier) OnCast(d arbiter.Decision) {
	n.notify("Cast", fmt.Sprintf("%s (%s)", d.Spell, d.Policy))
}

// Wait blocks until pending notifications are delivered.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) notify(title, message string) {
	n.mu.RLock()
	enabled, send := n.enabled, n.send
	n.mu.RUnlock()
	if !enabled {
		return
	}

	if len(message) > maxMessage {
		message = message[:maxMessage] + "..."
	}
	if title != "" {
		title = appName + ": " + title
	} else {
		title = appName
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		_ = send(title, message, "")
	}()
}
