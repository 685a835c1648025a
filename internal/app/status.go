package app

import (
	"github.com/ayusman/wandcast/internal/arbiter"
	"github.com/ayusman/wandcast/internal/intent"
)

// Status is the published view of the running app. It is rebuilt on the frame
// goroutine and read by the HTTP server and the tray.
type Status struct {
	Mode              string            `json:"mode"`
	Label             string            `json:"label"`
	Recording         bool              `json:"recording"`
	Warmup            string            `json:"warmup"`
	Policy            arbiter.Policy    `json:"policy"`
	Templates         int               `json:"templates"`
	Listening         bool              `json:"listening"`
	LastTranscription string            `json:"last_transcription,omitempty"`
	LastResult        *intent.Result    `json:"last_result,omitempty"`
	LastSaved         string            `json:"last_saved,omitempty"`
	LastCast          *arbiter.Decision `json:"last_cast,omitempty"`
	Message           string            `json:"message,omitempty"`
	Frames            uint64            `json:"frames"`
}

// Classification is one classifier's verdict on a stroke.
type Classification struct {
	Source     string  `json:"source"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
	Accepted   bool    `json:"accepted"`
	Error      string  `json:"error,omitempty"`
}

// Snapshot returns the latest published status.
func (a *App) Snapshot() Status {
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	return a.status
}

// publish rebuilds the status and notifies watchers if anything other than
// the frame counter changed.
func (a *App) publish() {
	snap := a.training.Snapshot()

	a.statusMu.Lock()
	prev := a.status
	next := prev
	next.Mode = snap.ModeName
	next.Label = snap.Label
	next.Recording = snap.Recording
	next.LastResult = snap.LastResult
	next.LastSaved = snap.LastSaved
	next.Warmup = a.warmup.State().String()
	next.Policy = a.arbiter.Policy()
	next.Templates = a.matcher.Len()
	next.Frames = a.loop.Frames()
	if a.listener != nil {
		next.Listening = a.listener.Listening()
		next.LastTranscription = a.listener.LastTranscription()
	}
	a.status = next
	a.statusMu.Unlock()

	if prev.Label != "" && next.Label != prev.Label {
		a.saveLabel(next.Label)
	}

	prev.Frames = next.Frames
	if prev == next {
		return
	}

	a.sinksMu.RLock()
	watchers := make([]func(Status), len(a.watchers))
	copy(watchers, a.watchers)
	a.sinksMu.RUnlock()

	for _, fn := range watchers {
		fn(next)
	}
}
