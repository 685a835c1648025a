// Package training switches between recording labeled templates and
// recognizing live gestures.
package training

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/wandcast/internal/arbiter"
	"github.com/ayusman/wandcast/internal/gesture"
	"github.com/ayusman/wandcast/internal/input"
	"github.com/ayusman/wandcast/internal/intent"
	"github.com/ayusman/wandcast/internal/recorder"
	"github.com/ayusman/wandcast/internal/templates"
)

// Defaults for the Controller.
const (
	DefaultGestureThreshold = 0.9
	DefaultMinPoints        = 2
)

// Mode is the controller mode.
type Mode int

const (
	Recognition Mode = iota
	Training
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	if m == Training {
		return "training"
	}
	return "recognition"
}

// TemplateWriter persists recorded templates.
type TemplateWriter interface {
	Save(label string, points []gesture.PathPoint, now time.Time) (templates.File, error)
	Export(dest string) (templates.ExportReport, error)
}

// Library receives newly recorded templates.
type Library interface {
	AddTemplate(t *gesture.Template)
}

// Catalog indexes saved templates. It is optional.
type Catalog interface {
	AddTemplate(f templates.File, t *gesture.Template) error
}

// GestureSink receives gesture results that passed the threshold.
type GestureSink interface {
	OfferGesture(r intent.Result) (arbiter.Decision, bool)
}

// StatusSink shows short status messages to the user.
type StatusSink interface {
	Status(msg string)
}

// Config holds configuration for the Controller.
type Config struct {
	Labels           []string
	GestureThreshold float64
	MinPoints        int
	ExportDir        string
}

// DefaultConfig returns the four spell labels and default thresholds.
func DefaultConfig() Config {
	return Config{
		Labels:           gesture.DefaultNeuralConfig().Labels,
		GestureThreshold: DefaultGestureThreshold,
		MinPoints:        DefaultMinPoints,
	}
}

// Deps are the collaborators of the Controller. Catalog, Sink and Status may
// be nil.
type Deps struct {
	Recorder    *recorder.Recorder
	Classifiers []gesture.Classifier
	Library     Library
	Writer      TemplateWriter
	Catalog     Catalog
	Sink        GestureSink
	Status      StatusSink
	Now         func() time.Time
}

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	Mode       Mode           `json:"-"`
	ModeName   string         `json:"mode"`
	Label      string         `json:"label"`
	Recording  bool           `json:"recording"`
	LastResult *intent.Result `json:"last_result,omitempty"`
	LastSaved  string         `json:"last_saved,omitempty"`
}

// Controller owns the training session. Update must be called from the
// frame goroutine; Snapshot may be called from any goroutine.
type Controller struct {
	config Config
	deps   Deps
	log    *logrus.Entry

	mode       Mode
	labelIndex int
	// waitRelease blocks a new recording until the trigger held through a
	// discarding toggle is released.
	waitRelease bool

	mu   sync.RWMutex
	snap Snapshot
}

// New creates a Controller in Recognition mode.
func New(config Config, deps Deps) (*Controller, error) {
	if deps.Recorder == nil {
		return nil, errors.New("training controller requires a recorder")
	}
	if len(config.Labels) == 0 {
		config.Labels = DefaultConfig().Labels
	}
	if config.GestureThreshold <= 0 {
		config.GestureThreshold = DefaultGestureThreshold
	}
	if config.MinPoints <= 0 {
		config.MinPoints = DefaultMinPoints
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	c := &Controller{
		config: config,
		deps:   deps,
		log:    logrus.WithField("component", "training"),
	}
	c.publish(nil, "")
	return c, nil
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Label returns the label used for the next training recording.
func (c *Controller) Label() string {
	return c.config.Labels[c.labelIndex]
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Update applies one frame of controls.
func (c *Controller) Update(ev input.Events, pos input.Point3D) {
	if ev.Toggle {
		c.Toggle()
	}

	if c.mode == Training {
		if ev.Cycle {
			c.CycleLabel()
		}
		if ev.Export {
			c.Export()
		}
	}

	rec := c.deps.Recorder
	if c.waitRelease {
		if ev.Trigger {
			return
		}
		c.waitRelease = false
	}

	switch {
	case ev.Trigger && !rec.Recording():
		rec.Start(pos)
		c.publish(nil, "")
	case ev.Trigger:
		rec.AddIfMoved(pos)
	case rec.Recording():
		c.finalize(rec.Stop())
	}
}

// Toggle switches mode and discards any open recording.
func (c *Controller) Toggle() {
	if c.deps.Recorder.Recording() {
		c.deps.Recorder.Discard()
		c.waitRelease = true
		c.log.Debug("Open recording discarded on mode toggle")
	}

	if c.mode == Training {
		c.mode = Recognition
		c.status("Recognition Mode")
	} else {
		c.mode = Training
		c.status("Training Mode: " + c.Label())
	}
	c.log.WithField("mode", c.mode).Info("Mode changed")
	c.publish(nil, "")
}

// CycleLabel advances to the next training label, wrapping at the end.
func (c *Controller) CycleLabel() string {
	c.labelIndex = (c.labelIndex + 1) % len(c.config.Labels)
	label := c.Label()
	c.status("Selected: " + label)
	c.publish(nil, "")
	return label
}

// Export copies all templates to the export directory.
func (c *Controller) Export() (templates.ExportReport, error) {
	if c.deps.Writer == nil || c.config.ExportDir == "" {
		c.status("Export not configured")
		return templates.ExportReport{}, errors.New("export directory not configured")
	}

	report, err := c.deps.Writer.Export(c.config.ExportDir)
	if err != nil {
		c.status("Export failed")
		return report, err
	}
	if report.OK() {
		c.status(fmt.Sprintf("Exported %d templates", len(report.Copied)))
	} else {
		c.status(fmt.Sprintf("Exported %d templates, %d failed", len(report.Copied), len(report.Failed)))
	}
	return report, nil
}

func (c *Controller) finalize(sample recorder.Sample) {
	if c.mode == Training {
		c.persist(sample)
		return
	}
	c.recognize(sample)
}

func (c *Controller) persist(sample recorder.Sample) {
	label := c.Label()
	if len(sample) < c.config.MinPoints {
		c.status("Gesture too short, not saved")
		c.publish(nil, "")
		return
	}
	if c.deps.Writer == nil {
		c.log.Warn("No template writer configured, recording dropped")
		return
	}

	now := c.deps.Now()
	points := sample.Project()
	file, err := c.deps.Writer.Save(label, points, now)
	if err != nil {
		c.log.WithError(err).WithField("label", label).Error("Failed to save template")
		c.status("Save failed: " + label)
		c.publish(nil, "")
		return
	}

	tmpl := &gesture.Template{
		ID:        templates.TemplateID(file.Name, 0),
		Label:     label,
		Points:    points,
		CreatedAt: now,
	}
	if c.deps.Library != nil {
		c.deps.Library.AddTemplate(tmpl)
	}
	if c.deps.Catalog != nil {
		if err := c.deps.Catalog.AddTemplate(file, tmpl); err != nil {
			c.log.WithError(err).Warn("Failed to catalog template")
		}
	}

	c.status("Saved: " + label)
	c.publish(nil, file.Name)
}

func (c *Controller) recognize(sample recorder.Sample) {
	points := sample.Project()

	var best *intent.Result
	for _, cl := range c.deps.Classifiers {
		r, err := cl.Classify(points)
		if err != nil {
			if !errors.Is(err, gesture.ErrNotReady) {
				c.log.WithError(err).WithField("source", cl.Source()).Debug("Classification failed")
			}
			continue
		}
		if best == nil || r.Confidence > best.Confidence {
			best = &r
		}
	}

	if best == nil {
		c.publish(nil, "")
		return
	}

	c.log.WithFields(logrus.Fields{
		"label":      best.Label,
		"confidence": best.Confidence,
		"source":     best.Source,
	}).Info("Gesture classified")
	c.publish(best, "")

	if !best.Meets(c.config.GestureThreshold) {
		return
	}
	c.status(fmt.Sprintf("%s (%.2f)", best.Label, best.Confidence))
	if c.deps.Sink != nil {
		c.deps.Sink.OfferGesture(*best)
	}
}

func (c *Controller) status(msg string) {
	if c.deps.Status != nil {
		c.deps.Status.Status(msg)
	}
}

func (c *Controller) publish(result *intent.Result, saved string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap.Mode = c.mode
	c.snap.ModeName = c.mode.String()
	c.snap.Label = c.Label()
	c.snap.Recording = c.deps.Recorder.Recording()
	if result != nil {
		c.snap.LastResult = result
	}
	if saved != "" {
		c.snap.LastSaved = saved
	}
}
