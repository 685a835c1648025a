package app

import (
	"github.com/sirupsen/logrus"

	"github.com/ayusman/wandcast/internal/arbiter"
	"github.com/ayusman/wandcast/internal/gesture"
	"github.com/ayusman/wandcast/internal/store"
	"github.com/ayusman/wandcast/internal/templates"
)

// Catalog indexes template files in the store. The catalog keeps one entry
// per file, holding its first stroke.
type Catalog struct {
	store *store.Store
}

// NewCatalog creates a Catalog backed by s.
func NewCatalog(s *store.Store) *Catalog {
	return &Catalog{store: s}
}

// AddTemplate records t as the entry for file f.
func (c *Catalog) AddTemplate(f templates.File, t *gesture.Template) error {
	path := make([]store.Point, len(t.Points))
	for i, p := range t.Points {
		path[i] = store.Point{X: p.X, Y: p.Y}
	}
	return c.store.Templates().Upsert(&store.Template{
		ID:        t.ID,
		Label:     t.Label,
		FileName:  f.Name,
		Path:      path,
		CreatedAt: t.CreatedAt,
	})
}

// Journal appends every cast decision to the store.
type Journal struct {
	store *store.Store
	log   *logrus.Entry
}

// NewJournal creates a Journal backed by s.
func NewJournal(s *store.Store) *Journal {
	return &Journal{
		store: s,
		log:   logrus.WithField("component", "journal"),
	}
}

// OnCast records d. Failures are logged and otherwise ignored.
func (j *Journal) OnCast(d arbiter.Decision) {
	c := &store.Cast{
		ID:        d.ID,
		Spell:     d.Spell,
		Policy:    string(d.Policy),
		FrameTime: d.At.Milliseconds(),
		CreatedAt: d.CreatedAt,
	}
	if d.Gesture != nil {
		c.GestureLabel = d.Gesture.Label
		c.GestureSource = string(d.Gesture.Source)
		c.GestureConfidence = d.Gesture.Confidence
	}
	if d.Voice != nil {
		c.VoiceLabel = d.Voice.Label
		c.VoiceConfidence = d.Voice.Confidence
	}

	if err := j.store.Casts().Create(c); err != nil {
		j.log.WithError(err).WithField("spell", d.Spell).Error("Failed to journal cast")
	}
}

// settingTrainingLabel remembers the selected training label across runs.
const settingTrainingLabel = "training.label"

// restoreLabel selects the training label saved by a previous run.
func (a *App) restoreLabel() {
	if a.opts.Store == nil {
		return
	}
	want := a.opts.Store.Settings().GetOr(settingTrainingLabel, "")
	if want == "" {
		return
	}
	for range a.cfg.Training.Labels {
		if a.training.Label() == want {
			return
		}
		a.training.CycleLabel()
	}
	a.log.WithField("label", want).Warn("Saved training label is no longer configured")
}

func (a *App) saveLabel(label string) {
	if a.opts.Store == nil {
		return
	}
	if err := a.opts.Store.Settings().Set(settingTrainingLabel, label); err != nil {
		a.log.WithError(err).Warn("Failed to save training label")
	}
}
