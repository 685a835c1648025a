// Package gesture provides wand gesture classification against a template
// library or a neural network backend.
package gesture

import (
	"errors"
	"time"

	"github.com/ayusman/wandcast/internal/intent"
)

var (
	// ErrEmptySample is returned when a classifier receives no points.
	ErrEmptySample = errors.New("gesture sample is empty")
	// ErrEmptyLibrary is returned when the template matcher has no templates.
	ErrEmptyLibrary = errors.New("template library is empty")
	// ErrNotReady is returned when the neural backend is used before warm-up
	// has completed. It is never reported as a low-confidence result.
	ErrNotReady = errors.New("neural backend is not ready")
	// ErrTooFewPoints is returned when a sample is too short to rasterize.
	ErrTooFewPoints = errors.New("not enough points to classify")
)

// PathPoint is a point of a gesture projected onto the 2D drawing plane.
type PathPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Template is a labeled reference gesture.
type Template struct {
	ID        string      // Catalog identifier
	Label     string      // Spell label, e.g. "cast_protego"
	Points    []PathPoint // Recorded stroke
	CreatedAt time.Time   // Creation time, used for uniqueness only
}

// Classifier maps a recorded stroke to the best label and its confidence.
// Implementations must be substitutable so recognition logic stays
// backend-agnostic.
type Classifier interface {
	Classify(sample []PathPoint) (intent.Result, error)
	Source() intent.Source
}
