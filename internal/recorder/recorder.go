// Package recorder turns a continuous stream of wand positions into a
// decimated motion sample.
package recorder

import (
	"github.com/ayusman/wandcast/internal/gesture"
	"github.com/ayusman/wandcast/internal/input"
)

// DefaultThreshold is the minimum distance a new point must be from the last
// recorded point to be kept.
const DefaultThreshold = 0.05

// Sample is an ordered, decimated motion recording.
type Sample []input.Point3D

// Project drops the depth axis and returns the stroke in the XY plane.
func (s Sample) Project() []gesture.PathPoint {
	path := make([]gesture.PathPoint, len(s))
	for i, p := range s {
		path[i] = gesture.PathPoint{X: p.X, Y: p.Y}
	}
	return path
}

// Trail mirrors the recording for visual feedback.
type Trail interface {
	Begin(p input.Point3D)
	Append(p input.Point3D)
	Clear()
}

// Recorder accumulates points while a recording is open.
// It is owned by a single goroutine and is not safe for concurrent use.
type Recorder struct {
	threshold float64
	points    []input.Point3D
	recording bool
	trail     Trail
}

// New creates a Recorder with the given decimation threshold.
// A threshold <= 0 falls back to DefaultThreshold.
func New(threshold float64) *Recorder {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Recorder{
		threshold: threshold,
		points:    make([]input.Point3D, 0, 64),
	}
}

// SetTrail attaches a trail. A nil trail disables it.
func (r *Recorder) SetTrail(t Trail) {
	r.trail = t
}

// Threshold returns the decimation threshold.
func (r *Recorder) Threshold() float64 {
	return r.threshold
}

// Start opens a new recording at p, discarding anything previously buffered.
// Calling Start while already recording restarts the recording.
func (r *Recorder) Start(p input.Point3D) {
	r.points = r.points[:0]
	r.points = append(r.points, p)
	r.recording = true

	if r.trail != nil {
		r.trail.Clear()
		r.trail.Begin(p)
	}
}

// AddIfMoved appends p when it is strictly farther than the threshold from
// the last recorded point. It reports whether p was kept.
func (r *Recorder) AddIfMoved(p input.Point3D) bool {
	if !r.recording {
		return false
	}
	if len(r.points) > 0 && p.DistanceTo(r.points[len(r.points)-1]) <= r.threshold {
		return false
	}

	r.points = append(r.points, p)
	if r.trail != nil {
		r.trail.Append(p)
	}
	return true
}

// Stop closes the recording and returns a copy of its points.
// Stopping without a prior Start returns an empty sample.
func (r *Recorder) Stop() Sample {
	if !r.recording {
		return Sample{}
	}
	r.recording = false

	sample := make(Sample, len(r.points))
	copy(sample, r.points)
	r.points = r.points[:0]
	return sample
}

// Discard abandons the open recording without producing a sample.
func (r *Recorder) Discard() {
	r.recording = false
	r.points = r.points[:0]
	if r.trail != nil {
		r.trail.Clear()
	}
}

// Recording reports whether a recording is open.
func (r *Recorder) Recording() bool {
	return r.recording
}

// Len returns the number of points in the open recording.
func (r *Recorder) Len() int {
	return len(r.points)
}
