// Package input samples the wand controller once per frame.
package input

import "math"

// DefaultDeadzone is the analog value a control must exceed to count as pressed.
const DefaultDeadzone = 0.1

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo calculates the Euclidean distance between two points.
func (p Point3D) DistanceTo(o Point3D) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Controls is one frame of controller state. Buttons are analog values in [0, 1].
type Controls struct {
	Position Point3D `json:"position"` // Wand tip position
	Trigger  float64 `json:"trigger"`  // Level based: held means recording
	Toggle   float64 `json:"toggle"`   // Edge based: training/recognition mode
	Cycle    float64 `json:"cycle"`    // Edge based: next training label
	Export   float64 `json:"export"`   // Edge based: export templates
	Voice    float64 `json:"voice"`    // Edge based: start a voice recording
}

// Controller defines the interface for wand controller implementations.
type Controller interface {
	// Poll returns the controller state for the current frame.
	Poll() (Controls, error)

	// Close releases any resources held by the controller.
	Close() error
}

// Config holds configuration options for control sampling.
type Config struct {
	// Deadzone is the minimum analog value treated as pressed.
	Deadzone float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Deadzone: DefaultDeadzone,
	}
}

// IsPressed reports whether an analog value exceeds the deadzone.
func IsPressed(value, deadzone float64) bool {
	return value > deadzone
}
