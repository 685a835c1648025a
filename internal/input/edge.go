package input

// Edge turns a level signal into press transitions. Holding the control
// produces a single rising edge no matter how many frames it is held.
type Edge struct {
	deadzone float64
	pressed  bool
}

// NewEdge creates an edge detector with the given deadzone.
func NewEdge(deadzone float64) *Edge {
	return &Edge{deadzone: deadzone}
}

// Update feeds the current frame's value and reports a rising edge.
func (e *Edge) Update(value float64) bool {
	pressed := IsPressed(value, e.deadzone)
	rising := pressed && !e.pressed
	e.pressed = pressed
	return rising
}

// Pressed returns the level seen on the last update.
func (e *Edge) Pressed() bool {
	return e.pressed
}

// Reset forgets the previous level.
func (e *Edge) Reset() {
	e.pressed = false
}

// Edges tracks the edge-based controls of a controller.
type Edges struct {
	deadzone float64
	toggle   *Edge
	cycle    *Edge
	export   *Edge
	voice    *Edge
}

// Events are the rising edges seen in one frame.
type Events struct {
	Trigger bool // Level: trigger currently held
	Toggle  bool
	Cycle   bool
	Export  bool
	Voice   bool
}

// NewEdges creates edge detectors for every edge-based control.
func NewEdges(config Config) *Edges {
	return &Edges{
		deadzone: config.Deadzone,
		toggle:   NewEdge(config.Deadzone),
		cycle:    NewEdge(config.Deadzone),
		export:   NewEdge(config.Deadzone),
		voice:    NewEdge(config.Deadzone),
	}
}

// Update converts one frame of controls into events.
func (e *Edges) Update(c Controls) Events {
	return Events{
		Trigger: IsPressed(c.Trigger, e.deadzone),
		Toggle:  e.toggle.Update(c.Toggle),
		Cycle:   e.cycle.Update(c.Cycle),
		Export:  e.export.Update(c.Export),
		Voice:   e.voice.Update(c.Voice),
	}
}
