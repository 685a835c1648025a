package input

import "io"

// MockController is a test implementation of the Controller interface.
// It replays a fixed list of frames and then keeps returning the last one.
type MockController struct {
	frames []Controls
	pos    int
	err    error
	closed bool
}

// NewMockController creates a new MockController that replays frames.
func NewMockController(frames ...Controls) *MockController {
	return &MockController{frames: frames}
}

// Push appends frames to the replay queue.
func (m *MockController) Push(frames ...Controls) {
	m.frames = append(m.frames, frames...)
}

// SetError sets the error that will be returned by Poll.
func (m *MockController) SetError(err error) {
	m.err = err
}

// Poll returns the next queued frame.
func (m *MockController) Poll() (Controls, error) {
	if m.err != nil {
		return Controls{}, m.err
	}
	if len(m.frames) == 0 {
		return Controls{}, io.EOF
	}
	if m.pos >= len(m.frames) {
		return m.frames[len(m.frames)-1], nil
	}
	c := m.frames[m.pos]
	m.pos++
	return c, nil
}

// Remaining returns how many queued frames have not been polled yet.
func (m *MockController) Remaining() int {
	return len(m.frames) - m.pos
}

// Close marks the controller closed.
func (m *MockController) Close() error {
	m.closed = true
	return nil
}

// Held returns a frame at p with the trigger fully pressed.
func Held(p Point3D) Controls {
	return Controls{Position: p, Trigger: 1}
}

// Released returns a frame at p with no controls pressed.
func Released(p Point3D) Controls {
	return Controls{Position: p}
}
