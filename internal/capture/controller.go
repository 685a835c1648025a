package capture

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/wandcast/internal/input"
)

// Controller turns camera frames into controller state. The trigger is held
// while the tip is visible, so lighting the wand records a stroke. The camera
// is read on its own goroutine and Poll returns the latest state.
type Controller struct {
	camera  Camera
	tracker *TipTracker
	log     *logrus.Entry

	mu     sync.Mutex
	latest input.Controls
	err    error

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewController opens camera and starts reading from it.
func NewController(camera Camera, tracker *TipTracker) (*Controller, error) {
	if err := camera.Open(); err != nil {
		return nil, err
	}
	c := &Controller{
		camera:  camera,
		tracker: tracker,
		log:     logrus.WithField("component", "camera"),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.run()
	return c, nil
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		frame, err := c.camera.ReadFrame()
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
		tip, visible := c.tracker.Locate(frame)
		frame.Close()

		c.mu.Lock()
		if visible {
			c.latest = input.Held(tip)
		} else {
			// Keep the last position so the release lands where the stroke ended.
			c.latest = input.Released(c.latest.Position)
		}
		c.mu.Unlock()
	}
}

// Poll returns the most recent camera state, or the error that stopped
// the camera.
func (c *Controller) Poll() (input.Controls, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return input.Controls{}, c.err
	}
	return c.latest, nil
}

// Close stops the reader and releases the camera.
func (c *Controller) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		<-c.done
		err = c.camera.Close()
		c.log.Debug("Camera closed")
	})
	return err
}
