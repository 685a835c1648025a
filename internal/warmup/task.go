package warmup

import "time"

type taskPhase int

const (
	phaseYield taskPhase = iota
	phaseStart
	phasePoll
)

// task is the cooperative warm-up routine spawned on the frame scheduler.
type task struct {
	c       *Coordinator
	gen     int
	phase   taskPhase
	elapsed time.Duration
}

func (c *Coordinator) newTask(gen int) *task {
	return &task{c: c, gen: gen}
}

// Step advances the warm-up by one frame.
func (t *task) Step(dt time.Duration) bool {
	c := t.c
	if !c.current(t.gen) {
		return true
	}

	switch t.phase {
	case phaseYield:
		// Let the transition frame render before touching the backend.
		t.phase = phaseStart
		return false

	case phaseStart:
		if c.backend == nil {
			c.log.Error("No inference backend configured, neural gestures disabled")
			c.finish(t.gen, Failed)
			return true
		}
		if err := c.backend.StartWarmup(); err != nil {
			c.log.WithError(err).Error("Model warm-up failed to start")
			c.finish(t.gen, Failed)
			return true
		}
		t.phase = phasePoll
		return t.poll(0)

	default:
		return t.poll(dt)
	}
}

func (t *task) poll(dt time.Duration) bool {
	c := t.c
	if c.backend.IsWarmedUp() {
		c.log.WithField("elapsed", t.elapsed).Info("Model warm-up complete")
		c.finish(t.gen, Ready)
		return true
	}

	t.elapsed += dt
	if t.elapsed >= c.config.Timeout {
		c.log.WithField("timeout", c.config.Timeout).Error("Model warm-up timed out")
		c.finish(t.gen, Failed)
		return true
	}
	return false
}
