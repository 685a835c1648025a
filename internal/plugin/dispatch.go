package plugin

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/wandcast/internal/arbiter"
)

// Dispatcher runs the subscribed plugins for every cast decision.
// OnCast never blocks the caller; decisions are queued for Run.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	queue    chan arbiter.Decision
	log      *logrus.Entry
}

// NewDispatcher creates a Dispatcher with room for queueSize pending casts.
func NewDispatcher(manager *Manager, executor *Executor, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		queue:    make(chan arbiter.Decision, queueSize),
		log:      logrus.WithField("component", "plugin"),
	}
}

// OnCast queues d. When the queue is full the cast is dropped.
func (d *Dispatcher) OnCast(decision arbiter.Decision) {
	select {
	case d.queue <- decision:
	default:
		d.log.WithField("spell", decision.Spell).Warn("plugin queue full, dropping cast")
	}
}

// Run executes queued casts until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case decision := <-d.queue:
			d.Dispatch(ctx, decision)
		}
	}
}

// Dispatch runs every plugin subscribed to the decision's spell and returns
// how many reported success.
func (d *Dispatcher) Dispatch(ctx context.Context, decision arbiter.Decision) int {
	plugins := d.manager.ForSpell(decision.Spell)
	if len(plugins) == 0 {
		return 0
	}

	cast, err := json.Marshal(decision)
	if err != nil {
		d.log.WithError(err).Error("failed to encode cast")
		return 0
	}

	ok := 0
	for _, p := range plugins {
		log := d.log.WithFields(logrus.Fields{
			"plugin": p.Manifest.Name,
			"spell":  decision.Spell,
		})

		resp, err := d.executor.Execute(ctx, p, &Request{
			Action: ActionCast,
			Spell:  decision.Spell,
			Cast:   cast,
			Config: p.Manifest.Config,
		})
		if err != nil {
			log.WithError(err).Warn("plugin failed")
			continue
		}
		if !resp.Success {
			log.WithField("error", resp.Error).Warn("plugin reported failure")
			continue
		}
		log.Debug("plugin ran")
		ok++
	}
	return ok
}
