// Package meter ties one consumer to its own event store so a device's raw
// log stream can be ingested and turned into an energy estimate.
package meter

import (
	"github.com/google/uuid"

	"github.com/ja7ad/energylog/pkg/consumer"
	"github.com/ja7ad/energylog/pkg/consumption"
	"github.com/ja7ad/energylog/pkg/event"
	"github.com/ja7ad/energylog/pkg/store"
)

// Meter is one device's processing session. It is not safe for concurrent
// use; callers sharing a Meter must serialise access.
type Meter struct {
	id       uuid.UUID
	consumer *consumer.Consumer
	store    *store.Store
}

// New creates a meter for a device of the given kind and max power (W).
// cfg configures the event store and may be nil.
func New(kind string, maxPower float64, cfg *store.Config) (*Meter, error) {
	c, err := consumer.New(kind, maxPower)
	if err != nil {
		return nil, err
	}
	return &Meter{
		id:       uuid.New(),
		consumer: c,
		store:    store.New(cfg),
	}, nil
}

// ID identifies this session in logs and reports.
func (m *Meter) ID() uuid.UUID { return m.id }

func (m *Meter) Consumer() *consumer.Consumer { return m.consumer }

// AddLog ingests one raw line and reports whether it was accepted.
func (m *Meter) AddLog(line string) bool { return m.store.Add(line) }

// BatchAddLogs ingests lines in order and returns the accepted count.
func (m *Meter) BatchAddLogs(lines []string) int { return m.store.BatchAdd(lines) }

// Events returns the stored events in store order.
func (m *Meter) Events() []event.Event { return m.store.Events() }

// Keys returns the canonical keys in store order.
func (m *Meter) Keys() []string { return m.store.Keys() }

// Len returns the number of distinct stored events.
func (m *Meter) Len() int { return m.store.Len() }

// Estimate runs the estimator against the meter's own consumer, leaving it
// at the level reached by the walk.
func (m *Meter) Estimate() consumption.Result {
	return consumption.Estimator{}.Run(m.store.Events(), m.consumer)
}

// Preview estimates on a copy of the consumer and leaves the meter untouched.
func (m *Meter) Preview() consumption.Result {
	return consumption.Estimator{}.Run(m.store.Events(), m.consumer.Clone())
}

// Reset drops all events and turns the consumer fully on again.
func (m *Meter) Reset() {
	m.store.Reset()
	m.consumer.Reset()
}
