// Package store keeps the deduplicated event set of one device and hands it
// out in a stable order.
package store

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/ja7ad/energylog/pkg/event"
)

// Order selects how Events sorts the stored records.
type Order int

const (
	// OrderByKey sorts by canonical key text. Timestamps of different digit
	// counts sort lexicographically, not chronologically.
	OrderByKey Order = iota
	// OrderByTime sorts by timestamp, then by canonical key.
	OrderByTime
)

func (o Order) String() string {
	switch o {
	case OrderByTime:
		return "time"
	default:
		return "key"
	}
}

// Config holds store options. A nil Config or zero fields fall back to
// event.Default and OrderByKey.
type Config struct {
	Parser *event.Parser
	Order  Order
}

// Store maps canonical keys to events. It is not safe for concurrent use.
type Store struct {
	parser *event.Parser
	order  Order
	events map[string]event.Event
}

// New creates an empty store.
func New(cfg *Config) *Store {
	s := &Store{
		parser: event.Default,
		order:  OrderByKey,
		events: make(map[string]event.Event),
	}
	if cfg == nil {
		return s
	}
	if cfg.Parser != nil {
		s.parser = cfg.Parser
	}
	if cfg.Order == OrderByTime {
		s.order = OrderByTime
	}
	return s
}

// Add parses line and stores the result under its canonical key, replacing
// any event with the same key. Rejected lines are dropped and Add returns
// false.
func (s *Store) Add(line string) bool {
	e, err := s.parser.Parse(line)
	if err != nil {
		slog.Debug("log line rejected", "line", line, "err", err)
		return false
	}
	s.Put(e)
	return true
}

// BatchAdd adds lines in order and returns how many were accepted.
func (s *Store) BatchAdd(lines []string) int {
	n := 0
	for _, line := range lines {
		if s.Add(line) {
			n++
		}
	}
	return n
}

// Put stores an already parsed event.
func (s *Store) Put(e event.Event) {
	s.events[e.Key()] = e
}

// Events returns a freshly sorted copy of the stored events.
func (s *Store) Events() []event.Event {
	type keyed struct {
		key string
		ev  event.Event
	}
	all := make([]keyed, 0, len(s.events))
	for k, e := range s.events {
		all = append(all, keyed{key: k, ev: e})
	}

	switch s.order {
	case OrderByTime:
		slices.SortFunc(all, func(a, b keyed) int {
			if c := a.ev.Timestamp.Compare(b.ev.Timestamp); c != 0 {
				return c
			}
			return cmp.Compare(a.key, b.key)
		})
	default:
		slices.SortFunc(all, func(a, b keyed) int { return cmp.Compare(a.key, b.key) })
	}

	out := make([]event.Event, len(all))
	for i, k := range all {
		out[i] = k.ev
	}
	return out
}

// Keys returns the canonical keys in the same order as Events.
func (s *Store) Keys() []string {
	evs := s.Events()
	keys := make([]string, len(evs))
	for i, e := range evs {
		keys[i] = e.Key()
	}
	return keys
}

// Len returns the number of distinct stored events.
func (s *Store) Len() int { return len(s.events) }

// Order reports the configured ordering.
func (s *Store) Order() Order { return s.order }

// Reset drops every stored event.
func (s *Store) Reset() { clear(s.events) }
