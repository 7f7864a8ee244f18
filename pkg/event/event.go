package event

import (
	"time"

	"github.com/ja7ad/energylog/pkg/util"
)

// Event is one normalized consumption change. Off-events carry a zero Delta.
type Event struct {
	Timestamp time.Time
	Delta     float64
}

// New builds an event. A zero delta, or any delta on an off-event, is stored
// as 0.
func New(ts time.Time, delta float64, on bool) Event {
	if !on || delta == 0 {
		delta = 0
	}
	return Event{Timestamp: ts, Delta: delta}
}

// Off builds an off-event at ts.
func Off(ts time.Time) Event { return Event{Timestamp: ts} }

// IsOff reports whether the event forces the device off.
func (e Event) IsOff() bool { return e.Delta == 0 }

// Seconds returns the timestamp as fractional epoch seconds.
func (e Event) Seconds() float64 {
	return float64(e.Timestamp.Unix()) + float64(e.Timestamp.Nanosecond())/1e9
}

// Key returns the canonical "<epoch-seconds>:<delta>" form used for
// deduplication and ordering, e.g. "1544206563.0:0.5" or "1544210163.0:0".
func (e Event) Key() string {
	return util.FmtFloat(e.Seconds()) + ":" + formatDelta(e.Delta)
}

func (e Event) String() string { return e.Key() }

func formatDelta(d float64) string {
	if d == 0 {
		return "0"
	}
	return util.FmtFloat(d)
}
