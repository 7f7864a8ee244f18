package consumption

import (
	"github.com/ja7ad/energylog/pkg/event"
	"github.com/ja7ad/energylog/pkg/util"
)

// Accumulator keeps running energy and time totals over applied intervals.
type Accumulator struct {
	energyWh float64
	hours    float64
	peakW    float64
	count    int
}

// Apply adds one interval. Energy is accumulated as:
//
//	E_cum += hours * P
func (a *Accumulator) Apply(iv Interval) {
	a.energyWh += iv.EnergyWh
	a.hours += iv.Hours
	if iv.PowerW > a.peakW {
		a.peakW = iv.PowerW
	}
	a.count++
}

// EnergyWh returns cumulative energy in Watt-hours.
func (a *Accumulator) EnergyWh() float64 { return a.energyWh }

// Hours returns the total time covered by applied intervals.
func (a *Accumulator) Hours() float64 { return a.hours }

// AvgPowerW returns the time-weighted average power.
func (a *Accumulator) AvgPowerW() float64 { return util.SafeDiv(a.energyWh, a.hours) }

// PeakPowerW returns the highest interval power seen.
func (a *Accumulator) PeakPowerW() float64 { return a.peakW }

// Count returns the number of applied intervals.
func (a *Accumulator) Count() int { return a.count }

// Estimator integrates power over an ordered event timeline.
type Estimator struct{}

// Run walks events once. For every adjacent pair it applies the first
// event's delta to dev and charges the elapsed hours at the resulting power.
// The last event only closes the previous interval. dev keeps the level
// reached after the final applied delta.
func (Estimator) Run(events []event.Event, dev Device) Result {
	var acc Accumulator
	var intervals []Interval

	for i := 0; i+1 < len(events); i++ {
		cur, next := events[i], events[i+1]

		hours := next.Timestamp.Sub(cur.Timestamp).Seconds() / 60 / 60

		dev.ApplyDelta(cur.Delta)
		level := dev.Level()
		power := level * dev.MaxPower()

		iv := Interval{
			Start:    cur.Timestamp,
			End:      next.Timestamp,
			Delta:    cur.Delta,
			Level:    level,
			PowerW:   power,
			Hours:    hours,
			EnergyWh: hours * power,
		}
		acc.Apply(iv)
		intervals = append(intervals, iv)
	}

	return Result{
		EnergyWh:   acc.EnergyWh(),
		Hours:      acc.Hours(),
		AvgPowerW:  acc.AvgPowerW(),
		PeakPowerW: acc.PeakPowerW(),
		Intervals:  intervals,
	}
}

// Estimate returns the total energy in Watt-hours for events on dev.
func Estimate(events []event.Event, dev Device) float64 {
	return Estimator{}.Run(events, dev).EnergyWh
}
