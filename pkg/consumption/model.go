package consumption

import (
	"encoding/json"
	"time"

	"github.com/ja7ad/energylog/pkg/util"
)

// Device is the consumer state the estimator drives.
// *consumer.Consumer satisfies it.
type Device interface {
	ApplyDelta(d float64)
	Level() float64
	MaxPower() float64
}

// Interval is the stretch between two consecutive events during which the
// level set by the first event holds.
// Units:
//   - Level: fraction of max power [0..1]
//   - PowerW: Watts
//   - Hours: elapsed hours
//   - EnergyWh: Watt-hours
type Interval struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Delta    float64   `json:"delta"`
	Level    float64   `json:"level"`
	PowerW   float64   `json:"power_w"`
	Hours    float64   `json:"hours"`
	EnergyWh float64   `json:"energy_wh"`
}

// MarshalJSON writes Delta in event key text form ("0.5", "-5123.0", "inf")
// so saturated deltas still encode.
func (iv Interval) MarshalJSON() ([]byte, error) {
	type wire Interval
	return json.Marshal(struct {
		wire
		Delta string `json:"delta"`
	}{wire(iv), util.FmtFloat(iv.Delta)})
}

// Result summarises one estimation run.
type Result struct {
	EnergyWh   float64    `json:"energy_wh"`
	Hours      float64    `json:"hours"`
	AvgPowerW  float64    `json:"avg_power_w"`
	PeakPowerW float64    `json:"peak_power_w"`
	Intervals  []Interval `json:"intervals"`
}
