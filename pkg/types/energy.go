package types

import (
	"fmt"

	"github.com/ja7ad/energylog/pkg/util"
)

// WattHours is an energy amount in Wh.
type WattHours float64

// String renders the value with three decimals, e.g. "5.625 Wh".
func (w WattHours) String() string { return fmt.Sprintf("%.3f Wh", float64(w)) }

// Exact renders the shortest round-trip value, e.g. "5.625".
func (w WattHours) Exact() string { return util.FmtFloat(float64(w)) }

// Level is a consumption level as a fraction of max power.
type Level float64

// Percent renders the level as a percentage, e.g. "25.00 %".
func (l Level) Percent() string {
	return fmt.Sprintf("%.2f %%", util.Clamp01(float64(l))*100)
}

// Watts returns the draw at this level for a device rated maxPower W.
func (l Level) Watts(maxPower float64) float64 { return util.Clamp01(float64(l)) * maxPower }
