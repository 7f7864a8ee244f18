// Package consumer models an energy consumer (a lightbulb, a heater) as a
// rated maximum power and a current consumption level in [0,1].
package consumer

import (
	"fmt"
	"math"

	"github.com/ja7ad/energylog/pkg/util"
)

// Consumer is not safe for concurrent use.
type Consumer struct {
	kind     string
	maxPower float64 // W
	level    float64 // fraction of maxPower, [0..1]
}

// New returns a fully-on consumer. maxPower is in Watts; zero is accepted.
func New(kind string, maxPower float64) (*Consumer, error) {
	if math.IsNaN(maxPower) || math.IsInf(maxPower, 0) {
		return nil, fmt.Errorf("%w (max_power: %s)", ErrInvalidMaxPower, util.FmtFloat(maxPower))
	}
	if maxPower < 0 {
		return nil, fmt.Errorf("%w (max_power: %s)", ErrNegativeMaxPower, fmtPower(maxPower))
	}
	return &Consumer{kind: kind, maxPower: maxPower, level: 1}, nil
}

// ApplyDelta shifts the level by d and clamps it to [0,1]. A zero delta
// turns the consumer off instead of leaving the level unchanged.
func (c *Consumer) ApplyDelta(d float64) {
	switch {
	case d < 0, d > 0:
		c.level = util.Clamp01(c.level + d)
	default:
		c.level = 0
	}
}

func (c *Consumer) Kind() string { return c.kind }

// MaxPower returns the rated maximum power in Watts.
func (c *Consumer) MaxPower() float64 { return c.maxPower }

// Level returns the current consumption level in [0,1].
func (c *Consumer) Level() float64 { return c.level }

// Power returns the current draw in Watts.
func (c *Consumer) Power() float64 { return c.level * c.maxPower }

// Reset turns the consumer fully on again.
func (c *Consumer) Reset() { c.level = 1 }

// Clone returns an independent copy with the same level.
func (c *Consumer) Clone() *Consumer {
	cp := *c
	return &cp
}

// fmtPower prints integral values without a fractional part.
func fmtPower(p float64) string {
	if p == math.Trunc(p) && math.Abs(p) < 1e15 {
		return fmt.Sprintf("%d", int64(p))
	}
	return util.FmtFloat(p)
}
