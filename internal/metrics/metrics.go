// Package metrics accumulates scalar summaries of a run from its step
// events.
package metrics

import (
	"math"

	"github.com/san-kum/netsim/internal/sim"
)

// Metric observes steps and reduces them to one number.
type Metric interface {
	sim.Observer
	Name() string
	Value() float64
	Reset()
}

// Set fans step events out to several metrics.
type Set []Metric

func (s Set) OnStep(info sim.StepInfo) {
	for _, m := range s {
		m.OnStep(info)
	}
}

// Standard is the set reported after every run.
func Standard(axis int) Set {
	return Set{NewPeakForce(axis), NewConvergence(), NewDamage(), NewBreakRate()}
}

// PeakForce is the largest plate reaction magnitude along one axis.
type PeakForce struct {
	axis int
	peak float64
}

func NewPeakForce(axis int) *PeakForce { return &PeakForce{axis: axis} }

func (p *PeakForce) Name() string { return "peak_force" }

func (p *PeakForce) OnStep(info sim.StepInfo) {
	if p.axis < len(info.Force) {
		p.peak = math.Max(p.peak, math.Abs(info.Force[p.axis]))
	}
}

func (p *PeakForce) Value() float64 { return p.peak }
func (p *PeakForce) Reset()         { p.peak = 0 }

// Convergence is the fraction of steps whose equilibration converged.
type Convergence struct {
	converged int
	samples   int
}

func NewConvergence() *Convergence { return &Convergence{} }

func (c *Convergence) Name() string { return "converged_fraction" }

func (c *Convergence) OnStep(info sim.StepInfo) {
	c.samples++
	if info.Converged {
		c.converged++
	}
}

func (c *Convergence) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return float64(c.converged) / float64(c.samples)
}

func (c *Convergence) Reset() { c.converged, c.samples = 0, 0 }

// Damage is the fraction of the bonds present at the first observed step
// that have broken since.
type Damage struct {
	initial int
	current int
}

func NewDamage() *Damage { return &Damage{} }

func (d *Damage) Name() string { return "damage" }

func (d *Damage) OnStep(info sim.StepInfo) {
	if d.initial == 0 {
		d.initial = info.Edges + info.Broken
	}
	d.current = info.Edges
}

func (d *Damage) Value() float64 {
	if d.initial == 0 {
		return 0
	}
	return 1 - float64(d.current)/float64(d.initial)
}

func (d *Damage) Reset() { d.initial, d.current = 0, 0 }

// BreakRate is the mean number of bonds broken per step.
type BreakRate struct {
	broken  int
	samples int
}

func NewBreakRate() *BreakRate { return &BreakRate{} }

func (b *BreakRate) Name() string { return "breaks_per_step" }

func (b *BreakRate) OnStep(info sim.StepInfo) {
	b.broken += info.Broken
	b.samples++
}

func (b *BreakRate) Value() float64 {
	if b.samples == 0 {
		return 0
	}
	return float64(b.broken) / float64(b.samples)
}

func (b *BreakRate) Reset() { b.broken, b.samples = 0, 0 }
