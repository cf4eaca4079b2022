// Package kinetics decides which bonds rupture during a load step.
//
// Rupture follows a Bell-type rate law: the attempt rate of a bond grows
// exponentially with the force it carries. Every bond draws its random
// number from a hash of (seed, step, bond id), so outcomes are the same no
// matter which worker evaluates the bond.
package kinetics

import (
	"math"

	"github.com/san-kum/netsim/internal/mechanics"
	"github.com/san-kum/netsim/internal/network"
)

// Model holds the damage configuration of a run.
type Model struct {
	RateDamage      bool    // enable Bell-rate rupture on basic bonds
	KT              float64 // thermal energy kB*T
	Dt              float64 // time step
	CriticalStretch float64 // span/L at which a bond always breaks; <= 0 disables
	Law             mechanics.ForceLaw
	Params          mechanics.Params
	Seed            int64
}

// Active reports whether stochastic rupture applies to net.
func (m *Model) Active(net *network.Network) bool {
	return m.RateDamage || net.Kind == network.KineticBond
}

// Rates returns the rupture and competing re-formation rates of a bond
// carrying tension f.
func Rates(p network.KineticParams, f, kT float64) (ke, kf float64) {
	if kT <= 0 {
		return 0, 0
	}
	ke = p.Ae * math.Exp(f*p.Dxe/kT)
	kf = p.Af * math.Exp(-f*p.Dxf/kT)
	return ke, kf
}

// RuptureProbability is the chance that rupture wins within dt:
// ke/(ke+kf) * (1 - exp(-(ke+kf) dt)).
func RuptureProbability(p network.KineticParams, f, kT, dt float64) float64 {
	ke, kf := Rates(p, f, kT)
	if math.IsInf(ke, 1) {
		return 1
	}
	total := ke + kf
	if total <= 0 || dt <= 0 {
		return 0
	}
	return ke / total * -math.Expm1(-total*dt)
}

// Evaluate returns the intact bonds among ids that break at step. The
// network is not modified; callers apply the result with Network.Break.
func (m *Model) Evaluate(net *network.Network, ids []int, step int) []int {
	active := m.Active(net)
	var broken []int
	for _, id := range ids {
		e := &net.Edges[id]
		if !e.Intact {
			continue
		}
		x := net.Distance(id)
		if m.CriticalStretch > 0 && x >= m.CriticalStretch*e.L {
			broken = append(broken, id)
			continue
		}
		if !active {
			continue
		}
		f := math.Max(net.Density*m.Law.Tension(m.Params, x, e.L), 0)
		if Uniform(m.Seed, step, id) < RuptureProbability(e.Kin, f, m.KT, m.Dt) {
			broken = append(broken, id)
		}
	}
	return broken
}

// Apply breaks every id and returns how many were still intact.
func Apply(net *network.Network, ids []int) int {
	n := 0
	for _, id := range ids {
		if net.Break(id) {
			n++
		}
	}
	return n
}

// Uniform maps (seed, step, id) to a number in [0, 1).
func Uniform(seed int64, step, id int) float64 {
	h := uint64(seed)
	h = mix(h ^ uint64(step)*0x9e3779b97f4a7c15)
	h = mix(h ^ uint64(id)*0xc2b2ae3d27d4eb4f)
	return float64(h>>11) / (1 << 53)
}

// mix is the splitmix64 finalizer.
func mix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
