// Package mechanics computes bond forces and relaxes node positions toward
// mechanical equilibrium.
//
// Forces on a node are summed over its incident intact bonds in ascending
// bond id order, so evaluating any subset of nodes gives bit-identical
// results to evaluating all of them. This is what lets partitioned workers
// reproduce the single-process run.
package mechanics

import (
	"math"

	"github.com/san-kum/netsim/internal/history"
	"github.com/san-kum/netsim/internal/network"
)

// minParallel is the smallest node range worth a goroutine.
const minParallel = 256

// Outcome summarises one bounded minimization.
type Outcome struct {
	Iters     int
	Residual  float64
	Converged bool
}

// Solver relaxes free nodes by gradient descent with heavy-ball momentum.
type Solver struct {
	Law     ForceLaw
	Params  Params
	Eta     float64 // step size; <= 0 derives a stable one from the bond stiffness
	Alpha   float64 // momentum in [0, 1)
	Tol     float64 // max residual force at convergence
	MaxIter int
	Workers int // goroutines for force evaluation; <= 0 uses GOMAXPROCS

	eta      float64
	velocity []float64
}

// Reset clears the momentum and fixes the step size for the next
// minimization. It must run on every worker at the same step.
func (s *Solver) Reset(net *network.Network) {
	if len(s.velocity) != len(net.R) {
		s.velocity = make([]float64, len(net.R))
	} else {
		clear(s.velocity)
	}
	s.eta = s.Eta
	if s.eta <= 0 {
		s.eta = s.StableStep(net)
	}
}

// Clone returns a copy that owns its momentum buffer, so several workers
// can sweep with the same settings.
func (s Solver) Clone() Solver {
	s.velocity = nil
	return s
}

// StableStep bounds the step size by the Gershgorin estimate of the
// largest Hessian eigenvalue.
func (s *Solver) StableStep(net *network.Network) float64 {
	worst := 0.0
	for i := 0; i < net.NumNodes(); i++ {
		sum := 0.0
		for _, id := range net.Incident(i) {
			e := &net.Edges[id]
			if !e.Intact {
				continue
			}
			sum += net.Density * s.Law.Stiffness(s.Params, net.Distance(id), e.L)
		}
		worst = math.Max(worst, sum)
	}
	if worst == 0 {
		return 1
	}
	return 0.5 / worst
}

// NodeForce writes the net bond force on node i into out.
func (s *Solver) NodeForce(net *network.Network, i int, out []float64) {
	var d [3]float64
	clear(out)
	for _, id := range net.Incident(i) {
		e := &net.Edges[id]
		if !e.Intact {
			continue
		}
		x := net.Delta(id, d[:net.Dim])
		if x == 0 {
			continue
		}
		t := net.Density * s.Law.Tension(s.Params, x, e.L) / x
		if e.B == i {
			t = -t
		}
		for k := 0; k < net.Dim; k++ {
			out[k] += t * d[k]
		}
	}
}

// ComputeForces refreshes Forces for the given nodes from the current
// positions and returns the largest force magnitude on a free node.
func (s *Solver) ComputeForces(net *network.Network, nodes []int) float64 {
	var mu maxReducer
	ParallelFor(len(nodes), minParallel, s.Workers, func(start, end int) {
		local := 0.0
		for _, i := range nodes[start:end] {
			f := net.Force(i)
			s.NodeForce(net, i, f)
			if net.Moving[i] || net.Fixed[i] {
				continue
			}
			local = math.Max(local, norm(f))
		}
		mu.observe(local)
	})
	return mu.value()
}

// Sweep performs one descent iteration over nodes: forces are evaluated
// from the current positions of every node, then free nodes move. It
// returns the residual measured before the move.
func (s *Solver) Sweep(net *network.Network, nodes []int) float64 {
	if s.velocity == nil {
		s.Reset(net)
	}
	res := s.ComputeForces(net, nodes)
	for _, i := range nodes {
		if net.Moving[i] || net.Fixed[i] {
			continue
		}
		f := net.Force(i)
		for k := 0; k < net.Dim; k++ {
			j := i*net.Dim + k
			s.velocity[j] = s.Alpha*s.velocity[j] + s.eta*f[k]
			net.R[j] += s.velocity[j]
		}
	}
	return res
}

// Optimize runs sweeps over nodes until the residual drops below Tol or
// MaxIter sweeps have been spent. Hitting the cap is not an error; the
// positions reached are kept.
func (s *Solver) Optimize(net *network.Network, nodes []int) Outcome {
	s.Reset(net)
	var out Outcome
	for out.Iters < max(s.MaxIter, 1) {
		out.Residual = s.Sweep(net, nodes)
		out.Iters++
		if out.Residual < s.Tol {
			out.Converged = true
			break
		}
	}
	return out
}

// PlateForces sums the forces on the moving plate into row index of the
// force history.
func PlateForces(net *network.Network, log *history.Log, index int) error {
	return log.Forces.Set(index, PlateForce(net)...)
}

// PlateForce is the reaction force on the moving plate.
func PlateForce(net *network.Network) []float64 {
	sum := make([]float64, net.Dim)
	for i, m := range net.Moving {
		if !m {
			continue
		}
		for k, v := range net.Force(i) {
			sum[k] += v
		}
	}
	return sum
}

// EdgeNumber records the live-edge count at row index.
func EdgeNumber(log *history.Log, index, value int) error {
	return log.Edges.Set(index, value)
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
