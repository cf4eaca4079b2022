// Package diagnostics judges whether a damaged network can still carry load.
package diagnostics

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/san-kum/netsim/internal/network"
)

// Halt reasons.
const (
	ReasonNoEdges      = "no intact bonds left"
	ReasonZeroWeight   = "network weight is not positive"
	ReasonDisconnected = "loaded plate disconnected from fixed plate"
)

// Report is the health of a network at one step.
type Report struct {
	Step      int
	Edges     int
	Weight    float64
	Connected bool
	Stop      bool
	Reason    string
}

// Stats evaluates the halt condition of net. A stop is a controlled end of
// the run, not an error.
func Stats(net *network.Network) Report {
	r := Report{
		Edges:  net.CurrentEdges(),
		Weight: net.Weight(),
	}
	switch {
	case r.Edges == 0:
		r.Stop, r.Reason = true, ReasonNoEdges
	case r.Weight <= 0:
		r.Stop, r.Reason = true, ReasonZeroWeight
	default:
		r.Connected = Connected(net)
		if !r.Connected {
			r.Stop, r.Reason = true, ReasonDisconnected
		}
	}
	return r
}

// Connected reports whether some path of intact bonds joins a Moving node to
// a Fixed node. Networks without both plates count as connected.
func Connected(net *network.Network) bool {
	n := net.NumNodes()
	hasFixed := false
	queue := make([]int, 0, n)
	seen := make([]bool, n)
	for i := 0; i < n; i++ {
		if net.Fixed[i] {
			hasFixed = true
		}
		if net.Moving[i] {
			seen[i] = true
			queue = append(queue, i)
		}
	}
	if len(queue) == 0 || !hasFixed {
		return true
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if net.Fixed[i] {
			return true
		}
		for _, id := range net.Incident(i) {
			e := &net.Edges[id]
			if !e.Intact {
				continue
			}
			j := e.A
			if j == i {
				j = e.B
			}
			if !seen[j] {
				seen[j] = true
				queue = append(queue, j)
			}
		}
	}
	return false
}

// Recorder decides when to evaluate Stats and logs each evaluation.
type Recorder struct {
	Logger *log.Logger

	Warmup int     // evaluate every step before this one
	Every  int     // then every Every steps
	Detail float64 // and every step once edges fall below Detail*initial

	initial int
	last    Report
}

// NewRecorder starts a recorder for a network with initial intact bonds.
func NewRecorder(logger *log.Logger, initial, warmup, every int, detail float64) *Recorder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Recorder{
		Logger:  logger,
		Warmup:  warmup,
		Every:   max(every, 1),
		Detail:  detail,
		initial: initial,
	}
}

// Due reports whether step should be checked given the current edge count.
// A network with no bonds left is always due so the stop is not missed.
func (r *Recorder) Due(step, edges int) bool {
	if edges == 0 || step < r.Warmup || step%r.Every == 0 {
		return true
	}
	return float64(edges) < r.Detail*float64(r.initial)
}

// Check evaluates net at step and logs the outcome.
func (r *Recorder) Check(step int, net *network.Network) Report {
	rep := Stats(net)
	rep.Step = step
	r.last = rep

	kv := []any{"step", step, "edges", rep.Edges, "weight", rep.Weight}
	if r.initial > 0 {
		kv = append(kv, "remaining", float64(rep.Edges)/float64(r.initial))
	}
	if rep.Stop {
		r.Logger.Warn("network failed", append(kv, "reason", rep.Reason)...)
	} else {
		r.Logger.Debug("stats", kv...)
	}
	return rep
}

// Last is the most recent report.
func (r *Recorder) Last() Report { return r.last }
