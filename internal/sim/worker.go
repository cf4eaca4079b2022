package sim

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/san-kum/netsim/internal/diagnostics"
	"github.com/san-kum/netsim/internal/history"
	"github.com/san-kum/netsim/internal/kinetics"
	"github.com/san-kum/netsim/internal/loading"
	"github.com/san-kum/netsim/internal/mechanics"
	"github.com/san-kum/netsim/internal/network"
)

// worker runs the step loop of one rank. Coordinator-only state (result,
// recorder, observers) is nil elsewhere.
type worker struct {
	net    *network.Network
	solver mechanics.Solver
	damage kinetics.Model
	plate  loading.Plate
	nodes  []int
	edges  []int
	ex     exchanger
	cfg    Config

	logger    *log.Logger
	res       *Result
	rec       *diagnostics.Recorder
	snapshots SnapshotWriter
	observers []Observer
	lastSnap  int
}

func (s *Simulator) newWorker(net *network.Network, nodes, edges []int, ex exchanger, cfg Config) *worker {
	w := &worker{
		net:    net,
		solver: s.solver.Clone(),
		damage: s.damage,
		plate:  s.plate,
		nodes:  nodes,
		edges:  edges,
		ex:     ex,
		cfg:    cfg,
		logger: s.logger,
	}
	if ex.root() {
		rows := cfg.Steps/cfg.ForceSyncEvery + 1
		w.res = &Result{History: history.NewLog(net.Dim, rows), Final: net}
		w.rec = diagnostics.NewRecorder(s.logger, net.CurrentEdges(), cfg.WarmupSteps, cfg.StatsEvery, cfg.DetailFraction)
		w.snapshots = s.snapshots
		w.observers = s.observers
		w.lastSnap = net.CurrentEdges()
	}
	return w
}

// run executes the step protocol. Every rank takes the same branches: all
// decisions that could split control flow come out of a collective.
func (w *worker) run(ctx context.Context) error {
	root := w.ex.root()
	if root {
		if err := w.snapshot(0, true); err != nil {
			return err
		}
	}
	if _, err := w.record(ctx, 0); err != nil {
		return err
	}

	for step := 1; step <= w.cfg.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.plate.MoveTopPlate(w.net)

		out, err := w.equilibrate(ctx)
		if err != nil {
			return SimError{Step: step, Message: "position exchange", Wrapped: err}
		}

		var force []float64
		if step%w.cfg.ForceSyncEvery == 0 {
			if force, err = w.record(ctx, step); err != nil {
				return SimError{Step: step, Message: "force exchange", Wrapped: err}
			}
		}

		broken, err := w.ex.bonds(ctx, w.damage.Evaluate(w.net, w.edges, step))
		if err != nil {
			return SimError{Step: step, Message: "bond exchange", Wrapped: err}
		}
		kinetics.Apply(w.net, broken)

		var rep diagnostics.Report
		if root {
			w.res.Steps = step
			if !out.Converged {
				w.res.Unconverged++
				w.logger.Debug("minimization hit iteration cap", "step", step, "residual", out.Residual)
			}
			if w.rec.Due(step, w.net.CurrentEdges()) {
				rep = w.rec.Check(step, w.net)
			}
			if err := w.snapshot(step, false); err != nil {
				return err
			}
			info := StepInfo{
				Step:         step,
				Displacement: w.plate.Displacement(step),
				Edges:        w.net.CurrentEdges(),
				Broken:       len(broken),
				Iters:        out.Iters,
				Residual:     out.Residual,
				Converged:    out.Converged,
				Force:        force,
			}
			for _, o := range w.observers {
				o.OnStep(info)
			}
		}

		stop, err := w.ex.agree(ctx, rep.Stop)
		if err != nil {
			return SimError{Step: step, Message: "stop agreement", Wrapped: err}
		}
		if err := w.ex.barrier(ctx); err != nil {
			return SimError{Step: step, Message: "barrier", Wrapped: err}
		}
		if stop {
			if root {
				w.res.Stopped = true
				w.res.StopReason = rep.Reason
				w.logger.Info("run halted", "step", step, "reason", rep.Reason)
			}
			return nil
		}
	}
	return nil
}

// equilibrate relaxes the owned nodes in rounds of LocalSweeps sweeps, each
// followed by a position exchange, until the global residual is below Tol
// or the iteration cap is spent.
func (w *worker) equilibrate(ctx context.Context) (mechanics.Outcome, error) {
	w.solver.Reset(w.net)
	limit := max(w.solver.MaxIter, 1)
	var out mechanics.Outcome
	for out.Iters < limit {
		residual := 0.0
		for k := 0; k < w.cfg.LocalSweeps && out.Iters < limit; k++ {
			residual = w.solver.Sweep(w.net, w.nodes)
			out.Iters++
		}
		global, err := w.ex.positions(ctx, w.net, residual)
		if err != nil {
			return out, err
		}
		out.Residual = global
		if global < w.solver.Tol {
			out.Converged = true
			break
		}
	}
	return out, nil
}

// record refreshes owned forces at the settled positions, collects them on
// the coordinator and appends the plate force and live bond count.
func (w *worker) record(ctx context.Context, step int) ([]float64, error) {
	w.solver.ComputeForces(w.net, w.nodes)
	if err := w.ex.forces(ctx, w.net); err != nil {
		return nil, err
	}
	if !w.ex.root() {
		return nil, nil
	}
	index := step / w.cfg.ForceSyncEvery
	if err := mechanics.PlateForces(w.net, w.res.History, index); err != nil {
		return nil, err
	}
	if err := mechanics.EdgeNumber(w.res.History, index, w.net.CurrentEdges()); err != nil {
		return nil, err
	}
	return w.res.History.Forces.Row(index), nil
}

func (w *worker) snapshot(step int, force bool) error {
	edges := w.net.CurrentEdges()
	if w.snapshots == nil || (!force && edges >= w.lastSnap) {
		return nil
	}
	w.lastSnap = edges
	return w.snapshots.WriteSnapshot(step, w.net)
}
