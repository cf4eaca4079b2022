// Package sim drives a network through displacement-controlled loading,
// either in one process or over a group of cooperating workers.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/san-kum/netsim/internal/cluster"
	"github.com/san-kum/netsim/internal/diagnostics"
	"github.com/san-kum/netsim/internal/kinetics"
	"github.com/san-kum/netsim/internal/loading"
	"github.com/san-kum/netsim/internal/mechanics"
	"github.com/san-kum/netsim/internal/network"
	"github.com/san-kum/netsim/internal/partition"
)

type Simulator struct {
	solver    mechanics.Solver
	damage    kinetics.Model
	plate     loading.Plate
	logger    *log.Logger
	snapshots SnapshotWriter
	observers []Observer
}

type Option func(*Simulator)

func WithLogger(l *log.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSnapshots writes the network at step 0 and whenever bonds were lost
// since the previous snapshot.
func WithSnapshots(w SnapshotWriter) Option {
	return func(s *Simulator) { s.snapshots = w }
}

func New(solver mechanics.Solver, damage kinetics.Model, plate loading.Plate, opts ...Option) *Simulator {
	s := &Simulator{
		solver:    solver,
		damage:    damage,
		plate:     plate,
		logger:    log.New(io.Discard),
		observers: make([]Observer, 0),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) validateConfig(cfg Config, net *network.Network) error {
	if cfg.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidConfig, cfg.Steps)
	}
	if s.solver.Tol <= 0 {
		return fmt.Errorf("%w: solver tolerance must be positive, got %g", ErrInvalidConfig, s.solver.Tol)
	}
	if s.solver.MaxIter <= 0 {
		return fmt.Errorf("%w: solver iteration cap must be positive, got %d", ErrInvalidConfig, s.solver.MaxIter)
	}
	if s.plate.Axis < 0 || s.plate.Axis >= net.Dim {
		return fmt.Errorf("%w: loading axis %d in dim %d", ErrInvalidConfig, s.plate.Axis, net.Dim)
	}
	return net.Validate()
}

// prepare validates the run and settles the start state. A nil result
// with a nil error means the run can proceed; a non-nil result is a clean
// early termination.
func (s *Simulator) prepare(net *network.Network, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg, net); err != nil {
		return nil, err
	}
	if rep := diagnostics.Stats(net); rep.Stop {
		s.logger.Warn("nothing to load", "reason", rep.Reason, "edges", rep.Edges)
		return &Result{Stopped: true, StopReason: rep.Reason, Final: net}, nil
	}
	if cfg.WeightGoal > 0 && net.Weight() < cfg.WeightGoal {
		mult, err := net.SetWeight(cfg.WeightGoal)
		if err != nil {
			return nil, err
		}
		s.logger.Info("rescaled density", "multiplier", mult, "weight", net.Weight())
	}
	return nil, nil
}

// RunSerial loads net in the calling goroutine. net is modified in place
// and returned as Result.Final.
func (s *Simulator) RunSerial(ctx context.Context, net *network.Network, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	if res, err := s.prepare(net, cfg); res != nil || err != nil {
		return res, err
	}
	all := make([]int, max(net.NumNodes(), net.NumEdges()))
	for i := range all {
		all[i] = i
	}
	w := s.newWorker(net, all[:net.NumNodes()], all[:net.NumEdges()], local{}, cfg)
	s.logger.Info("serial run", "nodes", net.NumNodes(), "edges", net.NumEdges(), "steps", cfg.Steps)
	return w.res, w.run(ctx)
}

// RunDistributed loads net over cfg.Workers ranks, each holding its own
// copy of the network and owning one block of nodes and bonds. Rank 0
// coordinates. An odd worker count ends the run cleanly with
// Result.Aborted set.
func (s *Simulator) RunDistributed(ctx context.Context, net *network.Network, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	if cfg.Workers < 2 || cfg.Workers%2 != 0 {
		s.logger.Warn("refusing distributed run", "workers", cfg.Workers, "err", ErrOddWorkers)
		return &Result{Aborted: true, StopReason: ErrOddWorkers.Error()}, nil
	}
	if res, err := s.prepare(net, cfg); res != nil || err != nil {
		return res, err
	}
	part, err := partition.New(cfg.Workers, net.NumNodes(), net.NumEdges())
	if err != nil {
		return nil, err
	}
	s.logger.Info("distributed run", "workers", cfg.Workers, "nodes", net.NumNodes(),
		"edges", net.NumEdges(), "chunk", part.ChunkLen, "steps", cfg.Steps)

	nets := make([]*network.Network, cfg.Workers)
	nets[0] = net
	for r := 1; r < cfg.Workers; r++ {
		nets[r] = net.Clone()
	}

	var res *Result
	err = cluster.Run(ctx, cfg.Workers, func(ctx context.Context, c *cluster.Comm) error {
		mine := nets[c.Rank()]
		x := newRemote(c, part, net.Dim)
		w := s.newWorker(mine, part.Nodes[c.Rank()], part.Edges[c.Rank()], x, cfg)
		// one goroutine per rank already
		w.solver.Workers = 1
		if c.IsRoot() {
			res = w.res
		}
		if ok, err := x.verify(ctx, mine); !ok {
			return err
		}
		return w.run(ctx)
	})
	var integrity *partition.IntegrityError
	if errors.As(err, &integrity) {
		s.logger.Error("partition rejected", "err", err)
	}
	return res, err
}
