package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/san-kum/netsim/internal/config"
	"github.com/san-kum/netsim/internal/network"
	"github.com/san-kum/netsim/internal/sim"
	"github.com/san-kum/netsim/internal/storage"
)

// execute builds the network and engine described by cfg, runs it and
// stores the outcome. Aborted runs return a result but write nothing.
func execute(ctx context.Context, cfg *config.Config, logger *log.Logger, observers ...sim.Observer) (*sim.Result, *storage.Run, error) {
	net, err := cfg.BuildNetwork()
	if err != nil {
		return nil, nil, fmt.Errorf("build network: %w", err)
	}
	solver, err := cfg.BuildSolver()
	if err != nil {
		return nil, nil, err
	}

	meta := storage.RunMetadata{
		Label:    cfg.Output.Label,
		Mode:     cfg.Run.Mode,
		Workers:  1,
		Seed:     cfg.Run.Seed,
		Dim:      net.Dim,
		Nodes:    net.NumNodes(),
		Edges:    net.CurrentEdges(),
		Kinetic:  net.Kind == network.KineticBond,
		Law:      cfg.Bonds.Law,
		TimeStep: cfg.Run.TimeStep,
		Steps:    cfg.Run.Steps(),
	}
	if cfg.Bonds.MeanLength > 0 {
		meta.StdOverMean = cfg.Bonds.StdLength / cfg.Bonds.MeanLength
	}
	if cfg.Run.Mode == "distributed" {
		meta.Workers = cfg.Run.Workers
	}
	if meta.Label == "" {
		meta.Label = cfg.Bonds.Law
	}
	run := storage.New(cfg.Output.Dir).Begin(meta)

	opts := []sim.Option{sim.WithLogger(logger)}
	if cfg.Output.Snapshots {
		opts = append(opts, sim.WithSnapshots(run))
	}
	damage, err := cfg.Damage()
	if err != nil {
		return nil, nil, err
	}
	s := sim.New(solver, damage, cfg.Plate(), opts...)
	for _, o := range observers {
		s.AddObserver(o)
	}

	logger.Info("starting run",
		"id", run.Meta.ID, "mode", cfg.Run.Mode, "nodes", meta.Nodes, "bonds", meta.Edges, "steps", meta.Steps)

	var res *sim.Result
	switch cfg.Run.Mode {
	case "distributed":
		res, err = s.RunDistributed(ctx, net, cfg.SimConfig())
	default:
		res, err = s.RunSerial(ctx, net, cfg.SimConfig())
	}
	if err != nil {
		return res, run, err
	}
	if err := run.Finish(res); err != nil {
		return res, run, fmt.Errorf("store run: %w", err)
	}
	return res, run, nil
}
