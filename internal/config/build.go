package config

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/san-kum/netsim/internal/kinetics"
	"github.com/san-kum/netsim/internal/loading"
	"github.com/san-kum/netsim/internal/mechanics"
	"github.com/san-kum/netsim/internal/network"
	"github.com/san-kum/netsim/internal/sim"
)

// BuildNetwork constructs the initial network: topology, rest lengths,
// bond variant, long-range bonds, crack and plates, in that order.
func (c *Config) BuildNetwork() (*network.Network, error) {
	rng := rand.New(rand.NewSource(c.Run.Seed))
	lengths := network.LengthSampler{
		Mean:       c.Bonds.MeanLength,
		Std:        c.Bonds.StdLength,
		StressFree: c.Bonds.StressFree,
	}

	var (
		net *network.Network
		err error
	)
	if c.Network.Mesh != "" {
		f, ferr := os.Open(c.Network.Mesh)
		if ferr != nil {
			return nil, ferr
		}
		defer f.Close()
		net, err = network.ReadMsh(f, c.Network.Dim, lengths, rng)
	} else {
		spec := network.LatticeSpec{
			Nx:      c.Network.Nx,
			Ny:      c.Network.Ny,
			Spacing: c.Network.Spacing,
			PBC:     c.Network.PBC,
		}
		if c.Network.Dim == 3 {
			spec.Nz = c.Network.Nz
		}
		net, err = network.NewLattice(spec, lengths, rng)
	}
	if err != nil {
		return nil, err
	}

	kind, err := network.ParseBondKind(c.Bonds.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	net.SetKinetics(kind, c.Kinetics.Params)

	if c.Network.LongRange > 0 {
		axis, err := c.LongRangeAxis()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		net.AddLongRangeEdges(c.Network.LongRange, axis, lengths, rng)
	}

	if c.Crack.Enabled {
		cl, err := c.Cracks(net.Bounds, rng)
		if err != nil {
			return nil, err
		}
		net.ApplyCrack(cl, rng)
	}

	net.MarkBoundaries(c.Loading.Axis, c.Network.BoundaryTol)
	return net, nil
}

// Cracks is the configured crack plus Crack.Random scattered ones.
func (c *Config) Cracks(b network.Bounds, rng *rand.Rand) (network.Cracklist, error) {
	shape, err := network.ParseShape(c.Crack.Shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	test := network.MidpointTest
	if c.Crack.Endpoints {
		test = network.EndpointTest
	}
	cl := network.Cracklist{{
		Shape:       shape,
		Center:      c.Crack.Center,
		Semi:        c.Crack.Semi,
		Angle:       c.Crack.Angle,
		Probability: c.Crack.Probability,
		Test:        test,
	}}
	if c.Crack.Random > 0 {
		cl = append(cl, network.RandomCracks(c.Crack.Random, b, rng)...)
	}
	return cl, nil
}

// BuildSolver returns the equilibrium solver for the configured force law.
func (c *Config) BuildSolver() (mechanics.Solver, error) {
	law, err := c.ForceLaw()
	if err != nil {
		return mechanics.Solver{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return mechanics.Solver{
		Law:     law,
		Params:  c.params(),
		Eta:     c.Solver.Eta,
		Alpha:   c.Solver.Alpha,
		Tol:     c.Solver.Tol,
		MaxIter: c.Solver.MaxIter,
	}, nil
}

func (c *Config) params() mechanics.Params {
	return mechanics.Params{KT: c.Bonds.KT(), B: c.Bonds.Persistence, K: c.Bonds.Stiffness}
}

// Damage returns the bond breaking model. It fails on an unknown force law.
func (c *Config) Damage() (kinetics.Model, error) {
	law, err := c.ForceLaw()
	if err != nil {
		return kinetics.Model{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return kinetics.Model{
		RateDamage:      c.Kinetics.RateDamage,
		KT:              c.Bonds.KT(),
		Dt:              c.Run.TimeStep,
		CriticalStretch: c.Kinetics.CriticalStretch,
		Law:             law,
		Params:          c.params(),
		Seed:            c.Kinetics.Seed,
	}, nil
}

func (c *Config) Plate() loading.Plate {
	return loading.Plate{Axis: c.Loading.Axis, Increment: c.Loading.Increment}
}

func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Steps:          c.Run.Steps(),
		Workers:        c.Run.Workers,
		LocalSweeps:    c.Run.LocalSweeps,
		ForceSyncEvery: c.Run.ForceSyncEvery,
		WarmupSteps:    c.Run.WarmupSteps,
		StatsEvery:     c.Run.StatsEvery,
		DetailFraction: c.Run.DetailFraction,
		WeightGoal:     c.Run.WeightGoal,
	}
}
