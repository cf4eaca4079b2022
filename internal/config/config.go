package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/netsim/internal/mechanics"
	"github.com/san-kum/netsim/internal/network"
)

const (
	DefaultDim         = 2
	DefaultTimeStep    = 1e-3
	DefaultSimTime     = 20.0
	DefaultTol         = 1e-6
	DefaultMeanLength  = 150.0
	DefaultStdLength   = 25.0
	DefaultMaxBound    = 50.0
	DefaultBoltzmann   = 1.38064852e-5
	DefaultPersistence = 0.1
	DefaultTemperature = 300.0
	DefaultWeightGoal  = 1.0e6
	DefaultNSync       = 10
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Network  NetworkConfig  `yaml:"network"`
	Bonds    BondConfig     `yaml:"bonds"`
	Kinetics KineticsConfig `yaml:"kinetics"`
	Crack    CrackConfig    `yaml:"crack"`
	Solver   SolverConfig   `yaml:"solver"`
	Loading  LoadingConfig  `yaml:"loading"`
	Run      RunConfig      `yaml:"run"`
	Output   OutputConfig   `yaml:"output"`
}

// NetworkConfig picks the topology: a gmsh file when Mesh is set,
// otherwise a regular lattice.
type NetworkConfig struct {
	Mesh          string  `yaml:"mesh"`
	Dim           int     `yaml:"dim"`
	Nx            int     `yaml:"nx"`
	Ny            int     `yaml:"ny"`
	Nz            int     `yaml:"nz"`
	Spacing       float64 `yaml:"spacing"`
	PBC           bool    `yaml:"pbc"`
	LongRange     int     `yaml:"long_range"`
	LongRangeAxis string  `yaml:"long_range_axis"`
	BoundaryTol   float64 `yaml:"boundary_tol"`
}

type BondConfig struct {
	Kind        string  `yaml:"kind"`
	Law         string  `yaml:"law"`
	MeanLength  float64 `yaml:"mean_length"`
	StdLength   float64 `yaml:"std_length"`
	StressFree  bool    `yaml:"stress_free"`
	Persistence float64 `yaml:"persistence"`
	Stiffness   float64 `yaml:"stiffness"`
	Temperature float64 `yaml:"temperature"`
	Boltzmann   float64 `yaml:"boltzmann"`
}

// KT is the thermal energy used by both the force law and the rate model.
func (b BondConfig) KT() float64 { return b.Boltzmann * b.Temperature }

type KineticsConfig struct {
	RateDamage      bool                  `yaml:"rate_damage"`
	Params          network.KineticParams `yaml:",inline"`
	CriticalStretch float64               `yaml:"critical_stretch"`
	Seed            int64                 `yaml:"seed"`
}

type CrackConfig struct {
	Enabled     bool       `yaml:"enabled"`
	Shape       string     `yaml:"shape"`
	Center      [2]float64 `yaml:"center"`
	Semi        [2]float64 `yaml:"semi"`
	Angle       float64    `yaml:"angle"`
	Probability float64    `yaml:"probability"`
	Endpoints   bool       `yaml:"endpoints"`
	Random      int        `yaml:"random"`
}

type SolverConfig struct {
	Eta     float64 `yaml:"eta"`
	Alpha   float64 `yaml:"alpha"`
	Tol     float64 `yaml:"tol"`
	MaxIter int     `yaml:"max_iter"`
}

type LoadingConfig struct {
	Axis      int     `yaml:"axis"`
	Increment float64 `yaml:"increment"`
}

type RunConfig struct {
	Mode           string  `yaml:"mode"`
	Workers        int     `yaml:"workers"`
	TimeStep       float64 `yaml:"time_step"`
	SimTime        float64 `yaml:"sim_time"`
	LocalSweeps    int     `yaml:"local_sweeps"`
	ForceSyncEvery int     `yaml:"force_sync_every"`
	WarmupSteps    int     `yaml:"warmup_steps"`
	StatsEvery     int     `yaml:"stats_every"`
	DetailFraction float64 `yaml:"detail_fraction"`
	WeightGoal     float64 `yaml:"weight_goal"`
	Seed           int64   `yaml:"seed"`
}

// Steps is the number of load steps, SimTime/TimeStep.
func (r RunConfig) Steps() int {
	if r.TimeStep <= 0 {
		return 0
	}
	return int(r.SimTime/r.TimeStep + 0.5)
}

type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Snapshots bool   `yaml:"snapshots"`
	Label     string `yaml:"label"`
}

func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Dim:           DefaultDim,
			Nx:            21,
			Ny:            21,
			Spacing:       DefaultMaxBound / 20,
			LongRangeAxis: "none",
			BoundaryTol:   1e-6,
		},
		Bonds: BondConfig{
			Kind:        "basic",
			Law:         "wlc",
			MeanLength:  DefaultMeanLength,
			StdLength:   DefaultStdLength,
			Persistence: DefaultPersistence,
			Stiffness:   1,
			Temperature: DefaultTemperature,
			Boltzmann:   DefaultBoltzmann,
		},
		Kinetics: KineticsConfig{
			RateDamage:      true,
			Params:          network.KineticParams{Ae: 0.1, Dxe: 0.15, Af: 0.1, Dxf: 0.25},
			CriticalStretch: 0.99,
			Seed:            1,
		},
		Crack: CrackConfig{
			Shape:       "rectangle",
			Center:      [2]float64{DefaultMaxBound, DefaultMaxBound / 2},
			Semi:        [2]float64{DefaultMaxBound / 10, DefaultMaxBound / 10},
			Probability: 1,
		},
		Solver: SolverConfig{
			Tol:     DefaultTol,
			MaxIter: 1000,
		},
		Loading: LoadingConfig{
			Axis:      1,
			Increment: 0.01,
		},
		Run: RunConfig{
			Mode:           "serial",
			Workers:        2,
			TimeStep:       DefaultTimeStep,
			SimTime:        DefaultSimTime,
			LocalSweeps:    1,
			ForceSyncEvery: DefaultNSync,
			WarmupSteps:    100,
			StatsEvery:     100,
			DetailFraction: 0.9,
			WeightGoal:     DefaultWeightGoal,
			Seed:           1,
		},
		Output: OutputConfig{
			Dir:       "./data",
			Snapshots: true,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings that would fail inside the run.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	if c.Network.Dim != 2 && c.Network.Dim != 3 {
		bad("network.dim must be 2 or 3, got %d", c.Network.Dim)
	}
	if c.Network.Mesh == "" {
		if c.Network.Nx < 2 || c.Network.Ny < 2 {
			bad("lattice needs at least 2x2 nodes, got %dx%d", c.Network.Nx, c.Network.Ny)
		}
		if c.Network.Spacing <= 0 {
			bad("network.spacing must be positive")
		}
		if c.Network.Dim == 3 && c.Network.Nz < 2 {
			bad("3d lattice needs nz >= 2")
		}
	}
	if _, err := network.ParseBondKind(c.Bonds.Kind); err != nil {
		bad("%v", err)
	}
	if _, err := c.ForceLaw(); err != nil {
		bad("%v", err)
	}
	if _, err := c.LongRangeAxis(); err != nil {
		bad("%v", err)
	}
	if c.Crack.Enabled {
		if _, err := network.ParseShape(c.Crack.Shape); err != nil {
			bad("%v", err)
		}
		if c.Crack.Probability < 0 || c.Crack.Probability > 1 {
			bad("crack.probability must be within [0, 1], got %g", c.Crack.Probability)
		}
	}
	if c.Solver.Tol <= 0 {
		bad("solver.tol must be positive")
	}
	if c.Solver.MaxIter <= 0 {
		bad("solver.max_iter must be positive")
	}
	if c.Solver.Alpha < 0 || c.Solver.Alpha >= 1 {
		bad("solver.alpha must be within [0, 1), got %g", c.Solver.Alpha)
	}
	if c.Loading.Axis < 0 || c.Loading.Axis >= c.Network.Dim {
		bad("loading.axis %d outside dim %d", c.Loading.Axis, c.Network.Dim)
	}
	if c.Run.Steps() <= 0 {
		bad("run needs at least one step (sim_time %g, time_step %g)", c.Run.SimTime, c.Run.TimeStep)
	}
	switch c.Run.Mode {
	case "serial", "distributed":
	default:
		bad("run.mode must be serial or distributed, got %q", c.Run.Mode)
	}
	if c.Run.ForceSyncEvery < 1 {
		bad("run.force_sync_every must be at least 1")
	}
	if c.Kinetics.RateDamage && c.Bonds.KT() <= 0 {
		bad("rate damage needs a positive temperature")
	}
	return errors.Join(errs...)
}

func (c *Config) ForceLaw() (mechanics.ForceLaw, error) {
	return mechanics.ParseForceLaw(c.Bonds.Law)
}

// LongRangeAxis maps network.long_range_axis onto an axis index or
// network.Unbiased.
func (c *Config) LongRangeAxis() (int, error) {
	switch c.Network.LongRangeAxis {
	case "", "none":
		return network.Unbiased, nil
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "z":
		return 2, nil
	}
	return network.Unbiased, fmt.Errorf("unknown long range axis: %s", c.Network.LongRangeAxis)
}
