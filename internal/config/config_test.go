package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/netsim/internal/network"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Network.Dim != 2 {
		t.Errorf("expected dim 2, got %d", cfg.Network.Dim)
	}
	if got := cfg.Run.Steps(); got != 20000 {
		t.Errorf("expected 20000 steps, got %d", got)
	}
	if cfg.Bonds.KT() <= 0 {
		t.Error("kT should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"dim", func(c *Config) { c.Network.Dim = 4 }},
		{"tiny lattice", func(c *Config) { c.Network.Nx = 1 }},
		{"spacing", func(c *Config) { c.Network.Spacing = 0 }},
		{"bond kind", func(c *Config) { c.Bonds.Kind = "glue" }},
		{"force law", func(c *Config) { c.Bonds.Law = "fene" }},
		{"long range axis", func(c *Config) { c.Network.LongRangeAxis = "w" }},
		{"crack shape", func(c *Config) { c.Crack.Enabled = true; c.Crack.Shape = "star" }},
		{"crack probability", func(c *Config) { c.Crack.Enabled = true; c.Crack.Probability = 2 }},
		{"tolerance", func(c *Config) { c.Solver.Tol = 0 }},
		{"iterations", func(c *Config) { c.Solver.MaxIter = 0 }},
		{"momentum", func(c *Config) { c.Solver.Alpha = 1 }},
		{"axis", func(c *Config) { c.Loading.Axis = 2 }},
		{"steps", func(c *Config) { c.Run.SimTime = 0 }},
		{"mode", func(c *Config) { c.Run.Mode = "mpi" }},
		{"force sync", func(c *Config) { c.Run.ForceSyncEvery = 0 }},
		{"temperature", func(c *Config) { c.Bonds.Temperature = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := DefaultConfig()
	cfg.Network.Nx = 7
	cfg.Kinetics.Params.Ae = 0.3
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Network.Nx != 7 || got.Kinetics.Params.Ae != 0.3 {
		t.Errorf("round trip lost values: %+v", got.Network)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "bonds:\n  law: hookean\nkinetics:\n  delxe: 0.5\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bonds.Law != "hookean" || cfg.Kinetics.Params.Dxe != 0.5 {
		t.Errorf("overrides not applied: %+v %+v", cfg.Bonds, cfg.Kinetics)
	}
	if cfg.Bonds.MeanLength != DefaultMeanLength || cfg.Kinetics.Params.Af != 0.1 {
		t.Error("defaults lost for unset keys")
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("network: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("lattice")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Run.Steps() != 50 || cfg.Bonds.Law != "hookean" {
		t.Errorf("lattice preset not applied: steps %d law %s", cfg.Run.Steps(), cfg.Bonds.Law)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("preset should validate: %v", err)
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestBuildNetwork(t *testing.T) {
	cfg := GetPreset("lattice")
	net, err := cfg.BuildNetwork()
	if err != nil {
		t.Fatal(err)
	}
	if net.NumNodes() != 100 || net.CurrentEdges() != 180 {
		t.Errorf("got %d nodes %d edges", net.NumNodes(), net.CurrentEdges())
	}
	if len(net.MovingNodes()) != 10 {
		t.Errorf("expected 10 plate nodes, got %d", len(net.MovingNodes()))
	}
}

func TestBuildNetwork_Cracked(t *testing.T) {
	cfg := GetPreset("lattice")
	cfg.Crack.Enabled = true
	cfg.Crack.Center = [2]float64{9, 4.5}
	cfg.Crack.Semi = [2]float64{2, 0.6}
	net, err := cfg.BuildNetwork()
	if err != nil {
		t.Fatal(err)
	}
	if net.CurrentEdges() >= 180 {
		t.Errorf("crack removed nothing: %d edges", net.CurrentEdges())
	}
}

func TestBuildNetwork_Kinetic(t *testing.T) {
	cfg := GetPreset("kinetic")
	cfg.Network.Nx, cfg.Network.Ny = 4, 4
	cfg.Network.LongRange = 3
	net, err := cfg.BuildNetwork()
	if err != nil {
		t.Fatal(err)
	}
	if net.Kind != network.KineticBond {
		t.Errorf("expected kinetic bonds, got %v", net.Kind)
	}
	if net.NumEdges() <= 24 {
		t.Errorf("long range bonds missing: %d edges", net.NumEdges())
	}
	for _, e := range net.Edges {
		if e.Kin != cfg.Kinetics.Params {
			t.Fatalf("edge carries %+v, want %+v", e.Kin, cfg.Kinetics.Params)
		}
	}
}

func TestBuildNetwork_Mesh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.msh")
	msh := `$MeshFormat
2.2 0 8
$EndMeshFormat
$Nodes
4
1 0 0 0
2 1 0 0
3 1 1 0
4 0 1 0
$EndNodes
$Elements
2
1 2 2 0 1 1 2 3
2 2 2 0 1 1 3 4
$EndElements
`
	if err := os.WriteFile(path, []byte(msh), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Network.Mesh = path
	net, err := cfg.BuildNetwork()
	if err != nil {
		t.Fatal(err)
	}
	if net.NumNodes() != 4 || net.NumEdges() != 5 {
		t.Errorf("got %d nodes %d edges, want 4 and 5", net.NumNodes(), net.NumEdges())
	}
}

func TestSimConfig(t *testing.T) {
	cfg := DefaultConfig()
	sc := cfg.SimConfig()
	if sc.Steps != 20000 || sc.ForceSyncEvery != DefaultNSync || sc.WeightGoal != DefaultWeightGoal {
		t.Errorf("unexpected sim config %+v", sc)
	}
	d, err := cfg.Damage()
	if err != nil {
		t.Fatal(err)
	}
	if !d.RateDamage || d.Dt != DefaultTimeStep {
		t.Errorf("unexpected damage model %+v", d)
	}
	s, err := cfg.BuildSolver()
	if err != nil {
		t.Fatal(err)
	}
	if s.Tol != cfg.Solver.Tol || s.MaxIter != cfg.Solver.MaxIter {
		t.Errorf("solver settings not carried over: %+v", s)
	}
}

func TestBuilders_UnknownLaw(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bonds.Law = "rubber"
	if _, err := cfg.Damage(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Damage: expected ErrInvalid, got %v", err)
	}
	if _, err := cfg.BuildSolver(); !errors.Is(err, ErrInvalid) {
		t.Errorf("BuildSolver: expected ErrInvalid, got %v", err)
	}
}
