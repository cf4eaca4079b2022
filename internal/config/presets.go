package config

import "sort"

// Presets adjust the defaults for common experiments.
var Presets = map[string]func(*Config){
	"lattice": func(c *Config) {
		c.Network.Nx, c.Network.Ny, c.Network.Spacing = 10, 10, 1
		c.Bonds.Law = "hookean"
		c.Bonds.StressFree = true
		c.Kinetics.RateDamage = false
		c.Kinetics.CriticalStretch = 1.2
		c.Solver.Tol = 1e-7
		c.Solver.MaxIter = 5000
		c.Loading.Increment = 0.01
		c.Run.SimTime, c.Run.TimeStep = 0.05, 1e-3
		c.Run.ForceSyncEvery = 1
		c.Run.WeightGoal = 0
	},
	"cracked": func(c *Config) {
		c.Crack.Enabled = true
	},
	"rate-damage": func(c *Config) {
		c.Kinetics.RateDamage = true
		c.Kinetics.CriticalStretch = 0
	},
	"kinetic": func(c *Config) {
		c.Bonds.Kind = "kinetic"
		c.Kinetics.RateDamage = false
	},
	"long-range": func(c *Config) {
		c.Network.LongRange = 100
		c.Network.LongRangeAxis = "y"
	},
}

// GetPreset returns the defaults with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
