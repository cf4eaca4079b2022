package mechanics

import (
	"fmt"
	"strings"
)

// maxStretch caps x/L for the worm-like chain, whose force diverges at 1.
const maxStretch = 0.99

// ForceLaw maps bond extension to tension.
type ForceLaw int

const (
	// WLC is the Marko-Siggia worm-like chain interpolation.
	WLC ForceLaw = iota
	// Hookean is a linear spring around the rest length.
	Hookean
)

func (f ForceLaw) String() string {
	if f == Hookean {
		return "hookean"
	}
	return "wlc"
}

func ParseForceLaw(s string) (ForceLaw, error) {
	switch strings.ToLower(s) {
	case "", "wlc":
		return WLC, nil
	case "hookean", "linear":
		return Hookean, nil
	}
	return WLC, fmt.Errorf("unknown force law: %s", s)
}

// Params are the material constants of the force laws.
type Params struct {
	KT float64 // thermal energy kB*T
	B  float64 // persistence length
	K  float64 // Hookean stiffness
}

// Tension is the pulling force of a bond with span x and rest length l.
// Positive values pull the endpoints together.
func (f ForceLaw) Tension(p Params, x, l float64) float64 {
	if f == Hookean {
		return p.K * (x - l)
	}
	if l <= 0 || p.B <= 0 {
		return 0
	}
	s := x / l
	if s > maxStretch {
		s = maxStretch
	}
	return p.KT / p.B * (0.25/((1-s)*(1-s)) - 0.25 + s)
}

// Stiffness is dT/dx at span x.
func (f ForceLaw) Stiffness(p Params, x, l float64) float64 {
	if f == Hookean {
		return p.K
	}
	if l <= 0 || p.B <= 0 {
		return 0
	}
	s := x / l
	if s > maxStretch {
		s = maxStretch
	}
	return p.KT / p.B / l * (0.5/((1-s)*(1-s)*(1-s)) + 1)
}
