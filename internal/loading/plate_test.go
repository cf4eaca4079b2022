package loading

import (
	"math"
	"testing"

	"github.com/san-kum/netsim/internal/network"
)

func column(t *testing.T) *network.Network {
	t.Helper()
	b := network.Bounds{Max: [3]float64{0, 2}}
	net, err := network.New(2, []float64{0, 0, 0, 1, 0, 2}, b)
	if err != nil {
		t.Fatal(err)
	}
	net.MarkBoundaries(1, 1e-9)
	return net
}

func TestNewPlate(t *testing.T) {
	tests := []struct {
		dim, axis int
		ok        bool
	}{
		{2, 0, true},
		{2, 1, true},
		{2, 2, false},
		{3, 2, true},
		{3, -1, false},
	}
	for _, tt := range tests {
		_, err := NewPlate(tt.dim, tt.axis, 0.1)
		if (err == nil) != tt.ok {
			t.Errorf("NewPlate(%d, %d): err=%v", tt.dim, tt.axis, err)
		}
	}
}

func TestMoveTopPlate(t *testing.T) {
	net := column(t)
	p := &Plate{Axis: 1, Increment: 0.25}

	for i := 0; i < 4; i++ {
		if n := p.MoveTopPlate(net); n != 1 {
			t.Fatalf("moved %d nodes, want 1", n)
		}
	}
	if got := net.Pos(2)[1]; math.Abs(got-3) > 1e-12 {
		t.Errorf("top node at %v, want 3", got)
	}
	if got := net.Pos(2)[0]; got != 0 {
		t.Errorf("plate drifted along x: %v", got)
	}
	if net.Pos(0)[1] != 0 || net.Pos(1)[1] != 1 {
		t.Error("non-plate nodes moved")
	}
}

func TestDisplacement(t *testing.T) {
	p := &Plate{Axis: 1, Increment: 0.5}
	net := column(t)
	start := net.Pos(2)[1]
	for step := 1; step <= 6; step++ {
		p.MoveTopPlate(net)
		want := p.Displacement(step)
		if got := net.Pos(2)[1] - start; math.Abs(got-want) > 1e-12 {
			t.Errorf("step %d: moved %v, want %v", step, got, want)
		}
	}
	if p.Displacement(0) != 0 {
		t.Error("displacement before loading must be zero")
	}
}
