package network

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrackContains(t *testing.T) {
	tests := []struct {
		name  string
		crack Crack
		x, y  float64
		want  bool
	}{
		{"ellipse center", Crack{Semi: [2]float64{2, 1}}, 0, 0, true},
		{"ellipse edge", Crack{Semi: [2]float64{2, 1}}, 2, 0, true},
		{"ellipse outside", Crack{Semi: [2]float64{2, 1}}, 1.9, 0.9, false},
		{"rect corner", Crack{Shape: Rectangle, Semi: [2]float64{2, 1}}, 1.9, 0.9, true},
		{"rotated", Crack{Semi: [2]float64{2, 0.1}, Angle: math.Pi / 2}, 0, 1.5, true},
		{"rotated miss", Crack{Semi: [2]float64{2, 0.1}, Angle: math.Pi / 2}, 1.5, 0, false},
		{"degenerate", Crack{}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.crack.Contains(tt.x, tt.y))
		})
	}
}

func TestApplyCrack_Midpoints(t *testing.T) {
	net := unitLattice(t, 10, 10)
	crack := Crack{
		Shape:       Rectangle,
		Center:      [2]float64{2, 4.5},
		Semi:        [2]float64{2.2, 1.0},
		Probability: 1.0,
	}

	removed := net.ApplyCrack(Cracklist{crack}, nil)
	assert.Equal(t, 23, removed)
	assert.Equal(t, 180-23, net.CurrentEdges())

	for id := range net.Edges {
		m := net.Midpoint(id)
		assert.Equal(t, !crack.Contains(m[0], m[1]), net.Edges[id].Intact, "edge %d", id)
	}
}

func TestApplyCrack_Idempotent(t *testing.T) {
	net := unitLattice(t, 10, 10)
	cl := Cracklist{{Center: [2]float64{9, 4.5}, Semi: [2]float64{3, 1.2}, Probability: 1.0}}

	first := net.ApplyCrack(cl, nil)
	require.Positive(t, first)
	after := net.CurrentEdges()

	assert.Zero(t, net.ApplyCrack(cl, nil))
	assert.Equal(t, after, net.CurrentEdges())
}

func TestApplyCrack_Endpoints(t *testing.T) {
	net := unitLattice(t, 5, 5)
	cl := Cracklist{{Shape: Rectangle, Center: [2]float64{0, 0}, Semi: [2]float64{0.1, 0.1}, Probability: 1, Test: EndpointTest}}
	assert.Equal(t, 2, net.ApplyCrack(cl, nil))
}

func TestApplyCrack_Probability(t *testing.T) {
	cl := Cracklist{{Shape: Rectangle, Center: [2]float64{4.5, 4.5}, Semi: [2]float64{10, 10}, Probability: 0}}
	net := unitLattice(t, 10, 10)
	assert.Zero(t, net.ApplyCrack(cl, nil))

	cl[0].Probability = 0.5
	a, b := unitLattice(t, 10, 10), unitLattice(t, 10, 10)
	ra := a.ApplyCrack(cl, rand.New(rand.NewSource(3)))
	rb := b.ApplyCrack(cl, rand.New(rand.NewSource(3)))
	assert.Equal(t, ra, rb, "same seed, same thinning")
	assert.Greater(t, ra, 40)
	assert.Less(t, ra, 140)
}

func TestRandomCracks(t *testing.T) {
	b := Bounds{Max: [3]float64{50, 50, 0}}
	cl := RandomCracks(4, b, rand.New(rand.NewSource(1)))
	require.Len(t, cl, 4)
	for _, c := range cl {
		assert.Equal(t, 1.0, c.Probability)
		assert.GreaterOrEqual(t, c.Center[0], 0.0)
		assert.LessOrEqual(t, c.Center[0], 50.0)
		assert.Greater(t, c.Semi[0], c.Semi[1])
	}
}

func TestParseShape(t *testing.T) {
	s, err := ParseShape("rect")
	require.NoError(t, err)
	assert.Equal(t, Rectangle, s)
	_, err = ParseShape("hexagon")
	assert.Error(t, err)
}
