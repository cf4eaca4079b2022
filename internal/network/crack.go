package network

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Shape of a crack region in the x-y plane.
type Shape int

const (
	Ellipse Shape = iota
	Rectangle
)

// ParseShape maps a config string onto a Shape.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(s) {
	case "", "ellipse":
		return Ellipse, nil
	case "rect", "rectangle":
		return Rectangle, nil
	}
	return Ellipse, fmt.Errorf("unknown crack shape: %s", s)
}

// RegionTest selects which points of a bond must fall inside a crack.
type RegionTest int

const (
	MidpointTest RegionTest = iota
	EndpointTest
)

// Crack is a rotated rectangular or elliptical region with a removal
// probability for the bonds it covers.
type Crack struct {
	Shape       Shape
	Center      [2]float64
	Semi        [2]float64 // half widths along the rotated axes
	Angle       float64    // radians, counter-clockwise
	Probability float64
	Test        RegionTest
}

// Contains reports whether (x, y) lies inside the region.
func (c Crack) Contains(x, y float64) bool {
	if c.Semi[0] <= 0 || c.Semi[1] <= 0 {
		return false
	}
	dx, dy := x-c.Center[0], y-c.Center[1]
	sin, cos := math.Sincos(-c.Angle)
	u := dx*cos - dy*sin
	v := dx*sin + dy*cos
	if c.Shape == Rectangle {
		return math.Abs(u) <= c.Semi[0] && math.Abs(v) <= c.Semi[1]
	}
	u /= c.Semi[0]
	v /= c.Semi[1]
	return u*u+v*v <= 1
}

func (c Crack) covers(n *Network, id int) bool {
	if c.Test == EndpointTest {
		e := n.Edges[id]
		pa, pb := n.Pos(e.A), n.Pos(e.B)
		return c.Contains(pa[0], pa[1]) || c.Contains(pb[0], pb[1])
	}
	m := n.Midpoint(id)
	return c.Contains(m[0], m[1])
}

// Cracklist is a set of crack regions applied together.
type Cracklist []Crack

// RandomCracks scatters n thin elliptical cracks of random orientation
// inside b, each removing every bond it covers.
func RandomCracks(n int, b Bounds, rng *rand.Rand) Cracklist {
	cl := make(Cracklist, 0, n)
	for i := 0; i < n; i++ {
		a := b.Span(0) / 10 * (0.5 + rng.Float64())
		cl = append(cl, Crack{
			Shape: Ellipse,
			Center: [2]float64{
				b.Min[0] + rng.Float64()*b.Span(0),
				b.Min[1] + rng.Float64()*b.Span(1),
			},
			Semi:        [2]float64{a, a / 5},
			Angle:       rng.Float64() * math.Pi,
			Probability: 1.0,
		})
	}
	return cl
}

// ApplyCrack breaks intact bonds covered by any crack of cl with that
// crack's removal probability and returns the number of bonds removed.
// Probabilities of 0 and 1 never consult rng.
func (n *Network) ApplyCrack(cl Cracklist, rng *rand.Rand) int {
	removed := 0
	for id := range n.Edges {
		if !n.Edges[id].Intact {
			continue
		}
		for _, c := range cl {
			if c.Probability <= 0 || !c.covers(n, id) {
				continue
			}
			if c.Probability >= 1 || n.draw(rng) < c.Probability {
				n.Break(id)
				removed++
				break
			}
		}
	}
	return removed
}

func (n *Network) draw(rng *rand.Rand) float64 {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return rng.Float64()
}
