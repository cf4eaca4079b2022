package network

import (
	"fmt"
	"math"
	"strings"
)

// BondKind selects the bond capability set of a network.
type BondKind int

const (
	// BasicBond bonds break on a stretch threshold, or by rate when rate
	// damage is switched on.
	BasicBond BondKind = iota
	// KineticBond bonds carry their own kinetic constants and always break
	// stochastically.
	KineticBond
)

func (k BondKind) String() string {
	switch k {
	case KineticBond:
		return "kinetic"
	default:
		return "basic"
	}
}

// ParseBondKind maps a config string onto a BondKind.
func ParseBondKind(s string) (BondKind, error) {
	switch strings.ToLower(s) {
	case "", "basic":
		return BasicBond, nil
	case "kinetic", "sacrificial":
		return KineticBond, nil
	}
	return BasicBond, fmt.Errorf("unknown bond kind: %s", s)
}

// KineticParams are the Bell-model constants of one bond: attempt rate and
// reactive compliance for rupture (Ae, Dxe) and for the competing
// re-formation process (Af, Dxf).
type KineticParams struct {
	Ae  float64 `yaml:"ae" json:"ae"`
	Dxe float64 `yaml:"delxe" json:"delxe"`
	Af  float64 `yaml:"af" json:"af"`
	Dxf float64 `yaml:"delxf" json:"delxf"`
}

// Edge is a bond between nodes A and B.
type Edge struct {
	A, B   int
	L      float64 // rest (contour) length
	Intact bool
	PBC    bool // wraps across the periodic x boundary
	Kin    KineticParams
}

// Bounds is the axis-aligned domain box.
type Bounds struct {
	Min, Max [3]float64
}

func (b Bounds) Span(axis int) float64 {
	return b.Max[axis] - b.Min[axis]
}

// Network is the node/bond graph together with boundary flags.
type Network struct {
	Dim     int
	R       []float64 // positions, Dim values per node
	Forces  []float64 // net force, Dim values per node
	Edges   []Edge
	Moving  []bool // nodes of the loaded plate
	Fixed   []bool // nodes of the clamped plate
	Bounds  Bounds
	Density float64 // mass-equivalent multiplier, scales bond stiffness
	Kind    BondKind
	Kin     KineticParams // constants given to bonds added later

	live     int
	incident [][]int
}

// New creates a network without bonds from a flat position vector.
func New(dim int, positions []float64, bounds Bounds) (*Network, error) {
	if dim != 2 && dim != 3 {
		return nil, ErrInvalidDim
	}
	if len(positions)%dim != 0 {
		return nil, fmt.Errorf("%w: %d coordinates for dim %d", ErrMalformedMesh, len(positions), dim)
	}
	n := len(positions) / dim
	r := make([]float64, len(positions))
	copy(r, positions)
	return &Network{
		Dim:      dim,
		R:        r,
		Forces:   make([]float64, len(positions)),
		Moving:   make([]bool, n),
		Fixed:    make([]bool, n),
		Bounds:   bounds,
		Density:  1.0,
		incident: make([][]int, n),
	}, nil
}

func (n *Network) NumNodes() int { return len(n.R) / n.Dim }
func (n *Network) NumEdges() int { return len(n.Edges) }

// Pos returns the position of node i as a view into R.
func (n *Network) Pos(i int) []float64 {
	return n.R[i*n.Dim : (i+1)*n.Dim]
}

// Force returns the force on node i as a view into Forces.
func (n *Network) Force(i int) []float64 {
	return n.Forces[i*n.Dim : (i+1)*n.Dim]
}

// AddEdge appends an intact bond and returns its id.
func (n *Network) AddEdge(a, b int, l float64, pbc bool) (int, error) {
	nn := n.NumNodes()
	if a < 0 || b < 0 || a >= nn || b >= nn || a == b {
		return -1, fmt.Errorf("%w: edge (%d,%d) with %d nodes", ErrMalformedMesh, a, b, nn)
	}
	id := len(n.Edges)
	n.Edges = append(n.Edges, Edge{A: a, B: b, L: l, Intact: true, PBC: pbc, Kin: n.Kin})
	n.incident[a] = append(n.incident[a], id)
	n.incident[b] = append(n.incident[b], id)
	n.live++
	return id, nil
}

// Incident returns the ids of all bonds touching node i in ascending order.
func (n *Network) Incident(i int) []int { return n.incident[i] }

// Delta writes the vector from A to B of edge id into out and returns its
// length. Periodic bonds use the minimum image along x.
func (n *Network) Delta(id int, out []float64) float64 {
	e := &n.Edges[id]
	pa, pb := n.Pos(e.A), n.Pos(e.B)
	sum := 0.0
	for d := 0; d < n.Dim; d++ {
		v := pb[d] - pa[d]
		if d == 0 && e.PBC {
			if period := n.Bounds.Span(0); period > 0 {
				if v > period/2 {
					v -= period
				} else if v < -period/2 {
					v += period
				}
			}
		}
		out[d] = v
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Distance is the current span of edge id.
func (n *Network) Distance(id int) float64 {
	var buf [3]float64
	return n.Delta(id, buf[:n.Dim])
}

// Midpoint of edge id, measured from endpoint A.
func (n *Network) Midpoint(id int) [3]float64 {
	var d, m [3]float64
	n.Delta(id, d[:n.Dim])
	pa := n.Pos(n.Edges[id].A)
	for i := 0; i < n.Dim; i++ {
		m[i] = pa[i] + d[i]/2
	}
	return m
}

// CurrentEdges is the number of intact bonds.
func (n *Network) CurrentEdges() int { return n.live }

// Break marks edge id as broken. It reports whether the edge was intact.
func (n *Network) Break(id int) bool {
	if !n.Edges[id].Intact {
		return false
	}
	n.Edges[id].Intact = false
	n.live--
	return true
}

// Weight is the mass-equivalent metric: density times total intact length.
func (n *Network) Weight() float64 {
	w := 0.0
	for i := range n.Edges {
		if n.Edges[i].Intact {
			w += n.Edges[i].L
		}
	}
	return n.Density * w
}

// SetWeight rescales Density so that Weight reaches target and returns the
// multiplier applied.
func (n *Network) SetWeight(target float64) (float64, error) {
	if target <= 0 || math.IsNaN(target) {
		return 0, fmt.Errorf("network: weight target must be positive, got %g", target)
	}
	w := n.Weight()
	if w <= 0 {
		return 0, ErrZeroWeight
	}
	mult := target / w
	n.Density *= mult
	return mult, nil
}

// SetKinetics assigns the bond variant and the same kinetic constants to
// every bond.
func (n *Network) SetKinetics(kind BondKind, p KineticParams) {
	n.Kind = kind
	n.Kin = p
	for i := range n.Edges {
		n.Edges[i].Kin = p
	}
}

// MarkBoundaries flags nodes within tol of the maximum along axis as the
// moving plate and those within tol of the minimum as the fixed plate.
func (n *Network) MarkBoundaries(axis int, tol float64) (moving, fixed int) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < n.NumNodes(); i++ {
		v := n.R[i*n.Dim+axis]
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	for i := 0; i < n.NumNodes(); i++ {
		v := n.R[i*n.Dim+axis]
		n.Moving[i] = v >= hi-tol
		n.Fixed[i] = !n.Moving[i] && v <= lo+tol
		if n.Moving[i] {
			moving++
		}
		if n.Fixed[i] {
			fixed++
		}
	}
	return moving, fixed
}

// MovingNodes lists the ids of the loaded plate nodes.
func (n *Network) MovingNodes() []int {
	ids := make([]int, 0)
	for i, m := range n.Moving {
		if m {
			ids = append(ids, i)
		}
	}
	return ids
}

// Validate checks structural invariants: every bond joins two distinct
// existing nodes and every coordinate is finite.
func (n *Network) Validate() error {
	nn := n.NumNodes()
	for id, e := range n.Edges {
		if e.A < 0 || e.B < 0 || e.A >= nn || e.B >= nn || e.A == e.B {
			return fmt.Errorf("%w: edge %d references (%d,%d) with %d nodes", ErrMalformedMesh, id, e.A, e.B, nn)
		}
	}
	for i, v := range n.R {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: node %d has non-finite coordinate", ErrMalformedMesh, i/n.Dim)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (n *Network) Clone() *Network {
	c := *n
	c.R = append([]float64(nil), n.R...)
	c.Forces = append([]float64(nil), n.Forces...)
	c.Edges = append([]Edge(nil), n.Edges...)
	c.Moving = append([]bool(nil), n.Moving...)
	c.Fixed = append([]bool(nil), n.Fixed...)
	c.incident = make([][]int, len(n.incident))
	for i, ids := range n.incident {
		c.incident[i] = append([]int(nil), ids...)
	}
	return &c
}

// Recount recomputes the live-edge counter from the intact flags.
func (n *Network) Recount() int {
	n.live = 0
	for i := range n.Edges {
		if n.Edges[i].Intact {
			n.live++
		}
	}
	return n.live
}
