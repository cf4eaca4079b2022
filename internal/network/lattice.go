package network

import (
	"fmt"
	"math/rand"
)

// LatticeSpec describes a regular grid network. Nz <= 1 gives a 2D lattice.
type LatticeSpec struct {
	Nx, Ny, Nz int
	Spacing    float64
	Origin     [3]float64
	PBC        bool // wrap bonds from the last column to the first
}

// NewLattice builds a square (cubic) lattice with nearest-neighbour bonds.
func NewLattice(spec LatticeSpec, s LengthSampler, rng *rand.Rand) (*Network, error) {
	nz := spec.Nz
	if nz < 1 {
		nz = 1
	}
	if spec.Nx < 1 || spec.Ny < 1 || spec.Spacing <= 0 {
		return nil, fmt.Errorf("network: invalid lattice %dx%dx%d spacing %g", spec.Nx, spec.Ny, nz, spec.Spacing)
	}
	dim := 2
	if nz > 1 {
		dim = 3
	}

	nodes := spec.Nx * spec.Ny * nz
	pos := make([]float64, 0, nodes*dim)
	for k := 0; k < nz; k++ {
		for j := 0; j < spec.Ny; j++ {
			for i := 0; i < spec.Nx; i++ {
				pos = append(pos, spec.Origin[0]+float64(i)*spec.Spacing, spec.Origin[1]+float64(j)*spec.Spacing)
				if dim == 3 {
					pos = append(pos, spec.Origin[2]+float64(k)*spec.Spacing)
				}
			}
		}
	}

	var b Bounds
	counts := [3]int{spec.Nx, spec.Ny, nz}
	for d := 0; d < 3; d++ {
		b.Min[d] = spec.Origin[d]
		b.Max[d] = spec.Origin[d] + float64(counts[d]-1)*spec.Spacing
	}
	if spec.PBC {
		b.Max[0] = spec.Origin[0] + float64(spec.Nx)*spec.Spacing
	}

	net, err := New(dim, pos, b)
	if err != nil {
		return nil, err
	}

	id := func(i, j, k int) int { return i + spec.Nx*(j+spec.Ny*k) }
	link := func(a, c int, pbc bool) error {
		_, err := net.AddEdge(a, c, 0, pbc)
		if err != nil {
			return err
		}
		e := &net.Edges[len(net.Edges)-1]
		e.L = s.Sample(rng, net.Distance(len(net.Edges)-1))
		return nil
	}

	for k := 0; k < nz; k++ {
		for j := 0; j < spec.Ny; j++ {
			for i := 0; i < spec.Nx; i++ {
				if i+1 < spec.Nx {
					if err := link(id(i, j, k), id(i+1, j, k), false); err != nil {
						return nil, err
					}
				} else if spec.PBC && spec.Nx > 2 {
					if err := link(id(i, j, k), id(0, j, k), true); err != nil {
						return nil, err
					}
				}
				if j+1 < spec.Ny {
					if err := link(id(i, j, k), id(i, j+1, k), false); err != nil {
						return nil, err
					}
				}
				if k+1 < nz {
					if err := link(id(i, j, k), id(i, j, k+1), false); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	return net, nil
}
