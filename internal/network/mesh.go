package network

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// gmsh element types that contribute bonds.
const (
	mshLine     = 1
	mshTriangle = 2
	mshQuad     = 3
	mshTetra    = 4
)

// ReadMsh builds a network from a gmsh 2.2 ASCII mesh. Nodes are renumbered
// densely in file order; every element side becomes one bond, shared sides
// are deduplicated. Rest lengths come from s.
func ReadMsh(r io.Reader, dim int, s LengthSampler, rng *rand.Rand) (*Network, error) {
	if dim != 2 && dim != 3 {
		return nil, ErrInvalidDim
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		pos   []float64
		index = make(map[int]int)
		sides [][2]int
		line  int
	)
	next := func() ([]string, bool) {
		for sc.Scan() {
			line++
			if f := strings.Fields(sc.Text()); len(f) > 0 {
				return f, true
			}
		}
		return nil, false
	}
	malformed := func(format string, args ...any) error {
		return fmt.Errorf("%w: line %d: %s", ErrMalformedMesh, line, fmt.Sprintf(format, args...))
	}

	for {
		f, ok := next()
		if !ok {
			break
		}
		switch f[0] {
		case "$Nodes":
			f, ok = next()
			if !ok {
				return nil, malformed("missing node count")
			}
			count, err := strconv.Atoi(f[0])
			if err != nil {
				return nil, malformed("bad node count %q", f[0])
			}
			pos = make([]float64, 0, count*dim)
			for i := 0; i < count; i++ {
				f, ok = next()
				if !ok || len(f) < 4 {
					return nil, malformed("truncated node block")
				}
				tag, err := strconv.Atoi(f[0])
				if err != nil {
					return nil, malformed("bad node tag %q", f[0])
				}
				index[tag] = i
				for d := 0; d < dim; d++ {
					v, err := strconv.ParseFloat(f[1+d], 64)
					if err != nil {
						return nil, malformed("bad coordinate %q", f[1+d])
					}
					pos = append(pos, v)
				}
			}
		case "$Elements":
			f, ok = next()
			if !ok {
				return nil, malformed("missing element count")
			}
			count, err := strconv.Atoi(f[0])
			if err != nil {
				return nil, malformed("bad element count %q", f[0])
			}
			for i := 0; i < count; i++ {
				f, ok = next()
				if !ok || len(f) < 3 {
					return nil, malformed("truncated element block")
				}
				typ, _ := strconv.Atoi(f[1])
				ntags, _ := strconv.Atoi(f[2])
				ids := f[3+ntags:]
				nodes := make([]int, 0, len(ids))
				for _, raw := range ids {
					tag, err := strconv.Atoi(raw)
					if err != nil {
						return nil, malformed("bad element node %q", raw)
					}
					idx, ok := index[tag]
					if !ok {
						return nil, malformed("element references unknown node %d", tag)
					}
					nodes = append(nodes, idx)
				}
				sides = append(sides, elementSides(typ, nodes)...)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(pos) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrMalformedMesh)
	}

	var b Bounds
	for d := 0; d < dim; d++ {
		b.Min[d], b.Max[d] = math.Inf(1), math.Inf(-1)
	}
	for i := 0; i < len(pos); i += dim {
		for d := 0; d < dim; d++ {
			b.Min[d] = math.Min(b.Min[d], pos[i+d])
			b.Max[d] = math.Max(b.Max[d], pos[i+d])
		}
	}

	net, err := New(dim, pos, b)
	if err != nil {
		return nil, err
	}
	seen := make(map[pair]struct{}, len(sides))
	for _, sd := range sides {
		if sd[0] == sd[1] {
			continue
		}
		k := key(sd[0], sd[1])
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		id, err := net.AddEdge(k.a, k.b, 0, false)
		if err != nil {
			return nil, err
		}
		net.Edges[id].L = s.Sample(rng, net.Distance(id))
	}
	return net, nil
}

func elementSides(typ int, n []int) [][2]int {
	switch {
	case typ == mshLine && len(n) >= 2:
		return [][2]int{{n[0], n[1]}}
	case typ == mshTriangle && len(n) >= 3:
		return [][2]int{{n[0], n[1]}, {n[1], n[2]}, {n[2], n[0]}}
	case typ == mshQuad && len(n) >= 4:
		return [][2]int{{n[0], n[1]}, {n[1], n[2]}, {n[2], n[3]}, {n[3], n[0]}}
	case typ == mshTetra && len(n) >= 4:
		return [][2]int{{n[0], n[1]}, {n[0], n[2]}, {n[0], n[3]}, {n[1], n[2]}, {n[1], n[3]}, {n[2], n[3]}}
	}
	return nil
}
