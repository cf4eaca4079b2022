package network

import (
	"math"
	"math/rand"
)

// Unbiased disables the axis preference of AddLongRangeEdges.
const Unbiased = -1

type pair struct{ a, b int }

func key(a, b int) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

// AddLongRangeEdges inserts up to count bonds between randomly chosen node
// pairs that are not yet joined by any bond slot. With axis >= 0 only pairs
// whose separation along that axis dominates every other axis are accepted.
// It returns the number of bonds added.
func (n *Network) AddLongRangeEdges(count, axis int, s LengthSampler, rng *rand.Rand) int {
	nn := n.NumNodes()
	if count <= 0 || nn < 2 || rng == nil {
		return 0
	}
	taken := make(map[pair]struct{}, len(n.Edges)+count)
	for _, e := range n.Edges {
		taken[key(e.A, e.B)] = struct{}{}
	}

	added := 0
	maxAttempts := 100*count + 1000
	for attempt := 0; added < count && attempt < maxAttempts; attempt++ {
		a, b := rng.Intn(nn), rng.Intn(nn)
		if a == b {
			continue
		}
		k := key(a, b)
		if _, ok := taken[k]; ok {
			continue
		}
		pa, pb := n.Pos(a), n.Pos(b)
		if axis >= 0 && axis < n.Dim && !dominates(pa, pb, axis) {
			continue
		}
		span := 0.0
		for d := range pa {
			span += (pb[d] - pa[d]) * (pb[d] - pa[d])
		}
		if _, err := n.AddEdge(a, b, s.Sample(rng, math.Sqrt(span)), false); err != nil {
			continue
		}
		taken[k] = struct{}{}
		added++
	}
	return added
}

func dominates(pa, pb []float64, axis int) bool {
	along := math.Abs(pb[axis] - pa[axis])
	for d := range pa {
		if d != axis && math.Abs(pb[d]-pa[d]) >= along {
			return false
		}
	}
	return along > 0
}
