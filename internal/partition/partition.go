// Package partition assigns every node and every bond of a network to
// exactly one worker and verifies that assignment.
package partition

import (
	"errors"
	"fmt"
)

// Sentinel pads chunk buffers up to the uniform chunk length.
const Sentinel = -1

// ErrPartitionIntegrity is wrapped by every IntegrityError.
var ErrPartitionIntegrity = errors.New("partition: integrity violation")

// IntegrityError describes why a gathered partition is not a disjoint cover.
type IntegrityError struct {
	Kind   string // "node" or "edge"
	ID     int
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("partition: %s %d: %s", e.Kind, e.ID, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return ErrPartitionIntegrity }

// Partition is the ownership map of W workers. Nodes[w] and Edges[w] list the
// ids owned by worker w in ascending order.
type Partition struct {
	Workers  int
	NumNodes int
	NumEdges int
	ChunkLen int
	Nodes    [][]int
	Edges    [][]int

	nodeSize int
	edgeSize int
}

// New splits nNodes nodes and nEdges bonds into contiguous blocks over w
// workers. The result depends only on its arguments.
func New(w, nNodes, nEdges int) (*Partition, error) {
	if w < 1 {
		return nil, fmt.Errorf("partition: need at least one worker, got %d", w)
	}
	if nNodes < 0 || nEdges < 0 {
		return nil, fmt.Errorf("partition: negative sizes %d/%d", nNodes, nEdges)
	}
	p := &Partition{
		Workers:  w,
		NumNodes: nNodes,
		NumEdges: nEdges,
		ChunkLen: ceilDiv(max(nNodes, nEdges), w) + 1,
		Nodes:    make([][]int, w),
		Edges:    make([][]int, w),
		nodeSize: max(ceilDiv(nNodes, w), 1),
		edgeSize: max(ceilDiv(nEdges, w), 1),
	}
	for r := 0; r < w; r++ {
		p.Nodes[r] = block(r, p.nodeSize, nNodes)
		p.Edges[r] = block(r, p.edgeSize, nEdges)
	}
	return p, nil
}

func block(r, size, total int) []int {
	lo := min(r*size, total)
	hi := min(lo+size, total)
	ids := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		ids = append(ids, i)
	}
	return ids
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// OwnerOfNode returns the worker owning node id.
func (p *Partition) OwnerOfNode(id int) int { return id / p.nodeSize }

// OwnerOfEdge returns the worker owning bond id.
func (p *Partition) OwnerOfEdge(id int) int { return id / p.edgeSize }

// Padded encodes ids into a buffer of exactly ChunkLen slots, filling the
// tail with Sentinel. The last slot is always a sentinel.
func (p *Partition) Padded(ids []int) []int {
	buf := make([]int, p.ChunkLen)
	n := copy(buf[:p.ChunkLen-1], ids)
	for i := n; i < len(buf); i++ {
		buf[i] = Sentinel
	}
	return buf
}

// Unpad returns the ids of one padded chunk, stopping at the first sentinel.
func Unpad(chunk []int) []int {
	for i, id := range chunk {
		if id == Sentinel {
			return chunk[:i]
		}
	}
	return chunk
}
