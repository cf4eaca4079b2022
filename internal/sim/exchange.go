package sim

import (
	"context"
	"slices"

	"github.com/san-kum/netsim/internal/cluster"
	"github.com/san-kum/netsim/internal/network"
	"github.com/san-kum/netsim/internal/partition"
)

// exchanger is the synchronization point of one worker. The serial run
// uses a single worker whose exchanges are no-ops.
type exchanger interface {
	root() bool
	// positions publishes owned positions and the local residual, then
	// installs the canonical positions. It returns the global residual.
	positions(ctx context.Context, net *network.Network, residual float64) (float64, error)
	// forces collects owned forces on the coordinator.
	forces(ctx context.Context, net *network.Network) error
	// bonds merges the bonds broken by every worker.
	bonds(ctx context.Context, broken []int) ([]int, error)
	// agree hands the coordinator's flag to every worker.
	agree(ctx context.Context, flag bool) (bool, error)
	barrier(ctx context.Context) error
}

type local struct{}

func (local) root() bool { return true }

func (local) positions(_ context.Context, _ *network.Network, residual float64) (float64, error) {
	return residual, nil
}

func (local) forces(context.Context, *network.Network) error { return nil }

func (local) bonds(_ context.Context, broken []int) ([]int, error) { return broken, nil }

func (local) agree(_ context.Context, flag bool) (bool, error) { return flag, nil }

func (local) barrier(context.Context) error { return nil }

// remote exchanges through the collectives of a cluster group. Rank 0
// reconciles gathered chunks into the canonical arrays and broadcasts them.
type remote struct {
	comm   *cluster.Comm
	part   *partition.Partition
	own    []int // padded ids of the owned nodes
	chunks []int // coordinator only: padded node ids of every rank

	send  []float64
	canon []float64
}

func newRemote(comm *cluster.Comm, part *partition.Partition, dim int) *remote {
	return &remote{
		comm:  comm,
		part:  part,
		own:   part.Padded(part.Nodes[comm.Rank()]),
		send:  make([]float64, part.ChunkLen*dim+1),
		canon: make([]float64, part.NumNodes*dim+1),
	}
}

func (x *remote) root() bool { return x.comm.IsRoot() }

// verify gathers every rank's padded chunks and lets the coordinator check
// that they form a disjoint cover. The verdict is agreed on before anyone
// acts on it, so a bad partition stops all ranks together. Only the
// coordinator returns the integrity error; the others just report !ok.
func (x *remote) verify(ctx context.Context, net *network.Network) (bool, error) {
	edges := x.part.Padded(x.part.Edges[x.comm.Rank()])
	nodeBuf, err := cluster.Gather(ctx, x.comm, 0, x.own)
	if err != nil {
		return false, err
	}
	edgeBuf, err := cluster.Gather(ctx, x.comm, 0, edges)
	if err != nil {
		return false, err
	}
	var bad error
	if x.root() {
		x.chunks = nodeBuf
		bad = partition.Verify(x.part.NumNodes, x.part.NumEdges, x.part.ChunkLen, nodeBuf, edgeBuf,
			func(id int) (int, int) { return net.Edges[id].A, net.Edges[id].B })
	}
	ok, err := x.agree(ctx, bad == nil)
	if err != nil {
		return false, err
	}
	return ok, bad
}

// pack copies the owned rows of src into the send buffer, slot by slot
// following the padded chunk; the last element carries extra.
func (x *remote) pack(src []float64, dim int, extra float64) {
	clear(x.send)
	for slot, id := range x.own {
		if id == partition.Sentinel {
			break
		}
		copy(x.send[slot*dim:(slot+1)*dim], src[id*dim:(id+1)*dim])
	}
	x.send[len(x.send)-1] = extra
}

// reconcile walks each rank's chunk up to its sentinel and copies that
// rank's rows into dst. It returns the largest extra value.
func (x *remote) reconcile(all, dst []float64, dim int) float64 {
	stride := len(x.send)
	cl := x.part.ChunkLen
	extra := 0.0
	for r := 0; r < x.part.Workers; r++ {
		buf := all[r*stride : (r+1)*stride]
		for slot, id := range partition.Unpad(x.chunks[r*cl : (r+1)*cl]) {
			copy(dst[id*dim:(id+1)*dim], buf[slot*dim:(slot+1)*dim])
		}
		extra = max(extra, buf[stride-1])
	}
	return extra
}

// positions ships the residual in the last slot of the broadcast, so every
// rank derives the same convergence verdict from the same number.
func (x *remote) positions(ctx context.Context, net *network.Network, residual float64) (float64, error) {
	x.pack(net.R, net.Dim, residual)
	all, err := cluster.Gather(ctx, x.comm, 0, x.send)
	if err != nil {
		return 0, err
	}
	n := len(net.R)
	if x.root() {
		res := x.reconcile(all, net.R, net.Dim)
		copy(x.canon, net.R)
		x.canon[n] = res
	}
	if err := cluster.Bcast(ctx, x.comm, 0, x.canon); err != nil {
		return 0, err
	}
	copy(net.R, x.canon[:n])
	return x.canon[n], nil
}

func (x *remote) forces(ctx context.Context, net *network.Network) error {
	x.pack(net.Forces, net.Dim, 0)
	all, err := cluster.Gather(ctx, x.comm, 0, x.send)
	if err != nil {
		return err
	}
	if x.root() {
		x.reconcile(all, net.Forces, net.Dim)
	}
	return nil
}

// bonds sends the merged count first so every rank can size its buffer.
func (x *remote) bonds(ctx context.Context, broken []int) ([]int, error) {
	parts, err := cluster.GatherV(ctx, x.comm, 0, broken)
	if err != nil {
		return nil, err
	}
	var merged []int
	count := []int{0}
	if x.root() {
		for _, p := range parts {
			merged = append(merged, p...)
		}
		slices.Sort(merged)
		count[0] = len(merged)
	}
	if err := cluster.Bcast(ctx, x.comm, 0, count); err != nil {
		return nil, err
	}
	if count[0] == 0 {
		return nil, nil
	}
	if !x.root() {
		merged = make([]int, count[0])
	}
	if err := cluster.Bcast(ctx, x.comm, 0, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func (x *remote) agree(ctx context.Context, flag bool) (bool, error) {
	return cluster.AllAgree(ctx, x.comm, 0, flag)
}

func (x *remote) barrier(ctx context.Context) error {
	return cluster.Barrier(ctx, x.comm)
}
