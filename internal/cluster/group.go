// Package cluster runs a fixed set of workers that cooperate through
// blocking collectives, the in-process counterpart of MPI ranks.
//
// Every collective must be entered by all ranks of a group in the same
// order. A rank that leaves early without an error stalls the rest until the
// context is cancelled; Run cancels it as soon as any worker fails.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	ErrUnevenBuffers  = errors.New("cluster: ranks contributed buffers of different length")
	ErrRootOutOfRange = errors.New("cluster: root rank out of range")
	ErrGroupSize      = errors.New("cluster: group needs at least one rank")
)

// Group is the shared rendezvous of W ranks.
type Group struct {
	size int

	mu  sync.Mutex
	cur *round
}

// round collects one value per rank for a single collective call.
type round struct {
	vals    []any
	arrived int
	done    chan struct{}
}

func newRound(size int) *round {
	return &round{vals: make([]any, size), done: make(chan struct{})}
}

func NewGroup(size int) (*Group, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrGroupSize, size)
	}
	return &Group{size: size, cur: newRound(size)}, nil
}

func (g *Group) Size() int { return g.size }

// Comm returns the endpoint of rank.
func (g *Group) Comm(rank int) *Comm {
	if rank < 0 || rank >= g.size {
		panic(fmt.Sprintf("cluster: rank %d outside group of %d", rank, g.size))
	}
	return &Comm{rank: rank, g: g}
}

// Comm is one rank's view of its group.
type Comm struct {
	rank int
	g    *Group
}

func (c *Comm) Rank() int { return c.rank }
func (c *Comm) Size() int { return c.g.size }

// IsRoot reports whether this rank is the coordinator, rank 0.
func (c *Comm) IsRoot() bool { return c.rank == 0 }

// exchange deposits v and blocks until every rank of the group has
// deposited for the same call. The returned slice is shared and read-only.
func (c *Comm) exchange(ctx context.Context, v any) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g := c.g
	g.mu.Lock()
	r := g.cur
	r.vals[c.rank] = v
	r.arrived++
	if r.arrived == g.size {
		g.cur = newRound(g.size)
		close(r.done)
	}
	g.mu.Unlock()

	select {
	case <-r.done:
		return r.vals, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run starts size workers, each with its own Comm, and waits for all of
// them. The first error cancels the context of the others.
func Run(ctx context.Context, size int, fn func(ctx context.Context, c *Comm) error) error {
	g, err := NewGroup(size)
	if err != nil {
		return err
	}
	eg, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < size; rank++ {
		c := g.Comm(rank)
		eg.Go(func() error {
			if err := fn(ctx, c); err != nil {
				return fmt.Errorf("rank %d: %w", c.rank, err)
			}
			return nil
		})
	}
	return eg.Wait()
}
