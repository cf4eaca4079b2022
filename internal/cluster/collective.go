package cluster

import (
	"context"
	"fmt"
	"slices"
)

func (c *Comm) checkRoot(root int) error {
	if root < 0 || root >= c.g.size {
		return fmt.Errorf("%w: %d of %d", ErrRootOutOfRange, root, c.g.size)
	}
	return nil
}

// Barrier blocks until every rank has reached it.
func Barrier(ctx context.Context, c *Comm) error {
	_, err := c.exchange(ctx, nil)
	return err
}

// Bcast copies root's buf into buf on every other rank. All ranks must pass
// buffers of the same length.
func Bcast[T any](ctx context.Context, c *Comm, root int, buf []T) error {
	if err := c.checkRoot(root); err != nil {
		return err
	}
	var v any
	if c.rank == root {
		v = slices.Clone(buf)
	}
	vals, err := c.exchange(ctx, v)
	if err != nil {
		return err
	}
	if c.rank == root {
		return nil
	}
	src := vals[root].([]T)
	if len(src) != len(buf) {
		return fmt.Errorf("%w: bcast of %d into %d", ErrUnevenBuffers, len(src), len(buf))
	}
	copy(buf, src)
	return nil
}

// Gather concatenates equally sized send buffers in rank order on root.
// Other ranks receive nil. Every rank sees ErrUnevenBuffers when the
// lengths differ.
func Gather[T any](ctx context.Context, c *Comm, root int, send []T) ([]T, error) {
	parts, err := gather(ctx, c, root, send)
	if err != nil {
		return nil, err
	}
	for r, p := range parts {
		if len(p) != len(parts[0]) {
			return nil, fmt.Errorf("%w: rank %d sent %d, rank 0 sent %d", ErrUnevenBuffers, r, len(p), len(parts[0]))
		}
	}
	if c.rank != root {
		return nil, nil
	}
	out := make([]T, 0, len(send)*len(parts))
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

// GatherV collects variable-length send buffers on root, one slice per
// rank. Other ranks receive nil.
func GatherV[T any](ctx context.Context, c *Comm, root int, send []T) ([][]T, error) {
	parts, err := gather(ctx, c, root, send)
	if err != nil || c.rank != root {
		return nil, err
	}
	return parts, nil
}

// gather hands every rank all contributions.
func gather[T any](ctx context.Context, c *Comm, root int, send []T) ([][]T, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	vals, err := c.exchange(ctx, slices.Clone(send))
	if err != nil {
		return nil, err
	}
	parts := make([][]T, len(vals))
	for i, v := range vals {
		parts[i] = v.([]T)
	}
	return parts, nil
}

// AllAgree hands root's flag to every rank, so a decision taken by the
// coordinator is applied everywhere at the same step.
func AllAgree(ctx context.Context, c *Comm, root int, flag bool) (bool, error) {
	if err := c.checkRoot(root); err != nil {
		return false, err
	}
	vals, err := c.exchange(ctx, flag)
	if err != nil {
		return false, err
	}
	return vals[root].(bool), nil
}
