package cluster_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/netsim/internal/cluster"
)

var _ = Describe("Group", func() {
	It("rejects empty groups", func() {
		_, err := cluster.NewGroup(0)
		Expect(err).To(MatchError(cluster.ErrGroupSize))
		Expect(cluster.Run(context.Background(), 0, nil)).To(MatchError(cluster.ErrGroupSize))
	})

	It("gives every worker a distinct rank", func() {
		var seen [4]atomic.Int32
		err := cluster.Run(context.Background(), 4, func(ctx context.Context, c *cluster.Comm) error {
			if c.Size() != 4 {
				return errors.New("wrong size")
			}
			seen[c.Rank()].Add(1)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		for i := range seen {
			Expect(seen[i].Load()).To(Equal(int32(1)))
		}
	})
})

var _ = Describe("Collectives", func() {
	var ctx context.Context

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)
	})

	Describe("Barrier", func() {
		It("holds every rank until the last one arrives", func() {
			var arrived atomic.Int32
			err := cluster.Run(ctx, 4, func(ctx context.Context, c *cluster.Comm) error {
				if c.Rank() == 3 {
					time.Sleep(20 * time.Millisecond)
				}
				arrived.Add(1)
				if err := cluster.Barrier(ctx, c); err != nil {
					return err
				}
				if n := arrived.Load(); n != 4 {
					return errors.New("left barrier early")
				}
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("can be reused many times", func() {
			var counter atomic.Int64
			err := cluster.Run(ctx, 6, func(ctx context.Context, c *cluster.Comm) error {
				for i := 1; i <= 100; i++ {
					counter.Add(1)
					if err := cluster.Barrier(ctx, c); err != nil {
						return err
					}
					if counter.Load() < int64(6*i) {
						return errors.New("round overlap")
					}
					if err := cluster.Barrier(ctx, c); err != nil {
						return err
					}
				}
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(counter.Load()).To(Equal(int64(600)))
		})
	})

	Describe("Bcast", func() {
		It("copies the root buffer to every rank", func() {
			got := make([][]float64, 4)
			err := cluster.Run(ctx, 4, func(ctx context.Context, c *cluster.Comm) error {
				buf := make([]float64, 3)
				if c.Rank() == 2 {
					buf = []float64{1, 2, 3}
				}
				if err := cluster.Bcast(ctx, c, 2, buf); err != nil {
					return err
				}
				got[c.Rank()] = buf
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			for _, b := range got {
				Expect(b).To(Equal([]float64{1, 2, 3}))
			}
		})

		It("does not alias the root buffer", func() {
			got := make([][]int, 2)
			err := cluster.Run(ctx, 2, func(ctx context.Context, c *cluster.Comm) error {
				buf := []int{7, 7}
				if err := cluster.Bcast(ctx, c, 0, buf); err != nil {
					return err
				}
				if c.IsRoot() {
					buf[0] = -1
				}
				if err := cluster.Barrier(ctx, c); err != nil {
					return err
				}
				got[c.Rank()] = buf
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got[1]).To(Equal([]int{7, 7}))
		})

		It("fails on a mismatched receive buffer", func() {
			err := cluster.Run(ctx, 2, func(ctx context.Context, c *cluster.Comm) error {
				buf := make([]int, 2+c.Rank())
				return cluster.Bcast(ctx, c, 0, buf)
			})
			Expect(err).To(MatchError(cluster.ErrUnevenBuffers))
		})

		It("rejects a root outside the group", func() {
			err := cluster.Run(ctx, 2, func(ctx context.Context, c *cluster.Comm) error {
				return cluster.Bcast(ctx, c, 5, []int{1})
			})
			Expect(err).To(MatchError(cluster.ErrRootOutOfRange))
		})
	})

	Describe("Gather", func() {
		It("concatenates in rank order on root only", func() {
			var root []int
			err := cluster.Run(ctx, 4, func(ctx context.Context, c *cluster.Comm) error {
				r := c.Rank()
				out, err := cluster.Gather(ctx, c, 0, []int{r * 10, r*10 + 1})
				if err != nil {
					return err
				}
				if c.IsRoot() {
					root = out
				} else if out != nil {
					return errors.New("non-root received data")
				}
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(root).To(Equal([]int{0, 1, 10, 11, 20, 21, 30, 31}))
		})

		It("fails on every rank when lengths differ", func() {
			var failures atomic.Int32
			err := cluster.Run(ctx, 4, func(ctx context.Context, c *cluster.Comm) error {
				send := make([]int, 2)
				if c.Rank() == 3 {
					send = make([]int, 3)
				}
				_, err := cluster.Gather(ctx, c, 0, send)
				if errors.Is(err, cluster.ErrUnevenBuffers) {
					failures.Add(1)
				}
				return err
			})
			Expect(err).To(MatchError(cluster.ErrUnevenBuffers))
			Expect(failures.Load()).To(BeNumerically(">=", 1))
		})
	})

	Describe("GatherV", func() {
		It("keeps per-rank slices of any length", func() {
			var parts [][]int
			err := cluster.Run(ctx, 3, func(ctx context.Context, c *cluster.Comm) error {
				send := make([]int, c.Rank())
				for i := range send {
					send[i] = c.Rank()
				}
				out, err := cluster.GatherV(ctx, c, 1, send)
				if c.Rank() == 1 {
					parts = out
				}
				return err
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(parts).To(HaveLen(3))
			Expect(parts[0]).To(BeEmpty())
			Expect(parts[1]).To(Equal([]int{1}))
			Expect(parts[2]).To(Equal([]int{2, 2}))
		})
	})

	Describe("AllAgree", func() {
		It("adopts the root decision", func() {
			got := make([]bool, 4)
			err := cluster.Run(ctx, 4, func(ctx context.Context, c *cluster.Comm) error {
				v, err := cluster.AllAgree(ctx, c, 0, c.IsRoot())
				got[c.Rank()] = v
				return err
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveEach(true))
		})
	})

	Describe("failure", func() {
		It("cancels ranks blocked in a collective", func() {
			boom := errors.New("boom")
			err := cluster.Run(ctx, 4, func(ctx context.Context, c *cluster.Comm) error {
				if c.Rank() == 2 {
					return boom
				}
				return cluster.Barrier(ctx, c)
			})
			Expect(err).To(MatchError(boom))
		})

		It("returns the context error when cancelled from outside", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			err := cluster.Run(cctx, 2, func(ctx context.Context, c *cluster.Comm) error {
				return cluster.Barrier(ctx, c)
			})
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
