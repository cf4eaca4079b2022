// Package automation runs batches of simulations: parameter sweeps and
// seed ensembles over a base configuration.
package automation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/netsim/internal/config"
	"github.com/san-kum/netsim/internal/metrics"
	"github.com/san-kum/netsim/internal/sim"
)

// Params are the sweepable settings by name.
var Params = map[string]func(*config.Config, float64){
	"loading.increment":         func(c *config.Config, v float64) { c.Loading.Increment = v },
	"bonds.std_length":          func(c *config.Config, v float64) { c.Bonds.StdLength = v },
	"bonds.temperature":         func(c *config.Config, v float64) { c.Bonds.Temperature = v },
	"kinetics.critical_stretch": func(c *config.Config, v float64) { c.Kinetics.CriticalStretch = v },
	"kinetics.ae":               func(c *config.Config, v float64) { c.Kinetics.Params.Ae = v },
	"kinetics.delxe":            func(c *config.Config, v float64) { c.Kinetics.Params.Dxe = v },
	"crack.probability":         func(c *config.Config, v float64) { c.Crack.Probability = v },
	"network.long_range":        func(c *config.Config, v float64) { c.Network.LongRange = int(v) },
}

func ParamNames() []string {
	names := make([]string, 0, len(Params))
	for n := range Params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Outcome is the metric summary of one run of a batch.
type Outcome struct {
	Steps      int
	Stopped    bool
	StopReason string
	Metrics    map[string]float64
}

// ParameterSweep varies one parameter linearly over NumSteps values.
type ParameterSweep struct {
	Param    string
	Min, Max float64
	NumSteps int
}

func (s ParameterSweep) Values() []float64 {
	if s.NumSteps <= 1 {
		return []float64{s.Min}
	}
	step := (s.Max - s.Min) / float64(s.NumSteps-1)
	vals := make([]float64, s.NumSteps)
	for i := range vals {
		vals[i] = s.Min + float64(i)*step
	}
	return vals
}

type SweepResult struct {
	Value float64
	Outcome
}

// Runner executes batches with at most Parallel concurrent runs.
type Runner struct {
	Base     *config.Config
	Parallel int
	Logger   *log.Logger
}

// Sweep runs the base configuration once per sweep value. Results are in
// value order.
func (r *Runner) Sweep(ctx context.Context, sw ParameterSweep) ([]SweepResult, error) {
	set, ok := Params[sw.Param]
	if !ok {
		return nil, fmt.Errorf("unknown sweep parameter: %s (available: %v)", sw.Param, ParamNames())
	}
	vals := sw.Values()
	results := make([]SweepResult, len(vals))
	err := r.batch(ctx, len(vals), func(i int, cfg *config.Config) {
		set(cfg, vals[i])
		results[i].Value = vals[i]
	}, func(i int, out Outcome) {
		results[i].Outcome = out
	})
	return results, err
}

type EnsembleResult struct {
	Seed int64
	Outcome
}

// Ensemble repeats the base configuration with seeds first, first+1, ...
// for both network generation and rupture draws.
func (r *Runner) Ensemble(ctx context.Context, trials int, first int64) ([]EnsembleResult, error) {
	results := make([]EnsembleResult, trials)
	err := r.batch(ctx, trials, func(i int, cfg *config.Config) {
		seed := first + int64(i)
		cfg.Run.Seed, cfg.Kinetics.Seed = seed, seed
		results[i].Seed = seed
	}, func(i int, out Outcome) {
		results[i].Outcome = out
	})
	return results, err
}

func (r *Runner) batch(ctx context.Context, n int, prepare func(int, *config.Config), store func(int, Outcome)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Parallel, 1))

	var (
		mu   sync.Mutex
		done int
	)
	for i := 0; i < n; i++ {
		cfg := clone(r.Base)
		prepare(i, cfg)
		g.Go(func() error {
			out, err := runOne(ctx, cfg)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			store(i, out)
			mu.Lock()
			done++
			if r.Logger != nil {
				r.Logger.Info("batch progress", "done", done, "of", n)
			}
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func clone(c *config.Config) *config.Config {
	cp := *c
	return &cp
}

func runOne(ctx context.Context, cfg *config.Config) (Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return Outcome{}, err
	}
	net, err := cfg.BuildNetwork()
	if err != nil {
		return Outcome{}, err
	}
	solver, err := cfg.BuildSolver()
	if err != nil {
		return Outcome{}, err
	}
	damage, err := cfg.Damage()
	if err != nil {
		return Outcome{}, err
	}
	ms := metrics.Standard(cfg.Loading.Axis)
	s := sim.New(solver, damage, cfg.Plate())
	s.AddObserver(ms)

	var res *sim.Result
	if cfg.Run.Mode == "distributed" {
		res, err = s.RunDistributed(ctx, net, cfg.SimConfig())
	} else {
		res, err = s.RunSerial(ctx, net, cfg.SimConfig())
	}
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{
		Steps:      res.Steps,
		Stopped:    res.Stopped || res.Aborted,
		StopReason: res.StopReason,
		Metrics:    make(map[string]float64, len(ms)),
	}
	for _, m := range ms {
		out.Metrics[m.Name()] = m.Value()
	}
	return out, nil
}

// Stats is the mean and sample standard deviation of one metric over
// results, skipping runs that lack it.
func Stats(results []EnsembleResult, metric string) (mean, std float64) {
	var vals []float64
	for _, r := range results {
		if v, ok := r.Metrics[metric]; ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, 0
	}
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	if len(vals) < 2 {
		return mean, 0
	}
	for _, v := range vals {
		std += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(std / float64(len(vals)-1))
}

// Best picks the sweep result with the smallest value of metric, or the
// largest when maximize is set.
func Best(results []SweepResult, metric string, maximize bool) (SweepResult, bool) {
	var (
		best  SweepResult
		found bool
	)
	for _, r := range results {
		v, ok := r.Metrics[metric]
		if !ok {
			continue
		}
		cur := best.Metrics[metric]
		if !found || (maximize && v > cur) || (!maximize && v < cur) {
			best, found = r, true
		}
	}
	return best, found
}
