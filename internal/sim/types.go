package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/netsim/internal/history"
	"github.com/san-kum/netsim/internal/network"
)

var (
	// ErrOddWorkers is reported (not returned) when a distributed run is
	// asked for an odd or too small worker count.
	ErrOddWorkers = errors.New("sim: distributed runs need an even worker count of at least 2")

	ErrInvalidConfig = errors.New("sim: invalid config")
)

// SimError ties a failure to the step it happened in.
type SimError struct {
	Step    int
	Message string
	Wrapped error
}

func (e SimError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("step %d: %s: %v", e.Step, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("step %d: %s", e.Step, e.Message)
}

func (e SimError) Unwrap() error { return e.Wrapped }

// Config controls the step loop. Zero values take the defaults noted.
type Config struct {
	Steps          int     // load steps
	Workers        int     // ranks for RunDistributed
	LocalSweeps    int     // solver sweeps between position exchanges (1)
	ForceSyncEvery int     // record plate forces every N steps (1)
	WarmupSteps    int     // check stats every step before this
	StatsEvery     int     // then every N steps (1)
	DetailFraction float64 // and every step below this fraction of the initial bonds
	WeightGoal     float64 // rescale density when the weight is below this; <= 0 disables
}

func (c Config) withDefaults() Config {
	if c.LocalSweeps <= 0 {
		c.LocalSweeps = 1
	}
	if c.ForceSyncEvery <= 0 {
		c.ForceSyncEvery = 1
	}
	if c.StatsEvery <= 0 {
		c.StatsEvery = 1
	}
	return c
}

// StepInfo is handed to observers after every completed step.
type StepInfo struct {
	Step         int
	Displacement float64
	Edges        int
	Broken       int
	Iters        int
	Residual     float64
	Converged    bool
	Force        []float64 // plate reaction, only on recorded steps
}

type Observer interface {
	OnStep(info StepInfo)
}

// SnapshotWriter persists the network state at a step.
type SnapshotWriter interface {
	WriteSnapshot(step int, net *network.Network) error
}

// Result of a run. History rows are written at step 0 and every
// ForceSyncEvery steps after it.
type Result struct {
	Steps       int
	History     *history.Log
	Unconverged int
	Stopped     bool
	StopReason  string
	Aborted     bool
	Final       *network.Network
}
