package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/netsim/internal/history"
	"github.com/san-kum/netsim/internal/network"
	"github.com/san-kum/netsim/internal/sim"
)

func result(t *testing.T) *sim.Result {
	t.Helper()
	net, err := network.NewLattice(network.LatticeSpec{Nx: 3, Ny: 3, Spacing: 1},
		network.LengthSampler{StressFree: true}, nil)
	require.NoError(t, err)
	net.MarkBoundaries(1, 1e-9)
	net.Break(0)

	log := history.NewLog(2, 3)
	require.NoError(t, log.Forces.Set(0, 0, 0))
	require.NoError(t, log.Forces.Set(1, 0.125, -1.5))
	require.NoError(t, log.Forces.Set(2, 0.25, -3))
	for i, n := range []int{12, 12, 11} {
		require.NoError(t, log.Edges.Set(i, n))
	}
	return &sim.Result{Steps: 2, History: log, Stopped: true, StopReason: "test", Final: net}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	run := st.Begin(RunMetadata{Label: "lattice", Seed: 42, Dim: 2, StdOverMean: 25.0 / 150, Kinetic: true})
	require.NotEmpty(t, run.Meta.ID)
	res := result(t)
	require.NoError(t, run.WriteSnapshot(0, res.Final))
	require.NoError(t, run.Finish(res))

	meta, err := st.Load(run.Meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "lattice", meta.Label)
	assert.Equal(t, int64(42), meta.Seed)
	assert.Equal(t, 2, meta.StepsRun)
	assert.Equal(t, 11, meta.FinalEdges)
	assert.True(t, meta.Stopped)
	assert.Equal(t, []int{0}, meta.Snapshots)

	assert.FileExists(t, filepath.Join(run.Dir(), "forces_0.166667_true.txt"))
	assert.FileExists(t, filepath.Join(run.Dir(), "remain_chains_0.166667.txt"))
	assert.FileExists(t, filepath.Join(run.Dir(), "snapshots", "step_0_nodes.csv"))
	assert.FileExists(t, filepath.Join(run.Dir(), "snapshots", "step_0_edges.csv"))

	forces, err := st.LoadForces(run.Meta.ID)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0}, {0.125, -1.5}, {0.25, -3}}, forces)

	edges, err := st.LoadEdges(run.Meta.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{12, 12, 11}, edges)
}

func TestSnapshotContents(t *testing.T) {
	st := New(t.TempDir())
	run := st.Begin(RunMetadata{})
	res := result(t)
	require.NoError(t, run.WriteSnapshot(7, res.Final))

	data, err := os.ReadFile(filepath.Join(run.Dir(), "snapshots", "step_7_edges.csv"))
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, res.Final.NumEdges()+1)
	assert.Equal(t, "id,a,b,length,intact", string(lines[0]))
	assert.Equal(t, "0,0,1,1,false", string(lines[1]))

	data, err = os.ReadFile(filepath.Join(run.Dir(), "snapshots", "step_7_nodes.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "0,0,0,fixed")
	assert.Contains(t, string(data), "8,2,2,moving")
}

func TestFinish_AbortedWritesNothing(t *testing.T) {
	base := t.TempDir()
	st := New(base)
	run := st.Begin(RunMetadata{})
	require.NoError(t, run.Finish(&sim.Result{Aborted: true}))
	require.NoError(t, run.Finish(&sim.Result{Stopped: true}))
	assert.NoDirExists(t, run.Dir())

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		run := st.Begin(RunMetadata{Label: "run"})
		require.NoError(t, run.Finish(result(t)))
		ids = append(ids, run.Meta.ID)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(st.baseDir, "junk"), 0755))

	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, r := range runs {
		assert.Equal(t, ids[i], r.ID)
	}
}

func TestStoreList_Missing(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "nope")).List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := New(t.TempDir()).Load("ghost")
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	run := st.Begin(RunMetadata{Label: "export", StdOverMean: 0.1})
	require.NoError(t, run.Finish(result(t)))

	var buf bytes.Buffer
	require.NoError(t, st.ExportJSON(run.Meta.ID, &buf))

	var got ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, run.Meta.ID, got.Run.ID)
	assert.Len(t, got.Forces, 3)
	assert.Equal(t, []int{12, 12, 11}, got.Edges)
}
