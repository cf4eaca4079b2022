package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/netsim/internal/network"
	"github.com/san-kum/netsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	snapshotDir  = "snapshots"
)

var ErrNoRun = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Timestamp   time.Time `json:"timestamp"`
	Mode        string    `json:"mode"`
	Workers     int       `json:"workers"`
	Seed        int64     `json:"seed"`
	Dim         int       `json:"dim"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	StdOverMean float64   `json:"std_over_mean"`
	Kinetic     bool      `json:"kinetic"`
	Law         string    `json:"law"`
	TimeStep    float64   `json:"time_step"`
	Steps       int       `json:"steps"`

	StepsRun    int    `json:"steps_run"`
	FinalEdges  int    `json:"final_edges"`
	Unconverged int    `json:"unconverged"`
	Stopped     bool   `json:"stopped"`
	StopReason  string `json:"stop_reason,omitempty"`
	Snapshots   []int  `json:"snapshots,omitempty"`
}

// ForcesFile names the plate force history, keyed by length dispersion
// and bond variant.
func (m RunMetadata) ForcesFile() string {
	return fmt.Sprintf("forces_%f_%t.txt", m.StdOverMean, m.Kinetic)
}

func (m RunMetadata) EdgesFile() string {
	return fmt.Sprintf("remain_chains_%f.txt", m.StdOverMean)
}

// Run is one output directory. Nothing touches the disk until the first
// snapshot or Finish, so aborted runs leave no trace.
type Run struct {
	Meta RunMetadata
	dir  string
}

// Begin assigns an id to meta and returns its unwritten run.
func (s *Store) Begin(meta RunMetadata) *Run {
	if meta.Label == "" {
		meta.Label = "run"
	}
	meta.Timestamp = time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Label, meta.Timestamp.UnixNano())
	return &Run{Meta: meta, dir: filepath.Join(s.baseDir, meta.ID)}
}

func (r *Run) Dir() string { return r.dir }

// WriteSnapshot stores node positions and bond states at step.
func (r *Run) WriteSnapshot(step int, net *network.Network) error {
	dir := filepath.Join(r.dir, snapshotDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := writeNodes(filepath.Join(dir, fmt.Sprintf("step_%d_nodes.csv", step)), net); err != nil {
		return err
	}
	if err := writeEdges(filepath.Join(dir, fmt.Sprintf("step_%d_edges.csv", step)), net); err != nil {
		return err
	}
	r.Meta.Snapshots = append(r.Meta.Snapshots, step)
	return nil
}

// Finish writes the histories and metadata of a completed run. Aborted
// runs and runs that never started write nothing.
func (r *Run) Finish(res *sim.Result) error {
	if res == nil || res.Aborted || res.History == nil {
		return nil
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return err
	}
	r.Meta.StepsRun = res.Steps
	r.Meta.Unconverged = res.Unconverged
	r.Meta.Stopped = res.Stopped
	r.Meta.StopReason = res.StopReason
	if res.Final != nil {
		r.Meta.FinalEdges = res.Final.CurrentEdges()
	}

	forces := make([][]string, 0, res.History.Forces.Len())
	for _, row := range res.History.Forces.Rows() {
		forces = append(forces, formatRow(row))
	}
	if err := writeTable(filepath.Join(r.dir, r.Meta.ForcesFile()), '\t', nil, forces); err != nil {
		return err
	}
	edges := make([][]string, 0, res.History.Edges.Len())
	for _, n := range res.History.Edges.Column(0) {
		edges = append(edges, []string{strconv.Itoa(n)})
	}
	if err := writeTable(filepath.Join(r.dir, r.Meta.EdgesFile()), '\t', nil, edges); err != nil {
		return err
	}
	return writeMeta(filepath.Join(r.dir, metadataFile), r.Meta)
}

func writeMeta(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeNodes(path string, net *network.Network) error {
	header := []string{"id", "x", "y"}
	if net.Dim == 3 {
		header = append(header, "z")
	}
	header = append(header, "plate")
	rows := make([][]string, 0, net.NumNodes())
	for i := 0; i < net.NumNodes(); i++ {
		row := append([]string{strconv.Itoa(i)}, formatRow(net.Pos(i))...)
		plate := ""
		switch {
		case net.Moving[i]:
			plate = "moving"
		case net.Fixed[i]:
			plate = "fixed"
		}
		rows = append(rows, append(row, plate))
	}
	return writeTable(path, ',', header, rows)
}

func writeEdges(path string, net *network.Network) error {
	rows := make([][]string, 0, net.NumEdges())
	for id, e := range net.Edges {
		rows = append(rows, []string{
			strconv.Itoa(id),
			strconv.Itoa(e.A),
			strconv.Itoa(e.B),
			strconv.FormatFloat(e.L, 'g', -1, 64),
			strconv.FormatBool(e.Intact),
		})
	}
	return writeTable(path, ',', []string{"id", "a", "b", "length", "intact"}, rows)
}

func writeTable(path string, comma rune, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = comma
	if header != nil {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func formatRow(vals []float64) []string {
	row := make([]string, len(vals))
	for i, v := range vals {
		row[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return row
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadForces reads the plate force history of a run, one row per record.
func (s *Store) LoadForces(runID string) ([][]float64, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	records, err := readTable(filepath.Join(s.baseDir, runID, meta.ForcesFile()))
	if err != nil {
		return nil, err
	}
	rows := make([][]float64, 0, len(records))
	for _, rec := range records {
		row := make([]float64, 0, len(rec))
		for _, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: %s: %w", meta.ForcesFile(), err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadEdges reads the live bond count history of a run.
func (s *Store) LoadEdges(runID string) ([]int, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	records, err := readTable(filepath.Join(s.baseDir, runID, meta.EdgesFile()))
	if err != nil {
		return nil, err
	}
	counts := make([]int, 0, len(records))
	for _, rec := range records {
		n, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("storage: %s: %w", meta.EdgesFile(), err)
		}
		counts = append(counts, n)
	}
	return counts, nil
}

func readTable(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	return r.ReadAll()
}
