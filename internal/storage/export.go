package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	Run    RunMetadata `json:"run"`
	Forces [][]float64 `json:"forces"`
	Edges  []int       `json:"edges"`
}

// ExportJSON writes metadata and both histories of a run as one document.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	forces, err := s.LoadForces(runID)
	if err != nil {
		return err
	}
	edges, err := s.LoadEdges(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Forces: forces, Edges: edges})
}
