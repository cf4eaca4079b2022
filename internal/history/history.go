// Package history keeps the append-only time series recorded by the
// coordinating worker of a run.
package history

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

// ErrRewrite is returned when a row below the current length is written.
var ErrRewrite = errors.New("history: rows are append-only")

type Number interface {
	constraints.Integer | constraints.Float
}

// Series is a table of fixed-width rows addressed by record index. Skipped
// indices read as zero rows.
type Series[T Number] struct {
	width int
	data  []T
}

func NewSeries[T Number](width, capacity int) *Series[T] {
	if width < 1 {
		width = 1
	}
	return &Series[T]{width: width, data: make([]T, 0, width*max(capacity, 0))}
}

func (s *Series[T]) Width() int { return s.width }
func (s *Series[T]) Len() int   { return len(s.data) / s.width }

// Set writes row at index. index must not be below Len.
func (s *Series[T]) Set(index int, row ...T) error {
	if len(row) != s.width {
		return fmt.Errorf("history: row has %d values, want %d", len(row), s.width)
	}
	if index < s.Len() {
		return fmt.Errorf("%w: index %d, length %d", ErrRewrite, index, s.Len())
	}
	for s.Len() < index {
		s.data = append(s.data, make([]T, s.width)...)
	}
	s.data = append(s.data, row...)
	return nil
}

// Row returns a copy of row i.
func (s *Series[T]) Row(i int) []T {
	out := make([]T, s.width)
	copy(out, s.data[i*s.width:(i+1)*s.width])
	return out
}

func (s *Series[T]) Rows() [][]T {
	rows := make([][]T, s.Len())
	for i := range rows {
		rows[i] = s.Row(i)
	}
	return rows
}

// Column returns component d of every row.
func (s *Series[T]) Column(d int) []T {
	col := make([]T, s.Len())
	for i := range col {
		col[i] = s.data[i*s.width+d]
	}
	return col
}

// Last returns the most recent row, or nil when empty.
func (s *Series[T]) Last() []T {
	if s.Len() == 0 {
		return nil
	}
	return s.Row(s.Len() - 1)
}

// Log is the aggregate state of a run: plate reaction force per recorded
// step (Dim columns) and the live-edge count per recorded step.
type Log struct {
	Forces *Series[float64]
	Edges  *Series[int]
}

func NewLog(dim, capacity int) *Log {
	return &Log{
		Forces: NewSeries[float64](dim, capacity),
		Edges:  NewSeries[int](1, capacity),
	}
}
