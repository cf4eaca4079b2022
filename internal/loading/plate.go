// Package loading prescribes the displacement of the loaded plate.
package loading

import (
	"fmt"

	"github.com/san-kum/netsim/internal/network"
)

// Plate moves the Moving nodes of a network by a fixed increment per step.
type Plate struct {
	Axis      int
	Increment float64
}

// NewPlate checks that axis exists in a network of dimension dim.
func NewPlate(dim, axis int, increment float64) (*Plate, error) {
	if axis < 0 || axis >= dim {
		return nil, fmt.Errorf("loading: axis %d out of range for dim %d", axis, dim)
	}
	return &Plate{Axis: axis, Increment: increment}, nil
}

// MoveTopPlate shifts every Moving node of net by one increment along Axis
// and returns how many nodes moved. Every worker applies it to its own copy
// of the positions at the start of a step.
func (p *Plate) MoveTopPlate(net *network.Network) int {
	moved := 0
	for i, m := range net.Moving {
		if !m {
			continue
		}
		net.R[i*net.Dim+p.Axis] += p.Increment
		moved++
	}
	return moved
}

// Displacement is the total prescribed displacement after step moves.
func (p *Plate) Displacement(step int) float64 {
	return float64(step) * p.Increment
}
