package tui

import (
	"strings"

	"github.com/san-kum/netsim/internal/network"
)

// Canvas is a character grid the network is projected onto.
type Canvas struct {
	w, h  int
	cells [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{w: max(w, 1), h: max(h, 1)}
	c.cells = make([][]rune, c.h)
	for i := range c.cells {
		c.cells[i] = make([]rune, c.w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Clear() {
	for y := range c.cells {
		for x := range c.cells[y] {
			c.cells[y][x] = ' '
		}
	}
}

func (c *Canvas) Set(x, y int, r rune) {
	if x >= 0 && x < c.w && y >= 0 && y < c.h {
		c.cells[y][x] = r
	}
}

// Line draws from (x1, y1) to (x2, y2) with Bresenham's algorithm.
func (c *Canvas) Line(x1, y1, x2, y2 int, r rune) {
	dx, dy := abs(x2-x1), abs(y2-y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		c.Set(x1, y1, r)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (c *Canvas) String() string {
	rows := make([]string, len(c.cells))
	for i, row := range c.cells {
		rows[i] = string(row)
	}
	return strings.Join(rows, "\n")
}

// DrawNetwork projects the x-y plane of net onto the canvas: intact bonds
// as dots, plate nodes as '='. Periodic bonds are skipped since their
// endpoints sit on opposite edges of the box.
func (c *Canvas) DrawNetwork(net *network.Network) {
	c.Clear()
	b := net.Bounds
	sx, sy := b.Span(0), b.Span(1)
	if sx <= 0 || sy <= 0 {
		return
	}
	project := func(i int) (int, int) {
		p := net.Pos(i)
		x := int((p[0] - b.Min[0]) / sx * float64(c.w-1))
		y := int((b.Max[1] - p[1]) / sy * float64(c.h-1))
		return x, y
	}
	for id := range net.Edges {
		e := &net.Edges[id]
		if !e.Intact || e.PBC {
			continue
		}
		x1, y1 := project(e.A)
		x2, y2 := project(e.B)
		c.Line(x1, y1, x2, y2, '·')
	}
	for i := 0; i < net.NumNodes(); i++ {
		if net.Moving[i] || net.Fixed[i] {
			x, y := project(i)
			c.Set(x, y, '=')
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
