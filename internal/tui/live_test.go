package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/netsim/internal/network"
	"github.com/san-kum/netsim/internal/sim"
)

func triangle(t *testing.T) *network.Network {
	t.Helper()
	net, err := network.New(2, []float64{0, 0, 1, 0, 0, 1},
		network.Bounds{Min: [3]float64{0, 0}, Max: [3]float64{1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range [][2]int{{0, 1}, {0, 2}} {
		if _, err := net.AddEdge(e[0], e[1], 1, false); err != nil {
			t.Fatal(err)
		}
	}
	net.MarkBoundaries(1, 0.01)
	return net
}

func TestCanvasDrawNetwork(t *testing.T) {
	c := NewCanvas(11, 5)
	c.DrawNetwork(triangle(t))
	rows := strings.Split(c.String(), "\n")
	if len(rows) != 5 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[4] != "=·········=" {
		t.Errorf("bottom row %q", rows[4])
	}
	if !strings.HasPrefix(rows[0], "=") || !strings.HasPrefix(rows[2], "·") {
		t.Errorf("left column not drawn:\n%s", c.String())
	}
}

func TestCanvasSkipsBroken(t *testing.T) {
	net := triangle(t)
	net.Break(0)
	c := NewCanvas(11, 5)
	c.DrawNetwork(net)
	if got := strings.Split(c.String(), "\n")[4]; got != "=         =" {
		t.Errorf("broken bond drawn: %q", got)
	}
}

func TestFeedDropsWhenFull(t *testing.T) {
	f := NewFeed(2)
	for i := 1; i <= 5; i++ {
		f.OnStep(sim.StepInfo{Step: i})
	}
	if f.Dropped() != 3 {
		t.Errorf("dropped %d, want 3", f.Dropped())
	}
	if got := (<-f.ch).Step; got != 1 {
		t.Errorf("first event step %d", got)
	}
}

func TestModelTracksSteps(t *testing.T) {
	var m tea.Model = NewModel("lattice", 10, 1, NewFeed(1))
	m, _ = m.Update(stepMsg{Step: 1, Edges: 20, Broken: 0, Force: []float64{0, -0.5}})
	m, _ = m.Update(stepMsg{Step: 2, Edges: 18, Broken: 2})
	m, _ = m.Update(stepMsg{Step: 3, Edges: 17, Broken: 1, Force: []float64{0, -0.7}})

	lm := m.(Model)
	if lm.initial != 20 || lm.broken != 3 {
		t.Errorf("initial %d broken %d", lm.initial, lm.broken)
	}
	if len(lm.force) != 2 || lm.force[1] != -0.7 {
		t.Errorf("force series %v", lm.force)
	}
	if len(lm.edges) != 3 {
		t.Errorf("edge series %v", lm.edges)
	}
	view := lm.View()
	for _, want := range []string{"running", "3/10", "plate force", "remaining bonds"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q", want)
		}
	}
}

func TestModelDone(t *testing.T) {
	tests := []struct {
		msg  doneMsg
		want string
	}{
		{doneMsg{res: &sim.Result{}}, "completed"},
		{doneMsg{res: &sim.Result{Stopped: true, StopReason: "disconnected"}}, "halted: disconnected"},
		{doneMsg{res: &sim.Result{Aborted: true, StopReason: "odd"}}, "aborted: odd"},
		{doneMsg{err: errors.New("boom")}, "failed: boom"},
	}
	for _, tt := range tests {
		m, cmd := NewModel("run", 5, 0, NewFeed(1)).Update(tt.msg)
		if cmd != nil {
			t.Error("done should not schedule work")
		}
		if !strings.Contains(m.View(), tt.want) {
			t.Errorf("view lacks %q", tt.want)
		}
	}
}

func TestModelQuit(t *testing.T) {
	m, cmd := NewModel("run", 5, 0, NewFeed(1)).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !m.(Model).quit || cmd == nil {
		t.Error("q should quit")
	}
}
