package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/san-kum/netsim/internal/storage"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&buf, "warn")
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hidden")
	Rank(l, 3).Warn("shown", "step", 7)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record passed a warn logger")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "rank=3") {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := NewLogger(&buf, "loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		values []float64
		width  int
		want   string
	}{
		{nil, 3, "───"},
		{[]float64{0, 1}, 2, "▁█"},
		{[]float64{5, 5, 5}, 3, "▁▁▁"},
		{[]float64{0, 0, 1, 1}, 2, "▁█"},
	}
	for _, tt := range tests {
		if got := Sparkline(tt.values, tt.width); got != tt.want {
			t.Errorf("Sparkline(%v, %d) = %q, want %q", tt.values, tt.width, got, tt.want)
		}
	}
}

func TestSummary(t *testing.T) {
	s := Summary(storage.RunMetadata{
		ID: "lattice_1", Mode: "distributed", Workers: 4,
		Nodes: 100, Edges: 180, FinalEdges: 90, StepsRun: 23, Steps: 40,
		Stopped: true, StopReason: "disconnected",
	})
	for _, want := range []string{"lattice_1", "distributed (4 workers)", "23 of 40", "halted: disconnected"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary lacks %q:\n%s", want, s)
		}
	}
}

func TestPlots(t *testing.T) {
	plots := ForcePlots([][]float64{{0, 0}, {0.1, -1}, {0.2, -2}}, 40, 5)
	if len(plots) != 2 || !strings.Contains(plots[1], "plate force y") {
		t.Errorf("unexpected plots %v", plots)
	}
	if !strings.Contains(EdgePlot(nil, 40, 5), "no data") {
		t.Error("empty history should say so")
	}
	if !strings.Contains(EdgePlot([]int{10, 9, 9}, 40, 5), "remaining bonds") {
		t.Error("edge plot lacks caption")
	}
}
