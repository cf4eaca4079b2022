package report

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/netsim/internal/storage"
)

// Summary renders the outcome of a stored run as a bordered panel.
func Summary(meta storage.RunMetadata) string {
	status := Good.Render("completed")
	if meta.Stopped {
		status = Warn.Render("halted: " + meta.StopReason)
	}
	remaining := 0.0
	if meta.Edges > 0 {
		remaining = float64(meta.FinalEdges) / float64(meta.Edges)
	}

	rows := [][2]string{
		{"run", meta.ID},
		{"mode", fmt.Sprintf("%s (%d workers)", meta.Mode, meta.Workers)},
		{"network", fmt.Sprintf("%d nodes, %d bonds, dim %d", meta.Nodes, meta.Edges, meta.Dim)},
		{"steps", fmt.Sprintf("%d of %d", meta.StepsRun, meta.Steps)},
		{"bonds left", fmt.Sprintf("%d  %s", meta.FinalEdges, ProgressBar(remaining, 20))},
		{"unconverged", fmt.Sprintf("%d", meta.Unconverged)},
		{"status", status},
	}
	var b strings.Builder
	b.WriteString(Title.Render("netsim run"))
	for _, r := range rows {
		b.WriteString("\n" + Label.Render(r[0]) + Value.Render(r[1]))
	}
	return Panel.Render(b.String())
}

// Plot draws one series as an ASCII chart.
func Plot(data []float64, caption string, width, height int) string {
	if len(data) == 0 {
		return Subtle.Render(caption + ": no data")
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// ForcePlots charts every force component of a history, one per axis.
func ForcePlots(forces [][]float64, width, height int) []string {
	if len(forces) == 0 {
		return nil
	}
	axes := []string{"x", "y", "z"}
	out := make([]string, 0, len(forces[0]))
	for d := range forces[0] {
		col := make([]float64, len(forces))
		for i, row := range forces {
			col[i] = row[d]
		}
		out = append(out, Plot(col, "plate force "+axes[d], width, height))
	}
	return out
}

// EdgePlot charts the live bond count.
func EdgePlot(edges []int, width, height int) string {
	data := make([]float64, len(edges))
	for i, n := range edges {
		data[i] = float64(n)
	}
	return Plot(data, "remaining bonds", width, height)
}
