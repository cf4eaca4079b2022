// Package export renders network states to vector images.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/netsim/internal/network"
)

// SVGOptions control NetworkSVG output.
type SVGOptions struct {
	Width, Height int
	ShowBroken    bool
	Stroke        string
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 800, Height: 800, Stroke: "#00ccff"}
}

// NetworkSVG draws the x-y projection of net: intact bonds in Stroke,
// broken ones faint when ShowBroken is set, and plate nodes as markers.
// Periodic bonds are drawn as their two half segments.
func NetworkSVG(w io.Writer, net *network.Network, opt SVGOptions) error {
	if opt.Width <= 0 || opt.Height <= 0 {
		return fmt.Errorf("export: image size %dx%d", opt.Width, opt.Height)
	}
	if opt.Stroke == "" {
		opt.Stroke = DefaultSVGOptions().Stroke
	}

	b := net.Bounds
	rangeX, rangeY := b.Span(0), b.Span(1)
	if rangeX <= 0 {
		rangeX = 1
	}
	if rangeY <= 0 {
		rangeY = 1
	}
	minX := b.Min[0] - rangeX*0.05
	minY := b.Min[1] - rangeY*0.05
	rangeX *= 1.1
	rangeY *= 1.1
	project := func(x, y float64) (float64, float64) {
		return (x - minX) / rangeX * float64(opt.Width),
			float64(opt.Height) - (y-minY)/rangeY*float64(opt.Height)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, opt.Width, opt.Height, opt.Width, opt.Height)

	var d [3]float64
	bond := func(id int, stroke string, opacity float64) {
		e := &net.Edges[id]
		net.Delta(id, d[:net.Dim])
		pa, pb := net.Pos(e.A), net.Pos(e.B)
		segs := [][4]float64{{pa[0], pa[1], pa[0] + d[0], pa[1] + d[1]}}
		if e.PBC {
			segs = [][4]float64{
				{pa[0], pa[1], pa[0] + d[0]/2, pa[1] + d[1]/2},
				{pb[0], pb[1], pb[0] - d[0]/2, pb[1] - d[1]/2},
			}
		}
		for _, s := range segs {
			x1, y1 := project(s[0], s[1])
			x2, y2 := project(s[2], s[3])
			fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-opacity="%.2f"/>
`, x1, y1, x2, y2, stroke, opacity)
		}
	}

	sb.WriteString(`<g stroke-width="1">` + "\n")
	for id := range net.Edges {
		switch {
		case net.Edges[id].Intact:
			bond(id, opt.Stroke, 1)
		case opt.ShowBroken:
			bond(id, "#ff4444", 0.25)
		}
	}
	sb.WriteString("</g>\n<g>\n")

	for i := 0; i < net.NumNodes(); i++ {
		fill := ""
		switch {
		case net.Moving[i]:
			fill = "#ffaa00"
		case net.Fixed[i]:
			fill = "#888899"
		default:
			continue
		}
		p := net.Pos(i)
		x, y := project(p[0], p[1])
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="2" fill="%s"/>
`, x, y, fill)
	}
	sb.WriteString("</g>\n</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
