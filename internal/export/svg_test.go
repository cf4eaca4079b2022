package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/netsim/internal/network"
)

func square(t *testing.T, pbc bool) *network.Network {
	t.Helper()
	net, err := network.New(2, []float64{0, 0, 1, 0, 0, 1, 1, 1},
		network.Bounds{Min: [3]float64{0, 0}, Max: [3]float64{1, 1}})
	require.NoError(t, err)
	for _, e := range [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}} {
		_, err := net.AddEdge(e[0], e[1], 1, false)
		require.NoError(t, err)
	}
	if pbc {
		_, err := net.AddEdge(1, 0, 1, true)
		require.NoError(t, err)
	}
	net.MarkBoundaries(1, 0.01)
	return net
}

func TestNetworkSVG(t *testing.T) {
	net := square(t, false)
	net.Break(3)

	var sb strings.Builder
	require.NoError(t, NetworkSVG(&sb, net, DefaultSVGOptions()))
	out := sb.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Equal(t, 3, strings.Count(out, "<line"))
	assert.Equal(t, 4, strings.Count(out, "<circle"))
	assert.Equal(t, 2, strings.Count(out, "#ffaa00"))

	sb.Reset()
	opt := DefaultSVGOptions()
	opt.ShowBroken = true
	require.NoError(t, NetworkSVG(&sb, net, opt))
	assert.Equal(t, 4, strings.Count(sb.String(), "<line"))
}

func TestNetworkSVG_PeriodicBondSplit(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, NetworkSVG(&sb, square(t, true), DefaultSVGOptions()))
	assert.Equal(t, 6, strings.Count(sb.String(), "<line"))
}

func TestNetworkSVG_RejectsEmptyCanvas(t *testing.T) {
	var sb strings.Builder
	assert.Error(t, NetworkSVG(&sb, square(t, false), SVGOptions{}))
}
