// Package network holds the data model of a discrete polymer network.
//
// A [Network] is a set of point nodes stored as a flat position vector and a
// list of bonds ([Edge]) joining pairs of nodes. Bonds carry a rest (contour)
// length, an intact flag and Bell-model kinetic constants. Broken bonds keep
// their slot so that partition indices stay valid for the whole run.
//
// # Construction
//
//	sampler := network.LengthSampler{Mean: 150, Std: 25}
//	net, _ := network.NewLattice(network.LatticeSpec{Nx: 10, Ny: 10, Spacing: 5}, sampler, rng)
//	net.MarkBoundaries(1, 1e-6)
//
// Meshes produced by gmsh can be read with [ReadMsh].
//
// # Thread Safety
//
// Network values are NOT safe for concurrent mutation. Each worker of a
// distributed run operates on its own [Network.Clone].
package network
