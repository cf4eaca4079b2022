package network

import "errors"

// Domain errors for network construction and editing.
var (
	// ErrMalformedMesh indicates an edge or element referencing a missing node.
	ErrMalformedMesh = errors.New("network: malformed mesh")

	// ErrZeroWeight indicates a network whose weight metric is not positive.
	ErrZeroWeight = errors.New("network: non-positive weight")

	// ErrInvalidDim indicates an unsupported spatial dimension.
	ErrInvalidDim = errors.New("network: dimension must be 2 or 3")
)
