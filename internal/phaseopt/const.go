package phaseopt

import "time"

const (
	NumSurfaces        = 2
	PolynomialOrder    = 3
	StartPoints        = 16
	DirectionPairs     = 16
	DiscRadius         = 1.0
	ConeAngleDeg       = 10.0
	MaxIterations      = 10_000
	InitialTemperature = 0.5
	ProgressInterval   = 100 * time.Millisecond
	CoefficientScale   = 0.1
	SpacingMin         = 0.05 // range for randomized inter-surface spacings
	SpacingMax         = 0.5
	DefaultSpacing     = 0.1 // spacing given to surfaces added by Reshape
	Transmission       = 1.0
	ParamsOut          = "params.bin"
	// hot-loop constants
	epsParallel   = 1e-12 // |D·Axis| below this means the ray runs along the plane
	epsBehind     = 1e-9  // hits this far behind the ray origin still count (coincident planes)
	startPlaneGap = 1e-4  // start points sit this far in front of the first surface
)
