package phaseopt

type Real = float64

var (
	Debug = false // set to true for verbose debug output and per-step ray logging
	// Compile time checks to ensure that the surface contract is implemented by all transmissive primitives
	_ TransmissiveSurface = (*PhasePlane)(nil)
	_ TransmissiveSurface = (*LawPlane)(nil)
)
