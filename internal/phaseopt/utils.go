package phaseopt

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

func isFinite(x Real) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) }

func isFiniteVec(v r3.Vec) bool { return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z) }

// sign returns -1 for negative x and +1 otherwise.
func sign(x Real) Real {
	if x < 0 {
		return -1
	}
	return 1
}

func imax(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func deg2rad(d Real) Real { return d * math.Pi / 180 }
