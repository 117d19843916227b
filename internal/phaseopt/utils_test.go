package phaseopt

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestSign(t *testing.T) {
	if sign(-2) != -1 || sign(3) != 1 || sign(0) != 1 {
		t.Fatal("sign mismatch")
	}
	if sign(math.Copysign(0, -1)) != 1 {
		t.Fatal("negative zero must count as non-negative")
	}
}

func TestIsFinite(t *testing.T) {
	if !isFinite(1) || isFinite(math.NaN()) || isFinite(math.Inf(-1)) {
		t.Fatal("isFinite mismatch")
	}
	if isFiniteVec(r3.Vec{X: 1, Y: math.Inf(1)}) || !isFiniteVec(r3.Vec{X: 1}) {
		t.Fatal("isFiniteVec mismatch")
	}
}

func TestDeg2Rad(t *testing.T) {
	if math.Abs(deg2rad(180)-math.Pi) > 1e-15 || imax(2, 5) != 5 {
		t.Fatal("helpers mismatch")
	}
}
