package phaseopt

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// Intersector finds the closest intersection of a ray with a surface.
type Intersector interface {
	Intersect(r Ray) (Intersection, bool)
}

// DirectionChanger turns an incident ray, at a known intersection, into an
// outgoing direction. It fails with ErrEvanescent when there is none.
// rng is only consumed by stochastic laws and may be nil otherwise.
type DirectionChanger interface {
	ChangeDirection(r Ray, hit Intersection, rng *rand.Rand) (r3.Vec, error)
}

// TransmissiveSurface is the primitive the transmission simulator walks.
type TransmissiveSurface interface {
	Intersector
	DirectionChanger
	SurfaceName() string
	TransmissionCoefficient() Real
}

// Blur adds a random transverse kick of standard deviation Lambda/Aperture
// to every direction change, a fixed stand-in for diffractive spreading.
type Blur struct {
	Enabled  bool
	Lambda   Real
	Aperture Real
}

func (b Blur) sigma() Real {
	if !b.Enabled || b.Aperture <= 0 {
		return 0
	}
	return b.Lambda / b.Aperture
}

// planeHit intersects r with the plane through f.Origin normal to f.Axis.
// Hits a hair behind the ray origin are clamped to it, so coincident planes
// are all crossed.
func planeHit(f Frame, r Ray) (Intersection, bool) {
	den := r3.Dot(r.Dir, f.Axis)
	if math.Abs(den) < epsParallel {
		return Intersection{}, false
	}
	s := r3.Dot(r3.Sub(f.Origin, r.Origin), f.Axis) / den
	if s < -epsBehind || !isFinite(s) {
		return Intersection{}, false
	}
	if s < 0 {
		s = 0
	}
	return Intersection{Point: r.At(s), S: s, T: r.T + s}, true
}

// PhasePlane is a planar phase hologram. Its phase profile is the polynomial
// in Coeffs evaluated in the (U, V) coordinates of Frame; the transverse
// direction cosines of a crossing ray change by the profile gradient
// (generalized Snell's law) and the axial one keeps its sign.
type PhasePlane struct {
	Name         string
	Frame        Frame
	Coeffs       *Triangle
	Transmission Real
	Blur         Blur
}

func (p *PhasePlane) SurfaceName() string           { return p.Name }
func (p *PhasePlane) TransmissionCoefficient() Real { return p.Transmission }

func (p *PhasePlane) Intersect(r Ray) (Intersection, bool) { return planeHit(p.Frame, r) }

func (p *PhasePlane) ChangeDirection(r Ray, hit Intersection, rng *rand.Rand) (r3.Vec, error) {
	x, y := p.Frame.Local(hit.Point)
	gx, gy := p.Coeffs.Gradient(x, y)
	if sigma := p.Blur.sigma(); sigma > 0 && rng != nil {
		gx += sigma * rng.NormFloat64()
		gy += sigma * rng.NormFloat64()
	}
	if gx == 0 && gy == 0 {
		return r.Dir, nil
	}
	cu, cv, ca := p.Frame.Cosines(r.Dir)
	cu += gx
	cv += gy
	ca2 := 1 - cu*cu - cv*cv
	if ca2 < 0 {
		return r3.Vec{}, fmt.Errorf("%w: at (%.6g, %.6g) transverse cosines (%.6g, %.6g)", ErrEvanescent, x, y, cu, cv)
	}
	return p.Frame.Direction(cu, cv, sign(ca)*math.Sqrt(ca2)), nil
}

// LawPlane is an idealized plane that applies a DirectionLaw exactly,
// irrespective of where it is hit.
type LawPlane struct {
	Name         string
	Frame        Frame
	Law          DirectionLaw
	Transmission Real
}

func (p *LawPlane) SurfaceName() string           { return p.Name }
func (p *LawPlane) TransmissionCoefficient() Real { return p.Transmission }

func (p *LawPlane) Intersect(r Ray) (Intersection, bool) { return planeHit(p.Frame, r) }

func (p *LawPlane) ChangeDirection(r Ray, _ Intersection, _ *rand.Rand) (r3.Vec, error) {
	return p.Law.Refract(r.Dir)
}
