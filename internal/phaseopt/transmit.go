package phaseopt

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

var ErrMissedSurface = errors.New("ray missed surface")

// MissError names the surface a ray failed to meet.
type MissError struct {
	Index int
	Name  string
	Ray   Ray
}

func (e *MissError) Error() string {
	return fmt.Sprintf("ray missed surface %d (%s): origin=%+v dir=%+v", e.Index, e.Name, e.Ray.Origin, e.Ray.Dir)
}

func (e *MissError) Unwrap() error { return ErrMissedSurface }

// Transmit walks in through seq, in order, crossing every surface exactly
// once. Each crossing starts a new ray at the hit point, with the surface's
// outgoing direction and the hit time as start time. A surface that is not
// met fails with *MissError; one without a real outgoing direction fails
// with ErrEvanescent. Surfaces are never mutated.
func Transmit(in Ray, seq []TransmissiveSurface, rng *rand.Rand) (Ray, error) {
	r := in
	for i, s := range seq {
		hit, ok := s.Intersect(r)
		if !ok {
			if Debug {
				logRay("missed", Missed, i, r.Origin, r.Dir, r3.Vec{}, r.T)
			}
			return r, &MissError{Index: i, Name: s.SurfaceName(), Ray: r}
		}
		d, err := s.ChangeDirection(r, hit, rng)
		if err != nil {
			if Debug {
				logRay("evanescent", Evanescent, i, r.Origin, r.Dir, hit.Point, hit.T)
			}
			return r, fmt.Errorf("surface %d (%s): %w", i, s.SurfaceName(), err)
		}
		r = Ray{Origin: hit.Point, Dir: d, T: hit.T, Intensity: r.Intensity * s.TransmissionCoefficient()}
		if Debug {
			logRay("transmitted", Transmitted, i, r.Origin, r.Dir, hit.Point, hit.T)
		}
	}
	return r, nil
}
