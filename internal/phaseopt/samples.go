package phaseopt

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// DirectionPair couples an incident direction with the direction it should
// leave the stack in. Valid is false when no target exists; such pairs are
// skipped by the fitness.
type DirectionPair struct {
	In    r3.Vec
	Out   r3.Vec
	Valid bool
}

// RaySampleSet holds the start points (on a disc just in front of the first
// surface) and the direction pairs every candidate stack is scored on.
type RaySampleSet struct {
	Frame       Frame
	Radius      Real
	ConeAngle   Real // half-angle around the frame axis, radians
	Law         DirectionLaw
	StartPoints []r3.Vec
	Pairs       []DirectionPair
}

// NewRaySampleSet returns k start points at the disc centre and m axial
// direction pairs; callers randomize them afterwards.
func NewRaySampleSet(frame Frame, k, m int, radius, coneAngle Real, law DirectionLaw) (*RaySampleSet, error) {
	if k < 1 {
		return nil, fmt.Errorf("need at least one start point, got %d", k)
	}
	if m < 1 {
		return nil, fmt.Errorf("need at least one direction pair, got %d", m)
	}
	if !(radius >= 0) || !isFinite(radius) {
		return nil, fmt.Errorf("disc radius must be finite and ≥ 0, got %v", radius)
	}
	if !(coneAngle >= 0 && coneAngle < math.Pi/2) {
		return nil, errors.New("cone half-angle must be in [0, π/2)")
	}
	s := &RaySampleSet{
		Frame:     frame,
		Radius:    radius,
		ConeAngle: coneAngle,
		Law:       law,
	}
	if err := s.SetStartPointCount(k); err != nil {
		return nil, err
	}
	if err := s.Reshape(m); err != nil {
		return nil, err
	}
	DebugLog("Created ray sample set: K=%d, M=%d, radius=%.4g, cone=%.4g rad, law=%s(%.4g)", k, m, radius, coneAngle, law.Kind, law.Param)
	return s, nil
}

func (s *RaySampleSet) axisPair() DirectionPair {
	return DirectionPair{In: s.Frame.Axis, Out: s.Frame.Axis, Valid: true}
}

func (s *RaySampleSet) discPoint(x, y Real) r3.Vec {
	return s.Frame.Point(x*s.Radius, y*s.Radius, -startPlaneGap)
}

// uniform point on the unit disc by rejection
func unitDisc(rng *rand.Rand) (x, y Real) {
	for {
		x = 2*rng.Float64() - 1
		y = 2*rng.Float64() - 1
		if x*x+y*y < 1 {
			return x, y
		}
	}
}

// coneDir picks the polar angle uniformly in [0, ConeAngle] and the azimuth
// uniformly in [0, 2π). That is not uniform in solid angle.
func (s *RaySampleSet) coneDir(rng *rand.Rand) r3.Vec {
	polar := rng.Float64() * s.ConeAngle
	az := 2 * math.Pi * rng.Float64()
	sp := math.Sin(polar)
	return s.Frame.Direction(sp*math.Cos(az), sp*math.Sin(az), math.Cos(polar))
}

// RandomizeStartPoints replaces all start points with fresh uniform draws on
// the disc of radius Radius, in the plane just in front of the first surface.
func (s *RaySampleSet) RandomizeStartPoints(rng *rand.Rand) {
	for i := range s.StartPoints {
		s.StartPoints[i] = s.discPoint(unitDisc(rng))
	}
}

// RandomizeInputDirections replaces every incident direction with a draw
// inside the cone. Targets are left alone.
func (s *RaySampleSet) RandomizeInputDirections(rng *rand.Rand) {
	for i := range s.Pairs {
		s.Pairs[i].In = s.coneDir(rng)
	}
}

// RandomizeOutputDirections replaces every target with an independent draw
// inside the cone.
func (s *RaySampleSet) RandomizeOutputDirections(rng *rand.Rand) {
	for i := range s.Pairs {
		s.Pairs[i].Out = s.coneDir(rng)
		s.Pairs[i].Valid = true
	}
}

// ComputeOutputDirections derives every target from the direction law. Pairs
// whose target is evanescent are marked invalid; their count is returned.
func (s *RaySampleSet) ComputeOutputDirections() (skipped int) {
	for i := range s.Pairs {
		out, err := s.Law.Refract(s.Pairs[i].In)
		if err != nil {
			DebugLog("Direction pair %d has no target: %v", i, err)
			s.Pairs[i].Out, s.Pairs[i].Valid = r3.Vec{}, false
			skipped++
			continue
		}
		s.Pairs[i].Out, s.Pairs[i].Valid = out, true
	}
	return skipped
}

// Reshape grows or shrinks the direction pairs to m, keeping existing pairs
// and padding with axial ones.
func (s *RaySampleSet) Reshape(m int) error {
	if m < 0 {
		return fmt.Errorf("direction pair count must be ≥ 0, got %d", m)
	}
	pairs := make([]DirectionPair, m)
	n := copy(pairs, s.Pairs)
	for i := n; i < m; i++ {
		pairs[i] = s.axisPair()
	}
	s.Pairs = pairs
	return nil
}

// SetStartPointCount grows or shrinks the start points to k, keeping
// existing ones and padding with the disc centre.
func (s *RaySampleSet) SetStartPointCount(k int) error {
	if k < 0 {
		return fmt.Errorf("start point count must be ≥ 0, got %d", k)
	}
	pts := make([]r3.Vec, k)
	n := copy(pts, s.StartPoints)
	for i := n; i < k; i++ {
		pts[i] = s.discPoint(0, 0)
	}
	s.StartPoints = pts
	return nil
}

// ValidPairs counts the pairs with a defined target.
func (s *RaySampleSet) ValidPairs() int {
	n := 0
	for _, p := range s.Pairs {
		if p.Valid {
			n++
		}
	}
	return n
}
