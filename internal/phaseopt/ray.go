package phaseopt

import "gonum.org/v1/gonum/spatial/r3"

// Ray is one straight leg of a light path. It leaves Origin at time T along
// the unit direction Dir. Intensity is the product of the transmission
// coefficients of every surface crossed so far.
type Ray struct {
	Origin    r3.Vec
	Dir       r3.Vec
	T         Real
	Intensity Real
}

// NewRay starts a unit-intensity ray at time 0; dir is normalized.
func NewRay(origin, dir r3.Vec) Ray {
	return Ray{Origin: origin, Dir: r3.Unit(dir), Intensity: 1}
}

// At returns the point reached after travelling s along the ray.
func (r Ray) At(s Real) r3.Vec { return r3.Add(r.Origin, r3.Scale(s, r.Dir)) }

// Intersection is where a ray meets a surface. S is the distance travelled
// on the ray, T the absolute time (ray start time + S).
type Intersection struct {
	Point r3.Vec
	S     Real
	T     Real
}
