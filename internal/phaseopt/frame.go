package phaseopt

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var ErrDegenerateFrame = errors.New("degenerate frame")

// Frame is the coordinate system shared by every surface of a stack:
// the stack base origin, two orthogonal in-plane unit vectors U and V, and
// the propagation axis. U × V = Axis.
type Frame struct {
	Origin r3.Vec
	U, V   r3.Vec
	Axis   r3.Vec
}

// DefaultFrame is centred at the origin and propagates along +Z.
func DefaultFrame() Frame {
	return Frame{U: r3.Vec{X: 1}, V: r3.Vec{Y: 1}, Axis: r3.Vec{Z: 1}}
}

// NewFrame builds an orthonormal frame around axis. up is only a hint for V:
// its component along axis is removed, and a fixed helper is used when it
// is zero or parallel to axis.
func NewFrame(origin, axis, up r3.Vec) (Frame, error) {
	if !isFiniteVec(origin) || !isFiniteVec(axis) || !isFiniteVec(up) {
		return Frame{}, fmt.Errorf("%w: non-finite input origin=%+v axis=%+v up=%+v", ErrDegenerateFrame, origin, axis, up)
	}
	if r3.Norm(axis) == 0 {
		return Frame{}, fmt.Errorf("%w: axis must be non-zero", ErrDegenerateFrame)
	}
	const eps = 1e-9
	a := r3.Unit(axis)
	proj := func(x r3.Vec) r3.Vec { return r3.Sub(x, r3.Scale(r3.Dot(x, a), a)) }

	v := proj(up)
	if r3.Norm(v) < eps {
		// deterministic helper, pick whichever world axis is far from a
		h := r3.Vec{Y: 1}
		if math.Abs(a.Y) > 0.9 {
			h = r3.Vec{X: 1}
		}
		v = proj(h)
	}
	v = r3.Unit(v)
	u := r3.Cross(v, a)
	f := Frame{Origin: origin, U: u, V: v, Axis: a}
	DebugLog("Created frame %+v", f)
	return f, nil
}

// Local returns the in-plane coordinates of p.
func (f Frame) Local(p r3.Vec) (x, y Real) {
	d := r3.Sub(p, f.Origin)
	return r3.Dot(d, f.U), r3.Dot(d, f.V)
}

// Point maps frame coordinates (x, y, z) to world space.
func (f Frame) Point(x, y, z Real) r3.Vec {
	p := r3.Add(f.Origin, r3.Scale(x, f.U))
	p = r3.Add(p, r3.Scale(y, f.V))
	return r3.Add(p, r3.Scale(z, f.Axis))
}

// Cosines returns the direction cosines of d along U, V and Axis.
func (f Frame) Cosines(d r3.Vec) (cu, cv, ca Real) {
	return r3.Dot(d, f.U), r3.Dot(d, f.V), r3.Dot(d, f.Axis)
}

// Direction is the inverse of Cosines.
func (f Frame) Direction(cu, cv, ca Real) r3.Vec {
	d := r3.Scale(cu, f.U)
	d = r3.Add(d, r3.Scale(cv, f.V))
	return r3.Add(d, r3.Scale(ca, f.Axis))
}

// Shifted returns the same frame with its origin moved by z along the axis.
func (f Frame) Shifted(z Real) Frame {
	g := f
	g.Origin = r3.Add(f.Origin, r3.Scale(z, f.Axis))
	return g
}
