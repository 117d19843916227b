package phaseopt

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewFrame_Orthonormal(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 100; i++ {
		axis := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		f, err := NewFrame(r3.Vec{X: 1, Y: 2, Z: 3}, axis, r3.Vec{Y: 1})
		require.NoError(t, err)
		for _, v := range []r3.Vec{f.U, f.V, f.Axis} {
			assert.InDelta(t, 1, r3.Norm(v), 1e-12)
		}
		assert.InDelta(t, 0, r3.Dot(f.U, f.V), 1e-12)
		assert.InDelta(t, 0, r3.Dot(f.U, f.Axis), 1e-12)
		assert.InDelta(t, 0, r3.Dot(f.V, f.Axis), 1e-12)
		// right-handed
		c := r3.Cross(f.U, f.V)
		assert.InDelta(t, 1, r3.Dot(c, f.Axis), 1e-12)
	}
}

func TestNewFrame_Degenerate(t *testing.T) {
	_, err := NewFrame(r3.Vec{}, r3.Vec{}, r3.Vec{Y: 1})
	assert.ErrorIs(t, err, ErrDegenerateFrame)

	_, err = NewFrame(r3.Vec{}, r3.Vec{Z: math.NaN()}, r3.Vec{Y: 1})
	assert.ErrorIs(t, err, ErrDegenerateFrame)

	// up parallel to axis falls back to a helper
	f, err := NewFrame(r3.Vec{}, r3.Vec{Y: 2}, r3.Vec{Y: 1})
	require.NoError(t, err)
	assert.InDelta(t, 0, r3.Dot(f.V, f.Axis), 1e-12)
	assert.InDelta(t, 1, r3.Norm(f.U), 1e-12)
}

func TestFrameDefaultMatchesBuilt(t *testing.T) {
	f, err := FrameCfg{}.Build()
	require.NoError(t, err)
	assert.Equal(t, DefaultFrame(), f)
}

func TestFrameLocalPointRoundTrip(t *testing.T) {
	f, err := NewFrame(r3.Vec{X: -1, Y: 0.5, Z: 2}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{Z: 1})
	require.NoError(t, err)
	p := f.Point(0.3, -0.7, 1.5)
	x, y := f.Local(p)
	assert.InDelta(t, 0.3, x, 1e-12)
	assert.InDelta(t, -0.7, y, 1e-12)

	d := f.Direction(0.1, 0.2, math.Sqrt(1-0.05))
	cu, cv, ca := f.Cosines(d)
	assert.InDelta(t, 0.1, cu, 1e-12)
	assert.InDelta(t, 0.2, cv, 1e-12)
	assert.InDelta(t, math.Sqrt(0.95), ca, 1e-12)

	g := f.Shifted(2)
	assert.InDelta(t, 2, r3.Dot(r3.Sub(g.Origin, f.Origin), f.Axis), 1e-12)
}
