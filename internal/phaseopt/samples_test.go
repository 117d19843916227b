package phaseopt

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func newTestSamples(t *testing.T, k, m int, law DirectionLaw) *RaySampleSet {
	t.Helper()
	s, err := NewRaySampleSet(law.Frame, k, m, 0.5, deg2rad(10), law)
	require.NoError(t, err)
	return s
}

func identityLaw() DirectionLaw {
	return DirectionLaw{Kind: LawIdentity, Frame: DefaultFrame()}
}

func TestNewRaySampleSetDefaults(t *testing.T) {
	s := newTestSamples(t, 3, 4, identityLaw())
	require.Len(t, s.StartPoints, 3)
	require.Len(t, s.Pairs, 4)
	for _, p := range s.StartPoints {
		assert.Equal(t, r3.Vec{Z: -startPlaneGap}, p)
	}
	for _, p := range s.Pairs {
		assert.Equal(t, DirectionPair{In: r3.Vec{Z: 1}, Out: r3.Vec{Z: 1}, Valid: true}, p)
	}
	assert.Equal(t, 4, s.ValidPairs())
}

func TestNewRaySampleSetRejects(t *testing.T) {
	f := DefaultFrame()
	law := identityLaw()
	for name, fn := range map[string]func() error{
		"no starts":   func() error { _, err := NewRaySampleSet(f, 0, 1, 1, 0.1, law); return err },
		"no pairs":    func() error { _, err := NewRaySampleSet(f, 1, 0, 1, 0.1, law); return err },
		"radius":      func() error { _, err := NewRaySampleSet(f, 1, 1, -1, 0.1, law); return err },
		"radius nan":  func() error { _, err := NewRaySampleSet(f, 1, 1, math.NaN(), 0.1, law); return err },
		"cone":        func() error { _, err := NewRaySampleSet(f, 1, 1, 1, math.Pi/2, law); return err },
		"cone signed": func() error { _, err := NewRaySampleSet(f, 1, 1, 1, -0.1, law); return err },
	} {
		assert.Error(t, fn(), name)
	}
}

func TestRandomizeStartPointsOnDisc(t *testing.T) {
	rng := rand.New(rand.NewPCG(31, 32))
	f, err := NewFrame(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 1, Y: 1}, r3.Vec{Z: 1})
	require.NoError(t, err)
	s, err := NewRaySampleSet(f, 500, 1, 0.5, 0.1, DirectionLaw{Frame: f})
	require.NoError(t, err)
	s.RandomizeStartPoints(rng)

	var maxR float64
	for _, p := range s.StartPoints {
		x, y := f.Local(p)
		r := math.Hypot(x, y)
		assert.Less(t, r, 0.5+1e-12)
		maxR = math.Max(maxR, r)
		z := r3.Dot(r3.Sub(p, f.Origin), f.Axis)
		assert.InDelta(t, -startPlaneGap, z, 1e-12)
	}
	assert.Greater(t, maxR, 0.4)
}

func TestRandomizeDirectionsInCone(t *testing.T) {
	rng := rand.New(rand.NewPCG(33, 34))
	s := newTestSamples(t, 1, 300, identityLaw())
	s.RandomizeInputDirections(rng)
	s.RandomizeOutputDirections(rng)
	for _, p := range s.Pairs {
		for _, d := range []r3.Vec{p.In, p.Out} {
			assert.InDelta(t, 1, r3.Norm(d), 1e-12)
			angle := math.Acos(math.Min(1, r3.Dot(d, s.Frame.Axis)))
			assert.LessOrEqual(t, angle, s.ConeAngle+1e-9)
		}
		assert.True(t, p.Valid)
		assert.NotEqual(t, p.In, p.Out)
	}
}

func TestRandomizeInputKeepsTargets(t *testing.T) {
	rng := rand.New(rand.NewPCG(35, 36))
	s := newTestSamples(t, 1, 5, identityLaw())
	s.RandomizeOutputDirections(rng)
	before := append([]DirectionPair(nil), s.Pairs...)
	s.RandomizeInputDirections(rng)
	for i := range s.Pairs {
		assert.Equal(t, before[i].Out, s.Pairs[i].Out)
	}
}

func TestComputeOutputDirections(t *testing.T) {
	law, err := NewDirectionLaw(LawShift, 0.6, DefaultFrame())
	require.NoError(t, err)
	s := newTestSamples(t, 1, 2, law)
	s.Pairs[1].In = r3.Unit(r3.Vec{X: 0.5, Z: math.Sqrt(0.75)})

	skipped := s.ComputeOutputDirections()
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, s.ValidPairs())
	assert.True(t, s.Pairs[0].Valid)
	assertVecInDelta(t, r3.Vec{X: 0.6, Z: 0.8}, s.Pairs[0].Out, 1e-12)
	assert.False(t, s.Pairs[1].Valid)
}

func TestComputeOutputDirectionsRotation(t *testing.T) {
	law, err := NewDirectionLaw(LawRotation, math.Pi/2, DefaultFrame())
	require.NoError(t, err)
	s := newTestSamples(t, 1, 1, law)
	s.Pairs[0].In = r3.Unit(r3.Vec{X: 0.1, Z: 1})
	require.Zero(t, s.ComputeOutputDirections())
	want := r3.Unit(r3.Vec{Y: 0.1, Z: 1})
	assertVecInDelta(t, want, s.Pairs[0].Out, 1e-12)
}

func TestSampleSetReshape(t *testing.T) {
	rng := rand.New(rand.NewPCG(37, 38))
	s := newTestSamples(t, 1, 2, identityLaw())
	s.RandomizeInputDirections(rng)
	first := s.Pairs[0]

	require.NoError(t, s.Reshape(4))
	require.Len(t, s.Pairs, 4)
	assert.Equal(t, first, s.Pairs[0])
	assert.Equal(t, s.axisPair(), s.Pairs[3])

	require.NoError(t, s.Reshape(1))
	assert.Equal(t, []DirectionPair{first}, s.Pairs)
	assert.Error(t, s.Reshape(-1))
}

func TestSetStartPointCount(t *testing.T) {
	rng := rand.New(rand.NewPCG(39, 40))
	s := newTestSamples(t, 2, 1, identityLaw())
	s.RandomizeStartPoints(rng)
	first := s.StartPoints[0]

	require.NoError(t, s.SetStartPointCount(5))
	require.Len(t, s.StartPoints, 5)
	assert.Equal(t, first, s.StartPoints[0])
	assert.Equal(t, r3.Vec{Z: -startPlaneGap}, s.StartPoints[4])

	require.NoError(t, s.SetStartPointCount(0))
	assert.Empty(t, s.StartPoints)
	assert.Error(t, s.SetStartPointCount(-2))
}
