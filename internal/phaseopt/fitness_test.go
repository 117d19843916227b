package phaseopt

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestMeanAlignmentIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(41, 42))
	s := newTestSamples(t, 8, 8, identityLaw())
	s.RandomizeStartPoints(rng)
	s.RandomizeInputDirections(rng)
	require.Zero(t, s.ComputeOutputDirections())

	stack := SurfaceStack{Frame: DefaultFrame(), Params: newTestParams(t, 3, 3), Transmission: 1}
	got, err := MeanAlignment(stack, s, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)
}

func TestMeanAlignmentSingleAxialRay(t *testing.T) {
	s := newTestSamples(t, 1, 1, identityLaw())
	stack := SurfaceStack{Frame: DefaultFrame(), Params: newTestParams(t, 1, 1), Transmission: 1}
	got, err := MeanAlignment(stack, s, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestMeanAlignmentBounded(t *testing.T) {
	rng := rand.New(rand.NewPCG(43, 44))
	s := newTestSamples(t, 6, 6, identityLaw())
	s.RandomizeStartPoints(rng)
	s.RandomizeInputDirections(rng)
	s.RandomizeOutputDirections(rng)

	for i := 0; i < 20; i++ {
		p := newTestParams(t, 3, 3)
		p.CoefficientScale = 1
		p.RandomizeAll(rng)
		got, err := MeanAlignment(SurfaceStack{Frame: DefaultFrame(), Params: p, Transmission: 1}, s, uint64(i))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, -1.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestMeanAlignmentAllMissed(t *testing.T) {
	s := newTestSamples(t, 4, 3, identityLaw())
	side, err := NewFrame(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1})
	require.NoError(t, err)
	stack := SurfaceStack{Frame: side, Params: newTestParams(t, 2, 1), Transmission: 1}
	got, err := MeanAlignment(stack, s, 0)
	require.NoError(t, err)
	assert.Equal(t, -1.0, got)
}

func TestMeanAlignmentSkipsInvalidPairs(t *testing.T) {
	s := newTestSamples(t, 2, 2, identityLaw())
	// the second pair would score -1 if it were counted
	s.Pairs[1] = DirectionPair{In: r3.Vec{Z: 1}, Out: r3.Vec{Z: -1}, Valid: false}
	stack := SurfaceStack{Frame: DefaultFrame(), Params: newTestParams(t, 1, 1), Transmission: 1}
	got, err := MeanAlignment(stack, s, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestMeanAlignmentErrors(t *testing.T) {
	stack := SurfaceStack{Frame: DefaultFrame(), Params: newTestParams(t, 1, 1), Transmission: 1}

	s := newTestSamples(t, 1, 2, identityLaw())
	for i := range s.Pairs {
		s.Pairs[i].Valid = false
	}
	_, err := MeanAlignment(stack, s, 0)
	assert.ErrorIs(t, err, ErrNoDirectionPairs)

	s = newTestSamples(t, 1, 1, identityLaw())
	require.NoError(t, s.SetStartPointCount(0))
	_, err = MeanAlignment(stack, s, 0)
	assert.ErrorIs(t, err, ErrNoStartPoints)
}

func TestMeanAlignmentDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(45, 46))
	s := newTestSamples(t, 5, 7, identityLaw())
	s.RandomizeStartPoints(rng)
	s.RandomizeInputDirections(rng)
	s.RandomizeOutputDirections(rng)
	p := newTestParams(t, 2, 2)
	p.RandomizeAll(rng)
	stack := SurfaceStack{
		Frame:        DefaultFrame(),
		Params:       p,
		Transmission: 1,
		Blur:         Blur{Enabled: true, Lambda: 0.005, Aperture: 1},
	}
	seq := stack.Sequence()

	a, err := meanAlignment(seq, s, 7, 1)
	require.NoError(t, err)
	b, err := meanAlignment(seq, s, 7, 8)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := meanAlignment(seq, s, 8, 4)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, Workers(), 1)
}
