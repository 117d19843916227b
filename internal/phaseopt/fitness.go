package phaseopt

import (
	"errors"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoDirectionPairs = errors.New("no direction pair with a defined target")
	ErrNoStartPoints    = errors.New("no start points")
)

// SurfaceStack is a parameter set placed in space.
type SurfaceStack struct {
	Frame        Frame
	Params       *SurfaceParams
	Transmission Real
	Blur         Blur
}

// Sequence materializes the stack as a fresh list of phase plates.
func (st SurfaceStack) Sequence() []TransmissiveSurface {
	return st.Params.BuildTransmissionSequence(st.Frame, st.Transmission, st.Blur)
}

// Workers is the default evaluation parallelism: one core is left free.
func Workers() int {
	return imax(runtime.NumCPU()-1, 1)
}

// MeanAlignment scores stack on samples: the mean, over every direction pair
// with a target, of the mean cosine between simulated and desired output
// directions over all start points. Rays that cannot be transmitted count as
// -1. The result lies in [-1, 1].
func MeanAlignment(stack SurfaceStack, samples *RaySampleSet, seed uint64) (Real, error) {
	return meanAlignment(stack.Sequence(), samples, seed, Workers())
}

// meanAlignment runs one task per direction pair, at most workers at a time.
// Tasks only read seq and samples and write their own slot; every task has
// finished before the slots are aggregated.
func meanAlignment(seq []TransmissiveSurface, samples *RaySampleSet, seed uint64, workers int) (Real, error) {
	if len(samples.StartPoints) == 0 {
		return 0, ErrNoStartPoints
	}
	valid := make([]int, 0, len(samples.Pairs))
	for i, p := range samples.Pairs {
		if p.Valid {
			valid = append(valid, i)
		}
	}
	if len(valid) == 0 {
		return 0, ErrNoDirectionPairs
	}

	slots := make([]Real, len(valid))
	var g errgroup.Group
	g.SetLimit(imax(workers, 1))
	for slot, pi := range valid {
		g.Go(func() error {
			// independent RNG per task, reproducible for a given seed
			rng := rand.New(rand.NewPCG(seed, uint64(pi)))
			slots[slot] = pairAlignment(seq, samples.StartPoints, samples.Pairs[pi], rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return stat.Mean(slots, nil), nil
}

// pairAlignment is the mean alignment of one direction pair over all start points.
func pairAlignment(seq []TransmissiveSurface, starts []r3.Vec, pair DirectionPair, rng *rand.Rand) Real {
	sum := 0.0
	for _, p := range starts {
		sum += rayAlignment(seq, NewRay(p, pair.In), pair.Out, rng)
	}
	return sum / Real(len(starts))
}

func rayAlignment(seq []TransmissiveSurface, in Ray, want r3.Vec, rng *rand.Rand) Real {
	out, err := Transmit(in, seq, rng)
	if err != nil {
		return -1
	}
	c := r3.Dot(out.Dir, want)
	if !isFinite(c) {
		return -1
	}
	return math.Max(-1, math.Min(1, c))
}
