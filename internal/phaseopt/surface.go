package phaseopt

import (
	"fmt"
	"math/rand/v2"
)

// Surface is one phase plate of the stack: its phase-profile coefficients and
// its axial distance from the previous surface.
type Surface struct {
	Coeffs             *Triangle
	Spacing            Real
	SpacingOptimizable bool
}

// SurfaceParams is the optimizable description of a stack of N ≥ 1 surfaces
// sharing one polynomial order. Spacing of surface 0 is ignored: surface 0
// sits at the stack origin.
type SurfaceParams struct {
	Order    int
	Surfaces []Surface

	// ranges used by RandomizeAll and Neighbor
	CoefficientScale       Real
	SpacingMin, SpacingMax Real
}

// NewSurfaceParams returns n zero surfaces of the given order, spaced by
// DefaultSpacing, with the default optimizability masks.
func NewSurfaceParams(n, order int) (*SurfaceParams, error) {
	if n < 1 {
		return nil, fmt.Errorf("surface count must be ≥ 1, got %d", n)
	}
	p := &SurfaceParams{
		Order:            order,
		Surfaces:         make([]Surface, n),
		CoefficientScale: CoefficientScale,
		SpacingMin:       SpacingMin,
		SpacingMax:       SpacingMax,
	}
	for i := range p.Surfaces {
		c, err := NewTriangle(order)
		if err != nil {
			return nil, err
		}
		p.Surfaces[i] = Surface{Coeffs: c, Spacing: DefaultSpacing, SpacingOptimizable: i > 0}
	}
	p.Surfaces[0].Spacing = 0
	DebugLog("Created surface params: N=%d, P=%d", n, order)
	return p, nil
}

func (p *SurfaceParams) N() int { return len(p.Surfaces) }

// Offset returns the cumulative axial position of surface i.
func (p *SurfaceParams) Offset(i int) Real {
	z := 0.0
	for j := 1; j <= i; j++ {
		z += p.Surfaces[j].Spacing
	}
	return z
}

// Clone is a deep copy.
func (p *SurfaceParams) Clone() *SurfaceParams {
	c := *p
	c.Surfaces = make([]Surface, len(p.Surfaces))
	for i, s := range p.Surfaces {
		c.Surfaces[i] = Surface{Coeffs: s.Coeffs.Clone(), Spacing: s.Spacing, SpacingOptimizable: s.SpacingOptimizable}
	}
	return &c
}

// Equal compares dimensions, coefficients, spacings and all masks.
func (p *SurfaceParams) Equal(o *SurfaceParams) bool {
	if p.Order != o.Order || len(p.Surfaces) != len(o.Surfaces) {
		return false
	}
	for i := range p.Surfaces {
		a, b := p.Surfaces[i], o.Surfaces[i]
		if a.Spacing != b.Spacing || a.SpacingOptimizable != b.SpacingOptimizable || !a.Coeffs.Equal(b.Coeffs) {
			return false
		}
	}
	return true
}

// Freeze clears every optimizability flag.
func (p *SurfaceParams) Freeze() {
	for i := range p.Surfaces {
		p.Surfaces[i].SpacingOptimizable = false
		p.Surfaces[i].Coeffs.SetAllOptimizable(false)
	}
}

func (p *SurfaceParams) randomSpacing(rng *rand.Rand) Real {
	return p.SpacingMin + rng.Float64()*(p.SpacingMax-p.SpacingMin)
}

// randomCoefficient is biased toward small magnitudes: scale·u³, u ∈ [-1,1].
func (p *SurfaceParams) randomCoefficient(rng *rand.Rand) Real {
	u := 2*rng.Float64() - 1
	return p.CoefficientScale * u * u * u
}

// spacingEligible reports whether spacing i may be changed; spacing 0 never is.
func (p *SurfaceParams) spacingEligible(i int) bool {
	return i > 0 && p.Surfaces[i].SpacingOptimizable
}

// coefficientEligible excludes constant terms, they do not bend rays.
func (p *SurfaceParams) coefficientEligible(i, n, m int) bool {
	return n > 0 && p.Surfaces[i].Coeffs.Optimizable(n, m)
}

// RandomizeAll redraws every optimizable spacing and coefficient.
func (p *SurfaceParams) RandomizeAll(rng *rand.Rand) {
	for i := range p.Surfaces {
		s := &p.Surfaces[i]
		if p.spacingEligible(i) {
			s.Spacing = p.randomSpacing(rng)
		}
		s.Coeffs.Each(func(n, m int) {
			if s.Coeffs.Optimizable(n, m) {
				s.Coeffs.Set(n, m, p.randomCoefficient(rng))
			}
		})
	}
	DebugLog("Randomized surface params: N=%d, P=%d", p.N(), p.Order)
}

// Reshape rebuilds the stack as newN surfaces of order newP. Entries valid in
// both shapes are copied with their flags; new coefficients are zero and
// optimizable unless of degree 0, new spacings are DefaultSpacing and
// optimizable unless at index 0.
func (p *SurfaceParams) Reshape(newN, newP int) error {
	if newN < 1 {
		return fmt.Errorf("surface count must be ≥ 1, got %d", newN)
	}
	surfaces := make([]Surface, newN)
	for i := range surfaces {
		c, err := NewTriangle(newP)
		if err != nil {
			return err
		}
		s := Surface{Coeffs: c, Spacing: DefaultSpacing, SpacingOptimizable: i > 0}
		if i < len(p.Surfaces) {
			old := p.Surfaces[i]
			s.Spacing, s.SpacingOptimizable = old.Spacing, old.SpacingOptimizable
			top := min(newP, p.Order)
			for n := 0; n <= top; n++ {
				for m := 0; m <= n; m++ {
					c.Set(n, m, old.Coeffs.At(n, m))
					c.SetOptimizable(n, m, old.Coeffs.Optimizable(n, m))
				}
			}
		}
		if i == 0 {
			s.Spacing = 0
		}
		surfaces[i] = s
	}
	DebugLog("Reshaped surface params: N=%d->%d, P=%d->%d", p.N(), newN, p.Order, newP)
	p.Surfaces, p.Order = surfaces, newP
	return nil
}

// neighborChanges draws how many scalars a neighbor differs in:
// one (60%), two (30%) or three to seven (10%).
func neighborChanges(rng *rand.Rand) int {
	u := rng.Float64()
	switch {
	case u < 0.6:
		return 1
	case u < 0.9:
		return 2
	}
	return 3 + rng.IntN(5)
}

// Neighbor returns a deep copy in which a few randomly picked optimizable
// scalars were redrawn. Each change hits a spacing with probability 10% (when
// there is more than one surface) and a non-constant coefficient otherwise;
// random picks are retried until an eligible target comes up. A category
// without any eligible target falls back to the other one, and a model with
// nothing to change is returned as an unchanged copy.
func (p *SurfaceParams) Neighbor(rng *rand.Rand) *SurfaceParams {
	q := p.Clone()
	spacings, coeffs := q.eligibleCounts()
	if spacings == 0 && coeffs == 0 {
		DebugLogOnce("Neighbor: no optimizable parameter, returning unchanged copy")
		return q
	}
	for k := neighborChanges(rng); k > 0; k-- {
		pickSpacing := q.N() > 1 && rng.Float64() < 0.1
		if pickSpacing && spacings == 0 {
			pickSpacing = false
		} else if !pickSpacing && coeffs == 0 {
			pickSpacing = true
		}
		if pickSpacing {
			for {
				i := 1 + rng.IntN(q.N()-1)
				if q.spacingEligible(i) {
					q.Surfaces[i].Spacing = q.randomSpacing(rng)
					break
				}
			}
			continue
		}
		size := triangleSize(q.Order)
		for {
			i := rng.IntN(q.N())
			n, m := q.Surfaces[i].Coeffs.term(rng.IntN(size))
			if q.coefficientEligible(i, n, m) {
				q.Surfaces[i].Coeffs.Set(n, m, q.randomCoefficient(rng))
				break
			}
		}
	}
	return q
}

func (p *SurfaceParams) eligibleCounts() (spacings, coeffs int) {
	for i := range p.Surfaces {
		if p.spacingEligible(i) {
			spacings++
		}
		p.Surfaces[i].Coeffs.Each(func(n, m int) {
			if p.coefficientEligible(i, n, m) {
				coeffs++
			}
		})
	}
	return
}

// BuildTransmissionSequence places every surface along the frame axis at its
// cumulative offset and turns it into a phase plate. Coefficient tables are
// copied, so the sequence stays valid while p keeps changing.
func (p *SurfaceParams) BuildTransmissionSequence(frame Frame, transmission Real, blur Blur) []TransmissiveSurface {
	seq := make([]TransmissiveSurface, 0, p.N())
	z := 0.0
	for i, s := range p.Surfaces {
		if i > 0 {
			z += s.Spacing
		}
		seq = append(seq, &PhasePlane{
			Name:         fmt.Sprintf("surface#%d", i),
			Frame:        frame.Shifted(z),
			Coeffs:       s.Coeffs.Clone(),
			Transmission: transmission,
			Blur:         blur,
		})
	}
	return seq
}
