package phaseopt

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// MaxOrder bounds the polynomial order so the hot-loop power tables fit on the stack.
const MaxOrder = 15

// Triangle holds one coefficient and one optimizable flag for every monomial
// x^m y^(n-m) with 0 ≤ m ≤ n ≤ Order. Entries are stored degree by degree,
// (n, m) at n(n+1)/2 + m. The order is fixed at construction.
type Triangle struct {
	order int
	vals  []Real
	opt   []bool
}

func triangleSize(order int) int { return (order + 1) * (order + 2) / 2 }

// NewTriangle returns a zero table. Every coefficient except the constant
// term starts optimizable.
func NewTriangle(order int) (*Triangle, error) {
	if order < 0 || order > MaxOrder {
		return nil, fmt.Errorf("polynomial order must be in [0, %d], got %d", MaxOrder, order)
	}
	n := triangleSize(order)
	t := &Triangle{order: order, vals: make([]Real, n), opt: make([]bool, n)}
	for i := range t.opt {
		deg, _ := t.term(i)
		t.opt[i] = deg > 0
	}
	return t, nil
}

func (t *Triangle) Order() int { return t.order }
func (t *Triangle) Len() int   { return len(t.vals) }

func (t *Triangle) index(n, m int) int {
	if n < 0 || n > t.order || m < 0 || m > n {
		panic(fmt.Sprintf("coefficient (%d,%d) out of range for order %d", n, m, t.order))
	}
	return n*(n+1)/2 + m
}

// term is the inverse of index.
func (t *Triangle) term(i int) (n, m int) {
	for n = 0; (n+1)*(n+2)/2 <= i; n++ {
	}
	return n, i - n*(n+1)/2
}

func (t *Triangle) At(n, m int) Real          { return t.vals[t.index(n, m)] }
func (t *Triangle) Set(n, m int, v Real)      { t.vals[t.index(n, m)] = v }
func (t *Triangle) Optimizable(n, m int) bool { return t.opt[t.index(n, m)] }
func (t *Triangle) SetOptimizable(n, m int, on bool) {
	t.opt[t.index(n, m)] = on
}

// SetAllOptimizable sets every flag, the constant term included.
func (t *Triangle) SetAllOptimizable(on bool) {
	for i := range t.opt {
		t.opt[i] = on
	}
}

// Each calls fn for every (n, m) in storage order.
func (t *Triangle) Each(fn func(n, m int)) {
	for n := 0; n <= t.order; n++ {
		for m := 0; m <= n; m++ {
			fn(n, m)
		}
	}
}

func (t *Triangle) Clone() *Triangle {
	c := &Triangle{order: t.order, vals: make([]Real, len(t.vals)), opt: make([]bool, len(t.opt))}
	copy(c.vals, t.vals)
	copy(c.opt, t.opt)
	return c
}

// Equal compares order, values and flags.
func (t *Triangle) Equal(o *Triangle) bool {
	if t.order != o.order {
		return false
	}
	if !floats.Equal(t.vals, o.vals) {
		return false
	}
	for i := range t.opt {
		if t.opt[i] != o.opt[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether every coefficient is zero.
func (t *Triangle) IsZero() bool {
	for _, v := range t.vals {
		if v != 0 {
			return false
		}
	}
	return true
}

func powers(v Real, order int, out *[MaxOrder + 1]Real) {
	out[0] = 1
	for k := 1; k <= order; k++ {
		out[k] = out[k-1] * v
	}
}

// Phase evaluates Σ c[n][m] x^m y^(n-m).
func (t *Triangle) Phase(x, y Real) Real {
	var px, py [MaxOrder + 1]Real
	powers(x, t.order, &px)
	powers(y, t.order, &py)
	sum := 0.0
	i := 0
	for n := 0; n <= t.order; n++ {
		for m := 0; m <= n; m++ {
			sum += t.vals[i] * px[m] * py[n-m]
			i++
		}
	}
	return sum
}

// Gradient returns (∂φ/∂x, ∂φ/∂y) of the phase profile at (x, y).
func (t *Triangle) Gradient(x, y Real) (gx, gy Real) {
	var px, py [MaxOrder + 1]Real
	powers(x, t.order, &px)
	powers(y, t.order, &py)
	i := 0
	for n := 0; n <= t.order; n++ {
		for m := 0; m <= n; m++ {
			c := t.vals[i]
			i++
			if c == 0 {
				continue
			}
			if m > 0 {
				gx += c * Real(m) * px[m-1] * py[n-m]
			}
			if n-m > 0 {
				gy += c * Real(n-m) * px[m] * py[n-m-1]
			}
		}
	}
	return gx, gy
}
