package phaseopt

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrEvanescent means no real-valued propagation direction exists.
var ErrEvanescent = errors.New("evanescent direction")

type LawKind uint8

const (
	LawIdentity  LawKind = iota // output = input
	LawRotation                 // rotate about the frame axis by Param radians
	LawShift                    // add Param to the U direction cosine
	LawTelescope                // scale both transverse direction cosines by Param
)

var lawNames = [...]string{"identity", "rotation", "shift", "telescope"}

func (k LawKind) String() string {
	if int(k) < len(lawNames) {
		return lawNames[k]
	}
	return fmt.Sprintf("LawKind(%d)", uint8(k))
}

func ParseLawKind(s string) (LawKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return LawIdentity, nil
	}
	for i, n := range lawNames {
		if n == name {
			return LawKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction law %q (want one of %s)", s, strings.Join(lawNames[:], ", "))
}

// DirectionLaw maps an incident unit direction to the desired outgoing one.
// It is a pure function of its single scalar parameter and the frame.
type DirectionLaw struct {
	Kind  LawKind
	Param Real
	Frame Frame
}

func NewDirectionLaw(kind LawKind, param Real, frame Frame) (DirectionLaw, error) {
	if int(kind) >= len(lawNames) {
		return DirectionLaw{}, fmt.Errorf("invalid direction law kind %d", kind)
	}
	if !isFinite(param) {
		return DirectionLaw{}, fmt.Errorf("direction law %s: parameter must be finite, got %v", kind, param)
	}
	return DirectionLaw{Kind: kind, Param: param, Frame: frame}, nil
}

// Refract applies the law to d. Shift and telescope fail with ErrEvanescent
// when the implied axial direction cosine would be imaginary; the axial
// component otherwise keeps the sign it had on input.
func (l DirectionLaw) Refract(d r3.Vec) (r3.Vec, error) {
	switch l.Kind {
	case LawIdentity:
		return d, nil
	case LawRotation:
		return r3.NewRotation(l.Param, l.Frame.Axis).Rotate(d), nil
	case LawShift:
		cu, cv, ca := l.Frame.Cosines(d)
		return l.transverse(cu+l.Param, cv, ca)
	case LawTelescope:
		cu, cv, ca := l.Frame.Cosines(d)
		return l.transverse(l.Param*cu, l.Param*cv, ca)
	}
	return r3.Vec{}, fmt.Errorf("invalid direction law kind %d", l.Kind)
}

func (l DirectionLaw) transverse(cu, cv, caIn Real) (r3.Vec, error) {
	ca2 := 1 - cu*cu - cv*cv
	if ca2 < 0 {
		return r3.Vec{}, fmt.Errorf("%w: %s law gives transverse cosines (%.6g, %.6g)", ErrEvanescent, l.Kind, cu, cv)
	}
	return l.Frame.Direction(cu, cv, sign(caIn)*math.Sqrt(ca2)), nil
}
