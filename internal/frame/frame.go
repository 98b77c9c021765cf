// Package frame describes the reference frame orbits are integrated in.
// A non-inertial frame contributes a velocity-dependent correction to the
// acceleration from the potential.
package frame

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/units"
)

type Frame interface {
	Name() string
	Units() units.System
	// Acceleration is the fictitious acceleration at (x, v, t).
	Acceleration(x, v r3.Vec, t float64) r3.Vec
	Equal(other Frame) bool
}

// Static is an inertial frame.
type Static struct {
	usys units.System
}

func NewStatic(usys units.System) *Static { return &Static{usys: usys} }

func (s *Static) Name() string        { return "StaticFrame" }
func (s *Static) Units() units.System { return s.usys }
func (s *Static) String() string      { return fmt.Sprintf("<StaticFrame %s>", s.usys) }

func (s *Static) Acceleration(x, v r3.Vec, t float64) r3.Vec { return r3.Vec{} }

func (s *Static) Equal(other Frame) bool {
	o, ok := other.(*Static)
	return ok && s.usys.Equal(o.usys)
}

// ConstantRotating rotates with fixed angular velocity Omega about the
// origin.
type ConstantRotating struct {
	Omega r3.Vec
	usys  units.System
}

func NewConstantRotating(omega r3.Vec, usys units.System) *ConstantRotating {
	return &ConstantRotating{Omega: omega, usys: usys}
}

// NewConstantRotatingZ builds a frame rotating about +z from a pattern
// speed carrying frequency units, e.g. km/s/kpc.
func NewConstantRotatingZ(omega units.Quantity, usys units.System) (*ConstantRotating, error) {
	w, err := usys.ValueOf(omega, units.DimFrequency)
	if err != nil {
		return nil, fmt.Errorf("rotating frame: %w", err)
	}
	return NewConstantRotating(r3.Vec{Z: w}, usys), nil
}

func (f *ConstantRotating) Name() string        { return "ConstantRotatingFrame" }
func (f *ConstantRotating) Units() units.System { return f.usys }

func (f *ConstantRotating) String() string {
	return fmt.Sprintf("<ConstantRotatingFrame Ω=%v %s>", f.Omega, f.usys)
}

// Acceleration is the Coriolis plus centrifugal term, -2Ω×v - Ω×(Ω×x).
func (f *ConstantRotating) Acceleration(x, v r3.Vec, t float64) r3.Vec {
	coriolis := r3.Scale(-2, r3.Cross(f.Omega, v))
	centrifugal := r3.Scale(-1, r3.Cross(f.Omega, r3.Cross(f.Omega, x)))
	return r3.Add(coriolis, centrifugal)
}

// EffectivePotential is the centrifugal term -½|Ω×x|² that makes the
// Jacobi energy conserved.
func (f *ConstantRotating) EffectivePotential(x r3.Vec) float64 {
	return -0.5 * r3.Norm2(r3.Cross(f.Omega, x))
}

func (f *ConstantRotating) Equal(other Frame) bool {
	o, ok := other.(*ConstantRotating)
	return ok && f.Omega == o.Omega && f.usys.Equal(o.usys)
}
