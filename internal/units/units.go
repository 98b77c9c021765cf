// Package units carries just enough unit bookkeeping to keep physical
// inputs honest: a quantity knows its dimension and SI scale, and a unit
// system converts quantities into the plain floats the integrators use.
package units

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/galdyn/internal/dynamo"
)

var (
	// ErrNotQuantity is returned when a bare number is passed where a
	// unit-bearing quantity is required.
	ErrNotQuantity = fmt.Errorf("%w: value carries no physical unit", dynamo.ErrType)

	// ErrIncompatible is returned when a quantity has the wrong dimension.
	ErrIncompatible = fmt.Errorf("%w: incompatible unit dimension", dynamo.ErrType)
)

// Dimension holds the exponents of length, mass and time.
type Dimension struct {
	Length int8 `yaml:"length"`
	Mass   int8 `yaml:"mass"`
	Time   int8 `yaml:"time"`
}

var (
	DimLength       = Dimension{Length: 1}
	DimMass         = Dimension{Mass: 1}
	DimTime         = Dimension{Time: 1}
	DimVelocity     = Dimension{Length: 1, Time: -1}
	DimFrequency    = Dimension{Time: -1}
	DimAcceleration = Dimension{Length: 1, Time: -2}
)

func (d Dimension) String() string {
	return fmt.Sprintf("L^%d M^%d T^%d", d.Length, d.Mass, d.Time)
}

// Unit is a named scale of a dimension, expressed in SI.
type Unit struct {
	Name string
	Dim  Dimension
	SI   float64
}

const (
	metersPerKpc = 3.0856775814913673e19
	kgPerMsun    = 1.988409870698051e30
	secondsPerYr = 365.25 * 86400.0

	gravitySI = 6.6743e-11
)

var (
	Dimensionless = Unit{Name: "", SI: 1}

	M   = Unit{Name: "m", Dim: DimLength, SI: 1}
	Km  = Unit{Name: "km", Dim: DimLength, SI: 1e3}
	Pc  = Unit{Name: "pc", Dim: DimLength, SI: metersPerKpc / 1e3}
	Kpc = Unit{Name: "kpc", Dim: DimLength, SI: metersPerKpc}

	Kg   = Unit{Name: "kg", Dim: DimMass, SI: 1}
	Msun = Unit{Name: "Msun", Dim: DimMass, SI: kgPerMsun}

	S   = Unit{Name: "s", Dim: DimTime, SI: 1}
	Yr  = Unit{Name: "yr", Dim: DimTime, SI: secondsPerYr}
	Myr = Unit{Name: "Myr", Dim: DimTime, SI: secondsPerYr * 1e6}
	Gyr = Unit{Name: "Gyr", Dim: DimTime, SI: secondsPerYr * 1e9}

	KmPerS    = Unit{Name: "km/s", Dim: DimVelocity, SI: 1e3}
	KpcPerMyr = Unit{Name: "kpc/Myr", Dim: DimVelocity, SI: metersPerKpc / (secondsPerYr * 1e6)}

	KmPerSPerKpc = Unit{Name: "km/s/kpc", Dim: DimFrequency, SI: 1e3 / metersPerKpc}
	PerMyr       = Unit{Name: "1/Myr", Dim: DimFrequency, SI: 1 / (secondsPerYr * 1e6)}
)

var known = map[string]Unit{}

func init() {
	for _, u := range []Unit{M, Km, Pc, Kpc, Kg, Msun, S, Yr, Myr, Gyr, KmPerS, KpcPerMyr, KmPerSPerKpc, PerMyr} {
		known[u.Name] = u
	}
}

// Lookup returns a predefined unit by name.
func Lookup(name string) (Unit, error) {
	u, ok := known[name]
	if !ok {
		return Unit{}, fmt.Errorf("%w: unknown unit %q", dynamo.ErrType, name)
	}
	return u, nil
}

func (u Unit) IsDimensionless() bool { return u.Dim == Dimension{} }

func (u Unit) String() string { return u.Name }

// Quantity is a value tagged with a unit.
type Quantity struct {
	Value float64
	Unit  Unit
}

func Q(v float64, u Unit) Quantity { return Quantity{Value: v, Unit: u} }

// Bare wraps a plain number. It is rejected anywhere a physical quantity is
// expected.
func Bare(v float64) Quantity { return Quantity{Value: v, Unit: Dimensionless} }

func (q Quantity) IsDimensionless() bool { return q.Unit.IsDimensionless() }

// In converts q to unit u.
func (q Quantity) In(u Unit) (float64, error) {
	if q.Unit.Dim != u.Dim {
		return 0, fmt.Errorf("%w: cannot convert %s to %s", ErrIncompatible, q.Unit.Dim, u.Dim)
	}
	return q.Value * q.Unit.SI / u.SI, nil
}

func (q Quantity) String() string {
	if q.Unit.Name == "" {
		return fmt.Sprintf("%g", q.Value)
	}
	return fmt.Sprintf("%g %s", q.Value, q.Unit.Name)
}

// System fixes the base units of length, mass and time that every float in
// a potential, frame or orbit is expressed in.
type System struct {
	Length Unit
	Mass   Unit
	Time   Unit
}

// Galactic is kpc, Msun, Myr.
var Galactic = System{Length: Kpc, Mass: Msun, Time: Myr}

func (s System) IsZero() bool { return s == System{} }

func (s System) Equal(o System) bool {
	if s.IsZero() || o.IsZero() {
		return s.IsZero() == o.IsZero()
	}
	return s.Length.SI == o.Length.SI && s.Mass.SI == o.Mass.SI && s.Time.SI == o.Time.SI
}

func (s System) scale(d Dimension) float64 {
	return math.Pow(s.Length.SI, float64(d.Length)) *
		math.Pow(s.Mass.SI, float64(d.Mass)) *
		math.Pow(s.Time.SI, float64(d.Time))
}

// Decompose returns q in the base units of s.
func (s System) Decompose(q Quantity) float64 {
	return q.Value * q.Unit.SI / s.scale(q.Unit.Dim)
}

// ValueOf checks that q is a physical quantity of dimension want and returns
// it in the base units of s.
func (s System) ValueOf(q Quantity, want Dimension) (float64, error) {
	if q.IsDimensionless() {
		return 0, fmt.Errorf("%w: got %s, want %s", ErrNotQuantity, q, want)
	}
	if q.Unit.Dim != want {
		return 0, fmt.Errorf("%w: got %s, want %s", ErrIncompatible, q.Unit.Dim, want)
	}
	return s.Decompose(q), nil
}

// G is the gravitational constant in the base units of s. A dimensionless
// system uses G = 1.
func (s System) G() float64 {
	if s.IsZero() {
		return 1
	}
	return gravitySI / s.scale(Dimension{Length: 3, Mass: -1, Time: -2})
}

func (s System) String() string {
	if s.IsZero() {
		return "dimensionless"
	}
	return fmt.Sprintf("[%s, %s, %s]", s.Length, s.Mass, s.Time)
}

// IsNotQuantity reports whether err marks a missing unit.
func IsNotQuantity(err error) bool { return errors.Is(err, ErrNotQuantity) }
