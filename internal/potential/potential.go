// Package potential implements gravitational force fields: analytic
// potentials, composites of named components and helpers built on top of
// the gradient (enclosed mass, circular velocity, numerical curvature).
//
// Every potential is an immutable parameter set tied to a unit system; all
// positions, times and returned values are plain floats in that system.
package potential

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/units"
)

// Potential is the force-field capability consumed by the integrators.
type Potential interface {
	Name() string
	Units() units.System
	Parameters() map[string]float64
	Energy(x r3.Vec, t float64) float64
	Gradient(x r3.Vec, t float64) r3.Vec
}

// Hessianer is implemented by potentials with an analytic second derivative.
type Hessianer interface {
	Hessian(x r3.Vec, t float64) *mat.SymDense
}

// Hessian returns the matrix of second derivatives of p at x. Potentials
// without an analytic form are differentiated numerically.
func Hessian(p Potential, x r3.Vec, t float64) *mat.SymDense {
	if h, ok := p.(Hessianer); ok {
		return h.Hessian(x, t)
	}
	return numericHessian(p, x, t)
}

func numericHessian(p Potential, x r3.Vec, t float64) *mat.SymDense {
	step := 1e-5 * math.Max(r3.Norm(x), 1e-3)
	axes := [3]r3.Vec{{X: step}, {Y: step}, {Z: step}}

	var cols [3]r3.Vec
	for j, dx := range axes {
		gp := p.Gradient(r3.Add(x, dx), t)
		gm := p.Gradient(r3.Sub(x, dx), t)
		cols[j] = r3.Scale(1/(2*step), r3.Sub(gp, gm))
	}

	h := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			h.SetSym(i, j, 0.5*(component(cols[j], i)+component(cols[i], j)))
		}
	}
	return h
}

func component(v r3.Vec, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// RadialForce is dΦ/dr along the direction of x.
func RadialForce(p Potential, x r3.Vec, t float64) float64 {
	r := r3.Norm(x)
	if r == 0 {
		return 0
	}
	return r3.Dot(p.Gradient(x, t), x) / r
}

// MassEnclosed estimates the mass inside |x| from the radial gradient,
// M(<r) = r² dΦ/dr / G. Exact for spherical potentials.
func MassEnclosed(p Potential, x r3.Vec, t float64) float64 {
	r := r3.Norm(x)
	return r * r * RadialForce(p, x, t) / p.Units().G()
}

// CircularVelocity is sqrt(r dΦ/dr).
func CircularVelocity(p Potential, x r3.Vec, t float64) float64 {
	v2 := r3.Norm(x) * RadialForce(p, x, t)
	if v2 <= 0 {
		return 0
	}
	return math.Sqrt(v2)
}

// Acceleration is -∇Φ.
func Acceleration(p Potential, x r3.Vec, t float64) r3.Vec {
	return r3.Scale(-1, p.Gradient(x, t))
}

// sphericalHessian assembles the Hessian of Φ(r) from its first and second
// radial derivatives.
func sphericalHessian(x r3.Vec, d1, d2 float64) *mat.SymDense {
	h := mat.NewSymDense(3, nil)
	r := r3.Norm(x)
	if r == 0 {
		return h
	}
	n := [3]float64{x.X / r, x.Y / r, x.Z / r}
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			v := (d2 - d1/r) * n[i] * n[j]
			if i == j {
				v += d1 / r
			}
			h.SetSym(i, j, v)
		}
	}
	return h
}

func requirePositive(name string, params map[string]float64, keys ...string) error {
	for _, k := range keys {
		v, ok := params[k]
		if !ok {
			return fmt.Errorf("%w: %s requires parameter %q", dynamo.ErrType, name, k)
		}
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s parameter %q must be positive, got %g", dynamo.ErrParameterBounds, name, k, v)
		}
	}
	return nil
}

func describe(p Potential) string {
	return fmt.Sprintf("<%s: %v (%s)>", p.Name(), p.Parameters(), p.Units())
}
