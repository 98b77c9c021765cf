package potential

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/units"
)

// Component is one named term of a Composite.
type Component struct {
	Name      string
	Potential Potential
}

// Composite sums an ordered list of named potentials evaluated at the same
// position and time.
type Composite struct {
	components []Component
	usys       units.System
}

func NewComposite(components ...Component) (*Composite, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: composite potential needs at least one component", dynamo.ErrType)
	}

	seen := make(map[string]bool, len(components))
	usys := components[0].Potential.Units()
	for _, c := range components {
		if c.Potential == nil {
			return nil, fmt.Errorf("%w: component %q has no potential", dynamo.ErrType, c.Name)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: duplicate component name %q", dynamo.ErrType, c.Name)
		}
		seen[c.Name] = true
		if !c.Potential.Units().Equal(usys) {
			return nil, fmt.Errorf("%w: component %q uses %s, expected %s",
				dynamo.ErrInconsistent, c.Name, c.Potential.Units(), usys)
		}
	}

	out := make([]Component, len(components))
	copy(out, components)
	return &Composite{components: out, usys: usys}, nil
}

func (c *Composite) Name() string        { return "CompositePotential" }
func (c *Composite) Units() units.System { return c.usys }
func (c *Composite) String() string      { return describe(c) }

// Parameters is empty; a composite is described by its components.
func (c *Composite) Parameters() map[string]float64 { return map[string]float64{} }

func (c *Composite) Components() []Component {
	out := make([]Component, len(c.components))
	copy(out, c.components)
	return out
}

func (c *Composite) Get(name string) (Potential, bool) {
	for _, comp := range c.components {
		if comp.Name == name {
			return comp.Potential, true
		}
	}
	return nil, false
}

func (c *Composite) Energy(x r3.Vec, t float64) float64 {
	sum := 0.0
	for _, comp := range c.components {
		sum += comp.Potential.Energy(x, t)
	}
	return sum
}

func (c *Composite) Gradient(x r3.Vec, t float64) r3.Vec {
	var sum r3.Vec
	for _, comp := range c.components {
		sum = r3.Add(sum, comp.Potential.Gradient(x, t))
	}
	return sum
}

func (c *Composite) Hessian(x r3.Vec, t float64) *mat.SymDense {
	sum := mat.NewSymDense(3, nil)
	for _, comp := range c.components {
		sum.AddSym(sum, Hessian(comp.Potential, x, t))
	}
	return sum
}

// Offset re-centres a potential on Origin. DirectNBody uses it to place a
// body's own potential at the body's current position.
type Offset struct {
	Potential Potential
	Origin    r3.Vec
}

func (o Offset) Name() string                   { return o.Potential.Name() }
func (o Offset) Units() units.System            { return o.Potential.Units() }
func (o Offset) Parameters() map[string]float64 { return o.Potential.Parameters() }

func (o Offset) Energy(x r3.Vec, t float64) float64 {
	return o.Potential.Energy(r3.Sub(x, o.Origin), t)
}

func (o Offset) Gradient(x r3.Vec, t float64) r3.Vec {
	return o.Potential.Gradient(r3.Sub(x, o.Origin), t)
}

func (o Offset) Hessian(x r3.Vec, t float64) *mat.SymDense {
	return Hessian(o.Potential, r3.Sub(x, o.Origin), t)
}
