// Package nbody integrates a small set of mutually gravitating bodies in an
// external potential, optionally carrying massless tracers along with them.
package nbody

import (
	"context"
	"fmt"

	"github.com/phil-mansfield/table"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamics"
	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/frame"
	"github.com/san-kum/galdyn/internal/hamiltonian"
	"github.com/san-kum/galdyn/internal/integrators"
	"github.com/san-kum/galdyn/internal/potential"
	"github.com/san-kum/galdyn/internal/units"
)

const minChunk = 64

// DirectNBody sums forces pairwise. Body i sources Potentials[i] centred on
// its own position; a nil entry is a massless body.
type DirectNBody struct {
	W0         *dynamics.PhaseSpacePosition
	Potentials []potential.Potential
	External   potential.Potential
	Frame      frame.Frame
}

// New validates that every component shares one unit system. A nil external
// potential contributes nothing; a nil frame is static.
func New(w0 *dynamics.PhaseSpacePosition, potentials []potential.Potential, external potential.Potential, frm frame.Frame) (*DirectNBody, error) {
	if w0 == nil {
		return nil, fmt.Errorf("%w: nbody needs initial conditions", dynamo.ErrType)
	}
	if len(potentials) != w0.Len() {
		return nil, fmt.Errorf("%w: %d bodies but %d body potentials",
			dynamo.ErrDimensionMismatch, w0.Len(), len(potentials))
	}

	if external == nil {
		usys, ok := bodyUnits(potentials, frm)
		if !ok {
			return nil, fmt.Errorf("%w: cannot infer a unit system without an external potential", dynamo.ErrType)
		}
		external = potential.NewNull(usys)
	}
	usys := external.Units()
	if frm == nil {
		frm = frame.NewStatic(usys)
	}
	if !frm.Units().Equal(usys) {
		return nil, fmt.Errorf("%w: frame units %s differ from external potential units %s",
			dynamo.ErrInconsistent, frm.Units(), usys)
	}
	for i, p := range potentials {
		if p != nil && !p.Units().Equal(usys) {
			return nil, fmt.Errorf("%w: body %d potential uses %s, external potential uses %s",
				dynamo.ErrInconsistent, i, p.Units(), usys)
		}
	}

	pots := make([]potential.Potential, len(potentials))
	copy(pots, potentials)
	return &DirectNBody{W0: w0, Potentials: pots, External: external, Frame: frm}, nil
}

func bodyUnits(potentials []potential.Potential, frm frame.Frame) (units.System, bool) {
	for _, p := range potentials {
		if p != nil {
			return p.Units(), true
		}
	}
	if frm != nil {
		return frm.Units(), true
	}
	return units.System{}, false
}

func (nb *DirectNBody) NBodies() int { return nb.W0.Len() }

// WithBody returns a copy with w prepended as body 0, sourcing pot.
func (nb *DirectNBody) WithBody(w *dynamics.PhaseSpacePosition, pot potential.Potential) (*DirectNBody, error) {
	pots := make([]potential.Potential, 0, w.Len()+len(nb.Potentials))
	for i := 0; i < w.Len(); i++ {
		pots = append(pots, pot)
	}
	pots = append(pots, nb.Potentials...)
	return New(dynamics.Concat(w, nb.W0), pots, nb.External, nb.Frame)
}

// System returns the equations of motion for the bodies followed by
// nTracers massless particles. Tracers feel the bodies but never act on
// them.
func (nb *DirectNBody) System(nTracers int) dynamo.System {
	return &system{nb: nb, n: nb.NBodies() + nTracers}
}

type system struct {
	nb *DirectNBody
	n  int
}

func (s *system) StateDim() int { return 6 * s.n }

func (s *system) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, len(x))
	v := 3 * s.n
	copy(dx[:v], x[v:])

	nb := s.nb
	bodies := make([]r3.Vec, nb.NBodies())
	for j := range bodies {
		bodies[j] = dynamics.PositionAt(x, j)
	}

	dynamo.ParallelFor(s.n, minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			xi := dynamics.PositionAt(x, i)
			vi := dynamics.VelocityAt(x, i, s.n)

			g := nb.External.Gradient(xi, t)
			for j, p := range nb.Potentials {
				if p == nil || j == i {
					continue
				}
				g = r3.Add(g, p.Gradient(r3.Sub(xi, bodies[j]), t))
			}
			a := r3.Add(r3.Scale(-1, g), nb.Frame.Acceleration(xi, vi, t))

			k := v + 3*i
			dx[k], dx[k+1], dx[k+2] = a.X, a.Y, a.Z
		}
	})
	return dx
}

// IntegrateOrbit integrates the bodies alone.
func (nb *DirectNBody) IntegrateOrbit(ctx context.Context, cfg hamiltonian.OrbitConfig) (*dynamics.Orbit, error) {
	integ := cfg.Integrator
	if integ == nil {
		integ = integrators.NewRK4()
	}
	sim := dynamo.New(nb.System(0), integ)

	simCfg := dynamo.DefaultConfig()
	simCfg.Dt = cfg.Dt
	simCfg.NSteps = cfg.NSteps
	simCfg.T0 = cfg.T0

	res, err := sim.Run(ctx, nb.W0.Pack(), simCfg)
	if err != nil {
		return nil, err
	}
	return dynamics.OrbitFromStates(res.Times, res.States)
}

// ReadBodies reads companion initial conditions from a whitespace separated
// table with columns x y z vx vy vz m b, in the base units of usys. Each row
// with m > 0 sources a Plummer sphere of mass m and scale b; other rows are
// massless.
func ReadBodies(path string, usys units.System) (*dynamics.PhaseSpacePosition, []potential.Potential, error) {
	cols, err := table.ReadTable(path, []int{0, 1, 2, 3, 4, 5, 6, 7}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("read bodies %s: %w", path, err)
	}

	xs, ys, zs := cols[0], cols[1], cols[2]
	vxs, vys, vzs := cols[3], cols[4], cols[5]
	ms, bs := cols[6], cols[7]

	n := len(xs)
	w := &dynamics.PhaseSpacePosition{Pos: make([]r3.Vec, n), Vel: make([]r3.Vec, n)}
	pots := make([]potential.Potential, n)
	for i := 0; i < n; i++ {
		w.Pos[i] = r3.Vec{X: xs[i], Y: ys[i], Z: zs[i]}
		w.Vel[i] = r3.Vec{X: vxs[i], Y: vys[i], Z: vzs[i]}
		if ms[i] <= 0 {
			continue
		}
		p, err := potential.NewPlummer(ms[i], bs[i], usys)
		if err != nil {
			return nil, nil, fmt.Errorf("%s row %d: %w", path, i, err)
		}
		pots[i] = p
	}
	return w, pots, nil
}
