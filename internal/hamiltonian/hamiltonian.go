// Package hamiltonian couples a potential with a reference frame into the
// equations of motion for massless tracers.
package hamiltonian

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamics"
	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/frame"
	"github.com/san-kum/galdyn/internal/integrators"
	"github.com/san-kum/galdyn/internal/potential"
)

// minChunk is the smallest particle range handed to a worker goroutine.
const minChunk = 64

type Hamiltonian struct {
	Potential potential.Potential
	Frame     frame.Frame
}

// New pairs pot with frm. A nil frame is a static frame in the potential's
// unit system.
func New(pot potential.Potential, frm frame.Frame) (*Hamiltonian, error) {
	if pot == nil {
		return nil, fmt.Errorf("%w: hamiltonian needs a potential", dynamo.ErrType)
	}
	if frm == nil {
		frm = frame.NewStatic(pot.Units())
	}
	if !frm.Units().Equal(pot.Units()) {
		return nil, fmt.Errorf("%w: frame units %s differ from potential units %s",
			dynamo.ErrInconsistent, frm.Units(), pot.Units())
	}
	return &Hamiltonian{Potential: pot, Frame: frm}, nil
}

func (h *Hamiltonian) String() string {
	return fmt.Sprintf("Hamiltonian(%s, %s)", h.Potential.Name(), h.Frame.Name())
}

// Acceleration is -∇Φ plus the frame correction.
func (h *Hamiltonian) Acceleration(x, v r3.Vec, t float64) r3.Vec {
	a := r3.Scale(-1, h.Potential.Gradient(x, t))
	return r3.Add(a, h.Frame.Acceleration(x, v, t))
}

type effective interface {
	EffectivePotential(x r3.Vec) float64
}

// Energy is the specific energy of one particle. In a rotating frame this
// is the conserved Jacobi energy.
func (h *Hamiltonian) Energy(x, v r3.Vec, t float64) float64 {
	e := 0.5*r3.Norm2(v) + h.Potential.Energy(x, t)
	if eff, ok := h.Frame.(effective); ok {
		e += eff.EffectivePotential(x)
	}
	return e
}

// System returns the equations of motion for n independent particles in the
// positions-first layout.
func (h *Hamiltonian) System(n int) dynamo.System {
	return &system{h: h, n: n}
}

type system struct {
	h *Hamiltonian
	n int
}

func (s *system) StateDim() int { return 6 * s.n }

func (s *system) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, len(x))
	v := 3 * s.n
	copy(dx[:v], x[v:])

	dynamo.ParallelFor(s.n, minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			a := s.h.Acceleration(dynamics.PositionAt(x, i), dynamics.VelocityAt(x, i, s.n), t)
			j := v + 3*i
			dx[j], dx[j+1], dx[j+2] = a.X, a.Y, a.Z
		}
	})
	return dx
}

// Energy sums the specific energy of every particle.
func (s *system) Energy(x dynamo.State, t float64) float64 {
	e := 0.0
	for i := 0; i < s.n; i++ {
		e += s.h.Energy(dynamics.PositionAt(x, i), dynamics.VelocityAt(x, i, s.n), t)
	}
	return e
}

type OrbitConfig struct {
	Dt     float64
	NSteps int
	T0     float64
	// Integrator defaults to RK4.
	Integrator dynamo.Integrator
	Metrics    []dynamo.Metric
	// Adaptive treats Dt as the first trial step and keeps the local
	// error within Tolerance; NSteps then counts accepted steps. MaxDt
	// caps the step size when positive.
	Adaptive  bool
	Tolerance float64
	MaxDt     float64
}

// IntegrateOrbit integrates every particle of w0 for NSteps steps of Dt.
// A negative Dt runs backwards in time; the returned orbit keeps the
// integration order.
func (h *Hamiltonian) IntegrateOrbit(ctx context.Context, w0 *dynamics.PhaseSpacePosition, cfg OrbitConfig) (*dynamics.Orbit, *dynamo.Result, error) {
	if w0 == nil || w0.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: no initial conditions", dynamo.ErrType)
	}
	integ := cfg.Integrator
	if integ == nil {
		integ = integrators.NewRK4()
	}

	sim := dynamo.New(h.System(w0.Len()), integ)
	for _, m := range cfg.Metrics {
		sim.AddMetric(m)
	}

	simCfg := dynamo.DefaultConfig()
	simCfg.Dt = cfg.Dt
	simCfg.NSteps = cfg.NSteps
	simCfg.T0 = cfg.T0
	if cfg.Adaptive {
		simCfg.Adaptive = true
		simCfg.MaxDt = cfg.MaxDt
		if cfg.Tolerance > 0 {
			simCfg.Tolerance = cfg.Tolerance
		}
	}

	res, err := sim.Run(ctx, w0.Pack(), simCfg)
	if err != nil {
		return nil, nil, err
	}
	orbit, err := dynamics.OrbitFromStates(res.Times, res.States)
	if err != nil {
		return nil, nil, err
	}
	return orbit, res, nil
}
