package mockstream

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/san-kum/galdyn/internal/dynamics"
	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/frame"
	"github.com/san-kum/galdyn/internal/hamiltonian"
	"github.com/san-kum/galdyn/internal/integrators"
	"github.com/san-kum/galdyn/internal/nbody"
	"github.com/san-kum/galdyn/internal/potential"
	"github.com/san-kum/galdyn/internal/units"
)

const DefaultIntegrator = "rk45"

// Generator releases stream particles from a progenitor orbiting in the
// external field of a Hamiltonian. It holds configuration only and may be
// shared by concurrent runs.
type Generator struct {
	df         DistributionFunction
	h          *hamiltonian.Hamiltonian
	progPot    potential.Potential
	integrator string
	seed       uint64
	log        zerolog.Logger
}

type Option func(*Generator) error

// WithProgenitorPotential makes the progenitor source pot around itself
// while the stream is integrated.
func WithProgenitorPotential(pot potential.Potential) Option {
	return func(g *Generator) error {
		if pot == nil {
			return fmt.Errorf("%w: progenitor potential is nil", dynamo.ErrType)
		}
		g.progPot = pot
		return nil
	}
}

func WithSeed(seed uint64) Option {
	return func(g *Generator) error {
		g.seed = seed
		return nil
	}
}

// WithIntegrator selects the stepper by registry name.
func WithIntegrator(name string) Option {
	return func(g *Generator) error {
		if _, err := integrators.New(name); err != nil {
			return err
		}
		g.integrator = name
		return nil
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(g *Generator) error {
		g.log = log
		return nil
	}
}

func NewGenerator(df DistributionFunction, h *hamiltonian.Hamiltonian, opts ...Option) (*Generator, error) {
	if df == nil {
		return nil, fmt.Errorf("%w: generator needs a distribution function", dynamo.ErrType)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: generator needs a hamiltonian", dynamo.ErrType)
	}

	g := &Generator{
		df:         df,
		h:          h,
		integrator: DefaultIntegrator,
		seed:       1,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	if g.progPot != nil && !g.progPot.Units().Equal(h.Potential.Units()) {
		return nil, fmt.Errorf("%w: progenitor potential uses %s, hamiltonian uses %s",
			dynamo.ErrInconsistent, g.progPot.Units(), h.Potential.Units())
	}
	return g, nil
}

func (g *Generator) Hamiltonian() *hamiltonian.Hamiltonian { return g.h }
func (g *Generator) Seed() uint64                          { return g.seed }

// RunConfig describes one generation run. A negative Dt means the initial
// conditions are the progenitor's final state.
type RunConfig struct {
	Dt           float64
	NSteps       int
	ReleaseEvery int
	// NParticles is released on each side at every epoch unless
	// NParticlesPerEpoch is set, which must hold one count per epoch.
	NParticles         int
	NParticlesPerEpoch []int
	// NBody adds companion bodies integrated with the progenitor.
	NBody       *nbody.DirectNBody
	OutputEvery int
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		Dt:           1,
		NSteps:       100,
		ReleaseEvery: 1,
		NParticles:   1,
	}
}

func (c RunConfig) validate() error {
	if c.Dt == 0 || math.IsNaN(c.Dt) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be finite and non-zero, got %g", dynamo.ErrParameterBounds, c.Dt)
	}
	if c.NSteps < 0 {
		return fmt.Errorf("%w: n_steps must be non-negative, got %d", dynamo.ErrParameterBounds, c.NSteps)
	}
	if c.ReleaseEvery < 1 {
		return fmt.Errorf("%w: release_every must be at least 1, got %d", dynamo.ErrParameterBounds, c.ReleaseEvery)
	}
	if c.NParticles < 0 {
		return fmt.Errorf("%w: n_particles must be non-negative, got %d", dynamo.ErrParameterBounds, c.NParticles)
	}
	if c.OutputEvery < 0 {
		return fmt.Errorf("%w: output_every must be non-negative, got %d", dynamo.ErrParameterBounds, c.OutputEvery)
	}
	return nil
}

// Run generates a stream from the progenitor at w0. It returns the stream at
// the end of the run and, when cfg.NBody is set, the trajectory of every
// body with the progenitor as body 0.
func (g *Generator) Run(ctx context.Context, w0 *dynamics.PhaseSpacePosition, mass units.Quantity, cfg RunConfig) (*Stream, *dynamics.Orbit, error) {
	usys := g.h.Potential.Units()
	if usys.IsZero() {
		return nil, nil, fmt.Errorf("%w: stream generation needs a physical unit system", dynamo.ErrType)
	}
	m, err := usys.ValueOf(mass, units.DimMass)
	if err != nil {
		return nil, nil, fmt.Errorf("progenitor mass: %w", err)
	}
	if w0 == nil || w0.Len() != 1 {
		return nil, nil, fmt.Errorf("%w: progenitor must be a single phase-space position", dynamo.ErrType)
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	var nb *nbody.DirectNBody
	if cfg.NBody != nil {
		nb, err = g.nbodyFor(w0, cfg.NBody)
	} else {
		nb, err = nbody.New(w0, []potential.Potential{g.progPot}, g.h.Potential, g.h.Frame)
	}
	if err != nil {
		return nil, nil, err
	}

	steps := ReleaseSteps(cfg.NSteps, cfg.ReleaseEvery)
	counts, err := epochCounts(cfg, len(steps))
	if err != nil {
		return nil, nil, err
	}

	integ, err := integrators.New(g.integrator)
	if err != nil {
		return nil, nil, err
	}

	bodies, err := nb.IntegrateOrbit(ctx, hamiltonian.OrbitConfig{Dt: cfg.Dt, NSteps: cfg.NSteps, Integrator: integ})
	if err != nil {
		return nil, nil, fmt.Errorf("progenitor orbit: %w", err)
	}
	if cfg.Dt < 0 {
		bodies = bodies.Reversed()
	}
	g.log.Debug().
		Int("n_steps", cfg.NSteps).
		Float64("t_start", bodies.T[0]).
		Float64("t_end", bodies.T[cfg.NSteps]).
		Int("bodies", nb.NBodies()).
		Msg("progenitor orbit integrated")

	p, err := g.release(bodies, steps, counts, m)
	if err != nil {
		return nil, nil, err
	}
	g.log.Debug().Int("epochs", len(steps)).Int("particles", p.len()).Msg("particles released")

	stream, err := g.integrateStream(ctx, nb, integ, bodies, p, math.Abs(cfg.Dt), cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.NBody == nil {
		return stream, nil, nil
	}
	return stream, bodies, nil
}

// nbodyFor checks that a companion set lives in the generator's force field
// and frame, then adds the progenitor as body 0.
// A companion set without a frame is taken to be in a static frame.
func (g *Generator) nbodyFor(w0 *dynamics.PhaseSpacePosition, nb *nbody.DirectNBody) (*nbody.DirectNBody, error) {
	if nb.W0 == nil {
		return nil, fmt.Errorf("%w: companion set has no bodies", dynamo.ErrType)
	}
	if nb.External == nil {
		return nil, fmt.Errorf("%w: companion set has no external potential, hamiltonian has %s",
			dynamo.ErrInconsistent, g.h.Potential.Name())
	}
	if !potential.Equal(nb.External, g.h.Potential) {
		return nil, fmt.Errorf("%w: companion external potential %s differs from hamiltonian potential %s",
			dynamo.ErrInconsistent, nb.External.Name(), g.h.Potential.Name())
	}

	frm := nb.Frame
	if frm == nil {
		frm = frame.NewStatic(g.h.Potential.Units())
	}
	if !sameFrame(frm, g.h.Frame) {
		return nil, fmt.Errorf("%w: companion frame %s differs from hamiltonian frame %s",
			dynamo.ErrInconsistent, frm.Name(), g.h.Frame.Name())
	}

	companions := *nb
	companions.Frame = frm
	return companions.WithBody(w0, g.progPot)
}

func sameFrame(a, b frame.Frame) bool {
	return a.Equal(b) && b.Equal(a)
}

// release samples every epoch in increasing step order.
func (g *Generator) release(bodies *dynamics.Orbit, steps, counts []int, m float64) (*pool, error) {
	src := rand.NewSource(g.seed)
	p := &pool{}
	for k, step := range steps {
		batch, err := g.df.Sample(src, SampleRequest{
			Hamiltonian:         g.h,
			Pos:                 bodies.Pos[step][0],
			Vel:                 bodies.Vel[step][0],
			T:                   bodies.T[step],
			Step:                step,
			Mass:                m,
			ProgenitorPotential: g.progPot,
			N:                   counts[k],
		})
		if err != nil {
			return nil, fmt.Errorf("release at step %d: %w", step, err)
		}
		p.add(batch)
	}
	return p, nil
}

// integrateStream advances bodies and released particles together. Between
// release epochs the active set is fixed, so each span is one simulator run;
// particles join at the start of the span that begins at their release step.
func (g *Generator) integrateStream(ctx context.Context, nb *nbody.DirectNBody, integ dynamo.Integrator,
	bodies *dynamics.Orbit, p *pool, dt float64, cfg RunConfig) (*Stream, error) {
	n := cfg.NSteps
	var snaps *snapshotter
	if cfg.OutputEvery > 0 {
		snaps = &snapshotter{every: cfg.OutputEvery, total: p.len()}
	}

	nBodies := nb.NBodies()
	state := bodies.At(0).Clone()
	t := bodies.T[0]
	step := 0
	active := 0

	for {
		released := p.releasedBy(step)
		if released > active {
			state = dynamics.Concat(state, &dynamics.PhaseSpacePosition{
				Pos: p.pos[active:released],
				Vel: p.vel[active:released],
			})
			active = released
		}

		if step == n {
			if snaps.want(step, true) {
				snaps.record(t, state.Pos[nBodies:], state.Vel[nBodies:])
			}
			break
		}

		end := n
		if active < p.len() && p.step[active] < end {
			end = p.step[active]
		}

		sim := dynamo.New(nb.System(active), integ)
		simCfg := dynamo.DefaultConfig()
		simCfg.Dt = dt
		simCfg.NSteps = end - step
		simCfg.T0 = t

		res, err := sim.Run(ctx, state.Pack(), simCfg)
		if err != nil {
			return nil, fmt.Errorf("stream span %d-%d: %w", step, end, err)
		}

		if snaps != nil {
			for j := 0; j < len(res.States)-1; j++ {
				if !snaps.want(step+j, false) {
					continue
				}
				w, err := dynamics.Unpack(res.States[j])
				if err != nil {
					return nil, err
				}
				snaps.record(res.Times[j], w.Pos[nBodies:], w.Vel[nBodies:])
			}
		}

		state, err = dynamics.Unpack(res.States[len(res.States)-1])
		if err != nil {
			return nil, err
		}
		t = res.Times[len(res.Times)-1]
		g.log.Debug().Int("from", step).Int("to", end).Int("active", active).Msg("stream span integrated")
		step = end
	}

	stream := &Stream{
		T:           t,
		W:           &dynamics.PhaseSpacePosition{Pos: state.Pos[nBodies:], Vel: state.Vel[nBodies:]},
		ReleaseTime: p.time,
		ReleaseStep: p.step,
		Lead:        p.lead,
		Progenitor:  state.At(0),
	}
	if snaps != nil {
		orbit, err := dynamics.NewOrbit(snaps.t, snaps.pos, snaps.vel)
		if err != nil {
			return nil, err
		}
		stream.Snapshots = orbit
	}
	return stream, nil
}
