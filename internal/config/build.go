package config

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamics"
	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/frame"
	"github.com/san-kum/galdyn/internal/hamiltonian"
	"github.com/san-kum/galdyn/internal/mockstream"
	"github.com/san-kum/galdyn/internal/nbody"
	"github.com/san-kum/galdyn/internal/potential"
	"github.com/san-kum/galdyn/internal/units"
)

func (c *Config) UnitSystem() (units.System, error) {
	return potential.UnitsDocument{Length: c.Units.Length, Mass: c.Units.Mass, Time: c.Units.Time}.System()
}

func (c *Config) BuildPotential() (potential.Potential, error) {
	if c.Potential.File != "" {
		return potential.LoadFile(c.Potential.File)
	}
	usys, err := c.UnitSystem()
	if err != nil {
		return nil, err
	}

	if len(c.Potential.Components) == 0 {
		return buildClass(c.Potential.Class, c.Potential.Parameters, usys)
	}
	comps := make([]potential.Component, 0, len(c.Potential.Components))
	for _, cc := range c.Potential.Components {
		p, err := buildClass(cc.Class, cc.Parameters, usys)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", cc.Name, err)
		}
		comps = append(comps, potential.Component{Name: cc.Name, Potential: p})
	}
	return potential.NewComposite(comps...)
}

func buildClass(class string, params map[string]float64, usys units.System) (potential.Potential, error) {
	if vc, ok := params["v_c"]; ok && class == "NFWPotential" {
		return potential.NewNFWFromCircularVelocity(vc, params["r_s"], usys)
	}
	return potential.FromDocument(potential.Document{
		Class:      class,
		Units:      potential.UnitsToDocument(usys),
		Parameters: params,
	})
}

func (c *Config) BuildFrame() (frame.Frame, error) {
	usys, err := c.UnitSystem()
	if err != nil {
		return nil, err
	}
	switch c.Frame.Type {
	case "", "static":
		return frame.NewStatic(usys), nil
	case "rotating":
		return frame.NewConstantRotatingZ(units.Q(c.Frame.PatternSpeed, units.KmPerSPerKpc), usys)
	default:
		return nil, fmt.Errorf("%w: unknown frame type %q", dynamo.ErrType, c.Frame.Type)
	}
}

func (c *Config) BuildHamiltonian() (*hamiltonian.Hamiltonian, error) {
	pot, err := c.BuildPotential()
	if err != nil {
		return nil, err
	}
	frm, err := c.BuildFrame()
	if err != nil {
		return nil, err
	}
	return hamiltonian.New(pot, frm)
}

// BuildProgenitor returns the progenitor's initial conditions, its mass and
// its potential (nil without self-gravity).
func (c *Config) BuildProgenitor() (*dynamics.PhaseSpacePosition, units.Quantity, potential.Potential, error) {
	usys, err := c.UnitSystem()
	if err != nil {
		return nil, units.Quantity{}, nil, err
	}
	p := c.Progenitor
	w0 := dynamics.Single(
		r3.Vec{X: p.Pos[0], Y: p.Pos[1], Z: p.Pos[2]},
		r3.Vec{X: p.Vel[0], Y: p.Vel[1], Z: p.Vel[2]},
	)
	mass := units.Q(p.Mass, usys.Mass)
	if !p.SelfGravity {
		return w0, mass, nil, nil
	}
	pot, err := potential.NewHernquist(p.Mass, p.ScaleRadius, usys)
	if err != nil {
		return nil, units.Quantity{}, nil, err
	}
	return w0, mass, pot, nil
}

// BuildRunConfig converts the stream section. Companion bodies are read
// from BodiesFile into the external field of h.
func (c *Config) BuildRunConfig(h *hamiltonian.Hamiltonian) (mockstream.RunConfig, error) {
	s := c.Stream
	rc := mockstream.RunConfig{
		Dt:                 s.Dt,
		NSteps:             s.NSteps,
		ReleaseEvery:       s.ReleaseEvery,
		NParticles:         s.NParticles,
		NParticlesPerEpoch: s.NParticlesPerEpoch,
		OutputEvery:        s.OutputEvery,
	}
	if s.BodiesFile == "" {
		return rc, nil
	}

	w, pots, err := nbody.ReadBodies(s.BodiesFile, h.Potential.Units())
	if err != nil {
		return rc, err
	}
	nb, err := nbody.New(w, pots, h.Potential, h.Frame)
	if err != nil {
		return rc, err
	}
	rc.NBody = nb
	return rc, nil
}

// BuildGenerator wires the distribution function, Hamiltonian and
// progenitor potential of the run.
func (c *Config) BuildGenerator(log zerolog.Logger) (*mockstream.Generator, error) {
	h, err := c.BuildHamiltonian()
	if err != nil {
		return nil, err
	}
	df, err := mockstream.NewFardalDF(mockstream.WithLead(c.Stream.Lead), mockstream.WithTrail(c.Stream.Trail))
	if err != nil {
		return nil, err
	}

	opts := []mockstream.Option{
		mockstream.WithSeed(c.Seed),
		mockstream.WithIntegrator(c.Integrator),
		mockstream.WithLogger(log),
	}
	_, _, prog, err := c.BuildProgenitor()
	if err != nil {
		return nil, err
	}
	if prog != nil {
		opts = append(opts, mockstream.WithProgenitorPotential(prog))
	}
	return mockstream.NewGenerator(df, h, opts...)
}
