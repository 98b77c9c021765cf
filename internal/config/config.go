// Package config reads stream run files (YAML or TOML) and turns them into
// the potential, frame and generator they describe.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/integrators"
)

const (
	DefaultDt           = -1.0
	DefaultNSteps       = 100
	DefaultReleaseEvery = 1
	DefaultNParticles   = 1
	DefaultIntegrator   = "rk45"
	DefaultSeed         = 1
)

type Config struct {
	Name       string           `yaml:"name" toml:"name"`
	Units      UnitsConfig      `yaml:"units" toml:"units"`
	Potential  PotentialConfig  `yaml:"potential" toml:"potential"`
	Frame      FrameConfig      `yaml:"frame" toml:"frame"`
	Progenitor ProgenitorConfig `yaml:"progenitor" toml:"progenitor"`
	Stream     StreamConfig     `yaml:"stream" toml:"stream"`
	Integrator string           `yaml:"integrator" toml:"integrator"`
	Seed       uint64           `yaml:"seed" toml:"seed"`
}

type UnitsConfig struct {
	Length string `yaml:"length" toml:"length"`
	Mass   string `yaml:"mass" toml:"mass"`
	Time   string `yaml:"time" toml:"time"`
}

// PotentialConfig names a potential class with its parameters, a list of
// components, or a saved potential file. NFWPotential also accepts v_c in
// place of m.
type PotentialConfig struct {
	File       string             `yaml:"file,omitempty" toml:"file"`
	Class      string             `yaml:"class,omitempty" toml:"class"`
	Parameters map[string]float64 `yaml:"parameters,omitempty" toml:"parameters"`
	Components []ComponentConfig  `yaml:"components,omitempty" toml:"components"`
}

type ComponentConfig struct {
	Name       string             `yaml:"name" toml:"name"`
	Class      string             `yaml:"class" toml:"class"`
	Parameters map[string]float64 `yaml:"parameters" toml:"parameters"`
}

// FrameConfig selects a static frame or one rotating about z with
// PatternSpeed in km/s/kpc.
type FrameConfig struct {
	Type         string  `yaml:"type" toml:"type"`
	PatternSpeed float64 `yaml:"pattern_speed,omitempty" toml:"pattern_speed"`
}

// ProgenitorConfig is in the run's unit system. With SelfGravity the
// progenitor sources a Hernquist sphere of scale ScaleRadius.
type ProgenitorConfig struct {
	Pos         [3]float64 `yaml:"pos" toml:"pos"`
	Vel         [3]float64 `yaml:"vel" toml:"vel"`
	Mass        float64    `yaml:"mass" toml:"mass"`
	SelfGravity bool       `yaml:"self_gravity" toml:"self_gravity"`
	ScaleRadius float64    `yaml:"scale_radius,omitempty" toml:"scale_radius"`
}

type StreamConfig struct {
	Dt                 float64 `yaml:"dt" toml:"dt"`
	NSteps             int     `yaml:"n_steps" toml:"n_steps"`
	ReleaseEvery       int     `yaml:"release_every" toml:"release_every"`
	NParticles         int     `yaml:"n_particles" toml:"n_particles"`
	NParticlesPerEpoch []int   `yaml:"n_particles_per_epoch,omitempty" toml:"n_particles_per_epoch"`
	OutputEvery        int     `yaml:"output_every,omitempty" toml:"output_every"`
	Lead               bool    `yaml:"lead" toml:"lead"`
	Trail              bool    `yaml:"trail" toml:"trail"`
	BodiesFile         string  `yaml:"bodies_file,omitempty" toml:"bodies_file"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:  "stream",
		Units: UnitsConfig{Length: "kpc", Mass: "Msun", Time: "Myr"},
		Frame: FrameConfig{Type: "static"},
		Stream: StreamConfig{
			Dt:           DefaultDt,
			NSteps:       DefaultNSteps,
			ReleaseEvery: DefaultReleaseEvery,
			NParticles:   DefaultNParticles,
			Lead:         true,
			Trail:        true,
		},
		Integrator: DefaultIntegrator,
		Seed:       DefaultSeed,
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a run file over the defaults and validates it. Files ending in
// .toml are TOML, anything else YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if isTOML(path) {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	s := c.Stream
	if s.Dt == 0 {
		return fmt.Errorf("%w: stream.dt must be non-zero", dynamo.ErrParameterBounds)
	}
	if s.NSteps < 0 {
		return fmt.Errorf("%w: stream.n_steps must be non-negative", dynamo.ErrParameterBounds)
	}
	if s.ReleaseEvery < 1 {
		return fmt.Errorf("%w: stream.release_every must be at least 1", dynamo.ErrParameterBounds)
	}
	if s.NParticles < 0 {
		return fmt.Errorf("%w: stream.n_particles must be non-negative", dynamo.ErrParameterBounds)
	}
	if s.OutputEvery < 0 {
		return fmt.Errorf("%w: stream.output_every must be non-negative", dynamo.ErrParameterBounds)
	}
	if !s.Lead && !s.Trail {
		return fmt.Errorf("%w: stream needs lead or trail particles", dynamo.ErrType)
	}
	if c.Progenitor.Mass <= 0 {
		return fmt.Errorf("%w: progenitor.mass must be positive", dynamo.ErrParameterBounds)
	}
	if c.Progenitor.SelfGravity && c.Progenitor.ScaleRadius <= 0 {
		return fmt.Errorf("%w: progenitor.scale_radius must be positive with self_gravity", dynamo.ErrParameterBounds)
	}
	if _, err := integrators.New(c.Integrator); err != nil {
		return err
	}
	switch c.Frame.Type {
	case "static", "rotating":
	default:
		return fmt.Errorf("%w: unknown frame type %q", dynamo.ErrType, c.Frame.Type)
	}
	p := c.Potential
	if p.File == "" && p.Class == "" && len(p.Components) == 0 {
		return fmt.Errorf("%w: potential needs a file, a class or components", dynamo.ErrType)
	}
	return nil
}

// Clone returns a copy that shares no slices or maps with c.
func (c *Config) Clone() *Config {
	out := *c
	out.Potential.Parameters = cloneMap(c.Potential.Parameters)
	out.Potential.Components = make([]ComponentConfig, len(c.Potential.Components))
	for i, comp := range c.Potential.Components {
		comp.Parameters = cloneMap(comp.Parameters)
		out.Potential.Components[i] = comp
	}
	if c.Stream.NParticlesPerEpoch != nil {
		out.Stream.NParticlesPerEpoch = append([]int(nil), c.Stream.NParticlesPerEpoch...)
	}
	return &out
}

func cloneMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
