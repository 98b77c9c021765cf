package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/frame"
	"github.com/san-kum/galdyn/internal/potential"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Stream.Dt != -1 {
		t.Errorf("expected dt -1, got %f", cfg.Stream.Dt)
	}
	if cfg.Stream.NSteps != DefaultNSteps {
		t.Errorf("expected %d steps, got %d", DefaultNSteps, cfg.Stream.NSteps)
	}
	if !cfg.Stream.Lead || !cfg.Stream.Trail {
		t.Error("both tails should be on by default")
	}
	if cfg.Integrator != "rk45" {
		t.Errorf("expected rk45, got %s", cfg.Integrator)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("nfw-sparse")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Stream.ReleaseEvery != 4 || cfg.Stream.NParticles != 4 {
		t.Errorf("unexpected sparse schedule %+v", cfg.Stream)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestGetPreset_Copy(t *testing.T) {
	a := GetPreset("nfw-basic")
	a.Potential.Parameters["v_c"] = 99
	a.Stream.NSteps = 1

	b := GetPreset("nfw-basic")
	if b.Potential.Parameters["v_c"] != 0.2 || b.Stream.NSteps != DefaultNSteps {
		t.Error("preset was modified through a returned copy")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	if len(presets) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(presets))
	}
	for i := 1; i < len(presets); i++ {
		if presets[i-1] > presets[i] {
			t.Errorf("presets not sorted: %v", presets)
		}
	}
	for _, name := range presets {
		if err := Presets[name].Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		edit func(c *Config)
		want error
	}{
		{"zero dt", func(c *Config) { c.Stream.Dt = 0 }, dynamo.ErrParameterBounds},
		{"negative steps", func(c *Config) { c.Stream.NSteps = -1 }, dynamo.ErrParameterBounds},
		{"release every zero", func(c *Config) { c.Stream.ReleaseEvery = 0 }, dynamo.ErrParameterBounds},
		{"negative particles", func(c *Config) { c.Stream.NParticles = -2 }, dynamo.ErrParameterBounds},
		{"no tails", func(c *Config) { c.Stream.Lead, c.Stream.Trail = false, false }, dynamo.ErrType},
		{"massless", func(c *Config) { c.Progenitor.Mass = 0 }, dynamo.ErrParameterBounds},
		{"self gravity without scale", func(c *Config) {
			c.Progenitor.SelfGravity = true
			c.Progenitor.ScaleRadius = 0
		}, dynamo.ErrParameterBounds},
		{"bad frame", func(c *Config) { c.Frame.Type = "tumbling" }, dynamo.ErrType},
		{"no potential", func(c *Config) { c.Potential = PotentialConfig{} }, dynamo.ErrType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := GetPreset("nfw-basic")
			tc.edit(cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	cfg := GetPreset("nfw-basic")
	cfg.Integrator = "simpson"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown integrator")
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"run.yaml", "run.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			want := GetPreset("mw-rotating")
			if err := Save(path, want); err != nil {
				t.Fatal(err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatal(err)
			}
			if got.Name != want.Name || got.Frame != want.Frame || got.Stream.OutputEvery != want.Stream.OutputEvery {
				t.Errorf("round trip mismatch: %+v", got)
			}
			if len(got.Potential.Components) != 3 || got.Potential.Components[2].Parameters["r_s"] != 15.62 {
				t.Errorf("components lost: %+v", got.Potential.Components)
			}
		})
	}
}

func TestLoad_PartialTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.toml")
	doc := `
name = "partial"

[potential]
class = "KeplerPotential"
parameters = { m = 1e11 }

[progenitor]
pos = [10.0, 0.0, 0.0]
vel = [0.0, 0.2, 0.0]
mass = 1e4

[stream]
n_steps = 20
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Stream.NSteps != 20 {
		t.Errorf("expected 20 steps, got %d", cfg.Stream.NSteps)
	}
	if cfg.Stream.Dt != DefaultDt || !cfg.Stream.Trail {
		t.Error("defaults should survive a partial file")
	}
}

func TestBuildPotential(t *testing.T) {
	pot, err := GetPreset("nfw-basic").BuildPotential()
	if err != nil {
		t.Fatal(err)
	}
	if pot.Name() != "NFWPotential" {
		t.Errorf("expected NFWPotential, got %s", pot.Name())
	}

	pot, err = GetPreset("mw-rotating").BuildPotential()
	if err != nil {
		t.Fatal(err)
	}
	comp, ok := pot.(*potential.Composite)
	if !ok {
		t.Fatalf("expected composite, got %T", pot)
	}
	if _, ok := comp.Get("disk"); !ok {
		t.Error("missing disk component")
	}
}

func TestBuildPotential_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pot.yaml")
	src, err := GetPreset("nfw-basic").BuildPotential()
	if err != nil {
		t.Fatal(err)
	}
	if err := potential.SaveFile(path, src); err != nil {
		t.Fatal(err)
	}

	cfg := GetPreset("nfw-basic")
	cfg.Potential = PotentialConfig{File: path}
	pot, err := cfg.BuildPotential()
	if err != nil {
		t.Fatal(err)
	}
	if !potential.Equal(src, pot) {
		t.Error("loaded potential differs from saved one")
	}
}

func TestBuildFrame(t *testing.T) {
	frm, err := GetPreset("mw-rotating").BuildFrame()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := frm.(*frame.ConstantRotating); !ok {
		t.Errorf("expected rotating frame, got %T", frm)
	}

	frm, err = GetPreset("nfw-basic").BuildFrame()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := frm.(*frame.Static); !ok {
		t.Errorf("expected static frame, got %T", frm)
	}
}

func TestBuildProgenitor(t *testing.T) {
	w0, mass, pot, err := GetPreset("nfw-basic").BuildProgenitor()
	if err != nil {
		t.Fatal(err)
	}
	if w0.Len() != 1 || w0.Pos[0].X != 15 || w0.Vel[0].Z != 0.13 {
		t.Errorf("unexpected progenitor %+v", w0)
	}
	if mass.Value != 2.5e4 || mass.Unit.Name != "Msun" {
		t.Errorf("unexpected mass %v", mass)
	}
	if pot != nil {
		t.Error("expected no progenitor potential without self-gravity")
	}

	_, _, pot, err = GetPreset("nfw-selfgravity").BuildProgenitor()
	if err != nil {
		t.Fatal(err)
	}
	if pot == nil || pot.Name() != "HernquistPotential" {
		t.Errorf("expected Hernquist progenitor, got %v", pot)
	}
}

func TestBuildRunConfig_Bodies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bodies.txt")
	rows := "20 0 0 0 0.15 0 1e8 0.5\n-20 0 0 0 -0.15 0 0 0\n"
	if err := os.WriteFile(path, []byte(rows), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := GetPreset("nfw-basic")
	cfg.Stream.BodiesFile = path
	h, err := cfg.BuildHamiltonian()
	if err != nil {
		t.Fatal(err)
	}
	rc, err := cfg.BuildRunConfig(h)
	if err != nil {
		t.Fatal(err)
	}
	if rc.NBody == nil || rc.NBody.NBodies() != 2 {
		t.Fatalf("expected two companion bodies, got %+v", rc.NBody)
	}
	if rc.NSteps != cfg.Stream.NSteps || rc.Dt != cfg.Stream.Dt {
		t.Errorf("run config mismatch: %+v", rc)
	}
}

func TestBuildGenerator(t *testing.T) {
	cfg := GetPreset("nfw-selfgravity")
	cfg.Seed = 7
	gen, err := cfg.BuildGenerator(zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if gen.Seed() != 7 {
		t.Errorf("expected seed 7, got %d", gen.Seed())
	}
	if gen.Hamiltonian().Potential.Name() != "NFWPotential" {
		t.Errorf("unexpected external potential %s", gen.Hamiltonian().Potential.Name())
	}
}
