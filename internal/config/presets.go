package config

import "sort"

func nfwHalo() PotentialConfig {
	return PotentialConfig{
		Class:      "NFWPotential",
		Parameters: map[string]float64{"v_c": 0.2, "r_s": 20},
	}
}

func cluster() ProgenitorConfig {
	return ProgenitorConfig{
		Pos:         [3]float64{15, 0, 0},
		Vel:         [3]float64{0, 0, 0.13},
		Mass:        2.5e4,
		ScaleRadius: 0.004,
	}
}

func preset(name string, edit func(c *Config)) *Config {
	c := DefaultConfig()
	c.Name = name
	c.Potential = nfwHalo()
	c.Progenitor = cluster()
	edit(c)
	return c
}

var Presets = map[string]*Config{
	"nfw-basic": preset("nfw-basic", func(c *Config) {}),
	"nfw-sparse": preset("nfw-sparse", func(c *Config) {
		c.Stream.ReleaseEvery = 4
		c.Stream.NParticles = 4
	}),
	"nfw-selfgravity": preset("nfw-selfgravity", func(c *Config) {
		c.Progenitor.SelfGravity = true
	}),
	"mw-rotating": preset("mw-rotating", func(c *Config) {
		c.Potential = PotentialConfig{Components: []ComponentConfig{
			{Name: "disk", Class: "MiyamotoNagaiPotential", Parameters: map[string]float64{"m": 6.8e10, "a": 3, "b": 0.28}},
			{Name: "bulge", Class: "HernquistPotential", Parameters: map[string]float64{"m": 5e9, "c": 1}},
			{Name: "halo", Class: "NFWPotential", Parameters: map[string]float64{"m": 5.4e11, "r_s": 15.62}},
		}}
		c.Frame = FrameConfig{Type: "rotating", PatternSpeed: 40}
		c.Stream.NSteps = 500
		c.Stream.ReleaseEvery = 5
		c.Stream.OutputEvery = 50
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
