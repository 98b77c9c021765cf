package potential

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/units"
)

// Document is the YAML form of a potential.
type Document struct {
	Class      string             `yaml:"class"`
	Units      UnitsDocument      `yaml:"units,omitempty"`
	Parameters map[string]float64 `yaml:"parameters,omitempty"`
	Components []ComponentDoc     `yaml:"components,omitempty"`
}

type ComponentDoc struct {
	Name      string   `yaml:"name"`
	Potential Document `yaml:"potential"`
}

type UnitsDocument struct {
	Length string `yaml:"length,omitempty"`
	Mass   string `yaml:"mass,omitempty"`
	Time   string `yaml:"time,omitempty"`
}

type constructor func(p map[string]float64, usys units.System) (Potential, error)

var classes = map[string]constructor{
	"KeplerPotential": func(p map[string]float64, usys units.System) (Potential, error) {
		return NewKepler(p["m"], usys)
	},
	"PlummerPotential": func(p map[string]float64, usys units.System) (Potential, error) {
		return NewPlummer(p["m"], p["b"], usys)
	},
	"HernquistPotential": func(p map[string]float64, usys units.System) (Potential, error) {
		return NewHernquist(p["m"], p["c"], usys)
	},
	"NFWPotential": func(p map[string]float64, usys units.System) (Potential, error) {
		return NewNFW(p["m"], p["r_s"], usys)
	},
	"MiyamotoNagaiPotential": func(p map[string]float64, usys units.System) (Potential, error) {
		return NewMiyamotoNagai(p["m"], p["a"], p["b"], usys)
	},
	"NullPotential": func(p map[string]float64, usys units.System) (Potential, error) {
		return NewNull(usys), nil
	},
}

// Classes lists the class names understood by FromDocument.
func Classes() []string {
	names := make([]string, 0, len(classes)+1)
	for name := range classes {
		names = append(names, name)
	}
	names = append(names, "CompositePotential")
	sort.Strings(names)
	return names
}

func UnitsToDocument(usys units.System) UnitsDocument {
	if usys.IsZero() {
		return UnitsDocument{}
	}
	return UnitsDocument{Length: usys.Length.Name, Mass: usys.Mass.Name, Time: usys.Time.Name}
}

func (d UnitsDocument) System() (units.System, error) {
	if d == (UnitsDocument{}) {
		return units.System{}, nil
	}
	var usys units.System
	var err error
	if usys.Length, err = units.Lookup(d.Length); err != nil {
		return units.System{}, err
	}
	if usys.Mass, err = units.Lookup(d.Mass); err != nil {
		return units.System{}, err
	}
	if usys.Time, err = units.Lookup(d.Time); err != nil {
		return units.System{}, err
	}
	return usys, nil
}

// ToDocument converts p into its serialisable form.
func ToDocument(p Potential) (Document, error) {
	if c, ok := p.(*Composite); ok {
		doc := Document{Class: c.Name(), Units: UnitsToDocument(c.Units())}
		for _, comp := range c.components {
			sub, err := ToDocument(comp.Potential)
			if err != nil {
				return Document{}, err
			}
			doc.Components = append(doc.Components, ComponentDoc{Name: comp.Name, Potential: sub})
		}
		return doc, nil
	}
	if _, ok := classes[p.Name()]; !ok {
		return Document{}, fmt.Errorf("%w: cannot serialise potential class %q", dynamo.ErrType, p.Name())
	}
	if _, ok := p.(Offset); ok {
		return Document{}, fmt.Errorf("%w: offset potentials are not serialisable", dynamo.ErrType)
	}
	return Document{Class: p.Name(), Units: UnitsToDocument(p.Units()), Parameters: p.Parameters()}, nil
}

// FromDocument builds the potential described by doc.
func FromDocument(doc Document) (Potential, error) {
	usys, err := doc.Units.System()
	if err != nil {
		return nil, err
	}

	if doc.Class == "CompositePotential" {
		comps := make([]Component, 0, len(doc.Components))
		for _, cd := range doc.Components {
			sub, err := FromDocument(cd.Potential)
			if err != nil {
				return nil, fmt.Errorf("component %q: %w", cd.Name, err)
			}
			comps = append(comps, Component{Name: cd.Name, Potential: sub})
		}
		return NewComposite(comps...)
	}

	fn, ok := classes[doc.Class]
	if !ok {
		return nil, fmt.Errorf("%w: unknown potential class %q (available: %v)", dynamo.ErrType, doc.Class, Classes())
	}
	return fn(doc.Parameters, usys)
}

func Save(w io.Writer, p Potential) error {
	doc, err := ToDocument(p)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func Load(r io.Reader) (Potential, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("potential parse failed: %w", err)
	}
	return FromDocument(doc)
}

func SaveFile(path string, p Potential) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Save(f, p)
}

func LoadFile(path string) (Potential, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
