// Package mockstream generates tidal streams by releasing particles from a
// progenitor along its orbit and integrating them in the external field,
// optionally alongside the progenitor's own potential and companion bodies.
package mockstream

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamics"
	"github.com/san-kum/galdyn/internal/hamiltonian"
	"github.com/san-kum/galdyn/internal/potential"
)

// SampleRequest is the progenitor's instantaneous state at one release
// epoch. Mass is in the base units of the Hamiltonian's unit system.
type SampleRequest struct {
	Hamiltonian         *hamiltonian.Hamiltonian
	Pos, Vel            r3.Vec
	T                   float64
	Step                int
	Mass                float64
	ProgenitorPotential potential.Potential
	N                   int
}

// ReleaseBatch holds the particles sampled at one epoch, lead particles
// first.
type ReleaseBatch struct {
	T      float64
	Step   int
	NLead  int
	NTrail int
	W      *dynamics.PhaseSpacePosition
}

func (b *ReleaseBatch) Len() int { return b.NLead + b.NTrail }

// DistributionFunction draws stream particles around a progenitor. All
// randomness comes from src, so equal sources give equal batches.
type DistributionFunction interface {
	Sample(src rand.Source, req SampleRequest) (*ReleaseBatch, error)
}
