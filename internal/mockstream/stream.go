package mockstream

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamics"
)

// Stream is the released particle set at the end of a run, in release
// order.
type Stream struct {
	T           float64
	W           *dynamics.PhaseSpacePosition
	ReleaseTime []float64
	ReleaseStep []int
	Lead        []bool
	// Progenitor is the progenitor's state at T.
	Progenitor *dynamics.PhaseSpacePosition
	// Snapshots holds every particle at each recorded step; rows of
	// particles not yet released are NaN.
	Snapshots *dynamics.Orbit
}

func (s *Stream) Len() int { return s.W.Len() }

// NLead counts leading particles.
func (s *Stream) NLead() int {
	n := 0
	for _, l := range s.Lead {
		if l {
			n++
		}
	}
	return n
}

// pool accumulates released particles in release order.
type pool struct {
	pos, vel []r3.Vec
	step     []int
	time     []float64
	lead     []bool
}

func (p *pool) add(b *ReleaseBatch) {
	for i := 0; i < b.Len(); i++ {
		p.pos = append(p.pos, b.W.Pos[i])
		p.vel = append(p.vel, b.W.Vel[i])
		p.step = append(p.step, b.Step)
		p.time = append(p.time, b.T)
		p.lead = append(p.lead, i < b.NLead)
	}
}

func (p *pool) len() int { return len(p.pos) }

// releasedBy is the number of particles released at or before step.
func (p *pool) releasedBy(step int) int {
	n := 0
	for n < len(p.step) && p.step[n] <= step {
		n++
	}
	return n
}

// snapshotter records stream rows every `every` steps.
type snapshotter struct {
	every int
	total int
	t     []float64
	pos   [][]r3.Vec
	vel   [][]r3.Vec
}

func (s *snapshotter) want(step int, last bool) bool {
	return s != nil && (step%s.every == 0 || last)
}

func (s *snapshotter) record(t float64, pos, vel []r3.Vec) {
	nan := r3.Vec{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
	rowP := make([]r3.Vec, s.total)
	rowV := make([]r3.Vec, s.total)
	for i := range rowP {
		if i < len(pos) {
			rowP[i], rowV[i] = pos[i], vel[i]
		} else {
			rowP[i], rowV[i] = nan, nan
		}
	}
	s.t = append(s.t, t)
	s.pos = append(s.pos, rowP)
	s.vel = append(s.vel, rowV)
}
