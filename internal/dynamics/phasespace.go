// Package dynamics holds the phase-space containers shared by the orbit
// integrators and the stream generator.
package dynamics

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamo"
)

// PhaseSpacePosition is a set of particles at one instant.
type PhaseSpacePosition struct {
	Pos []r3.Vec
	Vel []r3.Vec
}

func NewPhaseSpacePosition(pos, vel []r3.Vec) (*PhaseSpacePosition, error) {
	if len(pos) != len(vel) {
		return nil, fmt.Errorf("%w: %d positions, %d velocities", dynamo.ErrDimensionMismatch, len(pos), len(vel))
	}
	return &PhaseSpacePosition{Pos: pos, Vel: vel}, nil
}

// Single is a one-particle PhaseSpacePosition.
func Single(pos, vel r3.Vec) *PhaseSpacePosition {
	return &PhaseSpacePosition{Pos: []r3.Vec{pos}, Vel: []r3.Vec{vel}}
}

func (w *PhaseSpacePosition) Len() int { return len(w.Pos) }

// At returns particle i as its own PhaseSpacePosition.
func (w *PhaseSpacePosition) At(i int) *PhaseSpacePosition {
	return Single(w.Pos[i], w.Vel[i])
}

func (w *PhaseSpacePosition) Speed(i int) float64 { return r3.Norm(w.Vel[i]) }

// AngularMomentum is x × v of particle i.
func (w *PhaseSpacePosition) AngularMomentum(i int) r3.Vec {
	return r3.Cross(w.Pos[i], w.Vel[i])
}

func (w *PhaseSpacePosition) Clone() *PhaseSpacePosition {
	out := &PhaseSpacePosition{Pos: make([]r3.Vec, len(w.Pos)), Vel: make([]r3.Vec, len(w.Vel))}
	copy(out.Pos, w.Pos)
	copy(out.Vel, w.Vel)
	return out
}

// Concat joins particle sets in order.
func Concat(ws ...*PhaseSpacePosition) *PhaseSpacePosition {
	n := 0
	for _, w := range ws {
		n += w.Len()
	}
	out := &PhaseSpacePosition{Pos: make([]r3.Vec, 0, n), Vel: make([]r3.Vec, 0, n)}
	for _, w := range ws {
		out.Pos = append(out.Pos, w.Pos...)
		out.Vel = append(out.Vel, w.Vel...)
	}
	return out
}

// Pack flattens w into the positions-first state layout:
// x0 y0 z0 x1 ... then vx0 vy0 vz0 vx1 ...
func (w *PhaseSpacePosition) Pack() dynamo.State {
	n := w.Len()
	x := make(dynamo.State, 6*n)
	PackInto(x, w.Pos, w.Vel, 0, n)
	return x
}

// PackInto writes particles into x at slots [offset, offset+len(pos)) of a
// state holding total particles.
func PackInto(x dynamo.State, pos, vel []r3.Vec, offset, total int) {
	v := 3 * total
	for i := range pos {
		j := 3 * (offset + i)
		x[j], x[j+1], x[j+2] = pos[i].X, pos[i].Y, pos[i].Z
		x[v+j], x[v+j+1], x[v+j+2] = vel[i].X, vel[i].Y, vel[i].Z
	}
}

// Unpack is the inverse of Pack.
func Unpack(x dynamo.State) (*PhaseSpacePosition, error) {
	if len(x)%6 != 0 {
		return nil, fmt.Errorf("%w: state length %d is not a multiple of 6", dynamo.ErrDimensionMismatch, len(x))
	}
	n := len(x) / 6
	w := &PhaseSpacePosition{Pos: make([]r3.Vec, n), Vel: make([]r3.Vec, n)}
	for i := 0; i < n; i++ {
		w.Pos[i] = PositionAt(x, i)
		w.Vel[i] = VelocityAt(x, i, n)
	}
	return w, nil
}

// PositionAt reads particle i's position from a positions-first state.
func PositionAt(x dynamo.State, i int) r3.Vec {
	return r3.Vec{X: x[3*i], Y: x[3*i+1], Z: x[3*i+2]}
}

// VelocityAt reads particle i's velocity from a positions-first state of n
// particles.
func VelocityAt(x dynamo.State, i, n int) r3.Vec {
	j := 3*n + 3*i
	return r3.Vec{X: x[j], Y: x[j+1], Z: x[j+2]}
}
