package dynamics

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamo"
)

// Orbit is a time series of particle sets, indexed [time][particle].
type Orbit struct {
	T   []float64
	Pos [][]r3.Vec
	Vel [][]r3.Vec
}

// NewOrbit checks that every row has the same particle count and that the
// time axis is strictly monotonic.
func NewOrbit(t []float64, pos, vel [][]r3.Vec) (*Orbit, error) {
	if len(pos) != len(t) || len(vel) != len(t) {
		return nil, fmt.Errorf("%w: %d times, %d position rows, %d velocity rows",
			dynamo.ErrDimensionMismatch, len(t), len(pos), len(vel))
	}
	if len(t) == 0 {
		return &Orbit{}, nil
	}

	n := len(pos[0])
	for i := range t {
		if len(pos[i]) != n || len(vel[i]) != n {
			return nil, fmt.Errorf("%w: row %d has %d/%d particles, want %d",
				dynamo.ErrDimensionMismatch, i, len(pos[i]), len(vel[i]), n)
		}
	}

	if len(t) > 1 {
		sign := t[1] - t[0]
		for i := 1; i < len(t); i++ {
			d := t[i] - t[i-1]
			if d == 0 || (d > 0) != (sign > 0) {
				return nil, fmt.Errorf("%w: time axis is not strictly monotonic at index %d",
					dynamo.ErrDimensionMismatch, i)
			}
		}
	}
	return &Orbit{T: t, Pos: pos, Vel: vel}, nil
}

// OrbitFromStates converts simulator output in the positions-first layout.
func OrbitFromStates(times []float64, states []dynamo.State) (*Orbit, error) {
	pos := make([][]r3.Vec, len(states))
	vel := make([][]r3.Vec, len(states))
	for i, x := range states {
		w, err := Unpack(x)
		if err != nil {
			return nil, err
		}
		pos[i], vel[i] = w.Pos, w.Vel
	}
	return NewOrbit(times, pos, vel)
}

func (o *Orbit) NTimes() int { return len(o.T) }

func (o *Orbit) NOrbits() int {
	if len(o.Pos) == 0 {
		return 0
	}
	return len(o.Pos[0])
}

// At returns every particle at time index i.
func (o *Orbit) At(i int) *PhaseSpacePosition {
	return &PhaseSpacePosition{Pos: o.Pos[i], Vel: o.Vel[i]}
}

func (o *Orbit) Final() *PhaseSpacePosition { return o.At(len(o.T) - 1) }

// Particle returns the single-particle orbit of particle j.
func (o *Orbit) Particle(j int) *Orbit {
	out := &Orbit{
		T:   o.T,
		Pos: make([][]r3.Vec, len(o.T)),
		Vel: make([][]r3.Vec, len(o.T)),
	}
	for i := range o.T {
		out.Pos[i] = []r3.Vec{o.Pos[i][j]}
		out.Vel[i] = []r3.Vec{o.Vel[i][j]}
	}
	return out
}

// Reversed returns the orbit with its time axis in the opposite order.
func (o *Orbit) Reversed() *Orbit {
	n := len(o.T)
	out := &Orbit{T: make([]float64, n), Pos: make([][]r3.Vec, n), Vel: make([][]r3.Vec, n)}
	for i := 0; i < n; i++ {
		out.T[i] = o.T[n-1-i]
		out.Pos[i] = o.Pos[n-1-i]
		out.Vel[i] = o.Vel[n-1-i]
	}
	return out
}

// Energy evaluates fn on every time step of particle j.
func (o *Orbit) Energy(j int, fn func(x, v r3.Vec, t float64) float64) []float64 {
	e := make([]float64, len(o.T))
	for i, t := range o.T {
		e[i] = fn(o.Pos[i][j], o.Vel[i][j], t)
	}
	return e
}
