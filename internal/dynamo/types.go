package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is the right-hand side of dX/dt = f(X, t). States use the
// positions-first layout: the first half holds every coordinate, the
// second half the matching velocities.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Energetic is implemented by systems with a conserved energy.
type Energetic interface {
	Energy(x State, t float64) float64
}

type Integrator interface {
	Step(sys System, x State, t float64, dt float64) State
}

// AdaptiveIntegrator takes one error-controlled step of at most dt and
// reports the step taken and the suggested next step.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, t, dt, tol float64) (x1 State, taken, next float64, err error)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(step int, x State, t float64)
}

// Config controls a run of NSteps steps. Dt may be negative to integrate
// backwards in time. With Adaptive, Dt is only the first trial step and
// each later step is chosen to keep the local error within Tolerance,
// bounded by MinDt and MaxDt.
type Config struct {
	Dt            float64
	NSteps        int
	T0            float64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            1.0,
		NSteps:        1000,
		Tolerance:     1e-8,
		MaxDt:         10.0,
		MinDt:         1e-8,
		Adaptive:      false,
		ValidateState: true,
	}
}

type Result struct {
	States      []State
	Times       []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
}
