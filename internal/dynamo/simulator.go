package dynamo

import (
	"context"
	"fmt"
	"math"
)

type Simulator struct {
	sys        System
	integrator Integrator
	metrics    []Metric
	observers  []Observer
}

func New(sys System, integrator Integrator) *Simulator {
	return &Simulator{
		sys:        sys,
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run advances x0 by cfg.NSteps steps of cfg.Dt starting at cfg.T0 and
// records every state, the initial one included.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.sys.StateDim() {
		return nil, fmt.Errorf("%w: state has %d values, system expects %d",
			ErrDimensionMismatch, len(x0), s.sys.StateDim())
	}

	result := &Result{
		States:  make([]State, 0, cfg.NSteps+1),
		Times:   make([]float64, 0, cfg.NSteps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := cfg.T0
	dt := cfg.Dt

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	initialEnergy := s.computeEnergy(x, t)

	for i := 0; i < cfg.NSteps; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrContextCanceled, ctx.Err())
		default:
		}

		for _, m := range s.metrics {
			m.Observe(x, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(i, x, t)
		}

		var newX State
		taken := dt
		if cfg.Adaptive {
			var (
				next float64
				err  error
			)
			newX, taken, next, err = s.adaptiveStep(x, t, dt, cfg)
			if err != nil {
				return nil, &SimulationError{Step: i, Time: t, State: x, Wrapped: err}
			}
			dt = clampStep(next, cfg)
		} else {
			newX = s.integrator.Step(s.sys, x, t, dt)
		}

		if cfg.ValidateState && !newX.IsValid() {
			return nil, &SimulationError{Step: i, Time: t, State: x, Wrapped: ErrInvalidState}
		}

		x = newX
		t += taken
		result.StepsTaken++

		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, t)
	}

	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(cfg.NSteps, x, t)
	}

	finalEnergy := s.computeEnergy(x, t)
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt == 0 || math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("%w: dt must be finite and non-zero, got %f", ErrParameterBounds, cfg.Dt)
	}
	if cfg.NSteps < 0 {
		return fmt.Errorf("%w: n_steps must be non-negative, got %d", ErrParameterBounds, cfg.NSteps)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive for adaptive stepping", ErrParameterBounds)
	}
	return nil
}

func (s *Simulator) computeEnergy(x State, t float64) float64 {
	if ec, ok := s.sys.(Energetic); ok {
		return ec.Energy(x, t)
	}
	return 0
}

// adaptiveStep returns the new state, the step taken and the next trial
// step. Integrators without their own error control use step doubling.
func (s *Simulator) adaptiveStep(x State, t, dt float64, cfg Config) (State, float64, float64, error) {
	if adaptive, ok := s.integrator.(AdaptiveIntegrator); ok {
		return adaptive.StepAdaptive(s.sys, x, t, dt, cfg.Tolerance)
	}

	for {
		x1 := s.integrator.Step(s.sys, x, t, dt)
		xHalf := s.integrator.Step(s.sys, x, t, dt/2)
		x2 := s.integrator.Step(s.sys, xHalf, t+dt/2, dt/2)

		err := x1.Sub(x2).Norm()
		if err <= cfg.Tolerance {
			next := dt
			if err < cfg.Tolerance/10 {
				next = 2 * dt
			}
			return x2, dt, next, nil
		}
		if math.Abs(dt) <= cfg.MinDt {
			return nil, dt, dt, ErrStepTooSmall
		}
		dt /= 2
	}
}

// clampStep keeps an adaptive step within [MinDt, MaxDt] in magnitude.
func clampStep(dt float64, cfg Config) float64 {
	mag := math.Abs(dt)
	if cfg.MaxDt > 0 && mag > cfg.MaxDt {
		mag = cfg.MaxDt
	}
	if mag < cfg.MinDt {
		mag = cfg.MinDt
	}
	return math.Copysign(mag, dt)
}
