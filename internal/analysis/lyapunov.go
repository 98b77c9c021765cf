package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/galdyn/internal/dynamo"
)

type LyapunovConfig struct {
	Dt     float64
	NSteps int
	// D0 is the initial phase-space separation.
	D0 float64
	// RenormEvery is the number of steps between renormalisations.
	RenormEvery int
}

func DefaultLyapunovConfig() LyapunovConfig {
	return LyapunovConfig{
		Dt:          1,
		NSteps:      10000,
		D0:          1e-8,
		RenormEvery: 10,
	}
}

// LyapunovMax estimates the largest Lyapunov exponent of the trajectory from
// x0 by following a neighbour offset by D0 along the first coordinate and
// pulling it back to D0 every RenormEvery steps. It returns the running
// estimate after each renormalisation.
func LyapunovMax(ctx context.Context, sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, cfg LyapunovConfig) ([]float64, error) {
	if len(x0) == 0 || len(x0) != sys.StateDim() {
		return nil, fmt.Errorf("%w: state has %d values, system wants %d", dynamo.ErrDimensionMismatch, len(x0), sys.StateDim())
	}
	if cfg.Dt == 0 || cfg.NSteps < 1 || cfg.D0 <= 0 || cfg.RenormEvery < 1 {
		return nil, fmt.Errorf("%w: invalid lyapunov config %+v", dynamo.ErrParameterBounds, cfg)
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += cfg.D0

	var (
		t      float64
		sumLog float64
		out    []float64
	)
	for step := 1; step <= cfg.NSteps; step++ {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, err)
		}
		x = integ.Step(sys, x, t, cfg.Dt)
		xp = integ.Step(sys, xp, t, cfg.Dt)
		t += cfg.Dt

		if step%cfg.RenormEvery != 0 && step != cfg.NSteps {
			continue
		}
		sep := 0.0
		for i := range x {
			d := xp[i] - x[i]
			sep += d * d
		}
		sep = math.Sqrt(sep)
		if sep == 0 || math.IsNaN(sep) {
			return out, fmt.Errorf("%w: separation collapsed at t=%g", dynamo.ErrUnstable, t)
		}
		sumLog += math.Log(sep / cfg.D0)
		out = append(out, sumLog/math.Abs(t))

		scale := cfg.D0 / sep
		for i := range xp {
			xp[i] = x[i] + (xp[i]-x[i])*scale
		}
	}
	return out, nil
}
