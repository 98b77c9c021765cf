package integrators

import (
	"math"

	"github.com/san-kum/galdyn/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// minStep is the smallest step, relative to |t|, StepAdaptive will try.
const minStep = 1e-12

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	xNew, _ := r.stages(sys, x, t, dt)
	return xNew
}

// stages evaluates the six Dormand-Prince stages and returns the
// fifth-order solution with the stage derivatives.
func (r *RK45) stages(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, [6]dynamo.State) {
	n := len(x)
	var k [6]dynamo.State

	k[0] = sys.Derive(x, t)

	x2 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x2[i] = x[i] + dt*b21*k[0][i]
	}
	k[1] = sys.Derive(x2, t+a2*dt)

	x3 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x3[i] = x[i] + dt*(b31*k[0][i]+b32*k[1][i])
	}
	k[2] = sys.Derive(x3, t+a3*dt)

	x4 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x4[i] = x[i] + dt*(b41*k[0][i]+b42*k[1][i]+b43*k[2][i])
	}
	k[3] = sys.Derive(x4, t+a4*dt)

	x5 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x5[i] = x[i] + dt*(b51*k[0][i]+b52*k[1][i]+b53*k[2][i]+b54*k[3][i])
	}
	k[4] = sys.Derive(x5, t+a5*dt)

	x6 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x6[i] = x[i] + dt*(b61*k[0][i]+b62*k[1][i]+b63*k[2][i]+b64*k[3][i]+b65*k[4][i])
	}
	k[5] = sys.Derive(x6, t+dt)

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k[0][i]+c3*k[2][i]+c4*k[3][i]+c5*k[4][i]+c6*k[5][i])
	}
	return xNew, k
}

// errorRatio is the embedded fourth-order error estimate relative to tol.
func (r *RK45) errorRatio(sys dynamo.System, x, xNew dynamo.State, k [6]dynamo.State, t, dt, tol float64) float64 {
	k7 := sys.Derive(xNew, t+dt)

	errMax := 0.0
	for i := range x {
		errEst := dt * (dc1*k[0][i] + dc3*k[2][i] + dc4*k[3][i] + dc5*k[4][i] + dc6*k[5][i] + dc7*k7[i])
		scale := math.Abs(x[i]) + math.Abs(dt*k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}
	return errMax / tol
}

// StepAdaptive takes one Dormand-Prince step no larger than dt, shrinking it
// until the error estimate is within tol. It returns the new state, the step
// actually taken and the suggested next step. The sign of dt is preserved.
func (r *RK45) StepAdaptive(sys dynamo.System, x dynamo.State, t, dt, tol float64) (dynamo.State, float64, float64, error) {
	for {
		xNew, k := r.stages(sys, x, t, dt)
		if !xNew.IsValid() {
			return xNew, dt, dt, dynamo.ErrUnstable
		}

		ratio := r.errorRatio(sys, x, xNew, k, t, dt, tol)
		if ratio <= 1 {
			next := dt * r.maxScale
			if ratio > 0 {
				next = dt * math.Min(r.maxScale, r.safety*math.Pow(ratio, -0.2))
			}
			return xNew, dt, next, nil
		}

		dt *= math.Max(r.minScale, r.safety*math.Pow(ratio, -0.25))
		if math.Abs(dt) < minStep*math.Max(1, math.Abs(t)) {
			return nil, dt, dt, dynamo.ErrStepTooSmall
		}
	}
}
