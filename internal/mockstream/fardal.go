package mockstream

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/galdyn/internal/dynamics"
	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/potential"
)

// Calibration of the release offsets in units of the Jacobi radius (Fardal,
// Huang & Weinberg 2015).
const (
	KRMean  = 2.0
	KRDisp  = 0.5
	KZMean  = 0.0
	KZDisp  = 0.5
	KVTMean = 0.3
	KVTDisp = 0.5
	KVZMean = 0.0
	KVZDisp = 0.5
)

// FardalDF places leading particles inside the progenitor's orbit and
// trailing particles outside it, offset along the instantaneous orbital
// frame by multiples of the Jacobi radius.
type FardalDF struct {
	lead  bool
	trail bool
}

type FardalOption func(*FardalDF)

func WithLead(on bool) FardalOption  { return func(f *FardalDF) { f.lead = on } }
func WithTrail(on bool) FardalOption { return func(f *FardalDF) { f.trail = on } }

func NewFardalDF(opts ...FardalOption) (*FardalDF, error) {
	f := &FardalDF{lead: true, trail: true}
	for _, opt := range opts {
		opt(f)
	}
	if !f.lead && !f.trail {
		return nil, fmt.Errorf("%w: fardal df needs at least one of lead or trail", dynamo.ErrType)
	}
	return f, nil
}

func (f *FardalDF) Lead() bool  { return f.lead }
func (f *FardalDF) Trail() bool { return f.trail }

// PerEpoch is the number of particles released for n requested.
func (f *FardalDF) PerEpoch(n int) int {
	k := 0
	if f.lead {
		k += n
	}
	if f.trail {
		k += n
	}
	return k
}

func (f *FardalDF) Sample(src rand.Source, req SampleRequest) (*ReleaseBatch, error) {
	if req.Hamiltonian == nil {
		return nil, fmt.Errorf("%w: sample needs a hamiltonian", dynamo.ErrType)
	}
	if req.N < 0 {
		return nil, fmt.Errorf("%w: particle count must be non-negative, got %d", dynamo.ErrParameterBounds, req.N)
	}
	if !(req.Mass > 0) {
		return nil, fmt.Errorf("%w: progenitor mass must be positive, got %g", dynamo.ErrParameterBounds, req.Mass)
	}

	x, v := req.Pos, req.Vel
	r := r3.Norm(x)
	l := r3.Cross(x, v)
	if r == 0 || r3.Norm(l) == 0 {
		return nil, fmt.Errorf("%w: progenitor orbit has no orbital plane at t=%g", dynamo.ErrInvalidState, req.T)
	}

	rhat := r3.Unit(x)
	zhat := r3.Unit(l)
	that := r3.Cross(zhat, rhat)
	omega := r3.Norm(l) / (r * r)

	rj := jacobiRadius(req.Hamiltonian.Potential, x, req.T, req.Mass, omega)
	vj := omega * rj

	nLead, nTrail := 0, 0
	if f.lead {
		nLead = req.N
	}
	if f.trail {
		nTrail = req.N
	}

	kr := distuv.Normal{Mu: KRMean, Sigma: KRDisp, Src: src}
	kz := distuv.Normal{Mu: KZMean, Sigma: KZDisp, Src: src}
	kvt := distuv.Normal{Mu: KVTMean, Sigma: KVTDisp, Src: src}
	kvz := distuv.Normal{Mu: KVZMean, Sigma: KVZDisp, Src: src}

	n := nLead + nTrail
	w := &dynamics.PhaseSpacePosition{Pos: make([]r3.Vec, n), Vel: make([]r3.Vec, n)}
	for i := 0; i < n; i++ {
		side := 1.0
		if i < nLead {
			side = -1
		}
		a, b, c, d := kr.Rand(), kz.Rand(), kvt.Rand(), kvz.Rand()

		dx := r3.Add(r3.Scale(side*a*rj, rhat), r3.Scale(b*rj, zhat))
		dv := r3.Add(r3.Scale(side*c*a*vj, that), r3.Scale(d*vj, zhat))
		w.Pos[i] = r3.Add(x, dx)
		w.Vel[i] = r3.Add(v, dv)
	}

	return &ReleaseBatch{T: req.T, Step: req.Step, NLead: nLead, NTrail: nTrail, W: w}, nil
}

// jacobiRadius is (G m / (Ω² - ∂²Φ/∂r²))^⅓. Where the radial curvature does
// not leave a positive denominator it falls back to r (m / 3M(<r))^⅓.
func jacobiRadius(pot potential.Potential, x r3.Vec, t, m, omega float64) float64 {
	g := pot.Units().G()
	rhat := r3.Unit(x)

	h := potential.Hessian(pot, x, t)
	u := mat.NewVecDense(3, []float64{rhat.X, rhat.Y, rhat.Z})
	d2 := mat.Inner(u, h, u)

	if denom := omega*omega - d2; denom > 0 {
		return math.Cbrt(g * m / denom)
	}
	menc := potential.MassEnclosed(pot, x, t)
	return r3.Norm(x) * math.Cbrt(m/(3*menc))
}
