package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamics"
	"github.com/san-kum/galdyn/internal/dynamo"
)

// Radius returns |x| of orbit j at every time.
func Radius(o *dynamics.Orbit, j int) []float64 {
	r := make([]float64, o.NTimes())
	for i := range r {
		r[i] = r3.Norm(o.Pos[i][j])
	}
	return r
}

func Pericenter(o *dynamics.Orbit, j int) float64 {
	return floats.Min(Radius(o, j))
}

func Apocenter(o *dynamics.Orbit, j int) float64 {
	return floats.Max(Radius(o, j))
}

// Eccentricity is (ra-rp)/(ra+rp) over the sampled orbit.
func Eccentricity(o *dynamics.Orbit, j int) float64 {
	r := Radius(o, j)
	rp, ra := floats.Min(r), floats.Max(r)
	if ra+rp == 0 {
		return 0
	}
	return (ra - rp) / (ra + rp)
}

// RadialPeriod estimates the radial period of orbit j from the strongest
// non-zero frequency of r(t). The orbit must be sampled uniformly and cover
// at least one period to be meaningful.
func RadialPeriod(o *dynamics.Orbit, j int) (float64, error) {
	n := o.NTimes()
	if n < 4 {
		return 0, fmt.Errorf("%w: need at least 4 samples, got %d", dynamo.ErrParameterBounds, n)
	}
	dt := math.Abs(o.T[1] - o.T[0])

	r := Radius(o, j)
	mean := floats.Sum(r) / float64(n)
	floats.AddConst(-mean, r)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, r)

	best, power := 0, 0.0
	for k := 1; k < len(coeffs); k++ {
		re, im := real(coeffs[k]), imag(coeffs[k])
		if p := re*re + im*im; p > power {
			best, power = k, p
		}
	}
	if best == 0 {
		return math.Inf(1), nil
	}
	return dt / fft.Freq(best), nil
}
