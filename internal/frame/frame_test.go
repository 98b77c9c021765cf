package frame

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/units"
)

func TestStaticHasNoCorrection(t *testing.T) {
	f := NewStatic(units.Galactic)
	a := f.Acceleration(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: -4, Y: 5, Z: 6}, 0)
	assert.Equal(t, r3.Vec{}, a)
}

func TestRotatingAcceleration(t *testing.T) {
	f := NewConstantRotating(r3.Vec{Z: 2}, units.Galactic)

	// centrifugal only: Ω²x outward
	a := f.Acceleration(r3.Vec{X: 3}, r3.Vec{}, 0)
	assert.InDelta(t, 12, a.X, 1e-12)
	assert.InDelta(t, 0, a.Y, 1e-12)

	// coriolis only: -2Ω×v, v along +x gives -y
	a = f.Acceleration(r3.Vec{}, r3.Vec{X: 1}, 0)
	assert.InDelta(t, 0, a.X, 1e-12)
	assert.InDelta(t, -4, a.Y, 1e-12)

	assert.InDelta(t, -18, f.EffectivePotential(r3.Vec{X: 3, Z: 7}), 1e-12)
}

func TestRotatingFromQuantity(t *testing.T) {
	f, err := NewConstantRotatingZ(units.Q(25, units.KmPerSPerKpc), units.Galactic)
	require.NoError(t, err)
	// 1 km/s/kpc is about 1.0227e-3 per Myr
	assert.InEpsilon(t, 25*1.0227e-3, f.Omega.Z, 1e-3)

	_, err = NewConstantRotatingZ(units.Bare(25), units.Galactic)
	assert.True(t, errors.Is(err, units.ErrNotQuantity))
	assert.True(t, errors.Is(err, dynamo.ErrType))

	_, err = NewConstantRotatingZ(units.Q(25, units.Kpc), units.Galactic)
	assert.True(t, errors.Is(err, units.ErrIncompatible))
}

func TestEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Frame
		want bool
	}{
		{"static", NewStatic(units.Galactic), NewStatic(units.Galactic), true},
		{"static units", NewStatic(units.Galactic), NewStatic(units.System{}), false},
		{"rotating", NewConstantRotating(r3.Vec{Z: 1}, units.Galactic), NewConstantRotating(r3.Vec{Z: 1}, units.Galactic), true},
		{"rotating speed", NewConstantRotating(r3.Vec{Z: 1}, units.Galactic), NewConstantRotating(r3.Vec{Z: 2}, units.Galactic), false},
		{"mixed", NewStatic(units.Galactic), NewConstantRotating(r3.Vec{}, units.Galactic), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Equal(tc.b))
			assert.Equal(t, tc.want, tc.b.Equal(tc.a))
		})
	}
}
