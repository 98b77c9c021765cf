// Package coordinates converts line-of-sight and full 3-D velocities
// between the heliocentric and Galactic standard-of-rest frames.
//
// Angles are radians, distances kpc, proper motions mas/yr and velocities
// km/s. Cartesian vectors use Galactic axes: x toward the Galactic centre,
// y toward l = 90°, z toward the north Galactic pole.
package coordinates

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// kmsPerMasYrKpc converts mas/yr at 1 kpc to km/s.
const kmsPerMasYrKpc = 4.740470463533348

// icrsToGalactic is the Hipparcos rotation from ICRS to Galactic axes.
var icrsToGalactic = mat.NewDense(3, 3, []float64{
	-0.0548755604162154, -0.8734370902348850, -0.4838350155487132,
	+0.4941094278755837, -0.4448296299600112, +0.7469822444972189,
	-0.8676661490190047, -0.1980763734312015, +0.4559837761750669,
})

// Sky is a direction on the sky.
type Sky interface {
	// GalacticUnit is the unit vector toward the source in Galactic axes.
	GalacticUnit() r3.Vec
}

type Galactic struct {
	L, B float64
}

func (g Galactic) GalacticUnit() r3.Vec {
	cb := math.Cos(g.B)
	return r3.Vec{X: cb * math.Cos(g.L), Y: cb * math.Sin(g.L), Z: math.Sin(g.B)}
}

// basis returns the unit vectors of increasing l and b.
func (g Galactic) basis() (lhat, bhat r3.Vec) {
	sl, cl := math.Sincos(g.L)
	sb, cb := math.Sincos(g.B)
	lhat = r3.Vec{X: -sl, Y: cl}
	bhat = r3.Vec{X: -sb * cl, Y: -sb * sl, Z: cb}
	return lhat, bhat
}

type ICRS struct {
	RA, Dec float64
}

func (c ICRS) GalacticUnit() r3.Vec {
	cd := math.Cos(c.Dec)
	e := mat.NewVecDense(3, []float64{cd * math.Cos(c.RA), cd * math.Sin(c.RA), math.Sin(c.Dec)})
	var g mat.VecDense
	g.MulVec(icrsToGalactic, e)
	return r3.Vec{X: g.AtVec(0), Y: g.AtVec(1), Z: g.AtVec(2)}
}

func (c ICRS) ToGalactic() Galactic {
	return galacticOf(c.GalacticUnit())
}

func galacticOf(u r3.Vec) Galactic {
	l := math.Atan2(u.Y, u.X)
	if l < 0 {
		l += 2 * math.Pi
	}
	return Galactic{L: l, B: math.Atan2(u.Z, math.Hypot(u.X, u.Y))}
}

// DefaultVSun is the solar motion relative to the LSR (Schönrich, Binney &
// Dehnen 2010) plus a 220 km/s circular velocity.
func DefaultVSun() r3.Vec {
	return r3.Vec{X: 11.1, Y: 12.24 + 220, Z: 7.25}
}

// VGSRToVHel removes the projection of the solar motion from a Galactic
// standard-of-rest radial velocity.
func VGSRToVHel(c Sky, vgsr float64, vsun r3.Vec) float64 {
	return vgsr - r3.Dot(vsun, c.GalacticUnit())
}

// VHelToVGSR is the inverse of VGSRToVHel.
func VHelToVGSR(c Sky, vhel float64, vsun r3.Vec) float64 {
	return vhel + r3.Dot(vsun, c.GalacticUnit())
}

// Heliocentric is an observed velocity: proper motions in l (including the
// cos b factor) and b, and the radial velocity.
type Heliocentric struct {
	PMLCosB float64
	PMB     float64
	VR      float64
}

// VHelToGal returns the Cartesian velocity in the Galactic rest frame of a
// source at distance d toward c.
func VHelToGal(c Sky, d float64, v Heliocentric, vsun r3.Vec) r3.Vec {
	g := galacticOf(c.GalacticUnit())
	n := g.GalacticUnit()
	lhat, bhat := g.basis()

	vhel := r3.Scale(v.VR, n)
	vhel = r3.Add(vhel, r3.Scale(d*kmsPerMasYrKpc*v.PMLCosB, lhat))
	vhel = r3.Add(vhel, r3.Scale(d*kmsPerMasYrKpc*v.PMB, bhat))
	return r3.Add(vhel, vsun)
}

// VGalToHel is the inverse of VHelToGal.
func VGalToHel(c Sky, d float64, vgal r3.Vec, vsun r3.Vec) Heliocentric {
	g := galacticOf(c.GalacticUnit())
	n := g.GalacticUnit()
	lhat, bhat := g.basis()

	vhel := r3.Sub(vgal, vsun)
	return Heliocentric{
		PMLCosB: r3.Dot(vhel, lhat) / (d * kmsPerMasYrKpc),
		PMB:     r3.Dot(vhel, bhat) / (d * kmsPerMasYrKpc),
		VR:      r3.Dot(vhel, n),
	}
}

func Deg(rad float64) float64 { return rad * 180 / math.Pi }
func Rad(deg float64) float64 { return deg * math.Pi / 180 }
