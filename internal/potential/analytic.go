package potential

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/units"
)

// Kepler is a point mass.
type Kepler struct {
	M    float64
	usys units.System
	gm   float64
}

func NewKepler(m float64, usys units.System) (*Kepler, error) {
	if err := requirePositive("Kepler", map[string]float64{"m": m}, "m"); err != nil {
		return nil, err
	}
	return &Kepler{M: m, usys: usys, gm: usys.G() * m}, nil
}

func (k *Kepler) Name() string                   { return "KeplerPotential" }
func (k *Kepler) Units() units.System            { return k.usys }
func (k *Kepler) Parameters() map[string]float64 { return map[string]float64{"m": k.M} }
func (k *Kepler) String() string                 { return describe(k) }

func (k *Kepler) Energy(x r3.Vec, t float64) float64 {
	return -k.gm / r3.Norm(x)
}

func (k *Kepler) Gradient(x r3.Vec, t float64) r3.Vec {
	r := r3.Norm(x)
	if r == 0 {
		return r3.Vec{}
	}
	return r3.Scale(k.gm/(r*r*r), x)
}

func (k *Kepler) Hessian(x r3.Vec, t float64) *mat.SymDense {
	r := r3.Norm(x)
	return sphericalHessian(x, k.gm/(r*r), -2*k.gm/(r*r*r))
}

// Plummer is a softened point mass with scale length B.
type Plummer struct {
	M, B float64
	usys units.System
	gm   float64
}

func NewPlummer(m, b float64, usys units.System) (*Plummer, error) {
	if err := requirePositive("Plummer", map[string]float64{"m": m, "b": b}, "m", "b"); err != nil {
		return nil, err
	}
	return &Plummer{M: m, B: b, usys: usys, gm: usys.G() * m}, nil
}

func (p *Plummer) Name() string        { return "PlummerPotential" }
func (p *Plummer) Units() units.System { return p.usys }
func (p *Plummer) String() string      { return describe(p) }

func (p *Plummer) Parameters() map[string]float64 {
	return map[string]float64{"m": p.M, "b": p.B}
}

func (p *Plummer) Energy(x r3.Vec, t float64) float64 {
	return -p.gm / math.Sqrt(r3.Norm2(x)+p.B*p.B)
}

func (p *Plummer) Gradient(x r3.Vec, t float64) r3.Vec {
	s2 := r3.Norm2(x) + p.B*p.B
	return r3.Scale(p.gm/(s2*math.Sqrt(s2)), x)
}

func (p *Plummer) Hessian(x r3.Vec, t float64) *mat.SymDense {
	r := r3.Norm(x)
	s2 := r*r + p.B*p.B
	s := math.Sqrt(s2)
	d1 := p.gm * r / (s2 * s)
	d2 := p.gm * (p.B*p.B - 2*r*r) / (s2 * s2 * s)
	return sphericalHessian(x, d1, d2)
}

// Hernquist has density ∝ 1/(r (r+C)³).
type Hernquist struct {
	M, C float64
	usys units.System
	gm   float64
}

func NewHernquist(m, c float64, usys units.System) (*Hernquist, error) {
	if err := requirePositive("Hernquist", map[string]float64{"m": m, "c": c}, "m", "c"); err != nil {
		return nil, err
	}
	return &Hernquist{M: m, C: c, usys: usys, gm: usys.G() * m}, nil
}

func (h *Hernquist) Name() string        { return "HernquistPotential" }
func (h *Hernquist) Units() units.System { return h.usys }
func (h *Hernquist) String() string      { return describe(h) }

func (h *Hernquist) Parameters() map[string]float64 {
	return map[string]float64{"m": h.M, "c": h.C}
}

func (h *Hernquist) Energy(x r3.Vec, t float64) float64 {
	return -h.gm / (r3.Norm(x) + h.C)
}

func (h *Hernquist) Gradient(x r3.Vec, t float64) r3.Vec {
	r := r3.Norm(x)
	if r == 0 {
		return r3.Vec{}
	}
	rc := r + h.C
	return r3.Scale(h.gm/(rc*rc*r), x)
}

func (h *Hernquist) Hessian(x r3.Vec, t float64) *mat.SymDense {
	rc := r3.Norm(x) + h.C
	return sphericalHessian(x, h.gm/(rc*rc), -2*h.gm/(rc*rc*rc))
}

// NFW is the Navarro-Frenk-White halo, Φ = -G M ln(1 + r/Rs) / r.
type NFW struct {
	M, Rs float64
	usys  units.System
	gm    float64
}

func NewNFW(m, rs float64, usys units.System) (*NFW, error) {
	if err := requirePositive("NFW", map[string]float64{"m": m, "r_s": rs}, "m", "r_s"); err != nil {
		return nil, err
	}
	return &NFW{M: m, Rs: rs, usys: usys, gm: usys.G() * m}, nil
}

// NewNFWFromCircularVelocity scales the halo mass so the circular velocity
// at r = rs equals vc.
func NewNFWFromCircularVelocity(vc, rs float64, usys units.System) (*NFW, error) {
	if !(vc > 0) || !(rs > 0) {
		return nil, dynamo.ErrParameterBounds
	}
	m := vc * vc * rs / (usys.G() * (math.Ln2 - 0.5))
	return NewNFW(m, rs, usys)
}

func (n *NFW) Name() string        { return "NFWPotential" }
func (n *NFW) Units() units.System { return n.usys }
func (n *NFW) String() string      { return describe(n) }

func (n *NFW) Parameters() map[string]float64 {
	return map[string]float64{"m": n.M, "r_s": n.Rs}
}

func (n *NFW) Energy(x r3.Vec, t float64) float64 {
	r := r3.Norm(x)
	if r == 0 {
		return -n.gm / n.Rs
	}
	return -n.gm * math.Log1p(r/n.Rs) / r
}

func (n *NFW) dPhi(r float64) float64 {
	return n.gm * (math.Log1p(r/n.Rs)/(r*r) - 1/(r*(n.Rs+r)))
}

func (n *NFW) Gradient(x r3.Vec, t float64) r3.Vec {
	r := r3.Norm(x)
	if r == 0 {
		return r3.Vec{}
	}
	return r3.Scale(n.dPhi(r)/r, x)
}

func (n *NFW) Hessian(x r3.Vec, t float64) *mat.SymDense {
	r := r3.Norm(x)
	if r == 0 {
		return mat.NewSymDense(3, nil)
	}
	sr := n.Rs + r
	d2 := n.gm * (1/(r*r*sr) - 2*math.Log1p(r/n.Rs)/(r*r*r) + (n.Rs+2*r)/(r*r*sr*sr))
	return sphericalHessian(x, n.dPhi(r), d2)
}

// MiyamotoNagai is an axisymmetric disk with radial scale A and vertical
// scale B. It has no analytic Hessian here; curvature is taken numerically.
type MiyamotoNagai struct {
	M, A, B float64
	usys    units.System
	gm      float64
}

func NewMiyamotoNagai(m, a, b float64, usys units.System) (*MiyamotoNagai, error) {
	if err := requirePositive("MiyamotoNagai", map[string]float64{"m": m, "a": a, "b": b}, "m", "a", "b"); err != nil {
		return nil, err
	}
	return &MiyamotoNagai{M: m, A: a, B: b, usys: usys, gm: usys.G() * m}, nil
}

func (d *MiyamotoNagai) Name() string        { return "MiyamotoNagaiPotential" }
func (d *MiyamotoNagai) Units() units.System { return d.usys }
func (d *MiyamotoNagai) String() string      { return describe(d) }

func (d *MiyamotoNagai) Parameters() map[string]float64 {
	return map[string]float64{"m": d.M, "a": d.A, "b": d.B}
}

func (d *MiyamotoNagai) Energy(x r3.Vec, t float64) float64 {
	zb := math.Hypot(x.Z, d.B)
	return -d.gm / math.Sqrt(x.X*x.X+x.Y*x.Y+(d.A+zb)*(d.A+zb))
}

func (d *MiyamotoNagai) Gradient(x r3.Vec, t float64) r3.Vec {
	zb := math.Hypot(x.Z, d.B)
	az := d.A + zb
	den := x.X*x.X + x.Y*x.Y + az*az
	f := d.gm / (den * math.Sqrt(den))
	return r3.Vec{X: f * x.X, Y: f * x.Y, Z: f * x.Z * az / zb}
}

// Null contributes nothing. It is what a frame-only Hamiltonian integrates in.
type Null struct {
	usys units.System
}

func NewNull(usys units.System) *Null { return &Null{usys: usys} }

func (n *Null) Name() string                              { return "NullPotential" }
func (n *Null) Units() units.System                       { return n.usys }
func (n *Null) Parameters() map[string]float64            { return map[string]float64{} }
func (n *Null) Energy(x r3.Vec, t float64) float64        { return 0 }
func (n *Null) Gradient(x r3.Vec, t float64) r3.Vec       { return r3.Vec{} }
func (n *Null) Hessian(x r3.Vec, t float64) *mat.SymDense { return mat.NewSymDense(3, nil) }
