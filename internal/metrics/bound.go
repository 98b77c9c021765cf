package metrics

import (
	"math"

	"github.com/san-kum/galdyn/internal/dynamo"
)

// Bound is the fraction of observed states in which every particle stays
// within radius of the origin. States use the positions-first layout.
type Bound struct {
	name       string
	radius     float64
	violations int
	samples    int
}

func NewBound(radius float64) *Bound {
	return &Bound{
		name:   "bound",
		radius: radius,
	}
}

func (b *Bound) Name() string {
	return b.name
}

func (b *Bound) Observe(x dynamo.State, t float64) {
	b.samples++
	n := len(x) / 6
	for i := 0; i < n; i++ {
		px, py, pz := x[3*i], x[3*i+1], x[3*i+2]
		if math.Sqrt(px*px+py*py+pz*pz) > b.radius {
			b.violations++
			break
		}
	}
}

func (b *Bound) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

func (b *Bound) Reset() {
	b.violations = 0
	b.samples = 0
}
