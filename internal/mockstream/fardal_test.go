package mockstream

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/hamiltonian"
	"github.com/san-kum/galdyn/internal/potential"
	"github.com/san-kum/galdyn/internal/units"
)

var _ = Describe("FardalDF", func() {
	var req SampleRequest

	BeforeEach(func() {
		h, err := hamiltonian.New(nfw(20), nil)
		Expect(err).NotTo(HaveOccurred())
		req = SampleRequest{
			Hamiltonian: h,
			Pos:         r3.Vec{X: 15},
			Vel:         r3.Vec{Z: 0.13},
			Mass:        2.5e4,
			N:           200,
		}
	})

	It("needs lead or trail", func() {
		_, err := NewFardalDF(WithLead(false), WithTrail(false))
		Expect(err).To(MatchError(dynamo.ErrType))
	})

	It("orders lead before trail", func() {
		batch, err := fardal().Sample(rand.NewSource(1), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(batch.NLead).To(Equal(200))
		Expect(batch.NTrail).To(Equal(200))
		Expect(batch.W.Len()).To(Equal(400))
	})

	It("places leading particles inside and trailing particles outside", func() {
		batch, err := fardal().Sample(rand.NewSource(1), req)
		Expect(err).NotTo(HaveOccurred())

		mean := func(from, to int) float64 {
			s := 0.0
			for i := from; i < to; i++ {
				s += r3.Norm(batch.W.Pos[i])
			}
			return s / float64(to-from)
		}
		Expect(mean(0, batch.NLead)).To(BeNumerically("<", 15))
		Expect(mean(batch.NLead, batch.Len())).To(BeNumerically(">", 15))
	})

	It("is a pure function of its source", func() {
		a, err := fardal().Sample(rand.NewSource(3), req)
		Expect(err).NotTo(HaveOccurred())
		b, err := fardal().Sample(rand.NewSource(3), req)
		Expect(err).NotTo(HaveOccurred())
		c, err := fardal().Sample(rand.NewSource(4), req)
		Expect(err).NotTo(HaveOccurred())

		Expect(a.W).To(Equal(b.W))
		Expect(a.W).NotTo(Equal(c.W))
	})

	It("samples only leading particles when trail is off", func() {
		df := fardal(WithTrail(false))
		Expect(df.PerEpoch(3)).To(Equal(3))
		batch, err := df.Sample(rand.NewSource(1), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(batch.NTrail).To(Equal(0))
		Expect(batch.Len()).To(Equal(200))
	})

	It("rejects a radial orbit", func() {
		req.Vel = r3.Vec{X: 0.1}
		_, err := fardal().Sample(rand.NewSource(1), req)
		Expect(err).To(MatchError(dynamo.ErrInvalidState))
	})

	It("rejects negative counts", func() {
		req.N = -1
		_, err := fardal().Sample(rand.NewSource(1), req)
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
	})

	It("returns an empty batch for zero particles", func() {
		req.N = 0
		batch, err := fardal().Sample(rand.NewSource(1), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(batch.Len()).To(Equal(0))
	})
})

var _ = Describe("jacobiRadius", func() {
	It("reduces to the enclosed-mass form for a point mass on a circular orbit", func() {
		k, err := potential.NewKepler(1e11, units.Galactic)
		Expect(err).NotTo(HaveOccurred())

		x := r3.Vec{X: 10}
		vc := potential.CircularVelocity(k, x, 0)
		omega := vc / 10

		rj := jacobiRadius(k, x, 0, 1e5, omega)
		Expect(rj).To(BeNumerically("~", 10*math.Cbrt(1e5/3e11), 1e-9))
	})

	It("is positive in an NFW halo", func() {
		x := r3.Vec{X: 15}
		rj := jacobiRadius(nfw(20), x, 0, 2.5e4, 0.13/15)
		Expect(rj).To(BeNumerically(">", 0))
		Expect(rj).To(BeNumerically("<", 1))
	})
})
