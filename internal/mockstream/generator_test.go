package mockstream

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/dynamics"
	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/frame"
	"github.com/san-kum/galdyn/internal/hamiltonian"
	"github.com/san-kum/galdyn/internal/nbody"
	"github.com/san-kum/galdyn/internal/potential"
	"github.com/san-kum/galdyn/internal/units"
)

func nfw(rs float64) *potential.NFW {
	p, err := potential.NewNFWFromCircularVelocity(0.2, rs, units.Galactic)
	Expect(err).NotTo(HaveOccurred())
	return p
}

func fardal(opts ...FardalOption) *FardalDF {
	df, err := NewFardalDF(opts...)
	Expect(err).NotTo(HaveOccurred())
	return df
}

var _ = Describe("Generator", func() {
	var (
		ctx  context.Context
		h    *hamiltonian.Hamiltonian
		w0   *dynamics.PhaseSpacePosition
		mass units.Quantity
		cfg  RunConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		h, err = hamiltonian.New(nfw(20), nil)
		Expect(err).NotTo(HaveOccurred())
		w0 = dynamics.Single(r3.Vec{X: 15}, r3.Vec{Z: 0.13})
		mass = units.Q(2.5e4, units.Msun)

		cfg = DefaultRunConfig()
		cfg.Dt = -1
		cfg.NSteps = 100
	})

	newGen := func(opts ...Option) *Generator {
		gen, err := NewGenerator(fardal(), h, opts...)
		Expect(err).NotTo(HaveOccurred())
		return gen
	}

	Describe("construction", func() {
		It("requires a distribution function", func() {
			_, err := NewGenerator(nil, h)
			Expect(err).To(MatchError(dynamo.ErrType))
		})

		It("requires a hamiltonian", func() {
			_, err := NewGenerator(fardal(), nil)
			Expect(err).To(MatchError(dynamo.ErrType))
		})

		It("rejects a nil progenitor potential", func() {
			_, err := NewGenerator(fardal(), h, WithProgenitorPotential(nil))
			Expect(err).To(MatchError(dynamo.ErrType))
		})

		It("rejects an unknown integrator", func() {
			_, err := NewGenerator(fardal(), h, WithIntegrator("midpoint"))
			Expect(err).To(MatchError(dynamo.ErrType))
		})

		It("rejects a progenitor potential in other units", func() {
			pc := units.System{Length: units.Pc, Mass: units.Msun, Time: units.Myr}
			prog, err := potential.NewHernquist(2.5e4, 4, pc)
			Expect(err).NotTo(HaveOccurred())
			_, err = NewGenerator(fardal(), h, WithProgenitorPotential(prog))
			Expect(err).To(MatchError(dynamo.ErrInconsistent))
		})
	})

	Describe("companion validation", func() {
		var companion *dynamics.PhaseSpacePosition

		BeforeEach(func() {
			companion = dynamics.Single(r3.Vec{X: 25}, r3.Vec{Z: 0.13})
		})

		It("rejects a different external potential", func() {
			nb, err := nbody.New(companion, []potential.Potential{nil}, nfw(25), nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = newGen().nbodyFor(w0, nb)
			Expect(err).To(MatchError(dynamo.ErrInconsistent))
		})

		It("rejects a different frame", func() {
			rot, err := frame.NewConstantRotatingZ(units.Q(25, units.KmPerSPerKpc), units.Galactic)
			Expect(err).NotTo(HaveOccurred())
			nb, err := nbody.New(companion, []potential.Potential{nil}, nfw(20), rot)
			Expect(err).NotTo(HaveOccurred())

			_, err = newGen().nbodyFor(w0, nb)
			Expect(err).To(MatchError(dynamo.ErrInconsistent))
		})

		It("rejects a companion set without an external potential", func() {
			nb := &nbody.DirectNBody{W0: companion, Potentials: []potential.Potential{nil}}

			_, err := newGen().nbodyFor(w0, nb)
			Expect(err).To(MatchError(dynamo.ErrInconsistent))
		})

		It("treats a missing frame as static", func() {
			nb := &nbody.DirectNBody{W0: companion, Potentials: []potential.Potential{nil}, External: nfw(20)}

			merged, err := newGen().nbodyFor(w0, nb)
			Expect(err).NotTo(HaveOccurred())
			Expect(merged.NBodies()).To(Equal(2))
			Expect(merged.Frame.Equal(frame.NewStatic(units.Galactic))).To(BeTrue())
			Expect(nb.Frame).To(BeNil())
		})

		It("rejects a missing frame when the hamiltonian rotates", func() {
			rot, err := frame.NewConstantRotatingZ(units.Q(25, units.KmPerSPerKpc), units.Galactic)
			Expect(err).NotTo(HaveOccurred())
			h, err := hamiltonian.New(nfw(20), rot)
			Expect(err).NotTo(HaveOccurred())
			gen, err := NewGenerator(fardal(), h)
			Expect(err).NotTo(HaveOccurred())

			nb := &nbody.DirectNBody{W0: companion, Potentials: []potential.Potential{nil}, External: nfw(20)}
			_, err = gen.nbodyFor(w0, nb)
			Expect(err).To(MatchError(dynamo.ErrInconsistent))
		})

		It("rejects a companion set without bodies", func() {
			_, err := newGen().nbodyFor(w0, &nbody.DirectNBody{External: nfw(20)})
			Expect(err).To(MatchError(dynamo.ErrType))
		})

		It("adds the progenitor as the first body", func() {
			nb, err := nbody.New(companion, []potential.Potential{nil}, nfw(20), nil)
			Expect(err).NotTo(HaveOccurred())

			prog, err := potential.NewHernquist(2.5e4, 0.004, units.Galactic)
			Expect(err).NotTo(HaveOccurred())

			merged, err := newGen(WithProgenitorPotential(prog)).nbodyFor(w0, nb)
			Expect(err).NotTo(HaveOccurred())
			Expect(merged.NBodies()).To(Equal(2))
			Expect(merged.W0.Pos[0]).To(Equal(w0.Pos[0]))
			Expect(merged.Potentials[0]).To(BeIdenticalTo(potential.Potential(prog)))
			Expect(merged.Potentials[1]).To(BeNil())
		})
	})

	Describe("Run", func() {
		It("releases two particles per epoch by default", func() {
			stream, nb, err := newGen().Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(nb).To(BeNil())
			Expect(stream.Len()).To(Equal(202))
			Expect(stream.NLead()).To(Equal(101))

			for i := 1; i < stream.Len(); i++ {
				Expect(stream.ReleaseStep[i]).To(BeNumerically(">=", stream.ReleaseStep[i-1]))
			}
			for i := 0; i < stream.Len(); i += 2 {
				Expect(stream.Lead[i]).To(BeTrue())
				Expect(stream.Lead[i+1]).To(BeFalse())
			}
		})

		It("honours release_every with a release at the final step", func() {
			cfg.ReleaseEvery = 4
			cfg.NParticles = 4
			stream, _, err := newGen().Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(stream.Len()).To(Equal((100/4 + 1) * 4 * 2))
			Expect(stream.ReleaseStep[stream.Len()-1]).To(Equal(100))
		})

		It("accepts one particle count per epoch", func() {
			src := rand.New(rand.NewSource(7))
			counts := make([]int, 101)
			sum := 0
			for i := range counts {
				counts[i] = src.Intn(4)
				sum += counts[i]
			}
			cfg.NParticlesPerEpoch = counts

			stream, _, err := newGen().Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(stream.Len()).To(Equal(2 * sum))
		})

		It("rejects per-epoch counts of the wrong length", func() {
			cfg.NParticlesPerEpoch = make([]int, 100)
			_, _, err := newGen().Run(ctx, w0, mass, cfg)
			Expect(err).To(MatchError(dynamo.ErrType))
		})

		It("rejects a bare progenitor mass", func() {
			_, _, err := newGen().Run(ctx, w0, units.Bare(2.5e4), cfg)
			Expect(err).To(MatchError(units.ErrNotQuantity))
			Expect(err).To(MatchError(dynamo.ErrType))
		})

		It("rejects a mass with the wrong dimension", func() {
			_, _, err := newGen().Run(ctx, w0, units.Q(2.5e4, units.Kpc), cfg)
			Expect(err).To(MatchError(units.ErrIncompatible))
		})

		It("is changed by progenitor self-gravity", func() {
			plain, _, err := newGen().Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())

			prog, err := potential.NewHernquist(2.5e4, 0.004, units.Galactic)
			Expect(err).NotTo(HaveOccurred())
			self, _, err := newGen(WithProgenitorPotential(prog)).Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(self.Len()).To(Equal(plain.Len()))
			maxDiff := 0.0
			for i := range plain.W.Pos {
				maxDiff = math.Max(maxDiff, r3.Norm(r3.Sub(plain.W.Pos[i], self.W.Pos[i])))
			}
			Expect(maxDiff).To(BeNumerically(">", 0))
		})

		It("is deterministic for a fixed seed", func() {
			a, _, err := newGen(WithSeed(11)).Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())
			b, _, err := newGen(WithSeed(11)).Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())
			c, _, err := newGen(WithSeed(12)).Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.W).To(Equal(b.W))
			Expect(a.W).NotTo(Equal(c.W))
		})

		It("ends at the initial conditions when dt is negative", func() {
			stream, _, err := newGen().Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(stream.T).To(BeNumerically("~", 0, 1e-9))
			Expect(r3.Norm(r3.Sub(stream.Progenitor.Pos[0], w0.Pos[0]))).To(BeNumerically("<", 1e-6))
			Expect(stream.ReleaseTime[0]).To(BeNumerically("~", -100, 1e-9))
		})

		It("starts at the initial conditions when dt is positive", func() {
			cfg.Dt = 1
			stream, _, err := newGen().Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(stream.T).To(BeNumerically("~", 100, 1e-9))
			Expect(stream.ReleaseTime[0]).To(Equal(0.0))
		})

		It("supports a lead-only distribution", func() {
			gen, err := NewGenerator(fardal(WithTrail(false)), h)
			Expect(err).NotTo(HaveOccurred())
			stream, _, err := gen.Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(stream.Len()).To(Equal(101))
			Expect(stream.NLead()).To(Equal(101))
		})

		It("records snapshots with unreleased particles masked", func() {
			gen, err := NewGenerator(fardal(WithTrail(false)), h)
			Expect(err).NotTo(HaveOccurred())
			cfg.NSteps = 3
			cfg.OutputEvery = 1

			stream, _, err := gen.Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())
			snaps := stream.Snapshots
			Expect(snaps).NotTo(BeNil())
			Expect(snaps.NTimes()).To(Equal(4))
			Expect(snaps.NOrbits()).To(Equal(4))

			Expect(math.IsNaN(snaps.Pos[0][0].X)).To(BeFalse())
			Expect(math.IsNaN(snaps.Pos[0][1].X)).To(BeTrue())
			Expect(math.IsNaN(snaps.Pos[2][2].X)).To(BeFalse())
			Expect(math.IsNaN(snaps.Pos[2][3].X)).To(BeTrue())
			Expect(snaps.Final().Pos).To(Equal(stream.W.Pos))
		})

		It("returns the companion trajectory", func() {
			companion := dynamics.Single(r3.Vec{X: 25}, r3.Vec{Z: 0.13})
			nb, err := nbody.New(companion, []potential.Potential{nil}, h.Potential, h.Frame)
			Expect(err).NotTo(HaveOccurred())
			cfg.NBody = nb

			stream, orbit, err := newGen().Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(stream.Len()).To(Equal(202))
			Expect(orbit).NotTo(BeNil())
			Expect(orbit.NOrbits()).To(Equal(2))
			Expect(orbit.NTimes()).To(Equal(101))
		})

		It("stops when the context is canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, _, err := newGen().Run(canceled, w0, mass, cfg)
			Expect(err).To(MatchError(dynamo.ErrContextCanceled))
		})

		It("validates the run configuration", func() {
			cfg.ReleaseEvery = 0
			_, _, err := newGen().Run(ctx, w0, mass, cfg)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})
	})

	Describe("Ensemble", func() {
		It("runs independent seeds", func() {
			cfg.NSteps = 20
			streams, err := NewEnsemble(newGen(), 3, 100).Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(streams).To(HaveLen(3))

			single, _, err := newGen(WithSeed(101)).Run(ctx, w0, mass, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(streams[1].W).To(Equal(single.W))
			Expect(streams[0].W).NotTo(Equal(streams[1].W))
		})
	})
})

var _ = DescribeTable("ReleaseSteps",
	func(nSteps, every int, want []int) {
		Expect(ReleaseSteps(nSteps, every)).To(Equal(want))
	},
	Entry("every step", 4, 1, []int{0, 1, 2, 3, 4}),
	Entry("divisible", 8, 4, []int{0, 4, 8}),
	Entry("not divisible", 10, 4, []int{2, 6, 10}),
	Entry("no steps", 0, 3, []int{0}),
	Entry("interval longer than run", 2, 5, []int{2}),
)
