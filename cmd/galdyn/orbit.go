package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/galdyn/internal/analysis"
	"github.com/san-kum/galdyn/internal/dynamo"
	"github.com/san-kum/galdyn/internal/hamiltonian"
	"github.com/san-kum/galdyn/internal/integrators"
	"github.com/san-kum/galdyn/internal/metrics"
)

var (
	boundRadius float64
	plotOrbit   bool
	lyapunov    bool
	adaptive    bool
	tolerance   float64
)

func newOrbitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orbit",
		Short: "integrate the progenitor orbit",
		RunE:  runOrbit,
	}
	addRunFlags(cmd)
	cmd.Flags().Float64Var(&boundRadius, "radius", 100, "radius for the bound fraction")
	cmd.Flags().BoolVar(&plotOrbit, "plot", false, "plot r(t)")
	cmd.Flags().BoolVar(&lyapunov, "lyapunov", false, "estimate the largest Lyapunov exponent")
	cmd.Flags().BoolVar(&adaptive, "adaptive", false, "error-controlled steps (dt is the first trial step)")
	cmd.Flags().Float64Var(&tolerance, "tol", 1e-8, "local error tolerance for --adaptive")
	return cmd
}

func runOrbit(cmd *cobra.Command, args []string) error {
	cfg, err := loadRun(cmd)
	if err != nil {
		return err
	}
	h, err := cfg.BuildHamiltonian()
	if err != nil {
		return err
	}
	w0, _, _, err := cfg.BuildProgenitor()
	if err != nil {
		return err
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	orbit, res, err := h.IntegrateOrbit(ctx, w0, hamiltonian.OrbitConfig{
		Dt:         cfg.Stream.Dt,
		NSteps:     cfg.Stream.NSteps,
		Integrator: integ,
		Metrics: []dynamo.Metric{
			metrics.NewEnergyDrift(h.System(1)),
			metrics.NewBound(boundRadius),
		},
		Adaptive:  adaptive,
		Tolerance: tolerance,
	})
	if err != nil {
		return err
	}

	final := orbit.Final()
	lines := []string{
		field("steps", "%d", res.StepsTaken),
		field("final t", "%g", orbit.T[orbit.NTimes()-1]),
		field("final pos", "%.4g", final.Pos[0]),
		field("final vel", "%.4g", final.Vel[0]),
	}
	lines = append(lines,
		field("pericenter", "%.4g", analysis.Pericenter(orbit, 0)),
		field("apocenter", "%.4g", analysis.Apocenter(orbit, 0)),
		field("eccentricity", "%.4f", analysis.Eccentricity(orbit, 0)),
	)
	if period, err := analysis.RadialPeriod(orbit, 0); err == nil && !adaptive {
		lines = append(lines, field("radial period", "%.4g", period))
	}
	if lyapunov {
		lcfg := analysis.DefaultLyapunovConfig()
		lcfg.Dt = cfg.Stream.Dt
		lcfg.NSteps = cfg.Stream.NSteps
		lambda, err := analysis.LyapunovMax(ctx, h.System(1), integ, w0.Pack(), lcfg)
		if err != nil {
			return err
		}
		lines = append(lines, field("lyapunov", "%.4g", lambda[len(lambda)-1]))
	}

	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, field(name, "%.6g", res.Metrics[name]))
	}
	fmt.Println(panel(cfg.Name+" orbit", lines...))

	if plotOrbit {
		fmt.Println(asciigraph.Plot(analysis.Radius(orbit, 0),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("galactocentric radius"),
		))
	}
	return nil
}
