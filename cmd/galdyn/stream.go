package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/config"
	"github.com/san-kum/galdyn/internal/logging"
	"github.com/san-kum/galdyn/internal/mockstream"
	"github.com/san-kum/galdyn/internal/storage"
)

var (
	configFile   string
	presetName   string
	seed         uint64
	integrator   string
	dt           float64
	nSteps       int
	releaseEvery int
	nParticles   int
	outputEvery  int
	bodiesFile   string
	ensembleRuns int
	saveConfig   string
)

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "run file (yaml or toml)")
	cmd.Flags().StringVar(&presetName, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().IntVar(&nSteps, "steps", config.DefaultNSteps, "number of steps")
}

func newStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "generate a mock stream",
		RunE:  runStream,
	}
	addRunFlags(cmd)
	cmd.Flags().Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")
	cmd.Flags().IntVar(&releaseEvery, "release-every", config.DefaultReleaseEvery, "steps between releases")
	cmd.Flags().IntVar(&nParticles, "particles", config.DefaultNParticles, "particles per side per release")
	cmd.Flags().IntVar(&outputEvery, "output-every", 0, "snapshot interval in steps (0 disables)")
	cmd.Flags().StringVar(&bodiesFile, "bodies", "", "companion bodies table")
	cmd.Flags().IntVar(&ensembleRuns, "ensemble", 1, "independent runs with consecutive seeds")
	cmd.Flags().StringVar(&saveConfig, "save-config", "", "write the resolved run file here")
	return cmd
}

// loadRun resolves the preset, run file and flag overrides, in that order.
func loadRun(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.GetPreset("nfw-basic")
	if presetName != "" {
		if cfg = config.GetPreset(presetName); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", presetName, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("dt") {
		cfg.Stream.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Stream.NSteps = nSteps
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("release-every") {
		cfg.Stream.ReleaseEvery = releaseEvery
	}
	if flags.Changed("particles") {
		cfg.Stream.NParticles = nParticles
	}
	if flags.Changed("output-every") {
		cfg.Stream.OutputEvery = outputEvery
	}
	if flags.Changed("bodies") {
		cfg.Stream.BodiesFile = bodiesFile
	}
	return cfg, cfg.Validate()
}

func runStream(cmd *cobra.Command, args []string) error {
	log := logging.Logger()
	cfg, err := loadRun(cmd)
	if err != nil {
		return err
	}
	if saveConfig != "" {
		if err := config.Save(saveConfig, cfg); err != nil {
			return err
		}
	}

	gen, err := cfg.BuildGenerator(log)
	if err != nil {
		return err
	}
	w0, mass, _, err := cfg.BuildProgenitor()
	if err != nil {
		return err
	}
	rc, err := cfg.BuildRunConfig(gen.Hamiltonian())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	start := time.Now()
	if ensembleRuns > 1 {
		streams, err := mockstream.NewEnsemble(gen, ensembleRuns, cfg.Seed).Run(ctx, w0, mass, rc)
		if err != nil {
			return err
		}
		for i, s := range streams {
			meta, err := runMetadata(cfg, cfg.Seed+uint64(i), s, time.Since(start))
			if err != nil {
				return err
			}
			runID, err := st.Save(meta, s, nil)
			if err != nil {
				return err
			}
			fmt.Println(field("run id", "%s", runID))
		}
		return nil
	}

	stream, bodies, err := gen.Run(ctx, w0, mass, rc)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	meta, err := runMetadata(cfg, cfg.Seed, stream, elapsed)
	if err != nil {
		return err
	}
	meta.Potential = fmt.Sprint(gen.Hamiltonian().Potential)
	runID, err := st.Save(meta, stream, bodies)
	if err != nil {
		return err
	}
	log.Info().Str("run_id", runID).Dur("elapsed", elapsed).Msg("stream saved")

	fmt.Println(panel(cfg.Name,
		field("run id", "%s", runID),
		field("particles", "%d (%d lead)", stream.Len(), stream.NLead()),
		field("time", "%g", stream.T),
		field("integrator", "%s", cfg.Integrator),
		field("elapsed", "%v", elapsed.Round(time.Millisecond)),
		field("mean offset", "%.4g", meta.Metrics["mean_offset"]),
	))
	return nil
}

func runMetadata(cfg *config.Config, seed uint64, s *mockstream.Stream, elapsed time.Duration) (storage.RunMetadata, error) {
	usys, err := cfg.UnitSystem()
	if err != nil {
		return storage.RunMetadata{}, fmt.Errorf("run metadata: %w", err)
	}
	return storage.RunMetadata{
		Model:        cfg.Name,
		Seed:         seed,
		Dt:           cfg.Stream.Dt,
		NSteps:       cfg.Stream.NSteps,
		ReleaseEvery: cfg.Stream.ReleaseEvery,
		Integrator:   cfg.Integrator,
		Units:        usys.String(),
		Metrics: map[string]float64{
			"mean_offset": meanOffset(s),
			"lead_frac":   leadFraction(s),
			"elapsed_ms":  float64(elapsed.Microseconds()) / 1000,
		},
	}, nil
}

// meanOffset is the mean distance of stream particles from the progenitor.
func meanOffset(s *mockstream.Stream) float64 {
	if s.Len() == 0 || s.Progenitor == nil {
		return 0
	}
	sum := 0.0
	for _, p := range s.W.Pos {
		sum += r3.Norm(r3.Sub(p, s.Progenitor.Pos[0]))
	}
	return sum / float64(s.Len())
}

func leadFraction(s *mockstream.Stream) float64 {
	if s.Len() == 0 {
		return 0
	}
	return float64(s.NLead()) / float64(s.Len())
}
