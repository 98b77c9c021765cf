package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/config"
	"github.com/san-kum/galdyn/internal/storage"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run_id]",
		Short: "print a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
}

func newPlotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot stream offsets against release time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				fmt.Printf("  %s %s\n", name, subtleStyle.Render(fmt.Sprintf(
					"steps=%d dt=%g release_every=%d particles=%d",
					p.Stream.NSteps, p.Stream.Dt, p.Stream.ReleaseEvery, p.Stream.NParticles)))
			}
			return nil
		},
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tSTEPS\tDT\tINTEG\tPARTICLES\tSEED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%s\t%d\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.NSteps,
			run.Dt,
			run.Integrator,
			run.NParticles,
			run.Seed,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	stream, err := st.LoadStream(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, stream)
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	stream, err := st.LoadStream(args[0])
	if err != nil {
		return err
	}
	if stream.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	p := meta.Progenitor
	prog := r3.Vec{X: p[0], Y: p[1], Z: p[2]}

	var lead, trail []float64
	order := make([]int, stream.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return stream.ReleaseTime[order[a]] < stream.ReleaseTime[order[b]]
	})
	for _, i := range order {
		d := r3.Norm(r3.Sub(stream.W.Pos[i], prog))
		if stream.Lead[i] {
			lead = append(lead, d)
		} else {
			trail = append(trail, d)
		}
	}

	fmt.Println(titleStyle.Render(meta.ID))
	for _, series := range []struct {
		caption string
		data    []float64
	}{
		{"leading offset by release", lead},
		{"trailing offset by release", trail},
	} {
		if len(series.data) == 0 {
			continue
		}
		fmt.Println(asciigraph.Plot(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series.caption),
		))
		fmt.Println()
	}
	return nil
}
