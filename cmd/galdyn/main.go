package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/galdyn/internal/logging"
)

var (
	dataDir string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "galdyn",
		Short:        "galactic orbits and mock stellar streams",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				os.Setenv(logging.EnvLogLevel, "debug")
			}
			logging.ConfigureRuntime()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".galdyn", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newStreamCmd(),
		newOrbitCmd(),
		newListCmd(),
		newShowCmd(),
		newPlotCmd(),
		newPresetsCmd(),
		newPotentialCmd(),
		newVGSRCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
