package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/galdyn/internal/potential"
)

var evalTime float64

func newPotentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "potential",
		Short: "inspect the external potential",
	}

	saveCmd := &cobra.Command{
		Use:   "save [path]",
		Short: "write the potential as yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRun(cmd)
			if err != nil {
				return err
			}
			pot, err := cfg.BuildPotential()
			if err != nil {
				return err
			}
			return potential.SaveFile(args[0], pot)
		},
	}
	addRunFlags(saveCmd)

	evalCmd := &cobra.Command{
		Use:   "eval x y z",
		Short: "evaluate the potential at a position",
		Args:  cobra.ExactArgs(3),
		RunE:  evalPotential,
	}
	addRunFlags(evalCmd)
	evalCmd.Flags().Float64Var(&evalTime, "t", 0, "evaluation time")

	cmd.AddCommand(saveCmd, evalCmd)
	return cmd
}

func evalPotential(cmd *cobra.Command, args []string) error {
	var xyz [3]float64
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("coordinate %d: %w", i, err)
		}
		xyz[i] = v
	}
	x := r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}

	cfg, err := loadRun(cmd)
	if err != nil {
		return err
	}
	pot, err := cfg.BuildPotential()
	if err != nil {
		return err
	}

	fmt.Println(panel(pot.Name(),
		field("units", "%s", pot.Units()),
		field("energy", "%.6g", pot.Energy(x, evalTime)),
		field("gradient", "%.6g", pot.Gradient(x, evalTime)),
		field("mass encl", "%.6g", potential.MassEnclosed(pot, x, evalTime)),
		field("v circ", "%.6g", potential.CircularVelocity(pot, x, evalTime)),
	))
	return nil
}
