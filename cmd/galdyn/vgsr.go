package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/san-kum/galdyn/internal/coordinates"
)

var (
	skyL, skyB    float64
	skyRA, skyDec float64
	useICRS       bool
	radialVel     float64
	toHelio       bool
)

func newVGSRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vgsr",
		Short: "convert between heliocentric and galactic standard of rest radial velocity",
		RunE:  runVGSR,
	}
	cmd.Flags().Float64Var(&skyL, "l", 0, "galactic longitude (deg)")
	cmd.Flags().Float64Var(&skyB, "b", 0, "galactic latitude (deg)")
	cmd.Flags().Float64Var(&skyRA, "ra", 0, "right ascension (deg)")
	cmd.Flags().Float64Var(&skyDec, "dec", 0, "declination (deg)")
	cmd.Flags().BoolVar(&useICRS, "icrs", false, "read ra/dec instead of l/b")
	cmd.Flags().Float64Var(&radialVel, "v", 0, "radial velocity (km/s)")
	cmd.Flags().BoolVar(&toHelio, "to-helio", false, "input is v_gsr, output v_hel")
	return cmd
}

func runVGSR(cmd *cobra.Command, args []string) error {
	var c coordinates.Sky = coordinates.Galactic{L: coordinates.Rad(skyL), B: coordinates.Rad(skyB)}
	if useICRS {
		c = coordinates.ICRS{RA: coordinates.Rad(skyRA), Dec: coordinates.Rad(skyDec)}
	}
	vsun := coordinates.DefaultVSun()

	if toHelio {
		fmt.Println(field("v_hel", "%.4f km/s", coordinates.VGSRToVHel(c, radialVel, vsun)))
		return nil
	}
	fmt.Println(field("v_gsr", "%.4f km/s", coordinates.VHelToVGSR(c, radialVel, vsun)))
	return nil
}
