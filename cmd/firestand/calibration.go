package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ubseds/firestand/pkg/types"
)

func NewCalibrationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calibration",
		Aliases: []string{"cal"},
		GroupID: gCalibration,
		Short:   "Calibrate the load cell against known weights",
		Long: `Calibrate the load cell against known weights.

Acknowledge the setup first, then hang each known weight on the load cell
and add it as a point. At least five points with different voltages are
needed before the calibration can be finished.`,
	}

	c := newClient
	cmd.AddCommand(
		newLifecycleCommand("ack", "Confirm the load cell is mounted for calibration", "acknowledge setup",
			func() (*types.CommandResult, error) { return c().Acknowledge() }),
		newAddPointCommand(),
		newRemovePointCommand(),
		newFitCommand(),
		newLifecycleCommand("finish", "Finish calibration and move on to the test fire", "finish calibration",
			func() (*types.CommandResult, error) { return c().FinishCalibration() }),
	)

	return cmd
}

func newAddPointCommand() *cobra.Command {
	var voltage float64

	cmd := &cobra.Command{
		Use:   "add <weight>",
		Short: "Add a calibration point for a weight in pounds",
		Long: `Add a calibration point for a weight in pounds.

Without --voltage the daemon averages the load cell channel, which takes a
few seconds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weight, err := parseFloatArg(args[0], "weight")
			if err != nil {
				return err
			}

			var v *float64
			if cmd.Flags().Changed("voltage") {
				v = &voltage
			} else {
				cmd.Println("Reading load cell voltage...")
			}

			res, err := newClient().AddCalibrationPoint(weight, v)
			return reportCommand(cmd, fmt.Sprintf("add %g lb", weight), res, err)
		},
	}

	cmd.Flags().Float64Var(&voltage, "voltage", 0, "use this voltage instead of reading the device")

	return cmd
}

func newRemovePointCommand() *cobra.Command {
	var index int

	cmd := &cobra.Command{
		Use:   "remove [<weight> <voltage>]",
		Short: "Remove a calibration point",
		Long: `Remove a calibration point.

Either give the weight and voltage of the point, which removes the first
point with exactly those values, or select it with --index.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()

			if cmd.Flags().Changed("index") {
				if len(args) != 0 {
					return fmt.Errorf("--index cannot be combined with weight and voltage")
				}
				res, err := c.RemoveCalibrationPointAt(index)
				return reportCommand(cmd, fmt.Sprintf("remove point %d", index), res, err)
			}

			if len(args) != 2 {
				return fmt.Errorf("need <weight> <voltage> or --index")
			}
			weight, err := parseFloatArg(args[0], "weight")
			if err != nil {
				return err
			}
			voltage, err := parseFloatArg(args[1], "voltage")
			if err != nil {
				return err
			}
			res, err := c.RemoveCalibrationPoint(weight, voltage)
			return reportCommand(cmd, fmt.Sprintf("remove %g lb / %g V", weight, voltage), res, err)
		},
	}

	cmd.Flags().IntVar(&index, "index", 0, "insertion index of the point, as shown by status")

	return cmd
}

func newFitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fit",
		Short: "Show the current calibration fit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := newClient().GetFit()
			if err != nil {
				return err
			}

			cmd.Printf("Points: %s\n", bold("%d", res.Points))
			switch {
			case res.Error != "":
				cmd.Printf("Fit: %s %s\n", bool2Text(false), res.Error)
			case res.Fit == nil:
				cmd.Printf("Fit: %s need at least 5 points\n", bool2Text(false))
			default:
				cmd.Printf("Slope: %s\n", bold("%.9g lb/V", res.Fit.Slope))
				cmd.Printf("Intercept: %s\n", bold("%.9g lb", res.Fit.Intercept))
			}
			return nil
		},
	}
}
