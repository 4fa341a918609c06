package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ubseds/firestand/pkg/config"
	"github.com/ubseds/firestand/pkg/lifecycle"
	"github.com/ubseds/firestand/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gTestFire,
		Short:   "Show the workflow state, calibration and acquisition progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newClient()
			st, err := c.GetStatus()
			if err != nil {
				return err
			}

			if asJSON {
				b, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}

			raw, err := c.GetConfig()
			if err != nil {
				return fmt.Errorf("failed to get config: %w", err)
			}
			printStatus(cmd, st, config.NewFileFromConfig(raw, ""))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw status as JSON")

	return cmd
}

func printStatus(cmd *cobra.Command, st *lifecycle.Status, conf *config.File) {
	cmd.Println(bold("Workflow:"))
	cmd.Printf("  State: %s\n", bold("%s", st.State))
	cmd.Printf("  Available: %s\n", strings.Join(st.Allowed, ", "))
	if st.LastError != "" {
		cmd.Printf("  Last error: %s\n", color.RedString(st.LastError))
	}
	if st.LastExport != "" {
		cmd.Printf("  Last export: %s\n", st.LastExport)
	}
	cmd.Println()

	cmd.Println(bold("Calibration:"))
	if len(st.Points) == 0 {
		cmd.Println("  No points yet.")
	}
	for i, p := range st.Points {
		cmd.Printf("  [%d] %8.3f lb  %.6f V\n", i, p.Weight, p.Voltage)
	}
	switch {
	case st.FitError != "":
		cmd.Printf("  Fit: %s %s\n", bool2Text(false), st.FitError)
	case st.Fit != nil:
		cmd.Printf("  Fit: %s weight = %s\n", bool2Text(true), bold("%.6f * V %+.6f", st.Fit.Slope, st.Fit.Intercept))
	default:
		cmd.Printf("  Fit: %s need at least 5 points\n", bool2Text(false))
	}
	cmd.Println()

	cmd.Println(bold("Acquisition:"))
	cmd.Printf("  Running: %s\n", bool2Text(st.Acquiring))
	if st.Acquiring {
		cmd.Printf("  Elapsed: %s\n", bold("%.1f s", st.ElapsedSeconds))
		cmd.Printf("  Captured: %s\n", bold("%d scans", st.Captured))
		if st.Latest != nil && len(st.Latest.Values) == 2 {
			cmd.Printf("  Latest: pressure %s, load %s\n",
				bold("%.4f V", st.Latest.Values[0]), bold("%.4f V", st.Latest.Values[1]))
		}
	}
	if st.AcquisitionError != "" {
		cmd.Printf("  Aborted: %s\n", color.RedString(st.AcquisitionError))
		cmd.Println("  Run 'firestand fire terminate' to discard the run and return to FIRE_START.")
	}
	if st.Record != nil {
		cmd.Printf("  Record: %s, %s at %.0f Hz", st.Record.ID, bold("%d scans", st.Record.Samples), st.Record.Rate)
		if st.Record.Dropped > 0 {
			cmd.Printf(", %s", color.YellowString("%d dropped", st.Record.Dropped))
		}
		cmd.Println()
	}
	cmd.Println()

	cmd.Println(bold("Configuration:"))
	cmd.Printf("  Device index: %d\n", conf.DeviceIndex())
	cmd.Printf("  Channels: pressure CH%d, load CH%d\n", conf.PressureChannel(), conf.LoadChannel())
	cmd.Printf("  Rate: %s\n", bold("%g Hz", conf.Rate()))
	cmd.Printf("  Buffer: %d samples per channel\n", conf.SamplesPerChannel())
	cmd.Printf("  Poll interval: %s\n", conf.PollInterval())
	cmd.Printf("  Calibration read: %d samples at %g Hz after %s\n",
		conf.CalibrationSamples(), conf.CalibrationRate(), conf.CalibrationSettle())
	cmd.Printf("  Export root: %s\n", conf.ExportRoot())
	cmd.Printf("  Legacy channel clipping: %s\n", bool2Text(conf.LegacyChannelClipping()))
	cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
}

func NewDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "devices",
		GroupID: gAdvanced,
		Short:   "List the DAQ devices the daemon can see",
		RunE: func(cmd *cobra.Command, _ []string) error {
			descs, err := newClient().GetDevices()
			if err != nil {
				return err
			}
			if len(descs) == 0 {
				cmd.Println("No DAQ devices found.")
				return nil
			}
			for _, d := range descs {
				cmd.Printf("  [%d] %s (%s, %s)\n", d.Index, bold("%s", d.ProductName), d.UniqueID, d.Interface)
			}
			return nil
		},
	}
}
