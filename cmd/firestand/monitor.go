package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ubseds/firestand/pkg/events"
	"github.com/ubseds/firestand/pkg/types"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func NewMonitorCommand() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:     "monitor",
		GroupID: gTestFire,
		Short:   "Print live pressure and load readings until interrupted",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			return newClient().Live(ctx, interval, func(f types.LiveFrame) error {
				if f.Sample == nil || len(f.Sample.Values) < 2 {
					cmd.Printf("%-28s waiting for data\n", f.State)
					return nil
				}
				cmd.Printf("%-28s %7.2fs  pressure %9.5f V  load %9.5f V  index %6d  scans %8d  total %9d\n",
					f.State, f.ElapsedSeconds, f.Sample.Values[0], f.Sample.Values[1],
					f.Sample.Index, f.Sample.ScanCount, f.Sample.TotalCount)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "refresh interval")

	return cmd
}

func NewEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "events",
		GroupID: gAdvanced,
		Short:   "Print daemon events until interrupted",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			return newClient().Events(ctx, func(ev events.Event) error {
				cmd.Println(formatEvent(ev))
				return nil
			})
		},
	}
}

func formatEvent(ev events.Event) string {
	switch ev.Name {
	case events.LifecycleState:
		p, err := events.DecodeAs[events.LifecycleStateEvent](ev)
		if err != nil {
			break
		}
		return bold("%s", p.Command) + ": " + p.From + " -> " + color.CyanString(p.To)
	case events.CalibrationFit:
		p, err := events.DecodeAs[events.CalibrationFitEvent](ev)
		if err != nil {
			break
		}
		if !p.Valid {
			msg := color.YellowString("no fit")
			if p.Error != "" {
				msg += " (" + p.Error + ")"
			}
			return bold("calibration") + ": " + strconv.Itoa(p.Points) + " points, " + msg
		}
		return bold("calibration") + ": " + strconv.Itoa(p.Points) + " points, " +
			bold("%.6f * V %+.6f", p.Slope, p.Intercept)
	case events.AcquisitionError:
		p, err := events.DecodeAs[events.AcquisitionErrorEvent](ev)
		if err != nil {
			break
		}
		return color.RedString("acquisition %s failed: %s", p.Op, p.Error)
	case events.ExportSaved:
		p, err := events.DecodeAs[events.ExportSavedEvent](ev)
		if err != nil {
			break
		}
		return color.GreenString("saved %d scans to %s", p.Samples, p.Dir)
	}
	return ev.Name + ": " + string(ev.Data)
}
