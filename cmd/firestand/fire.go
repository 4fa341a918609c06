package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ubseds/firestand/pkg/types"
)

func NewFireCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fire",
		GroupID: gTestFire,
		Short:   "Start and terminate the test fire acquisition",
	}

	cmd.AddCommand(
		newLifecycleCommand("start", "Start recording pressure and load", "start test fire",
			func() (*types.CommandResult, error) { return newClient().StartFire() }),
		newLifecycleCommand("terminate", "Stop recording and build the test fire record", "terminate test fire",
			func() (*types.CommandResult, error) { return newClient().TerminateFire() }),
	)

	return cmd
}

func NewReviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "review",
		GroupID: gTestFire,
		Short:   "Step through the captured pressure, raw load and calibrated load",
	}

	cmd.AddCommand(
		newLifecycleCommand("next", "Show the next series", "advance review",
			func() (*types.CommandResult, error) { return newClient().NextReview() }),
		newLifecycleCommand("previous", "Show the previous series", "retreat review",
			func() (*types.CommandResult, error) { return newClient().PreviousReview() }),
		newLifecycleCommand("proceed", "Leave the review and go to save", "proceed to save",
			func() (*types.CommandResult, error) { return newClient().ProceedToSave() }),
		newSummaryCommand(),
	)

	return cmd
}

func newSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print statistics of the captured record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := newClient().GetRecord()
			if err != nil {
				return err
			}
			printSummary(cmd, rec)
			return nil
		},
	}
}

func NewSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "save <token>...",
		GroupID: gTestFire,
		Short:   "Export the record into a directory named by the tokens",
		Long: `Export the record into a directory named by the tokens.

The tokens are joined with underscores, e.g. 'firestand save 2026-10-19 J350 fire1'
writes to <exportRoot>/2026-10-19_J350_fire1.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient().Save(args...)
			if err != nil {
				return fmt.Errorf("failed to save: %w", err)
			}
			if !res.Accepted {
				return reportCommand(cmd, "save", res, nil)
			}
			cmd.Printf("%s saved to %s\n", bool2Text(true), bold("%s", res.Dir))
			return nil
		},
	}
}
