package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ubseds/firestand/pkg/types"
)

func parseIntArg(args []string, valueName string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("invalid number of arguments")
	}

	value, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

func parseFloatArg(arg string, valueName string) (float64, error) {
	value, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}
	return value, nil
}

// reportCommand prints the outcome of a lifecycle command. A rejected
// command is reported but not treated as a failure.
func reportCommand(cmd *cobra.Command, what string, res *types.CommandResult, err error) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if !res.Accepted {
		logrus.Warnf("cannot %s now: %s", what, res.Message)
		cmd.Printf("State: %s\n", bold("%s", res.State))
		return nil
	}
	if res.Message != "" {
		logrus.Infof("daemon responded: %s", res.Message)
	}
	cmd.Printf("%s %s, state: %s\n", bool2Text(true), what, bold("%s", res.State))
	return nil
}

// newLifecycleCommand builds a command that sends one argument-less
// lifecycle command.
func newLifecycleCommand(use, short, what string, send func() (*types.CommandResult, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := send()
			return reportCommand(cmd, what, res, err)
		},
	}
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
