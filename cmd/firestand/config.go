package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		GroupID: gAdvanced,
		Short:   "Change acquisition settings",
		Long: `Change acquisition settings.

Settings cannot be changed while a test fire is being recorded. Other keys
are edited in the config file; send SIGHUP to the daemon to reload it.`,
	}

	cmd.AddCommand(
		newSetConfigCommand("rate <hz>", "Set the scan rate in Hz", func(args []string) (string, error) {
			hz, err := parseFloatArg(args[0], "rate")
			if err != nil {
				return "", err
			}
			return newClient().SetRate(hz)
		}),
		newSetConfigCommand("samples-per-channel <n>", "Set the ring buffer depth per channel", func(args []string) (string, error) {
			n, err := parseIntArg(args, "samples per channel")
			if err != nil {
				return "", err
			}
			return newClient().SetSamplesPerChannel(n)
		}),
		newSetConfigCommand("poll-interval <ms>", "Set the acquisition poll interval in milliseconds", func(args []string) (string, error) {
			ms, err := parseIntArg(args, "poll interval")
			if err != nil {
				return "", err
			}
			return newClient().SetPollInterval(ms)
		}),
		newSetConfigCommand("export-root <dir>", "Set the directory exports are written under", func(args []string) (string, error) {
			return newClient().SetExportRoot(args[0])
		}),
	)

	return cmd
}

func newSetConfigCommand(use, short string, set func(args []string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ret, err := set(args)
			if err != nil {
				return err
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}
			return nil
		},
	}
}
