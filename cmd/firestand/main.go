package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ubseds/firestand/pkg/client"
	"github.com/ubseds/firestand/pkg/version"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/firestand.sock"
	configPath     = "/etc/firestand.json"
)

var (
	gCalibration  = "Calibration:"
	gTestFire     = "Test fire:"
	gAdvanced     = "Advanced:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gCalibration,
		gTestFire,
		gAdvanced,
		gInstallation,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(w io.Writer, err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(w, "\nError: firestand daemon is not running")
		fmt.Fprintln(w, "Install it with 'sudo firestand install', or run 'firestand daemon --simulate' in the foreground.")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(w, "\nError: Permission Denied")
		fmt.Fprintln(w, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(w, "  - Or reinstall the daemon with 'sudo firestand install --allow-non-root-access' to let your user drive the stand")
	}
}

func newClient() *client.Client {
	return client.NewClient(unixSocketPath)
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(os.Stderr, err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "firestand",
		Short: "firestand runs rocket motor static test fires",
		Long: `firestand runs rocket motor static test fires.

It calibrates the load cell against known weights, records pressure and
thrust from a USB DAQ during the burn, and exports the captured series as
CSV files. A daemon owns the hardware; every other command talks to it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			// The daemon, installation and plain version queries skip the check.
			switch cmd.Name() {
			case "daemon", "version", "install", "uninstall":
				return nil
			}
			if daemonVersion, err := newClient().GetVersion(); err == nil && daemonVersion != version.Version {
				logrus.WithFields(logrus.Fields{
					"clientVersion": version.Version,
					"daemonVersion": daemonVersion,
				}).Warn("Version mismatch between client and daemon. firestand may not work as expected.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "firestand daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewDevicesCommand(),
		NewCalibrationCommand(),
		NewFireCommand(),
		NewReviewCommand(),
		NewSaveCommand(),
		NewMonitorCommand(),
		NewEventsCommand(),
		NewConfigCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
