package main

import (
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ubseds/firestand/pkg/config"
	daemonutils "github.com/ubseds/firestand/pkg/utils/daemon"
)

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowNonRootAccess := false
	installSimulated := false

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install firestand daemon as a systemd service",
		GroupID: gInstallation,
		Long: `Install firestand daemon as a systemd service.

This makes the daemon start on boot, so the stand is ready as soon as the
bench computer is. You must run this command as root.

By default, only root user is allowed to access the daemon. Use --allow-non-root-access to let the operator account drive the stand without sudo.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			conf.SetAllowNonRootAccess(allowNonRootAccess)
			if allowNonRootAccess {
				logrus.Info("non-root users are allowed to access the firestand daemon.")
			} else {
				logrus.Info("only root user is allowed to access the firestand daemon.")
			}

			args := []string{"--config", configPath, "--daemon-socket", unixSocketPath}
			if installSimulated {
				args = append(args, "--simulate")
			}

			err = daemonutils.Install(args...)
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install daemon: %v. Are you root?", err)
			}

			err = conf.Save()
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to save config")
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()

			cmd.Printf("systemd will use the current binary (%s) at startup. If you move or delete it, run `firestand install' again.\n", exePath)

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonRootAccess, "allow-non-root-access", false, "Allow non-root users to access firestand daemon.")
	cmd.Flags().BoolVar(&installSimulated, "simulate", false, "Run the installed daemon against the simulated DAQ.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall firestand daemon service",
		GroupID: gInstallation,
		Long: `Stop the firestand daemon and remove its systemd unit.

You must run this command as root.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := daemonutils.Uninstall()
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}

			fmt.Println("successfully uninstalled")

			cmd.Printf("Your config is kept in %s. Exported test fires are not touched.\n", configPath)

			return nil
		},
	}
}
