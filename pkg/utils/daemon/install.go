// Package daemon installs the firestand daemon as a systemd service.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	unitPath  = "/etc/systemd/system/firestand.service"
	systemctl = "systemctl"
)

const unitTemplate = `[Unit]
Description=firestand test stand daemon
After=network.target

[Service]
Type=simple
ExecStart=/path/to/firestand daemon ARGS
Restart=on-failure
RestartSec=2

[Install]
WantedBy=multi-user.target
`

// Unit renders the service unit for the executable at exePath. args are
// appended to the daemon command line.
func Unit(exePath string, args ...string) string {
	unit := strings.ReplaceAll(unitTemplate, "/path/to/firestand", exePath)
	return strings.ReplaceAll(unit, " ARGS", joinArgs(args))
}

func joinArgs(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return " " + strings.Join(args, " ")
}

// Install writes the unit for the current executable, then enables and
// starts it.
func Install(args ...string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	dir := filepath.Dir(unitPath)
	logrus.Infof("writing systemd unit to %s", dir)

	// mkdir -p
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	// warn if the file already exists
	_, err = os.Stat(unitPath)
	if err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath)
	}

	err = os.WriteFile(unitPath, []byte(Unit(exePath, args...)), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath, err)
	}

	logrus.Infof("starting firestand")

	for _, a := range [][]string{
		{"daemon-reload"},
		{"enable", "--now", filepath.Base(unitPath)},
	} {
		if out, err := exec.Command(systemctl, a...).CombinedOutput(); err != nil {
			return fmt.Errorf("systemctl %s: %w: %s", strings.Join(a, " "), err, strings.TrimSpace(string(out)))
		}
	}

	return nil
}
