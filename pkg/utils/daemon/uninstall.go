package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Uninstall stops and disables the service and removes its unit. A missing
// unit is not an error.
func Uninstall() error {
	// if the file doesn't exist, there is nothing to stop
	_, err := os.Stat(unitPath)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Infof("%s does not exist, nothing to uninstall", unitPath)
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", unitPath, err)
	}

	logrus.Infof("stopping firestand")

	out, err := exec.Command(systemctl, "disable", "--now", filepath.Base(unitPath)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to disable %s: %w: %s. Are you root?", unitPath, err, strings.TrimSpace(string(out)))
	}

	logrus.Infof("removing systemd unit")

	err = os.Remove(unitPath)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w. Are you root?", unitPath, err)
	}

	return exec.Command(systemctl, "daemon-reload").Run()
}
