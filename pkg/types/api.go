package types

import (
	"github.com/ubseds/firestand/pkg/acquisition"
	"github.com/ubseds/firestand/pkg/calibration"
)

// CommandResult is the daemon's answer to a lifecycle command. A command
// issued in the wrong state is answered with Accepted false and no error.
type CommandResult struct {
	Accepted bool   `json:"accepted"`
	State    string `json:"state"`
	Message  string `json:"message,omitempty"`
	Dir      string `json:"dir,omitempty"`
}

// CalibrationPointRequest adds a calibration point. Without Voltage the
// daemon reads it from the load cell channel.
type CalibrationPointRequest struct {
	Weight  float64  `json:"weight"`
	Voltage *float64 `json:"voltage,omitempty"`
}

// RemovePointRequest removes a point by insertion index, or else the first
// point equal to Weight and Voltage.
type RemovePointRequest struct {
	Index   *int     `json:"index,omitempty"`
	Weight  *float64 `json:"weight,omitempty"`
	Voltage *float64 `json:"voltage,omitempty"`
}

// FitResult reports the current calibration fit.
type FitResult struct {
	Points int              `json:"points"`
	Fit    *calibration.Fit `json:"fit,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// SaveRequest carries the tokens naming the export directory.
type SaveRequest struct {
	Tokens []string `json:"tokens"`
}

// LiveFrame is one message on the /live websocket.
type LiveFrame struct {
	State          string              `json:"state"`
	ElapsedSeconds float64             `json:"elapsedSeconds"`
	Captured       int                 `json:"captured"`
	Sample         *acquisition.Sample `json:"sample,omitempty"`
}
