package events

import "encoding/json"

// Event names
const (
	LifecycleState   = "lifecycle.state"
	CalibrationFit   = "calibration.fit"
	AcquisitionError = "acquisition.error"
	ExportSaved      = "export.saved"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// LifecycleStateEvent is the payload for lifecycle.state.
type LifecycleStateEvent struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Command string `json:"command"`
	Message string `json:"message,omitempty"`
	Ts      int64  `json:"ts"`
}

// CalibrationFitEvent is the payload for calibration.fit. Slope and
// Intercept are only meaningful when Valid is set.
type CalibrationFitEvent struct {
	Points    int     `json:"points"`
	Valid     bool    `json:"valid"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Error     string  `json:"error,omitempty"`
	Ts        int64   `json:"ts"`
}

// AcquisitionErrorEvent is the payload for acquisition.error.
type AcquisitionErrorEvent struct {
	Op    string `json:"op"`
	Error string `json:"error"`
	Ts    int64  `json:"ts"`
}

// ExportSavedEvent is the payload for export.saved.
type ExportSavedEvent struct {
	Dir      string `json:"dir"`
	RecordID string `json:"recordId"`
	Samples  int    `json:"samples"`
	Ts       int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.LifecycleStateEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.From, payload.To)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
