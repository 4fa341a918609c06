package lifecycle

import (
	"github.com/ubseds/firestand/pkg/acquisition"
	"github.com/ubseds/firestand/pkg/calibration"
	"github.com/ubseds/firestand/pkg/types"
)

// Status is a snapshot of everything the presentation layer renders.
type Status struct {
	State     State               `json:"state"`
	Allowed   []string            `json:"allowed"`
	Points    []calibration.Point `json:"points"`
	Fit       *calibration.Fit    `json:"fit,omitempty"`
	FitError  string              `json:"fitError,omitempty"`
	Acquiring bool                `json:"acquiring"`

	// ElapsedSeconds is the time since the running session started.
	ElapsedSeconds float64              `json:"elapsedSeconds"`
	Captured       int                  `json:"captured"`
	Latest         *acquisition.Sample  `json:"latest,omitempty"`
	Record         *types.RecordSummary `json:"record,omitempty"`

	// AcquisitionError is set when a device error aborted the session.
	// Terminate to return to FIRE_START.
	AcquisitionError string `json:"acquisitionError,omitempty"`
	LastError        string `json:"lastError,omitempty"`
	LastExport       string `json:"lastExport,omitempty"`
}

// Status returns the current view model.
func (c *Controller) Status() Status {
	c.mu.RLock()
	st := Status{
		State:      c.state,
		LastError:  c.lastErr,
		LastExport: c.lastExport,
	}
	session := c.session
	rec := c.record
	c.mu.RUnlock()

	for _, cmd := range Allowed(st.State) {
		st.Allowed = append(st.Allowed, cmd.String())
	}

	st.Points = c.estimator.Points()
	fit, err := c.estimator.Fit()
	if err != nil {
		st.FitError = err.Error()
	}
	st.Fit = fit

	if session != nil {
		st.Acquiring = session.State() == acquisition.StateRunning
		if err := session.Err(); err != nil {
			st.AcquisitionError = err.Error()
		}
		st.ElapsedSeconds = session.Elapsed().Seconds()
		st.Captured = session.Captured()
		if s, ok := session.Latest(); ok {
			st.Latest = &s
		}
	}
	if rec != nil {
		sum := rec.Summary()
		st.Record = &sum
	}
	return st
}
