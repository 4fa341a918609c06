// Package lifecycle implements the operator workflow of a test fire as an
// explicit state machine. The Controller owns the calibration estimator,
// at most one acquisition session and the record produced by it.
package lifecycle

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ubseds/firestand/pkg/acquisition"
	"github.com/ubseds/firestand/pkg/calibration"
	"github.com/ubseds/firestand/pkg/daq"
	"github.com/ubseds/firestand/pkg/events"
	"github.com/ubseds/firestand/pkg/export"
	"github.com/ubseds/firestand/pkg/types"
)

// VoltageSource produces the load cell voltage for a calibration point.
type VoltageSource func(ctx context.Context) (float64, error)

// Exporter writes a record under root and returns the directory used.
type Exporter func(rec *types.TestFireRecord, root string, tokens ...string) (string, error)

// Settings are read at the moment a command needs them, so configuration
// changes apply to the next acquisition.
type Settings struct {
	DeviceIndex int
	Session     acquisition.Options
	Voltage     acquisition.VoltageOptions
	ExportRoot  string
}

// SettingsFunc returns the current settings.
type SettingsFunc func() Settings

// errNoop makes apply reject a command whose state is valid but which has
// nothing to act on.
var errNoop = errors.New("no-op")

var ErrNoFit = errors.New("no calibration fit available")

// Controller serializes operator commands. Reads through Status and the
// other accessors never wait for a command in progress.
type Controller struct {
	drv      daq.Driver
	settings SettingsFunc
	exporter Exporter
	hub      *events.EventHub

	estimator *calibration.Estimator

	// cmdMu is held for the whole of a command, including slow side
	// effects such as reading a calibration voltage.
	cmdMu sync.Mutex

	mu         sync.RWMutex
	state      State
	session    *acquisition.Session
	record     *types.TestFireRecord
	lastErr    string
	lastExport string

	onEnter map[State]func()
}

// Option customizes a Controller.
type Option func(*Controller)

// WithExporter replaces export.Export.
func WithExporter(e Exporter) Option {
	return func(c *Controller) { c.exporter = e }
}

// WithEventHub publishes state and fit changes to hub.
func WithEventHub(hub *events.EventHub) Option {
	return func(c *Controller) { c.hub = hub }
}

// NewController returns a controller in CALIBRATION_REMINDER.
func NewController(drv daq.Driver, settings SettingsFunc, opts ...Option) *Controller {
	c := &Controller{
		drv:       drv,
		settings:  settings,
		exporter:  export.Export,
		estimator: calibration.NewEstimator(),
		state:     CalibrationReminder,
	}
	for _, o := range opts {
		o(c)
	}
	c.onEnter = map[State]func(){
		CalibrationReminder: c.resetWorkflow,
		FireStart:           c.dropRecord,
	}
	return c
}

// apply runs cmd against the transition table. effect runs only when cmd
// is valid in the current state; the transition happens only when effect
// succeeds. The returned bool reports whether the command was accepted.
func (c *Controller) apply(cmd Command, effect func() error) (bool, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	from := c.State()
	to, ok := Next(from, cmd)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"state":   from,
			"command": cmd,
		}).Debug("command rejected in current state")
		return false, nil
	}

	if effect != nil {
		if err := effect(); err != nil {
			if errors.Is(err, errNoop) {
				return false, nil
			}
			c.setLastErr(err)
			if fallback, ok := failures[edge{from, cmd}]; ok {
				c.enter(from, fallback, cmd, err.Error())
			}
			return false, err
		}
	}

	c.setLastErr(nil)
	c.enter(from, to, cmd, "")
	return true, nil
}

func (c *Controller) enter(from, to State, cmd Command, msg string) {
	c.mu.Lock()
	c.state = to
	c.mu.Unlock()

	if from == to {
		return
	}

	if hook, ok := c.onEnter[to]; ok {
		hook()
	}

	logrus.WithFields(logrus.Fields{
		"from":    from,
		"to":      to,
		"command": cmd,
	}).Info("lifecycle state changed")

	c.hub.Publish(events.LifecycleState, events.LifecycleStateEvent{
		From:    from.String(),
		To:      to.String(),
		Command: cmd.String(),
		Message: msg,
		Ts:      time.Now().Unix(),
	})
}

func (c *Controller) setLastErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.lastErr = ""
		return
	}
	c.lastErr = err.Error()
}

// resetWorkflow starts a fresh calibration after a saved record.
func (c *Controller) resetWorkflow() {
	c.estimator.Reset()
	c.dropRecord()
	c.publishFit()
}

func (c *Controller) dropRecord() {
	c.mu.Lock()
	c.record = nil
	c.mu.Unlock()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Acknowledge confirms the operator has set up the calibration rig.
func (c *Controller) Acknowledge() (bool, error) {
	return c.apply(Acknowledge, nil)
}

// SubmitCalibrationPoint reads a voltage from src and records it against
// weight. A failed read leaves the points unchanged.
func (c *Controller) SubmitCalibrationPoint(ctx context.Context, weight float64, src VoltageSource) (bool, error) {
	return c.apply(AddPoint, func() error {
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			return pkgerrors.Errorf("invalid calibration weight %v", weight)
		}
		if src == nil {
			return pkgerrors.New("no voltage source")
		}
		v, err := src(ctx)
		if err != nil {
			return pkgerrors.Wrap(err, "failed to read calibration voltage")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return pkgerrors.Errorf("voltage source returned %v", v)
		}

		c.estimator.Add(weight, v)
		logrus.WithFields(logrus.Fields{
			"weight":  weight,
			"voltage": v,
			"points":  c.estimator.Len(),
		}).Info("calibration point added")
		c.publishFit()
		return nil
	})
}

// RemoveCalibrationPoint removes the first point equal to (weight,
// voltage). It is rejected when no point matches.
func (c *Controller) RemoveCalibrationPoint(weight, voltage float64) (bool, error) {
	return c.apply(RemovePoint, func() error {
		if !c.estimator.Remove(weight, voltage) {
			return errNoop
		}
		c.publishFit()
		return nil
	})
}

// RemoveCalibrationPointAt removes the point at insertion index i.
func (c *Controller) RemoveCalibrationPointAt(i int) (bool, error) {
	return c.apply(RemovePoint, func() error {
		if !c.estimator.RemoveAt(i) {
			return errNoop
		}
		c.publishFit()
		return nil
	})
}

// CurrentFit returns the fit over all current points. It is nil below
// calibration.MinPoints.
func (c *Controller) CurrentFit() (*calibration.Fit, error) {
	return c.estimator.Fit()
}

// Points returns the calibration points in insertion order.
func (c *Controller) Points() []calibration.Point {
	return c.estimator.Points()
}

// FinishCalibration moves on to the test fire. It is rejected unless a fit
// exists.
func (c *Controller) FinishCalibration() (bool, error) {
	return c.apply(FinishCalibration, func() error {
		fit, err := c.estimator.Fit()
		if err != nil {
			logrus.WithError(err).Warn("cannot finish calibration")
			return errNoop
		}
		if fit == nil {
			logrus.WithField("points", c.estimator.Len()).Warn("cannot finish calibration with too few points")
			return errNoop
		}
		logrus.WithFields(logrus.Fields{
			"slope":     fit.Slope,
			"intercept": fit.Intercept,
		}).Info("calibration finished")
		return nil
	})
}

// StartTestFire connects to the device and starts an acquisition session.
// On failure the device is released and the state stays FIRE_START.
func (c *Controller) StartTestFire() (bool, error) {
	return c.apply(BeginFire, func() error {
		st := c.settings()
		dev, err := daq.Connect(c.drv, st.DeviceIndex)
		if err != nil {
			c.publishAcquisitionError("connect", err)
			return err
		}

		opts := st.Session
		opts.OnAbort = c.acquisitionAborted
		session := acquisition.NewSession(dev, opts)
		if err := session.Start(); err != nil {
			c.publishAcquisitionError("start", err)
			return err
		}

		c.mu.Lock()
		c.session = session
		c.mu.Unlock()
		return nil
	})
}

// TerminateTestFire stops the running session and builds the record. If
// the session was aborted by a device error the error is returned and the
// controller goes back to FIRE_START.
func (c *Controller) TerminateTestFire() (bool, error) {
	return c.apply(TerminateFire, func() error {
		c.mu.Lock()
		session := c.session
		c.session = nil
		c.mu.Unlock()

		if session == nil {
			return pkgerrors.New("no acquisition session is running")
		}

		// An aborted session was already reported by acquisitionAborted.
		res, err := session.Stop()
		if err != nil {
			return err
		}

		fit, err := c.estimator.Fit()
		if err != nil {
			return err
		}
		if fit == nil {
			return ErrNoFit
		}

		rec := &types.TestFireRecord{
			ID:             uuid.New(),
			StartedAt:      res.StartedAt,
			StoppedAt:      res.StoppedAt,
			Rate:           res.Rate,
			Dropped:        res.Dropped,
			Pressure:       res.Pressure,
			RawLoad:        res.Load,
			CalibratedLoad: fit.ApplyAll(res.Load),
			Fit:            *fit,
		}

		c.mu.Lock()
		c.record = rec
		c.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"record":  rec.ID.String(),
			"samples": rec.Len(),
			"dropped": rec.Dropped,
		}).Info("test fire terminated")
		return nil
	})
}

// AdvanceReview shows the next review screen. It does nothing on the last.
func (c *Controller) AdvanceReview() (bool, error) {
	return c.apply(AdvanceReview, nil)
}

// RetreatReview shows the previous review screen. It does nothing on the
// first.
func (c *Controller) RetreatReview() (bool, error) {
	return c.apply(RetreatReview, nil)
}

// ProceedToSave leaves the review for the save screen.
func (c *Controller) ProceedToSave() (bool, error) {
	return c.apply(ProceedToSave, nil)
}

// Save exports the record into a directory named by tokens joined with
// underscores. On failure the record is kept so the save can be retried.
// On success the controller starts over at CALIBRATION_REMINDER.
func (c *Controller) Save(tokens ...string) (string, bool, error) {
	var dir string
	ok, err := c.apply(Save, func() error {
		rec := c.Record()
		if rec == nil {
			return pkgerrors.New("no test fire record to save")
		}

		d, err := c.exporter(rec, c.settings().ExportRoot, tokens...)
		if err != nil {
			return err
		}
		dir = d

		c.mu.Lock()
		c.lastExport = d
		c.mu.Unlock()

		c.hub.Publish(events.ExportSaved, events.ExportSavedEvent{
			Dir:      d,
			RecordID: rec.ID.String(),
			Samples:  rec.Len(),
			Ts:       time.Now().Unix(),
		})
		return nil
	})
	return dir, ok, err
}

// Record returns the record of the last terminated test fire, if any.
func (c *Controller) Record() *types.TestFireRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record
}

// Latest returns the most recent sample of the running session.
func (c *Controller) Latest() (acquisition.Sample, bool) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session == nil {
		return acquisition.Sample{}, false
	}
	return session.Latest()
}

// Devices lists the devices the driver can see.
func (c *Controller) Devices() ([]daq.Descriptor, error) {
	descs, err := c.drv.Enumerate()
	if err != nil {
		return nil, daq.NewDeviceError("enumerate", err)
	}
	return descs, nil
}

// DeviceVoltage reads a calibration voltage from the load channel using
// the current settings.
func (c *Controller) DeviceVoltage(ctx context.Context) (float64, error) {
	st := c.settings()
	return acquisition.CalibrationVoltage(ctx, c.drv, st.Voltage)
}

// acquisitionAborted runs on the poll goroutine when a device error ended
// the session. The state stays FIRE_ACQUIRING until the operator
// terminates, which then falls back to FIRE_START.
func (c *Controller) acquisitionAborted(err error) {
	c.setLastErr(err)
	c.publishAcquisitionError("acquire", err)
}

// Acquiring reports whether a session is running. An aborted session
// waiting for terminate is not acquiring.
func (c *Controller) Acquiring() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil && c.session.State() == acquisition.StateRunning
}

// Close stops a running session so the device is released. The state is
// left as it is.
func (c *Controller) Close() {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return
	}
	if _, err := session.Stop(); err != nil {
		logrus.WithError(err).Warn("acquisition session ended with an error on close")
	}
	logrus.Info("acquisition session closed")
}

func (c *Controller) publishFit() {
	ev := events.CalibrationFitEvent{
		Points: c.estimator.Len(),
		Ts:     time.Now().Unix(),
	}
	fit, err := c.estimator.Fit()
	switch {
	case err != nil:
		ev.Error = err.Error()
	case fit != nil:
		ev.Valid = true
		ev.Slope = fit.Slope
		ev.Intercept = fit.Intercept
	}
	c.hub.Publish(events.CalibrationFit, ev)
}

func (c *Controller) publishAcquisitionError(op string, err error) {
	c.hub.Publish(events.AcquisitionError, events.AcquisitionErrorEvent{
		Op:    op,
		Error: err.Error(),
		Ts:    time.Now().Unix(),
	})
}
