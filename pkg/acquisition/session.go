// Package acquisition turns a running hardware scan into per-channel
// series. A Session owns one connected device for its whole life: it starts
// the scan, polls the ring buffer from a dedicated goroutine, and on Stop
// returns everything captured and tears the device down.
package acquisition

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ubseds/firestand/pkg/daq"
)

// State is the lifecycle of a Session. Stopped is terminal.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Number of channels a test-fire session scans: pressure then load.
const ChannelCount = 2

const (
	PressureIndex = 0
	LoadIndex     = 1
)

var (
	ErrSessionUsed    = errors.New("session already started")
	ErrSessionStopped = errors.New("session already stopped")
)

// Options configures a session.
type Options struct {
	PressureChannel   int
	LoadChannel       int
	Rate              float64
	SamplesPerChannel int
	PollInterval      time.Duration
	// ClipChannels enables legacy clipping of unsupported channels.
	ClipChannels bool
	// OnAbort is called from the poll goroutine after a device error has
	// stopped the session and released the device.
	OnAbort func(err error)
}

// Series holds the two captured channel sequences.
type Series struct {
	Pressure []float64 `json:"pressure"`
	Load     []float64 `json:"load"`
}

// Len returns the number of captured scans.
func (s Series) Len() int { return len(s.Pressure) }

// Result is what Stop returns.
type Result struct {
	Series
	Rate      float64   `json:"rate"`
	StartedAt time.Time `json:"startedAt"`
	StoppedAt time.Time `json:"stoppedAt"`
	// Dropped counts scans lost to buffer overruns between polls.
	Dropped uint64 `json:"dropped"`
}

// Session is a single acquisition run. It cannot be restarted.
type Session struct {
	dev  daq.Device
	opts Options

	mu       sync.Mutex
	state    State
	pressure []float64
	load     []float64
	dropped  uint64
	err      error
	// reported is set once Stop has returned err.
	reported bool

	startedAt time.Time
	stoppedAt time.Time
	rate      float64
	scan      daq.Scan
	ring      *Ring
	lastScan  uint64 // touched by the poll goroutine only
	latest    atomic.Pointer[Sample]
	recorder  *TickRecorder

	stopCh       chan struct{}
	done         chan struct{}
	teardownOnce sync.Once
}

// NewSession returns an idle session that takes ownership of dev. The
// device is torn down when the session stops, whichever way it ends.
func NewSession(dev daq.Device, opts Options) *Session {
	return &Session{
		dev:      dev,
		opts:     opts,
		state:    StateIdle,
		pressure: []float64{},
		load:     []float64{},
		recorder: NewTickRecorder(600),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start configures the scan and launches the polling goroutine. If Start
// fails the session is stopped and the device already torn down.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrSessionUsed
	}

	if s.opts.PollInterval <= 0 {
		s.state = StateStopped
		s.teardown()
		return daq.NewConfigurationError("pollInterval", "must be positive, got %s", s.opts.PollInterval)
	}
	if s.opts.SamplesPerChannel < MinRows {
		s.state = StateStopped
		s.teardown()
		return daq.NewConfigurationError("samplesPerChannel", "must be at least %d, got %d", MinRows, s.opts.SamplesPerChannel)
	}

	scan, channels, err := daq.ConfigureScan(s.dev, daq.ScanRequest{
		Channels:          []int{s.opts.PressureChannel, s.opts.LoadChannel},
		Rate:              s.opts.Rate,
		SamplesPerChannel: s.opts.SamplesPerChannel,
		MinChannels:       ChannelCount,
		ClipChannels:      s.opts.ClipChannels,
	})
	if err != nil {
		s.state = StateStopped
		s.teardown()
		return err
	}

	ring, err := NewRing(scan)
	if err != nil {
		_ = scan.Stop()
		s.state = StateStopped
		s.teardown()
		return err
	}

	s.scan = scan
	s.ring = ring
	s.rate = scan.Rate()
	s.startedAt = time.Now()
	s.state = StateRunning

	logrus.WithFields(logrus.Fields{
		"channels":     channels,
		"rate":         s.rate,
		"capacity":     ring.Capacity(),
		"pollInterval": s.opts.PollInterval,
	}).Info("acquisition session started")

	go s.loop()
	return nil
}

func (s *Session) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			if !s.poll(now) {
				return
			}
		}
	}
}

// poll reads everything new from the ring and appends it. It returns false
// when the loop should end.
func (s *Session) poll(now time.Time) bool {
	if last := s.recorder.GetLastRecord(); !last.IsZero() && now.Sub(last) > 2*s.opts.PollInterval {
		logrus.WithFields(logrus.Fields{
			"sinceLastPoll": now.Sub(last),
			"pollInterval":  s.opts.PollInterval,
		}).Warn("acquisition poll tick was late")
	}
	s.recorder.AddRecord(now)

	w, err := s.ring.ReadSince(s.lastScan)
	if err != nil {
		s.abort(err)
		return false
	}

	// The stop flag is checked under the same lock as the append, so
	// nothing is appended once Stop has flipped the state.
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return false
	}
	s.pressure = append(s.pressure, w.Channels[PressureIndex]...)
	s.load = append(s.load, w.Channels[LoadIndex]...)
	s.dropped += w.Dropped
	s.mu.Unlock()

	if w.Dropped > 0 {
		logrus.WithFields(logrus.Fields{
			"dropped":  w.Dropped,
			"capacity": s.ring.Capacity(),
		}).Warn("ring buffer overran between polls")
	}

	s.lastScan = w.Through
	if n := w.Len(); n > 0 {
		s.latest.Store(&Sample{
			Time:       now,
			Index:      w.Status.CurrentIndex,
			ScanCount:  w.Through,
			TotalCount: w.Status.CurrentTotalCount,
			Values:     []float64{w.Channels[PressureIndex][n-1], w.Channels[LoadIndex][n-1]},
		})
	}

	logrus.WithFields(logrus.Fields{
		"scans":        w.Len(),
		"currentIndex": w.Status.CurrentIndex,
		"scanCount":    w.Through,
	}).Trace("acquisition poll")
	return true
}

// abort ends a running session after a device error. Captured data is
// discarded, the scan is stopped and the device released before OnAbort
// runs. It does nothing if Stop got there first.
func (s *Session) abort(err error) {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	s.err = err
	s.stoppedAt = time.Now()
	s.pressure = []float64{}
	s.load = []float64{}
	s.mu.Unlock()

	logrus.WithError(err).Error("acquisition poll failed, aborting session")
	if err := s.scan.Stop(); err != nil {
		logrus.WithError(err).Error("failed to stop scan")
	}
	s.teardown()

	if s.opts.OnAbort != nil {
		s.opts.OnAbort(err)
	}
}

// Stop halts polling, stops the scan, tears the device down and returns
// everything captured. A poll in flight when Stop is called may finish but
// cannot append. If a device error already aborted the session, the first
// Stop returns that error with empty series and the device is not touched
// again.
func (s *Session) Stop() (Result, error) {
	s.mu.Lock()
	switch s.state {
	case StateStopped:
		if s.err == nil || s.reported {
			s.mu.Unlock()
			return Result{}, ErrSessionStopped
		}
		// Aborted by the poll goroutine, which owns the teardown.
		s.reported = true
		res := Result{
			Series:    Series{Pressure: []float64{}, Load: []float64{}},
			Rate:      s.rate,
			StartedAt: s.startedAt,
			StoppedAt: s.stoppedAt,
		}
		err := s.err
		s.mu.Unlock()
		<-s.done
		return res, err
	case StateIdle:
		s.state = StateStopped
		s.mu.Unlock()
		s.teardown()
		return Result{Series: Series{Pressure: []float64{}, Load: []float64{}}}, nil
	}
	s.state = StateStopped
	s.mu.Unlock()

	close(s.stopCh)
	<-s.done

	if err := s.scan.Stop(); err != nil {
		logrus.WithError(err).Error("failed to stop scan")
	}
	s.teardown()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stoppedAt = time.Now()
	res := Result{
		Rate:      s.rate,
		StartedAt: s.startedAt,
		StoppedAt: s.stoppedAt,
		Dropped:   s.dropped,
	}
	res.Series = Series{Pressure: s.pressure, Load: s.load}

	logrus.WithFields(logrus.Fields{
		"scans":    res.Len(),
		"dropped":  res.Dropped,
		"duration": res.StoppedAt.Sub(res.StartedAt).Round(time.Millisecond),
	}).Info("acquisition session stopped")
	return res, nil
}

// State returns the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that aborted polling, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Latest returns the most recent sample seen by the poll loop. It never
// blocks on the loop and may be up to one poll interval old.
func (s *Session) Latest() (Sample, bool) {
	p := s.latest.Load()
	if p == nil {
		return Sample{}, false
	}
	return *p, true
}

// Captured returns the number of scans appended so far.
func (s *Session) Captured() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pressure)
}

// Elapsed returns the time since Start, or the run length once stopped.
// It is zero if the session never started.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return 0
	}
	if !s.stoppedAt.IsZero() {
		return s.stoppedAt.Sub(s.startedAt)
	}
	return time.Since(s.startedAt)
}

func (s *Session) teardown() {
	s.teardownOnce.Do(func() {
		if err := daq.Teardown(s.dev); err != nil {
			logrus.WithError(err).Error("device teardown reported errors")
		}
	})
}
