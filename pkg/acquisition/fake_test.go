package acquisition

import (
	"errors"
	"sync"

	"github.com/ubseds/firestand/pkg/daq"
	"github.com/ubseds/firestand/pkg/daq/sim"
)

// manualScan is a scan whose writer is driven by the test.
type manualScan struct {
	mu       sync.Mutex
	buf      *sim.Buffer
	channels int
	scans    uint64
	// pending statuses are returned before the live one.
	pending   []uint64
	statusErr error
	stops     int
}

func newManualScan(channels, rows int) *manualScan {
	return &manualScan{buf: sim.NewBuffer(channels * rows), channels: channels}
}

// write stores one scan whose channel c holds scanNo*10+c.
func (s *manualScan) write() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := 0; c < s.channels; c++ {
		pos := int((s.scans*uint64(s.channels) + uint64(c)) % uint64(s.buf.Len()))
		s.buf.Set(pos, value(s.scans, c))
	}
	s.scans++
}

func value(scanNo uint64, channel int) float64 {
	return float64(scanNo)*10 + float64(channel)
}

func (s *manualScan) status(scans uint64) daq.TransferStatus {
	st := daq.TransferStatus{State: daq.ScanRunning, CurrentIndex: -1, CurrentScanCount: scans}
	if scans > 0 {
		st.CurrentIndex = int(((scans - 1) * uint64(s.channels)) % uint64(s.buf.Len()))
		st.CurrentTotalCount = scans * uint64(s.channels)
	}
	return st
}

func (s *manualScan) Status() (daq.TransferStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return daq.TransferStatus{}, s.statusErr
	}
	if len(s.pending) > 0 {
		n := s.pending[0]
		s.pending = s.pending[1:]
		return s.status(n), nil
	}
	return s.status(s.scans), nil
}

func (s *manualScan) Buffer() daq.Buffer { return s.buf }

func (s *manualScan) ChannelCount() int { return s.channels }

func (s *manualScan) Rate() float64 { return 100 }

func (s *manualScan) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

// scanDevice hands out a prepared scan.
type scanDevice struct {
	scan        daq.Scan
	connected   bool
	disconnects int
	releases    int
}

func (d *scanDevice) Descriptor() daq.Descriptor { return daq.Descriptor{ProductName: "manual"} }

func (d *scanDevice) AnalogInput() (daq.AIInfo, bool) { return sim.DefaultInfo(), true }

func (d *scanDevice) Connect() error { d.connected = true; return nil }

func (d *scanDevice) IsConnected() bool { return d.connected }

func (d *scanDevice) LoadQueue([]daq.QueueElement) error { return nil }

func (d *scanDevice) StartScan(daq.ScanConfig) (daq.Scan, error) {
	if d.scan == nil {
		return nil, errors.New("no scan prepared")
	}
	return d.scan, nil
}

func (d *scanDevice) Disconnect() error {
	d.connected = false
	d.disconnects++
	return nil
}

func (d *scanDevice) Release() error {
	d.releases++
	return nil
}
