package daq

import "errors"

type fakeScan struct {
	channels int
	rate     float64
	stopped  bool
}

func (s *fakeScan) Status() (TransferStatus, error) { return TransferStatus{State: ScanRunning}, nil }
func (s *fakeScan) Buffer() Buffer { return nil }
func (s *fakeScan) ChannelCount() int { return s.channels }
func (s *fakeScan) Rate() float64 { return s.rate }
func (s *fakeScan) Stop() error { s.stopped = true; return nil }

type fakeDevice struct {
	desc      Descriptor
	info      AIInfo
	hasAI     bool
	connected bool

	connectErr    error
	disconnectErr error
	startErr      error

	queue       []QueueElement
	started     *ScanConfig
	hwCalls     int
	disconnects int
	releases    int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		desc:  Descriptor{Index: 0, ProductName: "fake", UniqueID: "F1"},
		hasAI: true,
		info: AIInfo{
			NumChannels: map[InputMode]int{SingleEnded: 4},
			Ranges:      map[InputMode][]Range{SingleEnded: {"BIP10VOLTS", "BIP5VOLTS"}},
			HasPacer:    true,
			QueueTypes:  []string{"GAIN_QUEUE"},
		},
	}
}

func (d *fakeDevice) Descriptor() Descriptor { return d.desc }
func (d *fakeDevice) AnalogInput() (AIInfo, bool) { return d.info, d.hasAI }
func (d *fakeDevice) IsConnected() bool { return d.connected }
func (d *fakeDevice) Release() error { d.releases++; return nil }

func (d *fakeDevice) Connect() error {
	if d.connectErr != nil {
		return d.connectErr
	}
	d.connected = true
	return nil
}

func (d *fakeDevice) LoadQueue(q []QueueElement) error {
	d.hwCalls++
	d.queue = q
	return nil
}

func (d *fakeDevice) StartScan(cfg ScanConfig) (Scan, error) {
	d.hwCalls++
	if d.startErr != nil {
		return nil, d.startErr
	}
	d.started = &cfg
	return &fakeScan{channels: len(d.queue), rate: cfg.Rate}, nil
}

func (d *fakeDevice) Disconnect() error {
	d.disconnects++
	d.connected = false
	return d.disconnectErr
}

type fakeDriver struct {
	devices []*fakeDevice
	enumErr error
}

func (d *fakeDriver) Enumerate() ([]Descriptor, error) {
	if d.enumErr != nil {
		return nil, d.enumErr
	}
	var descs []Descriptor
	for _, dev := range d.devices {
		descs = append(descs, dev.desc)
	}
	return descs, nil
}

func (d *fakeDriver) Open(desc Descriptor) (Device, error) {
	if desc.Index >= len(d.devices) {
		return nil, errors.New("no such device")
	}
	return d.devices[desc.Index], nil
}
