package sim

import (
	"sync"

	"github.com/ubseds/firestand/pkg/daq"
)

// Device is a simulated DAQ device.
type Device struct {
	drv  *Driver
	desc daq.Descriptor
	info daq.AIInfo
	sig  Signal

	mu        sync.Mutex
	connected bool
	released  bool
	queue     []daq.QueueElement
	scan      *Scan

	// Counters for tests.
	Disconnects int
	Releases    int
}

var _ daq.Device = &Device{}

func newDevice(drv *Driver, desc daq.Descriptor, info daq.AIInfo, sig Signal) *Device {
	if sig == nil {
		sig = TestFireSignal
	}
	return &Device{drv: drv, desc: desc, info: info, sig: sig}
}

func (d *Device) Descriptor() daq.Descriptor { return d.desc }

func (d *Device) AnalogInput() (daq.AIInfo, bool) {
	if d.info.NumChannels == nil {
		return daq.AIInfo{}, false
	}
	return d.info, true
}

func (d *Device) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return ErrReleased
	}
	d.connected = true
	logger(d.desc).Debug("connected")
	return nil
}

func (d *Device) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Device) LoadQueue(queue []daq.QueueElement) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return daq.ErrNotConnected
	}
	d.queue = append([]daq.QueueElement(nil), queue...)
	return nil
}

func (d *Device) StartScan(cfg daq.ScanConfig) (daq.Scan, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil, daq.ErrNotConnected
	}
	if len(d.queue) == 0 {
		return nil, ErrQueueMissing
	}
	if d.scan != nil && d.scan.running() {
		return nil, ErrScanRunning
	}

	s := newScan(d, d.queue, cfg.SamplesPerChannel, cfg.Rate)
	d.scan = s
	s.start()
	return s, nil
}

func (d *Device) Disconnect() error {
	d.mu.Lock()
	scan := d.scan
	d.connected = false
	d.Disconnects++
	d.mu.Unlock()

	// Disconnecting the device halts any scan still running.
	if scan != nil {
		_ = scan.Stop()
	}
	logger(d.desc).Debug("disconnected")
	return nil
}

func (d *Device) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
	d.Releases++
	return nil
}

// Released reports whether the device has been released since it was last opened.
func (d *Device) Released() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}
