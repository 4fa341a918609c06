// Package sim is a simulated DAQ driver. A scan runs a writer goroutine that
// fills the circular buffer at the requested rate, the way a hardware paced
// scan fills a driver buffer, so the acquisition engine can be exercised on a
// bench without hardware.
package sim

import (
	"errors"
	"math"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ubseds/firestand/pkg/daq"
)

const (
	// loadVoltsPerPound and loadOffsetVolts describe the simulated load cell.
	loadVoltsPerPound = 0.002
	loadOffsetVolts   = 0.01
	noiseVolts        = 0.0005
)

var (
	ErrReleased     = errors.New("device already released")
	ErrScanRunning  = errors.New("a scan is already running")
	ErrQueueMissing = errors.New("gain queue not loaded")
)

// Signal returns the voltage of a hardware channel at time t (seconds since
// scan start) given the currently applied static weight in pounds.
type Signal func(channel int, t, appliedPounds float64) float64

// Driver is a simulated driver with a fixed device list.
type Driver struct {
	mu      sync.Mutex
	devices []*Device
	applied float64
	scanErr error
}

var _ daq.Driver = &Driver{}

// New returns a driver exposing one simulated USB-1608FS-Plus.
func New() *Driver {
	d := &Driver{}
	d.devices = []*Device{newDevice(d, daq.Descriptor{
		Index:       0,
		ProductName: "USB-1608FS-Plus (simulated)",
		UniqueID:    "SIM0001",
		Interface:   "USB",
	}, DefaultInfo(), TestFireSignal)}
	return d
}

// NewWithDevices returns a driver exposing the given devices.
func NewWithDevices(infos []daq.AIInfo, sig Signal) *Driver {
	d := &Driver{}
	for i, info := range infos {
		d.devices = append(d.devices, newDevice(d, daq.Descriptor{
			Index:       i,
			ProductName: "simulated",
			UniqueID:    "SIM" + string(rune('A'+i)),
			Interface:   "USB",
		}, info, sig))
	}
	return d
}

// DefaultInfo is an 8 channel single-ended device with four ranges.
func DefaultInfo() daq.AIInfo {
	return daq.AIInfo{
		NumChannels: map[daq.InputMode]int{daq.SingleEnded: 8, daq.Differential: 0},
		Ranges: map[daq.InputMode][]daq.Range{
			daq.SingleEnded: {"BIP10VOLTS", "BIP5VOLTS", "BIP2VOLTS", "BIP1VOLTS"},
		},
		HasPacer:   true,
		QueueTypes: []string{"CHAN_QUEUE", "GAIN_QUEUE"},
	}
}

// ApplyWeight sets the static weight on the simulated load cell.
func (d *Driver) ApplyWeight(pounds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.applied = pounds
}

func (d *Driver) appliedWeight() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applied
}

// FailScans makes every scan report err when polled, as a device that
// dropped off the bus does. A nil err restores normal operation.
func (d *Driver) FailScans(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scanErr = err
}

func (d *Driver) scanError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scanErr
}

func (d *Driver) Enumerate() ([]daq.Descriptor, error) {
	ret := make([]daq.Descriptor, 0, len(d.devices))
	for _, dev := range d.devices {
		ret = append(ret, dev.desc)
	}
	return ret, nil
}

func (d *Driver) Open(desc daq.Descriptor) (daq.Device, error) {
	if desc.Index < 0 || desc.Index >= len(d.devices) {
		return nil, daq.ErrInvalidDescriptor
	}
	dev := d.devices[desc.Index]
	dev.mu.Lock()
	dev.released = false
	dev.mu.Unlock()
	return dev, nil
}

// TestFireSignal puts a pressure trace on channel 0 and the load
// cell on channel 1. The burn starts one second into the scan.
func TestFireSignal(channel int, t, appliedPounds float64) float64 {
	thrust := thrustProfile(t)
	switch channel {
	case 0:
		return 0.5 + 4.0*thrust/peakThrust
	case 1:
		return loadOffsetVolts + loadVoltsPerPound*(appliedPounds+thrust)
	default:
		return 0
	}
}

const (
	peakThrust   = 50.0
	burnStart    = 1.0
	burnDuration = 3.0
)

func thrustProfile(t float64) float64 {
	x := t - burnStart
	if x < 0 || x > burnDuration {
		return 0
	}
	// Fast rise, long regressive tail.
	return peakThrust * math.Sin(math.Pi*x/burnDuration) * math.Exp(-x/burnDuration)
}

func noise(r *rand.Rand) float64 {
	return (r.Float64()*2 - 1) * noiseVolts
}

func logger(desc daq.Descriptor) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"device": desc.String(),
		"sim":    true,
	})
}
