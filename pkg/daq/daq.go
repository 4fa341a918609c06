// Package daq is the boundary between firestand and the data acquisition
// hardware. It models the small part of a vendor analog-input driver that the
// acquisition engine needs: device enumeration, connection, gain queue
// configuration, a hardware paced continuous scan into a circular buffer, and
// scoped teardown.
package daq

import "fmt"

// InputMode is the analog input wiring mode.
type InputMode int

const (
	SingleEnded InputMode = iota
	Differential
)

func (m InputMode) String() string {
	switch m {
	case SingleEnded:
		return "SINGLE_ENDED"
	case Differential:
		return "DIFFERENTIAL"
	default:
		return fmt.Sprintf("InputMode(%d)", int(m))
	}
}

// Range is a voltage range identifier as reported by the device, e.g. BIP10VOLTS.
type Range string

// Descriptor identifies an enumerated device.
type Descriptor struct {
	Index       int    `json:"index"`
	ProductName string `json:"productName"`
	UniqueID    string `json:"uniqueId"`
	Interface   string `json:"interface"`
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s)", d.ProductName, d.UniqueID)
}

// AIInfo describes the analog input subsystem of a device.
type AIInfo struct {
	NumChannels map[InputMode]int
	Ranges      map[InputMode][]Range
	HasPacer    bool
	// QueueTypes is empty when the device has no gain queue.
	QueueTypes []string
}

// QueueElement is one entry of the per-channel gain queue.
type QueueElement struct {
	Channel int
	Mode    InputMode
	Range   Range
}

// ScanConfig is passed to Device.StartScan.
type ScanConfig struct {
	LowChannel        int
	HighChannel       int
	Mode              InputMode
	Range             Range
	SamplesPerChannel int
	Rate              float64
	Continuous        bool
}

// ScanState is the hardware state of a scan.
type ScanState int

const (
	ScanIdle ScanState = iota
	ScanRunning
)

// TransferStatus is what the hardware reports when polled.
type TransferStatus struct {
	State ScanState
	// CurrentIndex is the buffer position of the first sample of the most
	// recently completed scan, or -1 if no scan has completed yet.
	CurrentIndex int
	// CurrentScanCount is the number of completed scans (one sample per
	// channel) since the scan started.
	CurrentScanCount uint64
	// CurrentTotalCount is the number of samples written since the scan started.
	CurrentTotalCount uint64
}

// Buffer is the interleaved circular sample buffer written by the hardware.
// Position p holds channel p%channelCount of some scan.
type Buffer interface {
	Len() int
	At(i int) float64
}

// Scan is a running hardware paced scan.
type Scan interface {
	Status() (TransferStatus, error)
	Buffer() Buffer
	// ChannelCount is the number of channels interleaved in the buffer.
	ChannelCount() int
	// Rate is the actual per-channel scan rate chosen by the hardware.
	Rate() float64
	Stop() error
}

// Device is an opened (but not necessarily connected) DAQ device.
type Device interface {
	Descriptor() Descriptor
	// AnalogInput returns the analog input info, or false if the device
	// has no analog input subsystem.
	AnalogInput() (AIInfo, bool)
	Connect() error
	IsConnected() bool
	LoadQueue(queue []QueueElement) error
	StartScan(cfg ScanConfig) (Scan, error)
	Disconnect() error
	Release() error
}

// Driver enumerates and opens devices.
type Driver interface {
	Enumerate() ([]Descriptor, error)
	Open(d Descriptor) (Device, error)
}
