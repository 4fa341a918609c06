package daq

import (
	"errors"
	"fmt"
)

// DeviceError is returned when the driver fails to enumerate, connect,
// configure or poll a device.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("daq: %s failed", e.Op)
	}
	return fmt.Sprintf("daq: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// NewDeviceError wraps err as a DeviceError for operation op.
func NewDeviceError(op string, err error) *DeviceError {
	return &DeviceError{Op: op, Err: err}
}

// ConfigurationError is returned for invalid scan requests. It is always
// raised before the request reaches the scan hardware.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid scan configuration: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError returns a ConfigurationError for field.
func NewConfigurationError(field, format string, a ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, a...)}
}

// IsDeviceError reports whether err has a DeviceError in its chain.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}

// IsConfigurationError reports whether err has a ConfigurationError in its chain.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

var (
	// ErrNoDevices is returned by Connect when enumeration finds nothing.
	ErrNoDevices = errors.New("no DAQ devices found")
	// ErrInvalidDescriptor is returned for an out-of-range descriptor index.
	ErrInvalidDescriptor = errors.New("invalid descriptor index")
	// ErrNoAnalogInput is returned when the device has no analog input subsystem.
	ErrNoAnalogInput = errors.New("device does not support analog input")
	// ErrNoPacer is returned when the device cannot do hardware paced scans.
	ErrNoPacer = errors.New("device does not support hardware paced analog input")
	// ErrNotConnected is returned by scan operations on a disconnected device.
	ErrNotConnected = errors.New("device is not connected")
)
