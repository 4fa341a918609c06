package daq

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Connect opens and connects the device at descriptor index. The device
// must have a hardware paced analog input. On any failure after the device
// was opened, it is released before returning.
func Connect(drv Driver, index int) (Device, error) {
	devices, err := drv.Enumerate()
	if err != nil {
		return nil, NewDeviceError("enumerate", err)
	}
	if len(devices) == 0 {
		return nil, NewDeviceError("enumerate", ErrNoDevices)
	}
	if index < 0 || index >= len(devices) {
		return nil, NewDeviceError("connect", ErrInvalidDescriptor)
	}

	dev, err := drv.Open(devices[index])
	if err != nil {
		return nil, NewDeviceError("open", err)
	}

	info, ok := dev.AnalogInput()
	if !ok {
		_ = Teardown(dev)
		return nil, NewDeviceError("connect", ErrNoAnalogInput)
	}
	if !info.HasPacer {
		_ = Teardown(dev)
		return nil, NewDeviceError("connect", ErrNoPacer)
	}

	logrus.WithField("device", dev.Descriptor().String()).Info("connecting to DAQ device")
	if err := dev.Connect(); err != nil {
		_ = Teardown(dev)
		return nil, NewDeviceError("connect", err)
	}

	return dev, nil
}

// Teardown disconnects (if connected) and releases dev. Both steps always
// run; their errors are joined.
func Teardown(dev Device) error {
	if dev == nil {
		return nil
	}

	var errs []error
	if dev.IsConnected() {
		if err := dev.Disconnect(); err != nil {
			logrus.WithError(err).Error("failed to disconnect DAQ device")
			errs = append(errs, NewDeviceError("disconnect", err))
		}
	}
	if err := dev.Release(); err != nil {
		logrus.WithError(err).Error("failed to release DAQ device")
		errs = append(errs, NewDeviceError("release", err))
	}

	logrus.WithField("device", dev.Descriptor().String()).Debug("DAQ device released")
	return errors.Join(errs...)
}
