package acquisition

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/ubseds/firestand/pkg/daq"
)

const voltagePollInterval = 20 * time.Millisecond

// VoltageOptions configures a calibration voltage read.
type VoltageOptions struct {
	DeviceIndex int
	Channel     int
	Rate        float64
	Samples     int
	// Settle is waited after the scan starts and before samples are kept.
	Settle       time.Duration
	ClipChannels bool
}

// CalibrationVoltage connects to the device, averages Samples readings of
// the load channel and tears the device down again.
func CalibrationVoltage(ctx context.Context, drv daq.Driver, o VoltageOptions) (v float64, err error) {
	dev, err := daq.Connect(drv, o.DeviceIndex)
	if err != nil {
		return 0, err
	}
	defer func() {
		if terr := daq.Teardown(dev); terr != nil && err == nil {
			err = terr
		}
	}()

	return MeanVoltage(ctx, dev, o)
}

// MeanVoltage runs a single channel scan on a connected device and returns
// the mean of the first o.Samples scans after the settle delay.
func MeanVoltage(ctx context.Context, dev daq.Device, o VoltageOptions) (float64, error) {
	if o.Samples <= 0 {
		return 0, daq.NewConfigurationError("calibrationSamples", "must be positive, got %d", o.Samples)
	}

	scan, _, err := daq.ConfigureScan(dev, daq.ScanRequest{
		Channels:          []int{o.Channel},
		Rate:              o.Rate,
		SamplesPerChannel: max(o.Samples, MinRows),
		MinChannels:       1,
		ClipChannels:      o.ClipChannels,
	})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := scan.Stop(); err != nil {
			logrus.WithError(err).Error("failed to stop calibration scan")
		}
	}()

	ring, err := NewRing(scan)
	if err != nil {
		return 0, err
	}

	if o.Settle > 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(o.Settle):
		}
	}

	// Skip whatever was captured while settling.
	st, err := scan.Status()
	if err != nil {
		return 0, daq.NewDeviceError("scan status", err)
	}
	last := st.CurrentScanCount

	values := make([]float64, 0, o.Samples)
	ticker := time.NewTicker(voltagePollInterval)
	defer ticker.Stop()
	for len(values) < o.Samples {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}

		w, err := ring.ReadSince(last)
		if err != nil {
			return 0, err
		}
		last = w.Through
		values = append(values, w.Channels[0]...)
	}
	values = values[:o.Samples]

	mean := stat.Mean(values, nil)
	logrus.WithFields(logrus.Fields{
		"channel": o.Channel,
		"samples": len(values),
		"mean":    mean,
		"stddev":  stat.StdDev(values, nil),
	}).Debug("calibration voltage averaged")
	return mean, nil
}
