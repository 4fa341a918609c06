package daq

import (
	"github.com/sirupsen/logrus"
)

// ScanRequest is a hardware independent scan request.
type ScanRequest struct {
	// Channels are scanned in this order; the buffer is interleaved the same way.
	Channels          []int
	Rate              float64
	SamplesPerChannel int
	// MinChannels is the number of channels that must survive validation.
	MinChannels int
	// ClipChannels drops channels the device does not have instead of
	// failing. This mirrors the behavior of the first bench scripts.
	ClipChannels bool
}

// ConfigureScan validates req against dev, loads the gain queue and starts a
// continuous scan. It returns the running scan and the channels actually
// scanned.
//
// Request level problems are ConfigurationErrors and are detected before any
// queue or scan call reaches the device. Driver failures are DeviceErrors.
func ConfigureScan(dev Device, req ScanRequest) (Scan, []int, error) {
	if err := validateRequest(req); err != nil {
		return nil, nil, err
	}
	if !dev.IsConnected() {
		return nil, nil, NewDeviceError("configure scan", ErrNotConnected)
	}

	info, ok := dev.AnalogInput()
	if !ok {
		return nil, nil, NewDeviceError("configure scan", ErrNoAnalogInput)
	}

	mode := SingleEnded
	if info.NumChannels[SingleEnded] <= 0 {
		mode = Differential
	}

	channels, err := fitChannels(req, info.NumChannels[mode])
	if err != nil {
		return nil, nil, err
	}

	ranges := info.Ranges[mode]
	if len(ranges) == 0 {
		return nil, nil, NewConfigurationError("range", "device reports no ranges for %s", mode)
	}
	if len(info.QueueTypes) == 0 {
		return nil, nil, NewConfigurationError("queue", "the device does not support a gain queue")
	}

	queue := BuildQueue(channels, mode, ranges)
	if err := dev.LoadQueue(queue); err != nil {
		return nil, nil, NewDeviceError("load queue", err)
	}

	cfg := ScanConfig{
		LowChannel:        channels[0],
		HighChannel:       channels[len(channels)-1],
		Mode:              mode,
		Range:             ranges[0],
		SamplesPerChannel: req.SamplesPerChannel,
		Rate:              req.Rate,
		Continuous:        true,
	}
	scan, err := dev.StartScan(cfg)
	if err != nil {
		return nil, nil, NewDeviceError("start scan", err)
	}

	logrus.WithFields(logrus.Fields{
		"channels":          channels,
		"inputMode":         mode,
		"requestedRate":     req.Rate,
		"actualRate":        scan.Rate(),
		"samplesPerChannel": req.SamplesPerChannel,
	}).Info("scan started")

	return scan, channels, nil
}

// BuildQueue assigns ranges to channels round-robin.
func BuildQueue(channels []int, mode InputMode, ranges []Range) []QueueElement {
	queue := make([]QueueElement, 0, len(channels))
	rangeIndex := 0
	for _, ch := range channels {
		queue = append(queue, QueueElement{
			Channel: ch,
			Mode:    mode,
			Range:   ranges[rangeIndex],
		})
		rangeIndex++
		if rangeIndex >= len(ranges) {
			rangeIndex = 0
		}
	}
	return queue
}

func validateRequest(req ScanRequest) error {
	if len(req.Channels) == 0 {
		return NewConfigurationError("channels", "no channels given")
	}
	seen := make(map[int]struct{}, len(req.Channels))
	for _, ch := range req.Channels {
		if ch < 0 {
			return NewConfigurationError("channels", "negative channel %d", ch)
		}
		if _, dup := seen[ch]; dup {
			return NewConfigurationError("channels", "channel %d given twice", ch)
		}
		seen[ch] = struct{}{}
	}
	if req.Rate <= 0 {
		return NewConfigurationError("rate", "must be positive, got %g", req.Rate)
	}
	if req.SamplesPerChannel <= 0 {
		return NewConfigurationError("samplesPerChannel", "must be positive, got %d", req.SamplesPerChannel)
	}
	return nil
}

func fitChannels(req ScanRequest, available int) ([]int, error) {
	channels := make([]int, 0, len(req.Channels))
	var dropped []int
	for _, ch := range req.Channels {
		if ch < available {
			channels = append(channels, ch)
			continue
		}
		if !req.ClipChannels {
			return nil, NewConfigurationError("channels", "channel %d exceeds the %d channels supported by the device", ch, available)
		}
		dropped = append(dropped, ch)
	}

	if len(dropped) > 0 {
		logrus.WithFields(logrus.Fields{
			"dropped":   dropped,
			"available": available,
		}).Warn("legacy channel clipping removed unsupported channels from the scan")
	}

	minChannels := req.MinChannels
	if minChannels < 1 {
		minChannels = 1
	}
	if len(channels) < minChannels {
		return nil, NewConfigurationError("channels", "%d usable channels, need %d", len(channels), minChannels)
	}
	return channels, nil
}
