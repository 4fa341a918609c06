package daq

import (
	"errors"
	"testing"
)

func connectedFake() *fakeDevice {
	d := newFakeDevice()
	d.connected = true
	return d
}

func TestConfigureScanRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name  string
		req   ScanRequest
		field string
	}{
		{"no channels", ScanRequest{Rate: 100, SamplesPerChannel: 10}, "channels"},
		{"negative channel", ScanRequest{Channels: []int{-1}, Rate: 100, SamplesPerChannel: 10}, "channels"},
		{"duplicate channel", ScanRequest{Channels: []int{1, 1}, Rate: 100, SamplesPerChannel: 10}, "channels"},
		{"zero rate", ScanRequest{Channels: []int{0}, SamplesPerChannel: 10}, "rate"},
		{"negative rate", ScanRequest{Channels: []int{0}, Rate: -5, SamplesPerChannel: 10}, "rate"},
		{"zero samples", ScanRequest{Channels: []int{0}, Rate: 100}, "samplesPerChannel"},
		{"channel out of range", ScanRequest{Channels: []int{0, 7}, Rate: 100, SamplesPerChannel: 10}, "channels"},
		{"too few channels", ScanRequest{Channels: []int{0, 7}, Rate: 100, SamplesPerChannel: 10, ClipChannels: true, MinChannels: 2}, "channels"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := connectedFake()
			_, _, err := ConfigureScan(dev, tt.req)
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want a ConfigurationError", err)
			}
			if ce.Field != tt.field {
				t.Fatalf("field = %q, want %q", ce.Field, tt.field)
			}
			if dev.hwCalls != 0 {
				t.Fatalf("%d hardware calls made for an invalid request", dev.hwCalls)
			}
		})
	}
}

func TestConfigureScanClipping(t *testing.T) {
	dev := connectedFake()
	scan, channels, err := ConfigureScan(dev, ScanRequest{
		Channels:          []int{2, 5, 0},
		Rate:              1000,
		SamplesPerChannel: 100,
		ClipChannels:      true,
	})
	if err != nil {
		t.Fatalf("ConfigureScan: %v", err)
	}
	if len(channels) != 2 || channels[0] != 2 || channels[1] != 0 {
		t.Fatalf("channels = %v, want [2 0]", channels)
	}
	if scan.ChannelCount() != 2 {
		t.Fatalf("scan has %d channels", scan.ChannelCount())
	}
	if dev.started == nil || !dev.started.Continuous || dev.started.Rate != 1000 || dev.started.SamplesPerChannel != 100 {
		t.Fatalf("scan config = %+v", dev.started)
	}
}

func TestConfigureScanQueue(t *testing.T) {
	dev := connectedFake()
	dev.info.Ranges[SingleEnded] = []Range{"A", "B"}
	_, _, err := ConfigureScan(dev, ScanRequest{Channels: []int{3, 1, 0}, Rate: 10, SamplesPerChannel: 1})
	if err != nil {
		t.Fatalf("ConfigureScan: %v", err)
	}

	want := []QueueElement{
		{Channel: 3, Mode: SingleEnded, Range: "A"},
		{Channel: 1, Mode: SingleEnded, Range: "B"},
		{Channel: 0, Mode: SingleEnded, Range: "A"},
	}
	if len(dev.queue) != len(want) {
		t.Fatalf("queue = %+v", dev.queue)
	}
	for i := range want {
		if dev.queue[i] != want[i] {
			t.Fatalf("queue[%d] = %+v, want %+v", i, dev.queue[i], want[i])
		}
	}
}

func TestConfigureScanDifferentialFallback(t *testing.T) {
	dev := connectedFake()
	dev.info.NumChannels = map[InputMode]int{Differential: 2}
	dev.info.Ranges = map[InputMode][]Range{Differential: {"BIP20VOLTS"}}

	_, _, err := ConfigureScan(dev, ScanRequest{Channels: []int{0, 1}, Rate: 10, SamplesPerChannel: 1})
	if err != nil {
		t.Fatalf("ConfigureScan: %v", err)
	}
	if dev.started.Mode != Differential {
		t.Fatalf("mode = %v, want DIFFERENTIAL", dev.started.Mode)
	}
	for _, q := range dev.queue {
		if q.Mode != Differential || q.Range != "BIP20VOLTS" {
			t.Fatalf("queue element %+v", q)
		}
	}
}

func TestConfigureScanDeviceCapabilities(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *fakeDevice)
		config bool
		target error
	}{
		{"no ranges", func(d *fakeDevice) { d.info.Ranges = nil }, true, nil},
		{"no gain queue", func(d *fakeDevice) { d.info.QueueTypes = nil }, true, nil},
		{"not connected", func(d *fakeDevice) { d.connected = false }, false, ErrNotConnected},
		{"no analog input", func(d *fakeDevice) { d.hasAI = false }, false, ErrNoAnalogInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := connectedFake()
			tt.mutate(dev)
			_, _, err := ConfigureScan(dev, ScanRequest{Channels: []int{0, 1}, Rate: 10, SamplesPerChannel: 1})
			if tt.config && !IsConfigurationError(err) {
				t.Fatalf("err = %v, want a ConfigurationError", err)
			}
			if !tt.config && (!IsDeviceError(err) || !errors.Is(err, tt.target)) {
				t.Fatalf("err = %v, want a DeviceError wrapping %v", err, tt.target)
			}
			if dev.hwCalls != 0 {
				t.Fatalf("%d hardware calls made", dev.hwCalls)
			}
		})
	}
}

func TestConfigureScanStartFailure(t *testing.T) {
	dev := connectedFake()
	dev.startErr = errors.New("pacer busy")
	_, _, err := ConfigureScan(dev, ScanRequest{Channels: []int{0}, Rate: 10, SamplesPerChannel: 1})
	var de *DeviceError
	if !errors.As(err, &de) || de.Op != "start scan" {
		t.Fatalf("err = %v, want a start scan DeviceError", err)
	}
}
