package config

import "time"

type Config interface {
	DeviceIndex() int
	PressureChannel() int
	LoadChannel() int
	Rate() float64
	SamplesPerChannel() int
	PollInterval() time.Duration
	CalibrationSamples() int
	CalibrationRate() float64
	CalibrationSettle() time.Duration
	ExportRoot() string
	LegacyChannelClipping() bool
	AllowNonRootAccess() bool

	SetRate(float64) error
	SetSamplesPerChannel(int) error
	SetPollInterval(time.Duration) error
	SetExportRoot(string) error
	SetLegacyChannelClipping(bool)
	SetAllowNonRootAccess(bool)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
