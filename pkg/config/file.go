package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ubseds/firestand/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		DeviceIndex:         ptr.To(0),
		PressureChannel:     ptr.To(0),
		LoadChannel:         ptr.To(1),
		Rate:                ptr.To(1000.0),
		SamplesPerChannel:   ptr.To(1000),
		PollIntervalMs:      ptr.To(100),
		CalibrationSamples:  ptr.To(2500),
		CalibrationRate:     ptr.To(1000.0),
		CalibrationSettleMs: ptr.To(1000),
		ExportRoot:          ptr.To("."),
		// Off by default: an unsupported channel is a configuration error
		// rather than a silently shortened channel list.
		LegacyChannelClipping: ptr.To(false),
		AllowNonRootAccess:    ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	DeviceIndex           *int     `json:"deviceIndex,omitempty"`
	PressureChannel       *int     `json:"pressureChannel,omitempty"`
	LoadChannel           *int     `json:"loadChannel,omitempty"`
	Rate                  *float64 `json:"rate,omitempty"`
	SamplesPerChannel     *int     `json:"samplesPerChannel,omitempty"`
	PollIntervalMs        *int     `json:"pollIntervalMs,omitempty"`
	CalibrationSamples    *int     `json:"calibrationSamples,omitempty"`
	CalibrationRate       *float64 `json:"calibrationRate,omitempty"`
	CalibrationSettleMs   *int     `json:"calibrationSettleMs,omitempty"`
	ExportRoot            *string  `json:"exportRoot,omitempty"`
	LegacyChannelClipping *bool    `json:"legacyChannelClipping,omitempty"`
	AllowNonRootAccess    *bool    `json:"allowNonRootAccess,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		DeviceIndex:           ptr.To(c.DeviceIndex()),
		PressureChannel:       ptr.To(c.PressureChannel()),
		LoadChannel:           ptr.To(c.LoadChannel()),
		Rate:                  ptr.To(c.Rate()),
		SamplesPerChannel:     ptr.To(c.SamplesPerChannel()),
		PollIntervalMs:        ptr.To(int(c.PollInterval() / time.Millisecond)),
		CalibrationSamples:    ptr.To(c.CalibrationSamples()),
		CalibrationRate:       ptr.To(c.CalibrationRate()),
		CalibrationSettleMs:   ptr.To(int(c.CalibrationSettle() / time.Millisecond)),
		ExportRoot:            ptr.To(c.ExportRoot()),
		LegacyChannelClipping: ptr.To(c.LegacyChannelClipping()),
		AllowNonRootAccess:    ptr.To(c.AllowNonRootAccess()),
	}

	return rawConfig, nil
}

// value returns the field picked from the loaded config, or from the
// defaults when it is unset.
func value[T any](f *File, pick func(*RawFileConfig) *T) T {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if v := pick(f.c); v != nil {
		return *v
	}
	return *pick(defaultFileConfig)
}

func (f *File) DeviceIndex() int {
	return value(f, func(c *RawFileConfig) *int { return c.DeviceIndex })
}

func (f *File) PressureChannel() int {
	return value(f, func(c *RawFileConfig) *int { return c.PressureChannel })
}

func (f *File) LoadChannel() int {
	return value(f, func(c *RawFileConfig) *int { return c.LoadChannel })
}

func (f *File) Rate() float64 {
	return value(f, func(c *RawFileConfig) *float64 { return c.Rate })
}

func (f *File) SamplesPerChannel() int {
	return value(f, func(c *RawFileConfig) *int { return c.SamplesPerChannel })
}

func (f *File) PollInterval() time.Duration {
	ms := value(f, func(c *RawFileConfig) *int { return c.PollIntervalMs })
	return time.Duration(ms) * time.Millisecond
}

func (f *File) CalibrationSamples() int {
	return value(f, func(c *RawFileConfig) *int { return c.CalibrationSamples })
}

func (f *File) CalibrationRate() float64 {
	return value(f, func(c *RawFileConfig) *float64 { return c.CalibrationRate })
}

func (f *File) CalibrationSettle() time.Duration {
	ms := value(f, func(c *RawFileConfig) *int { return c.CalibrationSettleMs })
	return time.Duration(ms) * time.Millisecond
}

func (f *File) ExportRoot() string {
	return value(f, func(c *RawFileConfig) *string { return c.ExportRoot })
}

func (f *File) LegacyChannelClipping() bool {
	return value(f, func(c *RawFileConfig) *bool { return c.LegacyChannelClipping })
}

func (f *File) AllowNonRootAccess() bool {
	return value(f, func(c *RawFileConfig) *bool { return c.AllowNonRootAccess })
}

func (f *File) SetRate(r float64) error {
	if f.c == nil {
		panic("config is nil")
	}
	if r <= 0 {
		return pkgerrors.Errorf("rate must be positive, got %v", r)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Rate = &r
	return nil
}

func (f *File) SetSamplesPerChannel(n int) error {
	if f.c == nil {
		panic("config is nil")
	}
	// The acquisition ring never reads the row being written.
	if n < 2 {
		return pkgerrors.Errorf("samples per channel must be at least 2, got %d", n)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.SamplesPerChannel = &n
	return nil
}

func (f *File) SetPollInterval(d time.Duration) error {
	if f.c == nil {
		panic("config is nil")
	}
	ms := int(d / time.Millisecond)
	if ms <= 0 {
		return pkgerrors.Errorf("poll interval must be at least 1ms, got %s", d)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.PollIntervalMs = &ms
	return nil
}

func (f *File) SetExportRoot(dir string) error {
	if f.c == nil {
		panic("config is nil")
	}
	if strings.TrimSpace(dir) == "" {
		return pkgerrors.New("export root must not be empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.ExportRoot = &dir
	return nil
}

func (f *File) SetLegacyChannelClipping(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.LegacyChannelClipping = &b
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.AllowNonRootAccess = &b
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file means defaults. f.c must never be nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// json.Decoder cannot tell an empty file from a broken one.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"deviceIndex":           f.DeviceIndex(),
		"pressureChannel":       f.PressureChannel(),
		"loadChannel":           f.LoadChannel(),
		"rate":                  f.Rate(),
		"samplesPerChannel":     f.SamplesPerChannel(),
		"pollInterval":          f.PollInterval(),
		"calibrationSamples":    f.CalibrationSamples(),
		"calibrationRate":       f.CalibrationRate(),
		"calibrationSettle":     f.CalibrationSettle(),
		"exportRoot":            f.ExportRoot(),
		"legacyChannelClipping": f.LegacyChannelClipping(),
		"allowNonRootAccess":    f.AllowNonRootAccess(),
	}
}
