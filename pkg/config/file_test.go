package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileDefaultsWhenMissing(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if f.Rate() != 1000 {
		t.Errorf("Rate = %v, want 1000", f.Rate())
	}
	if f.PollInterval() != 100*time.Millisecond {
		t.Errorf("PollInterval = %s, want 100ms", f.PollInterval())
	}
	if f.LoadChannel() != 1 || f.PressureChannel() != 0 {
		t.Errorf("channels = (%d, %d), want (0, 1)", f.PressureChannel(), f.LoadChannel())
	}
	if f.CalibrationSettle() != time.Second {
		t.Errorf("CalibrationSettle = %s, want 1s", f.CalibrationSettle())
	}
	if f.LegacyChannelClipping() {
		t.Errorf("LegacyChannelClipping should default to false")
	}
}

func TestFileEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if f.ExportRoot() != "." {
		t.Errorf("ExportRoot = %q, want .", f.ExportRoot())
	}
}

func TestFileBrokenJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{rate:"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFile(path); err == nil {
		t.Fatalf("expected an error for broken json")
	}
}

func TestFileSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firestand.json")
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if err := f.SetRate(2000); err != nil {
		t.Fatalf("SetRate: %v", err)
	}
	if err := f.SetPollInterval(50 * time.Millisecond); err != nil {
		t.Fatalf("SetPollInterval: %v", err)
	}
	if err := f.SetExportRoot("/data/fires"); err != nil {
		t.Fatalf("SetExportRoot: %v", err)
	}
	f.SetLegacyChannelClipping(true)
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	g, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if g.Rate() != 2000 {
		t.Errorf("Rate = %v, want 2000", g.Rate())
	}
	if g.PollInterval() != 50*time.Millisecond {
		t.Errorf("PollInterval = %s, want 50ms", g.PollInterval())
	}
	if g.ExportRoot() != "/data/fires" {
		t.Errorf("ExportRoot = %q", g.ExportRoot())
	}
	if !g.LegacyChannelClipping() {
		t.Errorf("LegacyChannelClipping not persisted")
	}
	// Unset keys keep their defaults after a round trip.
	if g.SamplesPerChannel() != 1000 {
		t.Errorf("SamplesPerChannel = %d, want 1000", g.SamplesPerChannel())
	}
}

func TestFileSetterValidation(t *testing.T) {
	f := NewFileFromConfig(nil, filepath.Join(t.TempDir(), "c.json"))

	tests := []struct {
		name string
		set  func() error
	}{
		{"zero rate", func() error { return f.SetRate(0) }},
		{"negative samples", func() error { return f.SetSamplesPerChannel(-1) }},
		{"single sample", func() error { return f.SetSamplesPerChannel(1) }},
		{"sub-millisecond poll", func() error { return f.SetPollInterval(time.Microsecond) }},
		{"blank export root", func() error { return f.SetExportRoot("  ") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.set(); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}

	if f.Rate() != 1000 {
		t.Errorf("rejected setter changed Rate to %v", f.Rate())
	}
}

func TestNewRawFileConfigFromConfig(t *testing.T) {
	f := NewFileFromConfig(nil, "")
	raw, err := NewRawFileConfigFromConfig(f)
	if err != nil {
		t.Fatalf("NewRawFileConfigFromConfig: %v", err)
	}
	if *raw.PollIntervalMs != 100 || *raw.CalibrationSamples != 2500 {
		t.Errorf("unexpected raw config: poll=%d samples=%d", *raw.PollIntervalMs, *raw.CalibrationSamples)
	}
	if _, err := NewRawFileConfigFromConfig(nil); err == nil {
		t.Errorf("expected an error for nil config")
	}
}
