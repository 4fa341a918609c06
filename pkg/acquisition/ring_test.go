package acquisition

import (
	"errors"
	"testing"

	"github.com/ubseds/firestand/pkg/daq"
)

func TestNewRingRejectsBadGeometry(t *testing.T) {
	s := newManualScan(2, 2)
	s.channels = 3 // buffer of 4 is not a multiple of 3
	if _, err := NewRing(s); !daq.IsConfigurationError(err) {
		t.Fatalf("err = %v, want a ConfigurationError", err)
	}

	s = newManualScan(2, 2)
	s.channels = 0
	if _, err := NewRing(s); !daq.IsConfigurationError(err) {
		t.Fatalf("err = %v, want a ConfigurationError", err)
	}

	// A single row is always the one being written.
	s = newManualScan(2, 1)
	if _, err := NewRing(s); !daq.IsConfigurationError(err) {
		t.Fatalf("single row err = %v, want a ConfigurationError", err)
	}
}

func TestReadLatest(t *testing.T) {
	s := newManualScan(2, 2)
	r, err := NewRing(s)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}

	if _, ok, err := r.ReadLatest(); ok || err != nil {
		t.Fatalf("ReadLatest before any scan = (%v, %v)", ok, err)
	}

	for i := 0; i < 5; i++ {
		s.write()
		got, ok, err := r.ReadLatest()
		if !ok || err != nil {
			t.Fatalf("ReadLatest after scan %d = (%v, %v)", i, ok, err)
		}
		if got.Values[0] != value(uint64(i), 0) || got.Values[1] != value(uint64(i), 1) {
			t.Fatalf("scan %d: values = %v", i, got.Values)
		}
		if got.ScanCount != uint64(i+1) {
			t.Fatalf("scan count = %d", got.ScanCount)
		}
	}
}

// The writer advances one scan at a time and the reader keeps up, so every
// scan comes out once and in order even though the buffer holds only two.
func TestReadSinceKeepsUp(t *testing.T) {
	s := newManualScan(2, 2)
	r, err := NewRing(s)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}

	var last uint64
	var pressure, load []float64
	for i := 0; i < 9; i++ {
		s.write()
		w, err := r.ReadSince(last)
		if err != nil {
			t.Fatalf("ReadSince: %v", err)
		}
		if w.Dropped != 0 {
			t.Fatalf("step %d dropped %d scans", i, w.Dropped)
		}
		last = w.Through
		pressure = append(pressure, w.Channels[0]...)
		load = append(load, w.Channels[1]...)
	}

	if len(pressure) != 9 || len(load) != 9 {
		t.Fatalf("read %d/%d scans, want 9", len(pressure), len(load))
	}
	for i := range pressure {
		if pressure[i] != value(uint64(i), 0) || load[i] != value(uint64(i), 1) {
			t.Fatalf("scan %d = (%v, %v)", i, pressure[i], load[i])
		}
	}
}

func TestReadSinceNothingNew(t *testing.T) {
	s := newManualScan(2, 4)
	r, _ := NewRing(s)
	s.write()

	w, err := r.ReadSince(1)
	if err != nil || w.Len() != 0 || w.Through != 1 {
		t.Fatalf("window = %+v, err = %v", w, err)
	}
}

func TestReadSinceOverrun(t *testing.T) {
	s := newManualScan(2, 2)
	r, _ := NewRing(s)
	for i := 0; i < 5; i++ {
		s.write()
	}

	w, err := r.ReadSince(0)
	if err != nil {
		t.Fatalf("ReadSince: %v", err)
	}
	if w.Len() != 1 || w.Dropped != 4 || w.First != 4 || w.Through != 5 {
		t.Fatalf("window = first %d through %d len %d dropped %d", w.First, w.Through, w.Len(), w.Dropped)
	}
	if w.Channels[0][0] != value(4, 0) || w.Channels[1][0] != value(4, 1) {
		t.Fatalf("values = %v", w.Channels)
	}
}

// The writer laps the reader between the two status reads; the rows it
// may have overwritten are discarded.
func TestReadSinceDiscardsTornRows(t *testing.T) {
	s := newManualScan(2, 4)
	r, _ := NewRing(s)
	s.write()
	s.write()
	s.pending = []uint64{2, 4}

	w, err := r.ReadSince(0)
	if err != nil {
		t.Fatalf("ReadSince: %v", err)
	}
	if w.Len() != 1 || w.First != 1 || w.Dropped != 1 || w.Through != 2 {
		t.Fatalf("window = first %d through %d len %d dropped %d", w.First, w.Through, w.Len(), w.Dropped)
	}
	if w.Channels[0][0] != value(1, 0) {
		t.Fatalf("values = %v", w.Channels)
	}
}

func TestReadStatusError(t *testing.T) {
	s := newManualScan(2, 2)
	r, _ := NewRing(s)
	s.statusErr = errors.New("usb stall")

	if _, err := r.ReadSince(0); !daq.IsDeviceError(err) {
		t.Fatalf("ReadSince err = %v", err)
	}
	if _, _, err := r.ReadLatest(); !daq.IsDeviceError(err) {
		t.Fatalf("ReadLatest err = %v", err)
	}
}
