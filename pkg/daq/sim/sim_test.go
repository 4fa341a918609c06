package sim

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ubseds/firestand/pkg/daq"
)

func TestTestFireSignal(t *testing.T) {
	if v := TestFireSignal(0, 0, 0); v != 0.5 {
		t.Fatalf("idle pressure = %v", v)
	}
	if v := TestFireSignal(1, 0, 20); math.Abs(v-0.05) > 1e-12 {
		t.Fatalf("static load = %v, want 0.05", v)
	}
	if v := TestFireSignal(5, 2, 20); v != 0 {
		t.Fatalf("unused channel = %v", v)
	}

	// The load cell sees the thrust during the burn.
	if TestFireSignal(1, burnStart+burnDuration/3, 0) <= loadOffsetVolts {
		t.Fatalf("no thrust during the burn")
	}
	if thrustProfile(burnStart+burnDuration+0.1) != 0 {
		t.Fatalf("thrust after burnout")
	}
}

func TestScanFollowsQueueChannels(t *testing.T) {
	drv := New()
	drv.ApplyWeight(10)
	d, err := daq.Connect(drv, 0)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer daq.Teardown(d)

	// Load first, pressure second.
	if err := d.LoadQueue(daq.BuildQueue([]int{1, 0}, daq.SingleEnded, []daq.Range{"BIP10VOLTS"})); err != nil {
		t.Fatalf("LoadQueue: %v", err)
	}
	scan, err := d.StartScan(daq.ScanConfig{SamplesPerChannel: 100, Rate: 1000, Continuous: true})
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if _, err := d.StartScan(daq.ScanConfig{SamplesPerChannel: 100, Rate: 1000}); !errors.Is(err, ErrScanRunning) {
		t.Fatalf("second StartScan err = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, _ := scan.Status()
		if st.CurrentScanCount > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("scan never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	buf := scan.Buffer()
	if load := buf.At(0); math.Abs(load-0.03) > 0.001 {
		t.Fatalf("slot 0 = %v, want the load voltage", load)
	}
	if pressure := buf.At(1); math.Abs(pressure-0.5) > 0.001 {
		t.Fatalf("slot 1 = %v, want the pressure voltage", pressure)
	}

	if err := scan.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if st, _ := scan.Status(); st.State != daq.ScanIdle {
		t.Fatalf("state after stop = %v", st.State)
	}
}

func TestDeviceLifecycle(t *testing.T) {
	drv := New()
	if _, err := drv.Open(daq.Descriptor{Index: 1}); !errors.Is(err, daq.ErrInvalidDescriptor) {
		t.Fatalf("Open err = %v", err)
	}

	d, _ := drv.Open(daq.Descriptor{Index: 0})
	if _, err := d.StartScan(daq.ScanConfig{}); !errors.Is(err, daq.ErrNotConnected) {
		t.Fatalf("StartScan on a disconnected device err = %v", err)
	}
	if err := d.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := d.StartScan(daq.ScanConfig{SamplesPerChannel: 1, Rate: 1}); !errors.Is(err, ErrQueueMissing) {
		t.Fatalf("StartScan without a queue err = %v", err)
	}

	if err := daq.Teardown(d); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	sd := d.(*Device)
	if !sd.Released() || sd.IsConnected() {
		t.Fatalf("device not torn down")
	}
	if err := d.Connect(); !errors.Is(err, ErrReleased) {
		t.Fatalf("Connect after release err = %v", err)
	}
}

// While scan k is being written, the status must already count the k scans
// before it and no more.
func TestScanPublishesEveryScan(t *testing.T) {
	const rate = 5000.0
	var (
		mu         sync.Mutex
		running    daq.Scan
		checked    int
		mismatches []string
	)
	sig := func(channel int, tsec, _ float64) float64 {
		if channel != 0 {
			return 0
		}
		mu.Lock()
		defer mu.Unlock()
		if running == nil {
			return 0
		}
		st, err := running.Status()
		if err != nil {
			mismatches = append(mismatches, err.Error())
			return 0
		}
		k := uint64(math.Round(tsec * rate))
		if st.CurrentScanCount != k && len(mismatches) < 5 {
			mismatches = append(mismatches, fmt.Sprintf("writing scan %d, status counts %d", k, st.CurrentScanCount))
		}
		checked++
		return 0
	}

	drv := NewWithDevices([]daq.AIInfo{DefaultInfo()}, sig)
	d, err := daq.Connect(drv, 0)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer daq.Teardown(d)

	// Two rows: the writer laps the buffer many times within one tick.
	scan, _, err := daq.ConfigureScan(d, daq.ScanRequest{Channels: []int{0, 1}, Rate: rate, SamplesPerChannel: 2})
	if err != nil {
		t.Fatalf("ConfigureScan: %v", err)
	}
	mu.Lock()
	running = scan
	mu.Unlock()

	time.Sleep(100 * time.Millisecond)
	if err := scan.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if checked < 100 {
		t.Fatalf("only %d scans checked", checked)
	}
	if len(mismatches) > 0 {
		t.Fatalf("status lags the writer: %v", mismatches)
	}
}
