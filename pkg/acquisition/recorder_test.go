package acquisition

import (
	"testing"
	"time"
)

func TestTickRecorder(t *testing.T) {
	r := NewTickRecorder(3)
	if !r.GetLastRecord().IsZero() {
		t.Fatalf("empty recorder has a last record")
	}

	now := time.Now()
	for i := 4; i >= 0; i-- {
		r.AddRecord(now.Add(-time.Duration(i) * 10 * time.Millisecond))
	}
	if len(r.Ticks) != 3 {
		t.Fatalf("kept %d ticks, want 3", len(r.Ticks))
	}
	if !r.GetLastRecord().Equal(now) {
		t.Fatalf("last record = %v, want %v", r.GetLastRecord(), now)
	}
}

func TestTickRecorderGetRecordsIn(t *testing.T) {
	interval := 100 * time.Millisecond
	now := time.Now()

	tests := []struct {
		name    string
		offsets []time.Duration // before now, oldest first
		want    int
	}{
		{"continuous", []time.Duration{300, 200, 100, 0}, 4},
		{"gap", []time.Duration{500, 200, 100, 0}, 3},
		{"stale", []time.Duration{400, 300, 200}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewTickRecorder(10)
			for _, o := range tt.offsets {
				r.AddRecord(now.Add(-o * time.Millisecond))
			}
			if got := r.GetRecordsIn(time.Second, interval); got != tt.want {
				t.Fatalf("GetRecordsIn = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTickRecorderMissedIn(t *testing.T) {
	interval := 100 * time.Millisecond
	now := time.Now()
	r := NewTickRecorder(10)
	for _, o := range []time.Duration{200, 100, 0} {
		r.AddRecord(now.Add(-o * time.Millisecond))
	}
	if got := r.MissedIn(time.Second, interval); got != 7 {
		t.Fatalf("MissedIn = %d, want 7", got)
	}
}
