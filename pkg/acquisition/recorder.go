package acquisition

import (
	"sync"
	"time"
)

// TickRecorder records the last N poll tick times.
type TickRecorder struct {
	MaxRecordCount int
	Ticks          []time.Time
	mu             *sync.Mutex
}

// NewTickRecorder returns a new TickRecorder.
func NewTickRecorder(maxRecordCount int) *TickRecorder {
	return &TickRecorder{
		MaxRecordCount: maxRecordCount,
		Ticks:          make([]time.Time, 0),
		mu:             &sync.Mutex{},
	}
}

// AddRecord adds a new record.
func (r *TickRecorder) AddRecord(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strip monotonic clock reading.
	t = t.Round(0)

	if len(r.Ticks) >= r.MaxRecordCount {
		r.Ticks = r.Ticks[1:]
	}
	r.Ticks = append(r.Ticks, t)
}

// GetLastRecord returns the last record.
func (r *TickRecorder) GetLastRecord() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Ticks) == 0 {
		return time.Time{}
	}
	return r.Ticks[len(r.Ticks)-1]
}

// GetRecordsIn returns the number of continuous ticks within the last
// duration, counting back from the newest. Two adjacent ticks are
// continuous when they are less than interval+interval/2 apart.
func (r *TickRecorder) GetRecordsIn(last, interval time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	tolerance := interval + interval/2

	// The newest record must itself be recent.
	if len(r.Ticks) > 0 && time.Since(r.Ticks[len(r.Ticks)-1]) >= tolerance {
		return 0
	}

	count := 0
	for i := len(r.Ticks) - 1; i >= 0; i-- {
		record := r.Ticks[i]
		if time.Since(record) > last {
			break
		}

		theRecordAfter := record
		if i+1 < len(r.Ticks) {
			theRecordAfter = r.Ticks[i+1]
		}

		if theRecordAfter.Sub(record) >= tolerance {
			break
		}
		count++
	}

	return count
}

// MissedIn estimates how many ticks were missed in the last duration.
func (r *TickRecorder) MissedIn(last, interval time.Duration) int {
	expected := int(last / interval)
	missed := expected - r.GetRecordsIn(last, interval)
	if missed < 0 {
		return 0
	}
	return missed
}
