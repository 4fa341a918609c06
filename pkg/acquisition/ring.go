package acquisition

import (
	"time"

	"github.com/ubseds/firestand/pkg/daq"
)

// Sample is the latest value of every scanned channel, in scan order.
type Sample struct {
	Time       time.Time `json:"time"`
	Index      int       `json:"currentIndex"`
	ScanCount  uint64    `json:"currentScanCount"`
	TotalCount uint64    `json:"currentTotalCount"`
	Values     []float64 `json:"values"`
}

// Window is a run of consecutive scans read out of the ring.
type Window struct {
	// First is the zero based number of the first scan in the window.
	First uint64
	// Through is the completed scan count observed when the window was read.
	// Passing it to the next ReadSince continues without gaps.
	Through uint64
	// Dropped counts scans that were overwritten before they could be read.
	Dropped uint64
	// Channels holds one slice per channel, oldest scan first.
	Channels [][]float64
	Status   daq.TransferStatus
}

// Len returns the number of scans in the window.
func (w Window) Len() int {
	if len(w.Channels) == 0 {
		return 0
	}
	return len(w.Channels[0])
}

// Ring reads the interleaved circular buffer of a running scan. Scan n
// (zero based) keeps channel c at position (n*channels + c) mod capacity.
//
// The hardware only exposes its position, so every read takes the transfer
// status first and then the slots it points at. A read is discarded if the
// writer may have lapped those slots in the meantime.
type Ring struct {
	scan     daq.Scan
	buf      daq.Buffer
	channels int
	capacity int
}

// MinRows is the smallest buffer, in scans, a Ring can read from. The row
// being written is never read, so one row alone would hold nothing safe.
const MinRows = 2

// NewRing wraps a running scan.
func NewRing(scan daq.Scan) (*Ring, error) {
	buf := scan.Buffer()
	channels := scan.ChannelCount()
	if channels <= 0 {
		return nil, daq.NewConfigurationError("channels", "scan has no channels")
	}
	if buf.Len() < channels || buf.Len()%channels != 0 {
		return nil, daq.NewConfigurationError("buffer", "capacity %d is not a multiple of %d channels", buf.Len(), channels)
	}
	if rows := buf.Len() / channels; rows < MinRows {
		return nil, daq.NewConfigurationError("buffer", "need at least %d scans, got %d", MinRows, rows)
	}
	return &Ring{
		scan:     scan,
		buf:      buf,
		channels: channels,
		capacity: buf.Len(),
	}, nil
}

// Channels returns the number of interleaved channels.
func (r *Ring) Channels() int { return r.channels }

// Capacity returns the buffer length in samples.
func (r *Ring) Capacity() int { return r.capacity }

// ReadLatest returns the values at the hardware reported current index. It
// never blocks. ok is false if no scan has completed yet.
func (r *Ring) ReadLatest() (s Sample, ok bool, err error) {
	st, err := r.scan.Status()
	if err != nil {
		return Sample{}, false, daq.NewDeviceError("scan status", err)
	}
	if st.CurrentIndex < 0 || st.CurrentScanCount == 0 {
		return Sample{}, false, nil
	}

	base := st.CurrentIndex - st.CurrentIndex%r.channels
	values := make([]float64, r.channels)
	for c := range values {
		values[c] = r.buf.At((base + c) % r.capacity)
	}

	return Sample{
		Time:       time.Now(),
		Index:      st.CurrentIndex,
		ScanCount:  st.CurrentScanCount,
		TotalCount: st.CurrentTotalCount,
		Values:     values,
	}, true, nil
}

// ReadSince returns every scan completed after the first `after` scans,
// bounded by what the buffer still holds.
func (r *Ring) ReadSince(after uint64) (Window, error) {
	st, err := r.scan.Status()
	if err != nil {
		return Window{}, daq.NewDeviceError("scan status", err)
	}

	w := Window{
		First:    after,
		Through:  st.CurrentScanCount,
		Status:   st,
		Channels: make([][]float64, r.channels),
	}
	if st.CurrentScanCount <= after {
		w.Through = after
		return w, nil
	}

	// The scan in progress overwrites the oldest one, so one slot row
	// less than the capacity is safe to read.
	safe := uint64(r.capacity/r.channels) - 1
	first := after
	if st.CurrentScanCount-first > safe {
		first = st.CurrentScanCount - safe
		w.Dropped = first - after
	}

	n := int(st.CurrentScanCount - first)
	for c := range w.Channels {
		w.Channels[c] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		scanNo := first + uint64(i)
		for c := 0; c < r.channels; c++ {
			w.Channels[c][i] = r.buf.At(r.position(scanNo, c))
		}
	}
	w.First = first

	// Check that the writer did not lap the rows just copied.
	after2, err := r.scan.Status()
	if err != nil {
		return Window{}, daq.NewDeviceError("scan status", err)
	}
	if after2.CurrentScanCount > st.CurrentScanCount {
		rows := uint64(r.capacity / r.channels)
		// Scan k in progress overwrites the row of scan k-rows.
		oldestIntact := uint64(0)
		if after2.CurrentScanCount+1 > rows {
			oldestIntact = after2.CurrentScanCount + 1 - rows
		}
		if oldestIntact > w.First {
			torn := oldestIntact - w.First
			if torn > uint64(n) {
				torn = uint64(n)
			}
			for c := range w.Channels {
				w.Channels[c] = w.Channels[c][torn:]
			}
			w.First += torn
			w.Dropped += torn
		}
	}

	return w, nil
}

func (r *Ring) position(scanNo uint64, channel int) int {
	return int((scanNo*uint64(r.channels) + uint64(channel)) % uint64(r.capacity))
}
