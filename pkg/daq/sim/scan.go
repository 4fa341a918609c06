package sim

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ubseds/firestand/pkg/daq"
)

const writerTick = 10 * time.Millisecond

// Buffer is a circular float64 buffer whose slots can be written by the
// scan goroutine while readers poll it.
type Buffer struct {
	slots []atomic.Uint64
}

// NewBuffer returns a zeroed buffer of n slots.
func NewBuffer(n int) *Buffer {
	return &Buffer{slots: make([]atomic.Uint64, n)}
}

func (b *Buffer) Len() int { return len(b.slots) }

func (b *Buffer) At(i int) float64 { return math.Float64frombits(b.slots[i].Load()) }

// Set stores v at slot i.
func (b *Buffer) Set(i int, v float64) { b.slots[i].Store(math.Float64bits(v)) }

// Scan is a simulated continuous scan.
type Scan struct {
	dev      *Device
	buf      *Buffer
	channels int
	hwChans  []int // hardware channel of each queue position
	rate     float64

	mu     sync.Mutex
	status daq.TransferStatus

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

var _ daq.Scan = &Scan{}

func newScan(dev *Device, queue []daq.QueueElement, samplesPerChannel int, rate float64) *Scan {
	hw := make([]int, len(queue))
	for i, q := range queue {
		hw[i] = q.Channel
	}
	return &Scan{
		dev:      dev,
		buf:      NewBuffer(len(queue) * samplesPerChannel),
		channels: len(queue),
		hwChans:  hw,
		rate:     rate,
		status:   daq.TransferStatus{State: daq.ScanRunning, CurrentIndex: -1},
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Scan) start() {
	go s.run()
}

func (s *Scan) run() {
	defer close(s.done)

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now()
	ticker := time.NewTicker(writerTick)
	defer ticker.Stop()

	var written uint64
	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			target := uint64(now.Sub(start).Seconds() * s.rate)
			applied := s.dev.drv.appliedWeight()
			// The counters advance scan by scan, as the hardware's do, so a
			// reader can see a lap that happens within one tick.
			for written < target {
				t := float64(written) / s.rate
				for c := 0; c < s.channels; c++ {
					pos := int((written*uint64(s.channels) + uint64(c)) % uint64(s.buf.Len()))
					s.buf.Set(pos, s.dev.sig(s.hwChans[c], t, applied)+noise(r))
				}
				written++
				s.publish(written)
			}
		}
	}
}

func (s *Scan) publish(scans uint64) {
	if scans == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.CurrentScanCount = scans
	s.status.CurrentTotalCount = scans * uint64(s.channels)
	s.status.CurrentIndex = int(((scans - 1) * uint64(s.channels)) % uint64(s.buf.Len()))
}

func (s *Scan) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.State == daq.ScanRunning
}

func (s *Scan) Status() (daq.TransferStatus, error) {
	if err := s.dev.drv.scanError(); err != nil {
		return daq.TransferStatus{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, nil
}

func (s *Scan) Buffer() daq.Buffer { return s.buf }

func (s *Scan) ChannelCount() int { return s.channels }

func (s *Scan) Rate() float64 { return s.rate }

func (s *Scan) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.done
		s.mu.Lock()
		s.status.State = daq.ScanIdle
		s.mu.Unlock()
	})
	return nil
}
