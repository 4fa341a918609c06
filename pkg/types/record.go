package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/ubseds/firestand/pkg/calibration"
)

// TestFireRecord is the result of one test fire. It is built once when the
// acquisition is terminated and never modified afterwards.
type TestFireRecord struct {
	ID             uuid.UUID       `json:"id"`
	StartedAt      time.Time       `json:"startedAt"`
	StoppedAt      time.Time       `json:"stoppedAt"`
	Rate           float64         `json:"rate"`
	Dropped        uint64          `json:"dropped"`
	Pressure       []float64       `json:"pressure"`
	RawLoad        []float64       `json:"rawLoad"`
	CalibratedLoad []float64       `json:"calibratedLoad"`
	Fit            calibration.Fit `json:"fit"`
}

// Len returns the number of scans in the record.
func (r *TestFireRecord) Len() int {
	return len(r.Pressure)
}

// RecordSummary is the record without its series.
type RecordSummary struct {
	ID        uuid.UUID       `json:"id"`
	StartedAt time.Time       `json:"startedAt"`
	StoppedAt time.Time       `json:"stoppedAt"`
	Rate      float64         `json:"rate"`
	Dropped   uint64          `json:"dropped"`
	Samples   int             `json:"samples"`
	Fit       calibration.Fit `json:"fit"`
}

// Summary returns the record metadata.
func (r *TestFireRecord) Summary() RecordSummary {
	return RecordSummary{
		ID:        r.ID,
		StartedAt: r.StartedAt,
		StoppedAt: r.StoppedAt,
		Rate:      r.Rate,
		Dropped:   r.Dropped,
		Samples:   r.Len(),
		Fit:       r.Fit,
	}
}
