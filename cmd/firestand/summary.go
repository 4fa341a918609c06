package main

import (
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ubseds/firestand/pkg/types"
)

type seriesStats struct {
	Min, Max, Mean float64
}

func statsOf(xs []float64) (seriesStats, bool) {
	if len(xs) == 0 {
		return seriesStats{}, false
	}
	return seriesStats{
		Min:  floats.Min(xs),
		Max:  floats.Max(xs),
		Mean: stat.Mean(xs, nil),
	}, true
}

// impulse integrates the calibrated load over the record (pound-seconds).
func impulse(rec *types.TestFireRecord) float64 {
	if rec.Rate <= 0 {
		return 0
	}
	return floats.Sum(rec.CalibratedLoad) / rec.Rate
}

func printSummary(cmd *cobra.Command, rec *types.TestFireRecord) {
	cmd.Printf("Record: %s\n", rec.ID)
	cmd.Printf("  Duration: %s (%d scans at %g Hz)\n",
		bold("%.2f s", float64(rec.Len())/max(rec.Rate, 1)), rec.Len(), rec.Rate)
	if rec.Dropped > 0 {
		cmd.Printf("  Dropped scans: %d\n", rec.Dropped)
	}
	cmd.Printf("  Fit: weight = %.6f * V %+.6f\n", rec.Fit.Slope, rec.Fit.Intercept)

	series := []struct {
		name, unit string
		values     []float64
	}{
		{"Pressure", "V", rec.Pressure},
		{"Raw load", "V", rec.RawLoad},
		{"Calibrated load", "lb", rec.CalibratedLoad},
	}
	for _, s := range series {
		st, ok := statsOf(s.values)
		if !ok {
			cmd.Printf("  %s: no data\n", s.name)
			continue
		}
		cmd.Printf("  %s: min %.4f, max %s, mean %.4f %s\n",
			s.name, st.Min, bold("%.4f", st.Max), st.Mean, s.unit)
	}
	cmd.Printf("  Total impulse: %s\n", bold("%.3f lb·s", impulse(rec)))
}
