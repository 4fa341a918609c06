package calibration

import (
	"errors"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MinPoints is the number of points required before a fit is computed.
const MinPoints = 5

// ErrDegenerateFit is returned when the points do not determine a line.
var ErrDegenerateFit = errors.New("calibration fit is degenerate: all voltages are identical")

// Point is one calibration measurement. Weight is in pounds.
type Point struct {
	Weight  float64 `json:"weight"`
	Voltage float64 `json:"voltage"`
}

// Fit maps voltage to weight.
type Fit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Apply returns the weight for voltage v.
func (f Fit) Apply(v float64) float64 {
	return f.Slope*v + f.Intercept
}

// ApplyAll returns Slope*v + Intercept for every element of vs.
func (f Fit) ApplyAll(vs []float64) []float64 {
	out := make([]float64, len(vs))
	copy(out, vs)
	floats.Scale(f.Slope, out)
	floats.AddConst(f.Intercept, out)
	return out
}

// Estimator accumulates points in insertion order. Weights and voltages are
// stored as parallel slices that always have the same length.
type Estimator struct {
	mu       sync.RWMutex
	weights  []float64
	voltages []float64
}

// NewEstimator returns an empty estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Add appends a point.
func (e *Estimator) Add(weight, voltage float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weights = append(e.weights, weight)
	e.voltages = append(e.voltages, voltage)
}

// Remove deletes the first point, in insertion order, equal to
// (weight, voltage). It reports whether a point was removed; no match is
// not an error.
func (e *Estimator) Remove(weight, voltage float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.weights {
		if e.weights[i] == weight && e.voltages[i] == voltage {
			e.removeAt(i)
			return true
		}
	}
	return false
}

// RemoveAt deletes the point at index i. It reports whether i was valid.
func (e *Estimator) RemoveAt(i int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.weights) {
		return false
	}
	e.removeAt(i)
	return true
}

func (e *Estimator) removeAt(i int) {
	e.weights = append(e.weights[:i], e.weights[i+1:]...)
	e.voltages = append(e.voltages[:i], e.voltages[i+1:]...)
}

// Len returns the number of points.
func (e *Estimator) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.weights)
}

// Points returns a copy of the points in insertion order.
func (e *Estimator) Points() []Point {
	e.mu.RLock()
	defer e.mu.RUnlock()
	points := make([]Point, len(e.weights))
	for i := range e.weights {
		points[i] = Point{Weight: e.weights[i], Voltage: e.voltages[i]}
	}
	return points
}

// Reset removes all points.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weights = nil
	e.voltages = nil
}

// Fit returns the least-squares line through all current points. It
// returns (nil, nil) below MinPoints and ErrDegenerateFit when the slope is
// undefined.
func (e *Estimator) Fit() (*Fit, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fitLine(e.voltages, e.weights)
}

func fitLine(x, y []float64) (*Fit, error) {
	if len(x) < MinPoints {
		return nil, nil
	}
	if stat.Variance(x, nil) == 0 {
		return nil, ErrDegenerateFit
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) || math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return nil, ErrDegenerateFit
	}
	return &Fit{Slope: slope, Intercept: intercept}, nil
}
