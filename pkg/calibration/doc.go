// Package calibration maps load cell voltage to weight. It contains:
//
//   - Point: one operator submitted (weight, voltage) pair
//   - Fit: the least-squares line weight = Slope*voltage + Intercept
//   - Estimator: the ordered point set, refitted from scratch on every query
//
// A fit exists only once MinPoints points have been collected. A point set
// whose voltages are all equal has no defined slope and yields
// ErrDegenerateFit instead of NaN.
package calibration
