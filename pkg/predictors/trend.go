package predictors

import (
	"gonum.org/v1/gonum/stat"
)

// TrendPredictor fits an ordinary least squares line over the sample
// positions 0..n-1 and reports its slope in load units per tick.
type TrendPredictor struct {
	window int
}

func NewTrendPredictor(window int) *TrendPredictor {
	return &TrendPredictor{window: window}
}

// Slope returns 0 until the window holds at least `window` samples.
func (tp *TrendPredictor) Slope(samples []float64) float64 {
	if len(samples) < tp.window || len(samples) < 2 {
		return 0
	}
	xs := make([]float64, len(samples))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, samples, nil, false)
	return slope
}
