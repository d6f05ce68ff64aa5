package predictors

import "math"

type SpikeDetector struct {
	threshold float64
}

func NewSpikeDetector(threshold float64) *SpikeDetector {
	return &SpikeDetector{threshold: threshold}
}

// Detect reports whether the two most recent samples differ by strictly
// more than the threshold.
func (sd *SpikeDetector) Detect(samples []float64) bool {
	n := len(samples)
	if n < 2 {
		return false
	}
	return math.Abs(samples[n-1]-samples[n-2]) > sd.threshold
}
