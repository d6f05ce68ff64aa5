package predictors

// Estimate is the outcome of a single scaling decision together with
// the intermediate values it was derived from.
type Estimate struct {
	Load      float64 `json:"load"`
	Slope     float64 `json:"slope"`
	Direct    int32   `json:"direct"`
	Projected int32   `json:"projected"`
	Spike     bool    `json:"spike"`
	Desired   int32   `json:"desired"`
}

type Predictor interface {
	// Predict returns the replica target for the current load given the
	// recent samples, oldest first. samples is expected to already contain load.
	Predict(samples []float64, load float64) Estimate
}
