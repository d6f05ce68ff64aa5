package predictors

import (
	"math"

	"github.com/go-logr/logr"

	"github.com/lwolf/trendscaler/pkg/config"
	"github.com/lwolf/trendscaler/pkg/limiters"
)

// HybridPredictor combines the direct demand for the current load, the demand
// projected by the trend over the next window, and a fixed boost on spikes.
// It never scales down because of the trend alone.
type HybridPredictor struct {
	trend   *TrendPredictor
	spike   *SpikeDetector
	limiter limiters.ReplicaLimiter
	log     logr.Logger

	usersPerPod float64
	window      int
	increment   int32
}

func NewHybridPredictor(log logr.Logger, cfg *config.Config, limiter limiters.ReplicaLimiter) *HybridPredictor {
	return &HybridPredictor{
		trend:       NewTrendPredictor(cfg.PredictionWindow),
		spike:       NewSpikeDetector(cfg.SpikeThreshold),
		limiter:     limiter,
		log:         log.WithName("hybridPredictor"),
		usersPerPod: float64(cfg.UsersPerPod),
		window:      cfg.PredictionWindow,
		increment:   cfg.ScaleIncrement,
	}
}

// PodsFor returns the smallest replica count able to serve load,
// bounded by the limiter.
func (hp *HybridPredictor) PodsFor(load float64) int32 {
	if math.IsNaN(load) || load <= 0 {
		return hp.limiter.ApplyLimits(0)
	}
	pods := math.Ceil(load / hp.usersPerPod)
	return hp.limiter.ApplyLimits(limiters.FromFloat(pods))
}

func (hp *HybridPredictor) Predict(samples []float64, load float64) Estimate {
	est := Estimate{Load: load}
	est.Direct = hp.PodsFor(load)
	est.Projected = est.Direct
	if len(samples) >= hp.window {
		est.Slope = hp.trend.Slope(samples)
		est.Projected = hp.PodsFor(load + est.Slope*float64(hp.window))
	}
	est.Desired = est.Direct
	if est.Projected > est.Desired {
		est.Desired = est.Projected
	}
	if hp.spike.Detect(samples) {
		est.Spike = true
		est.Desired = hp.limiter.ApplyLimits(int64(est.Desired) + int64(hp.increment))
		hp.log.Info("spike detected, scaling conservatively", "desired", est.Desired)
	}
	hp.log.V(1).Info(
		"hybrid estimate",
		"load", load,
		"slope", est.Slope,
		"direct", est.Direct,
		"projected", est.Projected,
		"spike", est.Spike,
		"desired", est.Desired,
	)
	return est
}
