package providers

import (
	"context"
	"math/rand"
	"sync"

	"github.com/go-logr/logr"
)

// Estimator substitutes a load reading when the primary source is down.
type Estimator interface {
	Estimate(last float64) float64
}

// RandomWalkEstimator moves the last value by a uniform integer in [-5, 9],
// never going below zero.
type RandomWalkEstimator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomWalkEstimator(rnd *rand.Rand) *RandomWalkEstimator {
	return &RandomWalkEstimator{rnd: rnd}
}

func (e *RandomWalkEstimator) Estimate(last float64) float64 {
	e.mu.Lock()
	step := e.rnd.Intn(15) - 5
	e.mu.Unlock()
	v := last + float64(step)
	if v < 0 {
		return 0
	}
	return v
}

// HoldLastEstimator keeps the last known value.
type HoldLastEstimator struct{}

func (HoldLastEstimator) Estimate(last float64) float64 {
	return last
}

// FallbackLoadProvider never fails: when the primary provider errors it
// returns an estimate derived from the last value it handed out.
// Negative readings are handed out as 0.
type FallbackLoadProvider struct {
	primary   LoadProvider
	estimator Estimator
	log       logr.Logger

	mu   sync.Mutex
	last float64
}

func NewFallbackLoadProvider(log logr.Logger, primary LoadProvider, estimator Estimator) *FallbackLoadProvider {
	once.Do(initMetrics)
	return &FallbackLoadProvider{
		primary:   primary,
		estimator: estimator,
		log:       log.WithName("fallbackLoad"),
	}
}

func (p *FallbackLoadProvider) GetLoad(ctx context.Context) (float64, error) {
	load, err := p.primary.GetLoad(ctx)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		fallbackTotal.Inc()
		estimate := p.estimator.Estimate(p.last)
		p.log.Error(err, "load signal unavailable, using estimate", "last", p.last, "estimate", estimate)
		p.last = estimate
		return estimate, nil
	}
	if load < 0 {
		load = 0
	}
	p.last = load
	return load, nil
}

// Last returns the most recent value returned by GetLoad.
func (p *FallbackLoadProvider) Last() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
