package lib

import (
	"math/rand"
)

const (
	baseUsers     = 10
	spikeMinUsers = 10
	spikeMaxUsers = 30
	defaultSpikeP = 0.2
)

// Simulator produces a noisy user count with occasional spikes.
// not thread-safe
type Simulator struct {
	rnd         *rand.Rand
	spikeChance float64
}

func NewSimulator(rnd *rand.Rand, spikeChance float64) *Simulator {
	if spikeChance < 0 || spikeChance > 1 {
		spikeChance = defaultSpikeP
	}
	return &Simulator{rnd: rnd, spikeChance: spikeChance}
}

// Next returns a user count in [0, 10) plus, with spikeChance, a spike in
// [10, 30). The spike component is returned separately for logging.
func (s *Simulator) Next() (count int, spike int) {
	count = s.rnd.Intn(baseUsers)
	if s.rnd.Float64() < s.spikeChance {
		spike = spikeMinUsers + s.rnd.Intn(spikeMaxUsers-spikeMinUsers)
	}
	return count + spike, spike
}
