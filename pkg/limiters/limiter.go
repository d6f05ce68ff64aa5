package limiters

import (
	"math"
)

type ReplicaLimiter interface {
	ApplyLimits(replicas int64) int32
	MinAllowed() int32
	MaxAllowed() int32
}

// BoundsLimiter keeps replica counts within [Min, Max].
type BoundsLimiter struct {
	min int32
	max int32
}

func NewBoundsLimiter(min, max int32) *BoundsLimiter {
	if max < min {
		max = min
	}
	return &BoundsLimiter{min: min, max: max}
}

func (bl *BoundsLimiter) MinAllowed() int32 {
	return bl.min
}

func (bl *BoundsLimiter) MaxAllowed() int32 {
	return bl.max
}

func (bl *BoundsLimiter) ApplyLimits(replicas int64) int32 {
	return int32(adjustReplicas(replicas, int64(bl.min), int64(bl.max)))
}

// FromFloat converts a fractional replica candidate into the int64 domain
// used by ApplyLimits, saturating instead of overflowing.
func FromFloat(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return math.MinInt64
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(v)
	}
}

func adjustReplicas(replicas, min, max int64) int64 {
	switch {
	case replicas > max:
		replicas = max
	case replicas < min:
		replicas = min
	default:
	}
	return replicas
}
