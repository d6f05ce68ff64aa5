package overrides

import (
	"fmt"

	"github.com/lwolf/trendscaler/pkg/config"
)

// EscalationPolicy computes the replica target when resource usage is over
// a threshold. The result is bounded by the caller.
type EscalationPolicy interface {
	Escalate(current int32) int64
}

// IncrementPolicy adds a fixed number of replicas.
type IncrementPolicy struct {
	Increment int32
}

func (p IncrementPolicy) Escalate(current int32) int64 {
	return int64(current) + int64(p.Increment)
}

// MaxPolicy jumps straight to the upper bound, whatever the increment.
type MaxPolicy struct {
	Increment int32
	Max       int32
}

func (p MaxPolicy) Escalate(current int32) int64 {
	next := int64(current) + int64(p.Increment)
	if int64(p.Max) > next {
		return int64(p.Max)
	}
	return next
}

func NewPolicy(name string, increment, max int32) (EscalationPolicy, error) {
	switch name {
	case config.EscalationIncrement:
		return IncrementPolicy{Increment: increment}, nil
	case config.EscalationMax:
		return MaxPolicy{Increment: increment, Max: max}, nil
	default:
		return nil, fmt.Errorf("unknown escalation policy %q", name)
	}
}
