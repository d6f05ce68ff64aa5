package overrides

import (
	"github.com/go-logr/logr"

	"github.com/lwolf/trendscaler/pkg/limiters"
	"github.com/lwolf/trendscaler/pkg/providers"
)

// ResourceOverride escalates the replica count when CPU or memory usage is
// strictly above its threshold. It never reduces the replica count.
type ResourceOverride struct {
	cpuThreshold    float64
	memoryThreshold float64
	policy          EscalationPolicy
	limiter         limiters.ReplicaLimiter
	log             logr.Logger
}

func NewResourceOverride(log logr.Logger, cpuThreshold, memoryThreshold float64, policy EscalationPolicy, limiter limiters.ReplicaLimiter) *ResourceOverride {
	return &ResourceOverride{
		cpuThreshold:    cpuThreshold,
		memoryThreshold: memoryThreshold,
		policy:          policy,
		limiter:         limiter,
		log:             log.WithName("resourceOverride"),
	}
}

// Apply returns the replica target for the given usage and whether an
// escalation was triggered.
func (o *ResourceOverride) Apply(usage *providers.Usage, current int32) (int32, bool) {
	if usage == nil {
		return current, false
	}
	cpuOver := usage.CPUMilli > o.cpuThreshold
	memOver := usage.MemoryMiB > o.memoryThreshold
	if !cpuOver && !memOver {
		return current, false
	}
	target := o.limiter.ApplyLimits(o.policy.Escalate(current))
	if target < current {
		target = current
	}
	o.log.Info(
		"resource usage over threshold",
		"cpu", usage.CPUMilli,
		"cpuThreshold", o.cpuThreshold,
		"memory", usage.MemoryMiB,
		"memoryThreshold", o.memoryThreshold,
		"current", current,
		"target", target,
	)
	return target, true
}
