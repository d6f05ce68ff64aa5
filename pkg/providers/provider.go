package providers

import (
	"context"
)

// LoadProvider returns the current load signal, the number of active users.
type LoadProvider interface {
	GetLoad(ctx context.Context) (float64, error)
}

// ResourceProvider returns the aggregated resource usage of the workload.
type ResourceProvider interface {
	GetUsage(ctx context.Context) (*Usage, error)
}

// Usage is a point-in-time snapshot of the workload resource consumption.
type Usage struct {
	CPUMilli  float64 `json:"total_cpu_usage_mCPU"`
	MemoryMiB float64 `json:"total_memory_usage_MiB"`
}
