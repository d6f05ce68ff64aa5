package replicas

import (
	"context"

	"k8s.io/apimachinery/pkg/types"
)

const (
	AnnotationLastScaleTime    = "trendscaler.lwolf.org/last-scale-time"
	AnnotationConfigGeneration = "trendscaler.lwolf.org/config-generation"
	AnnotationLastStage        = "trendscaler.lwolf.org/last-scale-stage"

	EventReasonScaled = "Scaled"
)

// Store reads and writes the desired replica count of a workload.
type Store interface {
	GetReplicas(ctx context.Context, key types.NamespacedName) (int32, error)
	SetReplicas(ctx context.Context, key types.NamespacedName, replicas int32) error
}

type stageKey struct{}

// WithStage attaches the decision stage that caused a write to ctx.
// Stores record it next to the new replica count.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFrom returns the stage attached by WithStage, or an empty string.
func StageFrom(ctx context.Context) string {
	stage, _ := ctx.Value(stageKey{}).(string)
	return stage
}
