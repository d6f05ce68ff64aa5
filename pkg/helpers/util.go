package helpers

import (
	appsv1 "k8s.io/api/apps/v1"
)

// defaultReplicas is what the API server assumes for an unset spec.replicas.
const defaultReplicas = 1

func Ptr2Int32(i int32) *int32 {
	return &i
}

func ReplicasOrDefault(replicas *int32) int32 {
	if replicas == nil {
		return defaultReplicas
	}
	return *replicas
}

func DeploymentReplicas(deploy *appsv1.Deployment) int32 {
	if deploy == nil {
		return 0
	}
	return ReplicasOrDefault(deploy.Spec.Replicas)
}

// MergeAnnotations returns a copy of current with values set on top of it.
// Empty values remove the key.
func MergeAnnotations(current map[string]string, values map[string]string) map[string]string {
	merged := make(map[string]string, len(current)+len(values))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range values {
		if v == "" {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return merged
}
