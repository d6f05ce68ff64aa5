package replicas

import (
	"context"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
)

// ScaleStore goes through the scale subresource and touches nothing else
// on the Deployment.
type ScaleStore struct {
	client kubernetes.Interface
	log    logr.Logger
}

func NewScaleStore(log logr.Logger, client kubernetes.Interface) *ScaleStore {
	return &ScaleStore{
		client: client,
		log:    log.WithName("scaleStore"),
	}
}

func (s *ScaleStore) GetReplicas(ctx context.Context, key types.NamespacedName) (int32, error) {
	scale, err := s.client.AppsV1().Deployments(key.Namespace).GetScale(ctx, key.Name, metav1.GetOptions{})
	if err != nil {
		return 0, err
	}
	return scale.Spec.Replicas, nil
}

func (s *ScaleStore) SetReplicas(ctx context.Context, key types.NamespacedName, replicas int32) error {
	deployments := s.client.AppsV1().Deployments(key.Namespace)
	scale, err := deployments.GetScale(ctx, key.Name, metav1.GetOptions{})
	if err != nil {
		return err
	}
	from := scale.Spec.Replicas
	scale.Spec.Replicas = replicas
	if _, err := deployments.UpdateScale(ctx, key.Name, scale, metav1.UpdateOptions{}); err != nil {
		return err
	}
	s.log.V(1).Info("updated scale", "deployment", key, "from", from, "to", replicas)
	return nil
}
