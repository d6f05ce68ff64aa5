package replicas

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/lwolf/trendscaler/pkg/helpers"
)

// DeploymentStore keeps the replica count in the Deployment spec.
// Reads bypass the informer cache so every decision sees the latest value.
type DeploymentStore struct {
	reader     client.Reader
	writer     client.Writer
	recorder   record.EventRecorder
	clock      clock.PassiveClock
	generation string
	log        logr.Logger
}

func NewDeploymentStore(log logr.Logger, reader client.Reader, writer client.Writer, recorder record.EventRecorder, clk clock.PassiveClock, generation string) *DeploymentStore {
	return &DeploymentStore{
		reader:     reader,
		writer:     writer,
		recorder:   recorder,
		clock:      clk,
		generation: generation,
		log:        log.WithName("deploymentStore"),
	}
}

func (s *DeploymentStore) GetReplicas(ctx context.Context, key types.NamespacedName) (int32, error) {
	var deploy appsv1.Deployment
	if err := s.reader.Get(ctx, key, &deploy); err != nil {
		return 0, err
	}
	return helpers.DeploymentReplicas(&deploy), nil
}

func (s *DeploymentStore) SetReplicas(ctx context.Context, key types.NamespacedName, replicas int32) error {
	var deploy appsv1.Deployment
	if err := s.reader.Get(ctx, key, &deploy); err != nil {
		return err
	}
	from := helpers.DeploymentReplicas(&deploy)
	patched := deploy.DeepCopy()
	patched.Spec.Replicas = helpers.Ptr2Int32(replicas)
	patched.Annotations = helpers.MergeAnnotations(deploy.Annotations, map[string]string{
		AnnotationLastScaleTime:    s.clock.Now().UTC().Format(time.RFC3339),
		AnnotationConfigGeneration: s.generation,
		AnnotationLastStage:        StageFrom(ctx),
	})
	if err := s.writer.Patch(ctx, patched, client.MergeFrom(&deploy)); err != nil {
		return err
	}
	s.log.V(1).Info("patched deployment", "deployment", key, "from", from, "to", replicas)
	s.recorder.Eventf(
		patched,
		corev1.EventTypeNormal,
		EventReasonScaled,
		"scaled from %d to %d replicas", from, replicas,
	)
	return nil
}
