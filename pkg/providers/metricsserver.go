package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	tserrors "github.com/lwolf/trendscaler/pkg/errors"
)

const bytesInMiB = 1 << 20

// MetricsServerProvider sums container usage of the selected pods as reported
// by the metrics.k8s.io API.
type MetricsServerProvider struct {
	client    metricsv.Interface
	namespace string
	selector  string
	log       logr.Logger
}

func NewMetricsServerProvider(log logr.Logger, client metricsv.Interface, namespace, selector string) *MetricsServerProvider {
	once.Do(initMetrics)
	return &MetricsServerProvider{
		client:    client,
		namespace: namespace,
		selector:  selector,
		log:       log.WithName("metricsServer"),
	}
}

func (p *MetricsServerProvider) GetUsage(ctx context.Context) (usage *Usage, err error) {
	start := time.Now()
	defer func() { observeRequest(sourceMetricsServer, start, err) }()

	podMetrics, err := p.client.MetricsV1beta1().PodMetricses(p.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: p.selector,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", tserrors.ErrMetricsUnavailable, err)
	}
	var totalCPU, totalMemory int64
	for _, pm := range podMetrics.Items {
		for _, c := range pm.Containers {
			totalCPU += c.Usage.Cpu().MilliValue()
			totalMemory += c.Usage.Memory().Value()
		}
	}
	usage = &Usage{
		CPUMilli:  float64(totalCPU),
		MemoryMiB: float64(totalMemory) / bytesInMiB,
	}
	p.log.V(1).Info("fetched usage", "pods", len(podMetrics.Items), "cpu", usage.CPUMilli, "memory", usage.MemoryMiB)
	return usage, nil
}
