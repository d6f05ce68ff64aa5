/*

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controllers

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const namespace = "trendscaler"

var (
	// user_count and pod_count keep their historical names for existing dashboards.
	userCountGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "user_count",
			Help: "Current number of active users",
		},
	)
	podCountGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pod_count",
			Help: "Replica count of the managed deployment after the last reconcile",
		},
	)
	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scaler",
			Name:      "ticks_total",
			Help:      "Total number of scaling ticks",
		},
	)
	tickFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scaler",
			Name:      "tick_failures_total",
			Help:      "Total number of ticks aborted by a recovered panic",
		},
	)
	tickDuration = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Namespace:  namespace,
			Subsystem:  "scaler",
			Name:       "tick_duration_seconds",
			Help:       "Scaling tick duration",
			Objectives: map[float64]float64{0.5: 1e-1, 0.9: 1e-2, 0.99: 1e-3, 0.999: 1e-4, 1: 1e-5},
		},
	)
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scaler",
			Name:      "reconcile_total",
			Help:      "Total number of reconciles by stage and result",
		},
		[]string{"stage", "result"},
	)
	reconcileErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scaler",
			Name:      "reconcile_errors_total",
			Help:      "Total number of errors while reconciling the replica count",
		},
		[]string{"stage", "kind"},
	)
	usageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scaler",
			Name:      "usage_errors_total",
			Help:      "Total number of ticks without resource usage",
		},
		[]string{"kind"},
	)
	spikesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scaler",
			Name:      "spikes_total",
			Help:      "Total number of detected load spikes",
		},
	)
	overridesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scaler",
			Name:      "overrides_total",
			Help:      "Total number of resource based escalations",
		},
	)
	desiredReplicas = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scaler",
			Name:      "desired_replicas",
			Help:      "Last desired replica count by decision stage",
		},
		[]string{"stage"},
	)
)

func init() {
	metrics.Registry.MustRegister(userCountGauge, podCountGauge,
		ticksTotal, tickFailures, tickDuration,
		reconcileTotal, reconcileErrors, usageErrors,
		spikesTotal, overridesTotal, desiredReplicas)
}
