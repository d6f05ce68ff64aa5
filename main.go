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

package main

import (
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zapcore"
	appsv1 "k8s.io/api/apps/v1"
	apiruntime "k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/lwolf/trendscaler/controllers"
	"github.com/lwolf/trendscaler/pkg/config"
	"github.com/lwolf/trendscaler/pkg/dashboard"
	"github.com/lwolf/trendscaler/pkg/history"
	"github.com/lwolf/trendscaler/pkg/limiters"
	"github.com/lwolf/trendscaler/pkg/overrides"
	"github.com/lwolf/trendscaler/pkg/predictors"
	"github.com/lwolf/trendscaler/pkg/providers"
	"github.com/lwolf/trendscaler/pkg/replicas"
)

var (
	Version  string
	scheme   = apiruntime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")

	metaInfoGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trendscaler",
		Name:      "meta_info",
	}, []string{"go_version", "binary_version", "config_generation"})
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(appsv1.AddToScheme(scheme))
}

func main() {
	cfg := config.MustLoad()

	opts := zap.Options{
		Development: true,
		Level:       zapcore.InfoLevel,
	}
	if cfg.Verbose {
		opts.Level = zapcore.DebugLevel
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	generation := cfg.Hash()
	metrics.Registry.MustRegister(metaInfoGauge)
	metaInfoGauge.WithLabelValues(runtime.Version(), Version, generation).Set(1)

	setupLog.Info(
		"Initializing trendscaler",
		"version", Version,
		"deployment", types.NamespacedName{Namespace: cfg.Namespace, Name: cfg.DeploymentName},
		"interval", cfg.Interval(),
		"window", cfg.PredictionWindow,
		"bounds", fmt.Sprintf("[%d, %d]", cfg.MinPods, cfg.MaxPods),
		"loadSource", cfg.LoadSource,
		"resourceSource", cfg.ResourceSource,
		"replicaStore", cfg.ReplicaStore,
		"metricsAddr", cfg.MetricsAddr,
		"leaderElection", cfg.EnableLeaderElection,
		"configGeneration", generation,
	)

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		MetricsBindAddress:     cfg.MetricsAddr,
		HealthProbeBindAddress: cfg.ProbeAddr,
		LeaderElection:         cfg.EnableLeaderElection,
		LeaderElectionID:       fmt.Sprintf("trendscaler-%s-%s", cfg.Namespace, cfg.DeploymentName),
		Namespace:              cfg.Namespace,
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	log := ctrl.Log.WithName("controllers").WithName("Scaler")
	store, err := newStore(log, cfg, mgr, generation)
	if err != nil {
		setupLog.Error(err, "unable to create replica store")
		os.Exit(1)
	}
	load, err := newLoadProvider(log, cfg)
	if err != nil {
		setupLog.Error(err, "unable to create load provider")
		os.Exit(1)
	}
	resources, err := newResourceProvider(log, cfg, mgr)
	if err != nil {
		setupLog.Error(err, "unable to create resource provider")
		os.Exit(1)
	}
	policy, err := overrides.NewPolicy(cfg.EscalationPolicy, cfg.ScaleIncrement, cfg.MaxPods)
	if err != nil {
		setupLog.Error(err, "unable to create escalation policy")
		os.Exit(1)
	}

	limiter := limiters.NewBoundsLimiter(cfg.MinPods, cfg.MaxPods)
	state := controllers.NewState(clock.RealClock{}, controllers.DefaultEventHistory)
	scaler := &controllers.Scaler{
		Load:      load,
		Resources: resources,
		Predictor: predictors.NewHybridPredictor(log, cfg, limiter),
		Override:  overrides.NewResourceOverride(log, cfg.CPUThreshold, cfg.MemoryThreshold, policy, limiter),
		Reconciler: &controllers.ReplicaReconciler{
			Store: store,
			Key:   types.NamespacedName{Namespace: cfg.Namespace, Name: cfg.DeploymentName},
			Log:   log,
		},
		State:    state,
		Window:   history.NewWindow[float64](cfg.PredictionWindow),
		Interval: cfg.Interval(),
		Timeout:  cfg.RequestTimeout,
		Log:      log,
	}
	if err := mgr.Add(scaler); err != nil {
		setupLog.Error(err, "unable to register scaler")
		os.Exit(1)
	}
	if cfg.DashboardAddr != "" {
		if err := mgr.Add(dashboard.New(ctrl.Log, cfg.DashboardAddr, state)); err != nil {
			setupLog.Error(err, "unable to register dashboard")
			os.Exit(1)
		}
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}

func newStore(log logr.Logger, cfg *config.Config, mgr manager.Manager, generation string) (replicas.Store, error) {
	switch cfg.ReplicaStore {
	case config.ReplicaStoreScale:
		cs, err := kubernetes.NewForConfig(mgr.GetConfig())
		if err != nil {
			return nil, err
		}
		return replicas.NewScaleStore(log, cs), nil
	default:
		return replicas.NewDeploymentStore(
			log,
			mgr.GetAPIReader(),
			mgr.GetClient(),
			mgr.GetEventRecorderFor("trendscaler"),
			clock.RealClock{},
			generation,
		), nil
	}
}

func newLoadProvider(log logr.Logger, cfg *config.Config) (providers.LoadProvider, error) {
	var primary providers.LoadProvider
	switch cfg.LoadSource {
	case config.LoadSourcePrometheus:
		p, err := providers.NewPrometheusLoadProvider(log, cfg.PrometheusAddresses(), cfg.LoadQuery)
		if err != nil {
			return nil, err
		}
		primary = p
	default:
		primary = providers.NewHTTPLoadProvider(log, cfg.LoadEndpoint, cfg.RequestTimeout)
	}
	var estimator providers.Estimator = providers.HoldLastEstimator{}
	if cfg.FallbackPolicy == config.FallbackRandomWalk {
		estimator = providers.NewRandomWalkEstimator(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	return providers.NewFallbackLoadProvider(log, primary, estimator), nil
}

func newResourceProvider(log logr.Logger, cfg *config.Config, mgr manager.Manager) (providers.ResourceProvider, error) {
	switch cfg.ResourceSource {
	case config.ResourceSourceMetricsServer:
		mc, err := metricsv.NewForConfig(mgr.GetConfig())
		if err != nil {
			return nil, err
		}
		return providers.NewMetricsServerProvider(log, mc, cfg.Namespace, cfg.Selector()), nil
	default:
		return providers.NewHTTPResourceProvider(log, cfg.MetricsEndpoint, cfg.RequestTimeout), nil
	}
}
