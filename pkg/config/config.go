package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/mitchellh/hashstructure"
)

const (
	LoadSourceHTTP       = "http"
	LoadSourcePrometheus = "prometheus"

	ResourceSourceHTTP          = "http"
	ResourceSourceMetricsServer = "metrics-server"

	ReplicaStoreDeployment = "deployment"
	ReplicaStoreScale      = "scale"

	EscalationIncrement = "increment"
	EscalationMax       = "max"

	FallbackRandomWalk = "random-walk"
	FallbackHold       = "hold"
)

// Config is loaded once at startup and never mutated afterwards.
// Environment variables are the primary surface, flags exist for local runs.
type Config struct {
	Namespace      string `arg:"--namespace,env:NAMESPACE" default:"default" help:"namespace of the managed deployment"`
	DeploymentName string `arg:"--deployment-name,env:DEPLOYMENT_NAME" default:"example-deployment" help:"name of the managed deployment"`

	CheckInterval    int     `arg:"--check-interval,env:CHECK_INTERVAL" default:"10" help:"seconds between scaling decisions"`
	PredictionWindow int     `arg:"--prediction-window,env:PREDICTION_WINDOW" default:"5" help:"number of samples used for trend estimation"`
	SpikeThreshold   float64 `arg:"--spike-threshold,env:SPIKE_THRESHOLD" default:"50" help:"load delta between two samples considered a spike"`
	UsersPerPod      int     `arg:"--users-per-pod,env:USERS_PER_POD" default:"3"`
	MinPods          int32   `arg:"--min-pods,env:MIN_PODS" default:"2"`
	MaxPods          int32   `arg:"--max-pods,env:MAX_PODS" default:"400"`
	ScaleIncrement   int32   `arg:"--scale-increment,env:SCALE_INCREMENT" default:"5"`
	CPUThreshold     float64 `arg:"--cpu-threshold,env:CPU_THRESHOLD" default:"700" help:"total CPU usage in mCPU that forces a scale up"`
	MemoryThreshold  float64 `arg:"--memory-threshold,env:MEMORY_THRESHOLD" default:"300" help:"total memory usage in MiB that forces a scale up"`

	EscalationPolicy string `arg:"--escalation-policy,env:ESCALATION_POLICY" default:"increment" help:"increment|max"`
	FallbackPolicy   string `arg:"--fallback-policy,env:FALLBACK_POLICY" default:"random-walk" help:"random-walk|hold"`

	LoadSource        string `arg:"--load-source,env:LOAD_SOURCE" default:"http" help:"http|prometheus"`
	LoadEndpoint      string `arg:"--load-endpoint,env:LOAD_ENDPOINT" default:"http://custom-app-service:6000/user_count"`
	PrometheusAddress string `arg:"--prometheus-address,env:PROMETHEUS_ADDRESS" help:"comma separated list of prometheus addresses"`
	LoadQuery         string `arg:"--load-query,env:LOAD_QUERY" default:"sum(user_count)"`

	ResourceSource  string `arg:"--resource-source,env:RESOURCE_SOURCE" default:"http" help:"http|metrics-server"`
	MetricsEndpoint string `arg:"--metrics-endpoint,env:METRICS_ENDPOINT" default:"http://resource-metrics-service:5000"`
	PodSelector     string `arg:"--pod-selector,env:POD_SELECTOR" help:"label selector of the pods to sum usage over, defaults to app=<deployment>"`

	ReplicaStore   string        `arg:"--replica-store,env:REPLICA_STORE" default:"deployment" help:"deployment|scale"`
	RequestTimeout time.Duration `arg:"--request-timeout,env:REQUEST_TIMEOUT" default:"5s"`

	MetricsAddr          string `arg:"--metrics-bind-address,env:METRICS_BIND_ADDRESS" default:":8000" help:"the address the metric endpoint binds to"`
	ProbeAddr            string `arg:"--health-probe-bind-address,env:HEALTH_PROBE_BIND_ADDRESS" default:":8081" help:"the address the probe endpoint binds to"`
	DashboardAddr        string `arg:"--dashboard-bind-address,env:DASHBOARD_BIND_ADDRESS" default:":5000" help:"the address the dashboard binds to, empty disables it"`
	EnableLeaderElection bool   `arg:"--leader-elect,env:LEADER_ELECT" help:"ensure there is only one active scaler"`
	Verbose              bool   `arg:"--verbose,env:VERBOSE" help:"set log level to debug mode"`
}

// Load parses args and the environment into a validated Config.
func Load(args []string) (*Config, error) {
	var cfg Config
	p, err := arg.NewParser(arg.Config{Program: "trendscaler"}, &cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load for main: it prints help or usage errors and exits.
func MustLoad() *Config {
	var cfg Config
	p := arg.MustParse(&cfg)
	if err := cfg.Validate(); err != nil {
		p.Fail(err.Error())
	}
	return &cfg
}

func (c *Config) Validate() error {
	var errs []error
	if c.DeploymentName == "" {
		errs = append(errs, errors.New("DEPLOYMENT_NAME cannot be empty"))
	}
	if c.CheckInterval < 1 {
		errs = append(errs, errors.New("CHECK_INTERVAL must be >= 1"))
	}
	if c.PredictionWindow < 1 {
		errs = append(errs, errors.New("PREDICTION_WINDOW must be >= 1"))
	}
	if c.UsersPerPod < 1 {
		errs = append(errs, errors.New("USERS_PER_POD must be >= 1"))
	}
	if c.MinPods < 0 {
		errs = append(errs, errors.New("MIN_PODS must be >= 0"))
	}
	if c.MaxPods < c.MinPods {
		errs = append(errs, errors.New("MAX_PODS must be >= MIN_PODS"))
	}
	if c.ScaleIncrement < 0 {
		errs = append(errs, errors.New("SCALE_INCREMENT must be >= 0"))
	}
	if c.SpikeThreshold < 0 || c.CPUThreshold < 0 || c.MemoryThreshold < 0 {
		errs = append(errs, errors.New("thresholds must be >= 0"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	errs = append(errs,
		oneOf("ESCALATION_POLICY", c.EscalationPolicy, EscalationIncrement, EscalationMax),
		oneOf("FALLBACK_POLICY", c.FallbackPolicy, FallbackRandomWalk, FallbackHold),
		oneOf("LOAD_SOURCE", c.LoadSource, LoadSourceHTTP, LoadSourcePrometheus),
		oneOf("RESOURCE_SOURCE", c.ResourceSource, ResourceSourceHTTP, ResourceSourceMetricsServer),
		oneOf("REPLICA_STORE", c.ReplicaStore, ReplicaStoreDeployment, ReplicaStoreScale),
	)
	if c.LoadSource == LoadSourcePrometheus && len(c.PrometheusAddresses()) == 0 {
		errs = append(errs, errors.New("PROMETHEUS_ADDRESS is required when LOAD_SOURCE=prometheus"))
	}
	return errors.Join(errs...)
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(allowed, "|"), value)
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.CheckInterval) * time.Second
}

func (c *Config) PrometheusAddresses() []string {
	var addrs []string
	for _, a := range strings.Split(c.PrometheusAddress, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

func (c *Config) Selector() string {
	if c.PodSelector != "" {
		return c.PodSelector
	}
	return "app=" + c.DeploymentName
}

// decisionInputs are the fields that influence a replica target.
type decisionInputs struct {
	PredictionWindow int
	SpikeThreshold   float64
	UsersPerPod      int
	MinPods          int32
	MaxPods          int32
	ScaleIncrement   int32
	CPUThreshold     float64
	MemoryThreshold  float64
	EscalationPolicy string
}

// Hash fingerprints the decision-relevant part of the configuration.
func (c *Config) Hash() string {
	h, err := hashstructure.Hash(decisionInputs{
		PredictionWindow: c.PredictionWindow,
		SpikeThreshold:   c.SpikeThreshold,
		UsersPerPod:      c.UsersPerPod,
		MinPods:          c.MinPods,
		MaxPods:          c.MaxPods,
		ScaleIncrement:   c.ScaleIncrement,
		CPUThreshold:     c.CPUThreshold,
		MemoryThreshold:  c.MemoryThreshold,
		EscalationPolicy: c.EscalationPolicy,
	}, nil)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(h, 10)
}
