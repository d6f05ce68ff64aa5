package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var envKeys = []string{
	"NAMESPACE", "DEPLOYMENT_NAME", "CHECK_INTERVAL", "PREDICTION_WINDOW", "SPIKE_THRESHOLD",
	"USERS_PER_POD", "MIN_PODS", "MAX_PODS", "SCALE_INCREMENT", "CPU_THRESHOLD", "MEMORY_THRESHOLD",
	"ESCALATION_POLICY", "FALLBACK_POLICY", "LOAD_SOURCE", "LOAD_ENDPOINT", "PROMETHEUS_ADDRESS",
	"LOAD_QUERY", "RESOURCE_SOURCE", "METRICS_ENDPOINT", "POD_SELECTOR", "REPLICA_STORE",
	"REQUEST_TIMEOUT", "METRICS_BIND_ADDRESS", "HEALTH_PROBE_BIND_ADDRESS", "DASHBOARD_BIND_ADDRESS",
	"LEADER_ELECT", "VERBOSE",
}

// clearEnv unsets every variable the config reads and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		if v, ok := os.LookupEnv(k); ok {
			key, value := k, v
			t.Cleanup(func() { os.Setenv(key, value) })
		}
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	exp := &Config{
		Namespace:        "default",
		DeploymentName:   "example-deployment",
		CheckInterval:    10,
		PredictionWindow: 5,
		SpikeThreshold:   50,
		UsersPerPod:      3,
		MinPods:          2,
		MaxPods:          400,
		ScaleIncrement:   5,
		CPUThreshold:     700,
		MemoryThreshold:  300,
		EscalationPolicy: EscalationIncrement,
		FallbackPolicy:   FallbackRandomWalk,
		LoadSource:       LoadSourceHTTP,
		LoadEndpoint:     "http://custom-app-service:6000/user_count",
		LoadQuery:        "sum(user_count)",
		ResourceSource:   ResourceSourceHTTP,
		MetricsEndpoint:  "http://resource-metrics-service:5000",
		ReplicaStore:     ReplicaStoreDeployment,
		RequestTimeout:   5 * time.Second,
		MetricsAddr:      ":8000",
		ProbeAddr:        ":8081",
		DashboardAddr:    ":5000",
	}
	if diff := cmp.Diff(exp, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Interval() != 10*time.Second {
		t.Fatalf("expected interval 10s, got %s", cfg.Interval())
	}
	if cfg.Selector() != "app=example-deployment" {
		t.Fatalf("unexpected default selector %q", cfg.Selector())
	}
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("NAMESPACE", "shop")
	t.Setenv("DEPLOYMENT_NAME", "web")
	t.Setenv("CHECK_INTERVAL", "30")
	t.Setenv("MIN_PODS", "1")
	t.Setenv("MAX_PODS", "20")
	t.Setenv("CPU_THRESHOLD", "1500.5")
	t.Setenv("LOAD_SOURCE", "prometheus")
	t.Setenv("PROMETHEUS_ADDRESS", "http://prom-a:9090, http://prom-b:9090,")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("VERBOSE", "true")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if cfg.Namespace != "shop" || cfg.DeploymentName != "web" {
		t.Fatalf("unexpected target %s/%s", cfg.Namespace, cfg.DeploymentName)
	}
	if cfg.Interval() != 30*time.Second {
		t.Fatalf("expected interval 30s, got %s", cfg.Interval())
	}
	if cfg.MinPods != 1 || cfg.MaxPods != 20 {
		t.Fatalf("unexpected bounds [%d, %d]", cfg.MinPods, cfg.MaxPods)
	}
	if cfg.CPUThreshold != 1500.5 {
		t.Fatalf("unexpected cpu threshold %v", cfg.CPUThreshold)
	}
	if cfg.RequestTimeout != 2*time.Second || !cfg.Verbose {
		t.Fatalf("unexpected timeout %s or verbose %v", cfg.RequestTimeout, cfg.Verbose)
	}
	if diff := cmp.Diff([]string{"http://prom-a:9090", "http://prom-b:9090"}, cfg.PrometheusAddresses()); diff != "" {
		t.Fatalf("addresses mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FlagsOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_PODS", "20")
	cfg, err := Load([]string{"--max-pods", "50", "--escalation-policy", "max"})
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if cfg.MaxPods != 50 {
		t.Fatalf("expected flag to win over env, got %d", cfg.MaxPods)
	}
	if cfg.EscalationPolicy != EscalationMax {
		t.Fatalf("unexpected escalation policy %q", cfg.EscalationPolicy)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		clearEnv(t)
		cfg, err := Load(nil)
		if err != nil {
			t.Fatalf("unexpected err: %s", err)
		}
		return cfg
	}
	testCases := map[string]struct {
		mutate func(c *Config)
		expErr string
	}{
		"defaults are valid":        {mutate: func(c *Config) {}, expErr: ""},
		"min above max":             {mutate: func(c *Config) { c.MinPods, c.MaxPods = 10, 5 }, expErr: "MAX_PODS must be >= MIN_PODS"},
		"min equal max":             {mutate: func(c *Config) { c.MinPods, c.MaxPods = 5, 5 }, expErr: ""},
		"zero users per pod":        {mutate: func(c *Config) { c.UsersPerPod = 0 }, expErr: "USERS_PER_POD"},
		"zero window":               {mutate: func(c *Config) { c.PredictionWindow = 0 }, expErr: "PREDICTION_WINDOW"},
		"zero interval":             {mutate: func(c *Config) { c.CheckInterval = 0 }, expErr: "CHECK_INTERVAL"},
		"negative increment":        {mutate: func(c *Config) { c.ScaleIncrement = -1 }, expErr: "SCALE_INCREMENT"},
		"unknown escalation policy": {mutate: func(c *Config) { c.EscalationPolicy = "double" }, expErr: "ESCALATION_POLICY"},
		"unknown replica store":     {mutate: func(c *Config) { c.ReplicaStore = "statefulset" }, expErr: "REPLICA_STORE"},
		"prometheus without address": {
			mutate: func(c *Config) { c.LoadSource = LoadSourcePrometheus },
			expErr: "PROMETHEUS_ADDRESS",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err != nil {
				if len(tc.expErr) == 0 {
					t.Fatalf("unexpected err: %s", err)
				}
				if !strings.Contains(err.Error(), tc.expErr) {
					t.Fatalf("expected to get err %q; got %q instead", tc.expErr, err)
				}
			} else if len(tc.expErr) > 0 {
				t.Fatalf("expected to get err %q; got nil instead", tc.expErr)
			}
		})
	}
}

func TestHash(t *testing.T) {
	a := &Config{UsersPerPod: 3, MinPods: 2, MaxPods: 400, Namespace: "a"}
	b := &Config{UsersPerPod: 3, MinPods: 2, MaxPods: 400, Namespace: "b"}
	c := &Config{UsersPerPod: 4, MinPods: 2, MaxPods: 400, Namespace: "a"}
	if a.Hash() == "" {
		t.Fatal("expected non-empty hash")
	}
	if a.Hash() != b.Hash() {
		t.Fatal("expected fields outside of the decision to be ignored")
	}
	if a.Hash() == c.Hash() {
		t.Fatal("expected decision fields to change the hash")
	}
}
