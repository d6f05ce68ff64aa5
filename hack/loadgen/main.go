package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/lwolf/trendscaler/hack/loadgen/lib"
)

var args struct {
	Port        int           `arg:"--port,env:PORT" default:"6000"`
	Period      time.Duration `arg:"--period,env:PERIOD" default:"5s" help:"how often the user count changes"`
	SpikeChance float64       `arg:"--spike-chance,env:SPIKE_CHANCE" default:"0.2"`
	RedisAddr   string        `arg:"--redis-addr,env:REDIS_ADDR" help:"share the user count between replicas through redis"`
	BurnCPU     bool          `arg:"--burn-cpu,env:BURN_CPU" help:"keep a core busy to exercise the resource override"`
	MatrixSize  int           `arg:"--matrix-size" default:"300"`
}

var userCountMetric = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "loadgen",
	Name:      "user_count",
	Help:      "Simulated number of active users",
})

type counter struct {
	local atomic.Int64
	redis *redis.Client
}

func (c *counter) Set(v int) {
	c.local.Store(int64(v))
	userCountMetric.Set(float64(v))
	if c.redis != nil {
		if err := lib.SetCount(c.redis, lib.UserCountKey, v); err != nil {
			klog.Errorf("unable to store user count in redis: %v", err)
		}
	}
}

func (c *counter) Get() int {
	if c.redis != nil {
		v, err := lib.GetCount(c.redis, lib.UserCountKey, int(c.local.Load()))
		if err == nil {
			return v
		}
		klog.Errorf("unable to read user count from redis: %v", err)
	}
	return int(c.local.Load())
}

func runSimulator(ctx context.Context, c *counter, sim *lib.Simulator, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		count, spike := sim.Next()
		if spike > 0 {
			klog.Infof("spike introduced: %d", spike)
		}
		c.Set(count)
		klog.Infof("simulated user count: %d", count)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func main() {
	arg.MustParse(&args)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &counter{}
	if args.RedisAddr != "" {
		client, err := lib.NewRedisClient(args.RedisAddr)
		if err != nil {
			klog.Fatalf("unable to connect to redis at address %s: %v", args.RedisAddr, err)
		}
		c.redis = client
	}
	prometheus.MustRegister(userCountMetric)

	sim := lib.NewSimulator(rand.New(rand.NewSource(time.Now().UnixNano())), args.SpikeChance)
	go runSimulator(ctx, c, sim, args.Period)
	if args.BurnCPU {
		go lib.Burn(ctx, args.MatrixSize, args.Period)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/user_count", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"user_count": c.Get()})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "loadgen is running")
	})
	srv := &http.Server{Addr: fmt.Sprintf(":%d", args.Port), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	klog.Infof("starting web server on port %d", args.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		klog.Fatal(err)
	}
}
