package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/lwolf/trendscaler/pkg/config"
	tserrors "github.com/lwolf/trendscaler/pkg/errors"
	"github.com/lwolf/trendscaler/pkg/history"
	"github.com/lwolf/trendscaler/pkg/limiters"
	"github.com/lwolf/trendscaler/pkg/overrides"
	"github.com/lwolf/trendscaler/pkg/predictors"
	"github.com/lwolf/trendscaler/pkg/providers"
)

func newTestScaler(load providers.LoadProvider, usage providers.ResourceProvider, store *memStore) *Scaler {
	cfg := &config.Config{
		UsersPerPod:      3,
		MinPods:          2,
		MaxPods:          400,
		ScaleIncrement:   5,
		SpikeThreshold:   50,
		PredictionWindow: 5,
		CPUThreshold:     700,
		MemoryThreshold:  300,
	}
	limiter := limiters.NewBoundsLimiter(cfg.MinPods, cfg.MaxPods)
	policy, err := overrides.NewPolicy(config.EscalationIncrement, cfg.ScaleIncrement, cfg.MaxPods)
	Expect(err).NotTo(HaveOccurred())
	return &Scaler{
		Load:       load,
		Resources:  usage,
		Predictor:  predictors.NewHybridPredictor(logr.Discard(), cfg, limiter),
		Override:   overrides.NewResourceOverride(logr.Discard(), cfg.CPUThreshold, cfg.MemoryThreshold, policy, limiter),
		Reconciler: &ReplicaReconciler{Store: store, Key: testKey, Log: logr.Discard()},
		State:      NewState(testingclock.NewFakePassiveClock(time.Now()), DefaultEventHistory),
		Window:     history.NewWindow[float64](cfg.PredictionWindow),
		Interval:   10 * time.Millisecond,
		Timeout:    time.Second,
		Log:        logr.Discard(),
	}
}

var idleUsage = &providers.Usage{CPUMilli: 100, MemoryMiB: 100}

var _ = Describe("Scaler", func() {
	var (
		ctx   context.Context
		store *memStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = &memStore{replicas: 2}
	})

	Context("with a steadily growing load", func() {
		It("follows the direct demand and then the trend", func() {
			load := &scriptedLoad{values: []float64{0, 3, 6, 9, 12}}
			s := newTestScaler(load, &staticUsage{usage: idleUsage}, store)

			var decisions []int32
			for i := 0; i < 5; i++ {
				s.Tick(ctx)
				decisions = append(decisions, store.Replicas())
			}
			// the fifth sample fills the window and the trend projects 27 users
			Expect(decisions).To(Equal([]int32{2, 2, 2, 3, 9}))
			Expect(s.Window.Len()).To(Equal(5))

			snap, ok := s.State.Snapshot()
			Expect(ok).To(BeTrue())
			Expect(snap.UserCount).To(Equal(12.0))
			Expect(snap.PodCount).To(Equal(int32(9)))
			Expect(snap.Estimate.Direct).To(Equal(int32(4)))
			Expect(testutil.ToFloat64(userCountGauge)).To(Equal(12.0))
			Expect(testutil.ToFloat64(podCountGauge)).To(Equal(9.0))
		})

		It("keeps the window bounded", func() {
			load := &scriptedLoad{values: []float64{1, 2, 3, 4, 5, 6, 7, 8}}
			s := newTestScaler(load, &staticUsage{usage: idleUsage}, store)
			for i := 0; i < 8; i++ {
				s.Tick(ctx)
			}
			Expect(s.Window.Samples()).To(Equal([]float64{4, 5, 6, 7, 8}))
		})
	})

	Context("when the load spikes", func() {
		It("adds the configured increment", func() {
			load := &scriptedLoad{values: []float64{10, 70}}
			s := newTestScaler(load, &staticUsage{usage: idleUsage}, store)
			s.Tick(ctx)
			Expect(store.Replicas()).To(Equal(int32(4)))
			s.Tick(ctx)
			Expect(store.Replicas()).To(Equal(int32(29)))

			events := s.State.Events()
			Expect(events).To(HaveLen(2))
			Expect(events[1].Stage).To(Equal(StageHybrid))
			Expect(events[1].From).To(Equal(int32(4)))
			Expect(events[1].To).To(Equal(int32(29)))
			Expect(events[1].Success).To(BeTrue())
		})
	})

	Context("when resource usage is over a threshold", func() {
		It("escalates on top of the hybrid decision", func() {
			load := &scriptedLoad{values: []float64{9}}
			s := newTestScaler(load, &staticUsage{usage: &providers.Usage{CPUMilli: 900, MemoryMiB: 10}}, store)
			s.Tick(ctx)
			Expect(store.Replicas()).To(Equal(int32(8)))

			events := s.State.Events()
			Expect(events).To(HaveLen(2))
			Expect(events[0].Stage).To(Equal(StageHybrid))
			Expect(events[0].To).To(Equal(int32(3)))
			Expect(events[1].Stage).To(Equal(StageOverride))
			Expect(events[1].To).To(Equal(int32(8)))
		})

		It("skips the override when usage is unavailable", func() {
			load := &scriptedLoad{values: []float64{9}}
			unavailable := &staticUsage{err: tserrors.ErrMetricsUnavailable}
			s := newTestScaler(load, unavailable, store)
			s.Tick(ctx)
			Expect(store.Replicas()).To(Equal(int32(3)))

			snap, _ := s.State.Snapshot()
			Expect(snap.Usage).To(BeNil())
			Expect(snap.UsageError).To(ContainSubstring("resource metrics unavailable"))
			Expect(snap.PodCount).To(Equal(int32(3)))
		})
	})

	Context("when the load signal fails", func() {
		It("holds the last reading through the fallback provider", func() {
			load := &scriptedLoad{
				values: []float64{30, 0, 0},
				errs:   map[int]error{1: tserrors.ErrSignalUnavailable},
			}
			fallback := providers.NewFallbackLoadProvider(logr.Discard(), load, providers.HoldLastEstimator{})
			s := newTestScaler(fallback, &staticUsage{usage: idleUsage}, store)
			s.Tick(ctx)
			s.Tick(ctx)
			Expect(s.Window.Samples()).To(Equal([]float64{30, 30}))
			Expect(store.Replicas()).To(Equal(int32(10)))
		})

		It("reuses the last sample when no fallback wraps the source", func() {
			load := &scriptedLoad{
				values: []float64{30, 0, 0},
				errs:   map[int]error{1: tserrors.ErrSignalUnavailable},
			}
			s := newTestScaler(load, &staticUsage{usage: idleUsage}, store)
			s.Tick(ctx)
			s.Tick(ctx)
			Expect(s.Window.Samples()).To(Equal([]float64{30, 30}))
			Expect(store.Replicas()).To(Equal(int32(10)))
		})
	})

	Context("when the replica store fails", func() {
		It("abandons the decision without writing", func() {
			store.getErr = errors.New("apiserver unavailable")
			load := &scriptedLoad{values: []float64{60}}
			s := newTestScaler(load, &staticUsage{usage: &providers.Usage{CPUMilli: 900}}, store)
			s.Tick(ctx)
			Expect(store.Sets()).To(Equal(0))
			Expect(s.State.Events()).To(BeEmpty())

			store.mu.Lock()
			store.getErr = nil
			store.mu.Unlock()
			s.Tick(ctx)
			Expect(store.Replicas()).To(Equal(int32(25)))
		})

		It("records failed writes", func() {
			store.setErr = errors.New("forbidden")
			load := &scriptedLoad{values: []float64{60}}
			s := newTestScaler(load, &staticUsage{usage: idleUsage}, store)
			s.Tick(ctx)

			events := s.State.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Success).To(BeFalse())
			Expect(events[0].Error).To(ContainSubstring("forbidden"))
			snap, _ := s.State.Snapshot()
			Expect(snap.PodCount).To(Equal(int32(2)))
		})
	})

	Context("when running as a manager runnable", func() {
		It("ticks until the context is cancelled", func() {
			load := &scriptedLoad{values: []float64{9}}
			s := newTestScaler(load, &staticUsage{usage: idleUsage}, store)
			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan error)
			go func() { done <- s.Start(runCtx) }()

			Eventually(store.Replicas).Should(Equal(int32(3)))
			Eventually(load.Calls).Should(BeNumerically(">=", 2))
			cancel()
			Eventually(done).Should(Receive(BeNil()))
			Expect(s.NeedLeaderElection()).To(BeTrue())
		})

		It("survives a panicking tick", func() {
			s := newTestScaler(panickingLoad{}, &staticUsage{usage: idleUsage}, store)
			before := testutil.ToFloat64(tickFailures)
			Expect(func() { s.safeTick(ctx) }).NotTo(Panic())
			Expect(func() { s.safeTick(ctx) }).NotTo(Panic())
			Expect(testutil.ToFloat64(tickFailures) - before).To(Equal(2.0))
			Expect(store.Sets()).To(Equal(0))
		})
	})
})
