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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"

	tserrors "github.com/lwolf/trendscaler/pkg/errors"
	"github.com/lwolf/trendscaler/pkg/history"
	"github.com/lwolf/trendscaler/pkg/predictors"
	"github.com/lwolf/trendscaler/pkg/providers"
	"github.com/lwolf/trendscaler/pkg/replicas"
)

// Scaler runs the scaling loop. The window is owned by the loop goroutine,
// everything the outside world may look at goes through State.
type Scaler struct {
	Load       providers.LoadProvider
	Resources  providers.ResourceProvider
	Predictor  predictors.Predictor
	Override   Override
	Reconciler StageReconciler
	State      *State
	Window     *history.Window[float64]
	Interval   time.Duration
	Timeout    time.Duration
	Log        logr.Logger
}

// Start runs a tick right away and then CHECK_INTERVAL after the previous
// one finished, until ctx is cancelled.
func (s *Scaler) Start(ctx context.Context) error {
	s.Log.Info("starting scaler", "interval", s.Interval, "window", s.Window.Cap())
	wait.UntilWithContext(ctx, s.safeTick, s.Interval)
	s.Log.Info("scaler stopped")
	return nil
}

// NeedLeaderElection makes sure only one replica of the scaler acts on the deployment.
func (s *Scaler) NeedLeaderElection() bool {
	return true
}

func (s *Scaler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			tickFailures.Inc()
			s.Log.Error(fmt.Errorf("%v", r), "recovered from panic in scaling tick")
		}
	}()
	s.Tick(ctx)
}

// Tick performs one full scaling decision.
func (s *Scaler) Tick(ctx context.Context) {
	start := time.Now()
	ticksTotal.Inc()
	defer func() {
		tickDuration.Observe(time.Since(start).Seconds())
	}()

	snap := Snapshot{}
	if prev, ok := s.State.Snapshot(); ok {
		snap.PodCount = prev.PodCount
	}
	defer func() { s.State.Publish(snap) }()

	load := s.fetchLoad(ctx)
	userCountGauge.Set(load)
	snap.UserCount = load
	s.Window.Append(load)

	est := s.Predictor.Predict(s.Window.Samples(), load)
	snap.Estimate = &est
	if est.Spike {
		spikesTotal.Inc()
	}
	desiredReplicas.WithLabelValues(StageHybrid).Set(float64(est.Desired))

	res, err := s.reconcile(ctx, StageHybrid, est.Desired)
	if err != nil {
		if errors.Is(err, tserrors.ErrStoreWrite) {
			snap.PodCount = res.To
		}
		s.Log.Error(err, "unable to reconcile, abandoning the decision for this tick", "desired", est.Desired)
		return
	}
	snap.PodCount = res.To

	usage, err := s.fetchUsage(ctx)
	if err != nil {
		usageErrors.WithLabelValues(tserrors.Kind(err)).Inc()
		snap.UsageError = err.Error()
		s.Log.Error(err, "resource usage unavailable, skipping override")
		return
	}
	snap.Usage = usage

	target, applied := s.Override.Apply(usage, est.Desired)
	if applied {
		overridesTotal.Inc()
	}
	desiredReplicas.WithLabelValues(StageOverride).Set(float64(target))

	res, err = s.reconcile(ctx, StageOverride, target)
	if err != nil {
		if errors.Is(err, tserrors.ErrStoreWrite) {
			snap.PodCount = res.To
		}
		s.Log.Error(err, "unable to reconcile resource override", "desired", target)
		return
	}
	snap.PodCount = res.To
	s.Log.V(1).Info("tick finished", "load", load, "replicas", snap.PodCount, "override", applied)
}

func (s *Scaler) fetchLoad(ctx context.Context) float64 {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	load, err := s.Load.GetLoad(ctx)
	// main wraps the source in a FallbackLoadProvider, this only catches
	// providers used without a fallback.
	if err != nil {
		last, _ := s.Window.Last()
		s.Log.Error(err, "load signal unavailable, reusing the last sample", "load", last)
		return last
	}
	if load < 0 {
		return 0
	}
	return load
}

func (s *Scaler) fetchUsage(ctx context.Context) (*providers.Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	return s.Resources.GetUsage(ctx)
}

func (s *Scaler) reconcile(ctx context.Context, stage string, desired int32) (Result, error) {
	ctx, cancel := context.WithTimeout(replicas.WithStage(ctx, stage), s.Timeout)
	defer cancel()
	res, err := s.Reconciler.Reconcile(ctx, desired)
	if res.Changed || errors.Is(err, tserrors.ErrStoreWrite) {
		s.State.RecordEvent(stage, res.From, desired, err)
	}
	return res, err
}
