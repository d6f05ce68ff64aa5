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
	"fmt"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/types"

	tserrors "github.com/lwolf/trendscaler/pkg/errors"
	"github.com/lwolf/trendscaler/pkg/replicas"
)

// Result describes what a reconcile did. Changed is false for a no-op and
// for a failed write; To is then the count that remains in the store.
type Result struct {
	From    int32
	To      int32
	Changed bool
}

// ReplicaReconciler reads the current replica count right before deciding
// whether to write, and writes at most once per call.
type ReplicaReconciler struct {
	Store replicas.Store
	Key   types.NamespacedName
	Log   logr.Logger
}

// Reconcile sets the replica count to desired. The stage attached to ctx
// through replicas.WithStage labels logs and metrics.
func (r *ReplicaReconciler) Reconcile(ctx context.Context, desired int32) (Result, error) {
	stage := replicas.StageFrom(ctx)
	log := r.Log.WithValues("deployment", r.Key, "stage", stage)

	current, err := r.Store.GetReplicas(ctx, r.Key)
	if err != nil {
		err = fmt.Errorf("%w: %w", tserrors.ErrStoreRead, err)
		reconcileTotal.WithLabelValues(stage, resultFailure).Inc()
		reconcileErrors.WithLabelValues(stage, tserrors.Kind(err)).Inc()
		return Result{}, err
	}
	if current == desired {
		podCountGauge.Set(float64(current))
		reconcileTotal.WithLabelValues(stage, resultNoop).Inc()
		log.Info("replica count already at desired value, no scaling needed", "replicas", current)
		return Result{From: current, To: current}, nil
	}
	if err := r.Store.SetReplicas(ctx, r.Key, desired); err != nil {
		err = fmt.Errorf("%w: %w", tserrors.ErrStoreWrite, err)
		podCountGauge.Set(float64(current))
		reconcileTotal.WithLabelValues(stage, resultFailure).Inc()
		reconcileErrors.WithLabelValues(stage, tserrors.Kind(err)).Inc()
		return Result{From: current, To: current}, err
	}
	podCountGauge.Set(float64(desired))
	reconcileTotal.WithLabelValues(stage, resultScaled).Inc()
	log.Info("scaled deployment", "from", current, "to", desired)
	return Result{From: current, To: desired, Changed: true}, nil
}
