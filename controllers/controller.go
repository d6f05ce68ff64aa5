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

	"github.com/lwolf/trendscaler/pkg/providers"
)

const (
	StageHybrid   = "hybrid"
	StageOverride = "override"

	resultNoop    = "noop"
	resultScaled  = "scaled"
	resultFailure = "error"
)

// Override adjusts a replica decision based on resource usage.
type Override interface {
	Apply(usage *providers.Usage, current int32) (int32, bool)
}

// StageReconciler brings the replica store to the desired count.
type StageReconciler interface {
	Reconcile(ctx context.Context, desired int32) (Result, error)
}
