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
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/lwolf/trendscaler/pkg/history"
	"github.com/lwolf/trendscaler/pkg/predictors"
	"github.com/lwolf/trendscaler/pkg/providers"
)

const DefaultEventHistory = 50

// Snapshot is what the scaler knew at the end of its last tick.
type Snapshot struct {
	UserCount  float64              `json:"user_count"`
	PodCount   int32                `json:"pod_count"`
	Estimate   *predictors.Estimate `json:"estimate,omitempty"`
	Usage      *providers.Usage     `json:"usage,omitempty"`
	UsageError string               `json:"usage_error,omitempty"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// ScalingEvent records one attempted replica change.
type ScalingEvent struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Stage   string    `json:"stage"`
	From    int32     `json:"from"`
	To      int32     `json:"to"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
}

// State is written by the scaler and read concurrently by the dashboard.
type State struct {
	clock    clock.PassiveClock
	snapshot atomic.Pointer[Snapshot]

	mu     sync.Mutex
	events *history.Window[ScalingEvent]
}

func NewState(clk clock.PassiveClock, eventHistory int) *State {
	return &State{
		clock:  clk,
		events: history.NewWindow[ScalingEvent](eventHistory),
	}
}

// Snapshot returns the last published snapshot, or false before the first tick.
func (s *State) Snapshot() (Snapshot, bool) {
	snap := s.snapshot.Load()
	if snap == nil {
		return Snapshot{}, false
	}
	return *snap, true
}

func (s *State) Publish(snap Snapshot) {
	snap.UpdatedAt = s.clock.Now()
	s.snapshot.Store(&snap)
}

func (s *State) RecordEvent(stage string, from, to int32, err error) ScalingEvent {
	e := ScalingEvent{
		ID:      uuid.NewString(),
		Time:    s.clock.Now(),
		Stage:   stage,
		From:    from,
		To:      to,
		Success: err == nil,
	}
	if err != nil {
		e.Error = err.Error()
	}
	s.mu.Lock()
	s.events.Append(e)
	s.mu.Unlock()
	return e
}

// Events returns the scaling history, oldest first.
func (s *State) Events() []ScalingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.Samples()
}
