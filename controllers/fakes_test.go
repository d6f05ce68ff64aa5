package controllers

import (
	"context"
	"sync"

	"k8s.io/apimachinery/pkg/types"

	"github.com/lwolf/trendscaler/pkg/providers"
)

// memStore is an in-memory replicas.Store counting its writes.
type memStore struct {
	mu       sync.Mutex
	replicas int32
	getErr   error
	setErr   error
	gets     int
	sets     int
}

func (m *memStore) GetReplicas(ctx context.Context, key types.NamespacedName) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.replicas, nil
}

func (m *memStore) SetReplicas(ctx context.Context, key types.NamespacedName, replicas int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.replicas = replicas
	return nil
}

func (m *memStore) Replicas() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replicas
}

func (m *memStore) Sets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// scriptedLoad returns values in order and repeats the last one.
type scriptedLoad struct {
	mu     sync.Mutex
	values []float64
	errs   map[int]error
	calls  int
}

func (s *scriptedLoad) GetLoad(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if err, ok := s.errs[i]; ok {
		return 0, err
	}
	if i >= len(s.values) {
		i = len(s.values) - 1
	}
	return s.values[i], nil
}

func (s *scriptedLoad) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type panickingLoad struct{}

func (panickingLoad) GetLoad(ctx context.Context) (float64, error) {
	panic("load source exploded")
}

type staticUsage struct {
	usage *providers.Usage
	err   error
}

func (s *staticUsage) GetUsage(ctx context.Context) (*providers.Usage, error) {
	return s.usage, s.err
}
