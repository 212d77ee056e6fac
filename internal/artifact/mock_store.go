package artifact

import (
	"context"
	"sync"
)

// MockStore is an in-memory implementation of Store for testing.
type MockStore struct {
	mu        sync.RWMutex
	artifacts map[string]Artifact
}

// NewMockStore creates a new mock artifact store.
func NewMockStore() *MockStore {
	return &MockStore{artifacts: make(map[string]Artifact)}
}

func key(userID, capability string) string {
	return userID + "/" + capability
}

// Save persists the artifact, keeping the watermark monotonic.
func (m *MockStore) Save(_ context.Context, art Artifact) error {
	if err := art.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.artifacts[key(art.UserID, art.Capability)]; ok && prev.Watermark > art.Watermark {
		art.Watermark = prev.Watermark
	}
	m.artifacts[key(art.UserID, art.Capability)] = art
	return nil
}

// Load retrieves the artifact for the pair, or ErrNotFound.
func (m *MockStore) Load(_ context.Context, userID, capability string) (*Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	art, ok := m.artifacts[key(userID, capability)]
	if !ok {
		return nil, ErrNotFound
	}
	if err := art.Validate(); err != nil {
		return nil, err
	}
	return &art, nil
}

// Exists reports whether an artifact is stored for the pair.
func (m *MockStore) Exists(_ context.Context, userID, capability string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.artifacts[key(userID, capability)]
	return ok, nil
}

// Stats returns collection statistics.
func (m *MockStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &Stats{ByCapability: make(map[string]int64)}
	for _, art := range m.artifacts {
		stats.ByCapability[art.Capability]++
		stats.TotalArtifacts++
	}
	return stats, nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error { return nil }
