package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"storefront/catalog/internal/domain"
)

// MemorySnapshotStore keeps the snapshot encoded in process memory. It goes
// through the same JSON round trip as the persistent stores.
type MemorySnapshotStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

func (s *MemorySnapshotStore) Load(_ context.Context) (*domain.ProductSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, nil
	}

	var snap domain.ProductSnapshot
	if err := json.Unmarshal(s.data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return &snap, nil
}

func (s *MemorySnapshotStore) Save(_ context.Context, snapshot *domain.ProductSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode product snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = data
	s.saves++
	return nil
}

func (s *MemorySnapshotStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = nil
	return nil
}

// Saves reports how many times Save succeeded.
func (s *MemorySnapshotStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saves
}

// Corrupt replaces the stored bytes with undecodable data.
func (s *MemorySnapshotStore) Corrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = []byte("{not json")
}
