package artifact

import (
	"context"
	"sync"

	id "skdm/pkg/domain"
	"skdm/pkg/platform/sentinel"
)

type memoryKey struct {
	tenantID      id.TenantID
	declarationID id.DeclarationID
}

// MemoryStore is the cache used in tests and when redis is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[memoryKey]Stored
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[memoryKey]Stored)}
}

func (s *MemoryStore) Put(_ context.Context, tenantID id.TenantID, declarationID id.DeclarationID, stored Stored) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := stored
	clone.Artifact = append([]byte(nil), stored.Artifact...)
	s.entries[memoryKey{tenantID, declarationID}] = clone
	return nil
}

func (s *MemoryStore) Get(_ context.Context, tenantID id.TenantID, declarationID id.DeclarationID) (*Stored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.entries[memoryKey{tenantID, declarationID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := stored
	clone.Artifact = append([]byte(nil), stored.Artifact...)
	return &clone, nil
}

func (s *MemoryStore) Invalidate(_ context.Context, tenantID id.TenantID, declarationID id.DeclarationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, memoryKey{tenantID, declarationID})
	return nil
}
