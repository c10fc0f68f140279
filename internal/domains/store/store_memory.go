package store

import (
	"context"
	"fmt"
	"sync"

	"domainpark/internal/domains/models"
	id "domainpark/pkg/domain"
	"domainpark/pkg/platform/sentinel"
)

// InMemoryStore keeps records in a map. Callers get copies.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.DomainID]*models.DomainRecord
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.DomainID]*models.DomainRecord)}
}

func (s *InMemoryStore) Create(_ context.Context, record *models.DomainRecord) error {
	if record == nil {
		return fmt.Errorf("domain record is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return fmt.Errorf("create domain %s: %w", record.ID, sentinel.ErrConflict)
	}
	s.records[record.ID] = clone(record)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, record *models.DomainRecord) error {
	if record == nil {
		return fmt.Errorf("domain record is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; !exists {
		return fmt.Errorf("update domain %s: %w", record.ID, sentinel.ErrNotFound)
	}
	s.records[record.ID] = clone(record)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, domainID id.DomainID) (*models.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[domainID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(r), nil
}

func (s *InMemoryStore) ListByDomain(_ context.Context, domain string) ([]*models.DomainRecord, error) {
	return s.filter(func(r *models.DomainRecord) bool { return r.Domain == domain }), nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.DomainRecord, error) {
	return s.filter(func(r *models.DomainRecord) bool { return r.UserID == userID }), nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status models.Status) ([]*models.DomainRecord, error) {
	return s.filter(func(r *models.DomainRecord) bool { return r.Status == status }), nil
}

func (s *InMemoryStore) Delete(_ context.Context, domainID id.DomainID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[domainID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, domainID)
	return nil
}

func (s *InMemoryStore) filter(keep func(*models.DomainRecord) bool) []*models.DomainRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.DomainRecord, 0)
	for _, r := range s.records {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	newestFirst(out)
	return out
}

// RunInTx calls fn directly; the map is already guarded per call.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
