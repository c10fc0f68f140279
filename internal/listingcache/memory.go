package listingcache

import (
	"context"
	"sync"
)

// Memory is an in-process Cache.
type Memory struct {
	mu       sync.RWMutex
	listings []Listing
}

func NewMemory(seed ...Listing) *Memory {
	return &Memory{listings: Merge(nil, seed...)}
}

func (m *Memory) All(_ context.Context) ([]Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Listing, len(m.listings))
	copy(out, m.listings)
	return out, nil
}

func (m *Memory) Add(_ context.Context, listing Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings = Merge(m.listings, listing)
	return nil
}

func (m *Memory) Remove(_ context.Context, domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings, _ = without(m.listings, domain)
	return nil
}
