package storage

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"property-scraper/models"
)

// MemoryStore keeps listings in process memory. It backs dry runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[models.ListingKey]*models.ListingRecord
	history  []models.PriceChange
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{listings: make(map[models.ListingKey]*models.ListingRecord)}
}

func (m *MemoryStore) FindByKey(_ context.Context, key models.ListingKey) (*models.ListingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.listings[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryStore) Insert(_ context.Context, rec *models.ListingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.Key()
	if _, exists := m.listings[key]; exists {
		return ErrDuplicateKey
	}
	m.listings[key] = cloneRecord(rec)
	return nil
}

func (m *MemoryStore) UpdatePartial(_ context.Context, key models.ListingKey, upd models.ListingUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.listings[key]
	if !ok {
		return ErrNotFound
	}
	rec.Price = clonePtr(upd.Price)
	rec.Currency = upd.Currency
	rec.Photos = slices.Clone(photosOrEmpty(upd.Photos))
	rec.LastSeenAt = upd.LastSeenAt
	rec.Active = upd.Active
	return nil
}

func (m *MemoryStore) DeactivateStale(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, rec := range m.listings {
		if rec.Active && rec.LastSeenAt.Before(cutoff) {
			rec.Active = false
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) AppendPriceChange(_ context.Context, change models.PriceChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, change)
	return nil
}

// All returns copies of every stored listing ordered by natural key.
func (m *MemoryStore) All() []*models.ListingRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.ListingRecord, 0, len(m.listings))
	for _, rec := range m.listings {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
	return out
}

func (m *MemoryStore) PriceHistory() []models.PriceChange {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.history)
}

func (m *MemoryStore) Close() error { return nil }

func cloneRecord(r *models.ListingRecord) *models.ListingRecord {
	c := *r
	c.Price = clonePtr(r.Price)
	c.Rooms = clonePtr(r.Rooms)
	c.Bedrooms = clonePtr(r.Bedrooms)
	c.Bathrooms = clonePtr(r.Bathrooms)
	c.CoveredArea = clonePtr(r.CoveredArea)
	c.TotalArea = clonePtr(r.TotalArea)
	c.Description = clonePtr(r.Description)
	c.Photos = slices.Clone(photosOrEmpty(r.Photos))
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
