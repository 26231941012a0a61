package storage

import (
	"context"
	"errors"
	"time"

	"property-scraper/models"
)

var (
	// ErrNotFound is returned when no listing matches the natural key.
	ErrNotFound = errors.New("storage: listing not found")
	// ErrDuplicateKey is returned by Insert when the natural key already exists.
	ErrDuplicateKey = errors.New("storage: duplicate listing key")
)

// ListingStore is the persistence port the reconciler depends on. Every
// call succeeds or fails atomically on its own; no multi-record transaction
// is assumed.
type ListingStore interface {
	FindByKey(ctx context.Context, key models.ListingKey) (*models.ListingRecord, error)
	Insert(ctx context.Context, rec *models.ListingRecord) error
	// UpdatePartial overwrites only the fields carried by upd.
	UpdatePartial(ctx context.Context, key models.ListingKey, upd models.ListingUpdate) error
	// DeactivateStale sets active=false on every active listing last seen
	// before cutoff and returns how many changed.
	DeactivateStale(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// PriceHistoryStore is implemented by backends that keep price history.
type PriceHistoryStore interface {
	AppendPriceChange(ctx context.Context, change models.PriceChange) error
}

// SnapshotWriter persists the crawled records of a run before reconciliation.
type SnapshotWriter interface {
	WriteSnapshot(records []*models.ListingRecord) error
	Close() error
}

func photosOrEmpty(p []string) []string {
	if p == nil {
		return []string{}
	}
	return p
}
