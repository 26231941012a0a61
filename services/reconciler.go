package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"property-scraper/models"
	"property-scraper/storage"
	"property-scraper/utils"
)

// DefaultStaleHours is the sweep window used when none is configured. It
// tolerates one missed daily run.
const DefaultStaleHours = 48

// Reconciler merges crawled records into the persisted collection.
type Reconciler struct {
	store  storage.ListingStore
	logger *utils.Logger
	now    func() time.Time
}

// NewReconciler builds a Reconciler. A nil now defaults to time.Now.
func NewReconciler(store storage.ListingStore, logger *utils.Logger, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{store: store, logger: logger, now: now}
}

// Save upserts each record by its natural key. A missing record is
// inserted with a fresh id; an existing one only gets price, currency,
// photos, lastSeenAt and active rewritten. A failing record bumps the error
// counter and the batch continues.
func (r *Reconciler) Save(ctx context.Context, records []*models.ListingRecord) models.SaveStats {
	var stats models.SaveStats
	now := r.now().UTC()

	for _, rec := range records {
		inserted, err := r.saveOne(ctx, rec, now)
		switch {
		case err != nil:
			stats.Errors++
			r.logger.Error("[reconciler] Saving %s: %v", rec.Key(), err)
		case inserted:
			stats.Inserted++
		default:
			stats.Updated++
		}
	}

	r.logger.Info("[reconciler] Saved batch: %d inserted, %d updated, %d errors",
		stats.Inserted, stats.Updated, stats.Errors)
	return stats
}

func (r *Reconciler) saveOne(ctx context.Context, rec *models.ListingRecord, now time.Time) (bool, error) {
	if rec.ExternalID == "" || rec.Source == "" {
		return false, errors.New("record has no natural key")
	}
	key := rec.Key()

	existing, err := r.store.FindByKey(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		err = r.insert(ctx, rec, now)
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return err == nil, err
		}
		// Inserted by someone else since the lookup.
		existing, err = r.store.FindByKey(ctx, key)
		if err != nil {
			return false, fmt.Errorf("find after duplicate insert: %w", err)
		}
	case err != nil:
		return false, fmt.Errorf("find: %w", err)
	}

	upd := models.ListingUpdate{
		Price:      rec.Price,
		Currency:   rec.Currency,
		Photos:     rec.Photos,
		LastSeenAt: now,
		Active:     true,
	}
	if err := r.store.UpdatePartial(ctx, key, upd); err != nil {
		return false, fmt.Errorf("update: %w", err)
	}
	r.recordPriceChange(ctx, existing, rec, now)
	return false, nil
}

func (r *Reconciler) insert(ctx context.Context, rec *models.ListingRecord, now time.Time) error {
	row := *rec
	row.ID = uuid.NewString()
	row.FirstSeenAt = now
	row.LastSeenAt = now
	row.Active = true
	if row.Photos == nil {
		row.Photos = []string{}
	}
	if err := r.store.Insert(ctx, &row); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

func (r *Reconciler) recordPriceChange(ctx context.Context, prev, cur *models.ListingRecord, now time.Time) {
	hs, ok := r.store.(storage.PriceHistoryStore)
	if !ok || !priceChanged(prev, cur) {
		return
	}

	change := models.PriceChange{
		ListingID:     prev.ID,
		ExternalID:    cur.ExternalID,
		Source:        cur.Source,
		PreviousPrice: prev.Price,
		NewPrice:      cur.Price,
		Currency:      cur.Currency,
		ChangedAt:     now,
	}
	if prev.Currency == cur.Currency && prev.Price != nil && cur.Price != nil && *prev.Price != 0 {
		pct := math.Round((*cur.Price-*prev.Price) / *prev.Price * 10000) / 100
		change.ChangePercent = &pct
	}

	if err := hs.AppendPriceChange(ctx, change); err != nil {
		r.logger.Warn("[reconciler] Price history for %s: %v", cur.Key(), err)
	}
}

// priceChanged reports whether a re-observation carries a new asking price.
// An unparsed price on the new observation is not a change.
func priceChanged(prev, cur *models.ListingRecord) bool {
	if cur.Price == nil {
		return false
	}
	if prev.Price == nil {
		return true
	}
	return *prev.Price != *cur.Price || prev.Currency != cur.Currency
}

// SweepStale deactivates every active listing not seen within the last
// thresholdHours and returns how many changed. Running it twice in a row
// changes nothing the second time.
func (r *Reconciler) SweepStale(ctx context.Context, thresholdHours int) (int64, error) {
	if thresholdHours <= 0 {
		thresholdHours = DefaultStaleHours
	}
	cutoff := r.now().UTC().Add(-time.Duration(thresholdHours) * time.Hour)

	n, err := r.store.DeactivateStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reconciler: sweep stale: %w", err)
	}
	r.logger.Info("[reconciler] Marked %d listings inactive (not seen since %s)",
		n, cutoff.Format(time.RFC3339))
	return n, nil
}
