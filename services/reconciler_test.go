package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"property-scraper/models"
	"property-scraper/storage"
	"property-scraper/utils"
)

func ptr[T any](v T) *T { return &v }

type clock struct{ t time.Time }

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestReconciler(s storage.ListingStore, c *clock) *Reconciler {
	return NewReconciler(s, utils.NewDiscardLogger(), c.now)
}

func sampleRecords() []*models.ListingRecord {
	return []*models.ListingRecord{
		{ExternalID: "MLA100", Source: models.SourceMercadoLibre, Title: "Depto 2 amb", Price: ptr(95000.0),
			Currency: models.CurrencyUSD, Region: "Palermo", Description: ptr("Luminoso"), Photos: []string{"a.jpg"}},
		{ExternalID: "zp-200", Source: models.SourceZonaprop, Title: "PH reciclado", Price: ptr(130000.0),
			Currency: models.CurrencyUSD, Region: "Boedo"},
		{ExternalID: "ap-300", Source: models.SourceArgenprop, Title: "Casa", Currency: models.CurrencyUSD, Region: "Flores"},
	}
}

func TestSaveInsertsThenUpdates(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newClock()
	r := newTestReconciler(store, c)

	got := r.Save(context.Background(), sampleRecords())
	if got != (models.SaveStats{Inserted: 3}) {
		t.Fatalf("first save = %+v; want 3 inserted", got)
	}

	c.advance(time.Hour)
	got = r.Save(context.Background(), sampleRecords())
	if got != (models.SaveStats{Updated: 3}) {
		t.Fatalf("second save = %+v; want 3 updated", got)
	}

	all := store.All()
	if len(all) != 3 {
		t.Fatalf("stored %d listings; want 3", len(all))
	}
	ids := map[string]bool{}
	for _, rec := range all {
		if rec.ID == "" || ids[rec.ID] {
			t.Errorf("listing %s has empty or repeated id %q", rec.Key(), rec.ID)
		}
		ids[rec.ID] = true
		if !rec.Active {
			t.Errorf("%s should be active", rec.Key())
		}
		if rec.FirstSeenAt.After(rec.LastSeenAt) {
			t.Errorf("%s: firstSeenAt %v after lastSeenAt %v", rec.Key(), rec.FirstSeenAt, rec.LastSeenAt)
		}
		if !rec.LastSeenAt.Equal(c.t) {
			t.Errorf("%s: lastSeenAt = %v; want %v", rec.Key(), rec.LastSeenAt, c.t)
		}
	}
}

func TestSaveSameKeyDifferentSource(t *testing.T) {
	store := storage.NewMemoryStore()
	r := newTestReconciler(store, newClock())

	recs := []*models.ListingRecord{
		{ExternalID: "123", Source: models.SourceZonaprop},
		{ExternalID: "123", Source: models.SourceArgenprop},
		{ExternalID: "123", Source: models.SourceZonaprop},
	}
	got := r.Save(context.Background(), recs)
	if got != (models.SaveStats{Inserted: 2, Updated: 1}) {
		t.Errorf("Save = %+v; want 2 inserted 1 updated", got)
	}
	if n := len(store.All()); n != 2 {
		t.Errorf("stored %d; want 2", n)
	}
}

func TestUpdateIsPartial(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newClock()
	r := newTestReconciler(store, c)
	first := c.t

	r.Save(context.Background(), sampleRecords()[:1])

	c.advance(24 * time.Hour)
	again := &models.ListingRecord{
		ExternalID: "MLA100", Source: models.SourceMercadoLibre,
		Title: "Otro titulo", Region: "Belgrano", Price: ptr(90000.0), Currency: models.CurrencyUSD,
		Photos: []string{"b.jpg", "c.jpg"},
	}
	r.Save(context.Background(), []*models.ListingRecord{again})

	got, err := store.FindByKey(context.Background(), again.Key())
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if got.Title != "Depto 2 amb" || got.Region != "Palermo" {
		t.Errorf("title/region overwritten: %q %q", got.Title, got.Region)
	}
	if got.Description == nil || *got.Description != "Luminoso" {
		t.Errorf("description overwritten: %v", got.Description)
	}
	if !got.FirstSeenAt.Equal(first) {
		t.Errorf("firstSeenAt = %v; want %v", got.FirstSeenAt, first)
	}
	if *got.Price != 90000 || len(got.Photos) != 2 || !got.LastSeenAt.Equal(c.t) {
		t.Errorf("update not applied: price %v photos %v lastSeen %v", *got.Price, got.Photos, got.LastSeenAt)
	}
}

func TestResightingReactivates(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newClock()
	r := newTestReconciler(store, c)

	r.Save(context.Background(), sampleRecords()[:1])
	c.advance(72 * time.Hour)
	if n, _ := r.SweepStale(context.Background(), 48); n != 1 {
		t.Fatalf("sweep = %d; want 1", n)
	}

	r.Save(context.Background(), sampleRecords()[:1])
	got, _ := store.FindByKey(context.Background(), sampleRecords()[0].Key())
	if !got.Active {
		t.Error("re-observed listing should be active again")
	}
}

func TestSweepStale(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newClock()
	r := newTestReconciler(store, c)
	ctx := context.Background()

	r.Save(ctx, sampleRecords()[:2])
	c.advance(50 * time.Hour)
	r.Save(ctx, sampleRecords()[2:])

	n, err := r.SweepStale(ctx, 48)
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if n != 2 {
		t.Errorf("first sweep = %d; want 2", n)
	}
	n, _ = r.SweepStale(ctx, 48)
	if n != 0 {
		t.Errorf("second sweep = %d; want 0", n)
	}

	fresh, _ := store.FindByKey(ctx, sampleRecords()[2].Key())
	if !fresh.Active {
		t.Error("recently seen listing was deactivated")
	}
	if len(store.All()) != 3 {
		t.Error("sweep must not delete listings")
	}
}

func TestSweepDefaultThreshold(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newClock()
	r := newTestReconciler(store, c)

	r.Save(context.Background(), sampleRecords())
	c.advance(47 * time.Hour)
	if n, _ := r.SweepStale(context.Background(), 0); n != 0 {
		t.Errorf("sweep at 47h = %d; want 0", n)
	}
	c.advance(2 * time.Hour)
	if n, _ := r.SweepStale(context.Background(), 0); n != 3 {
		t.Errorf("sweep at 49h = %d; want 3", n)
	}
}

func TestPriceHistoryOnlyOnChange(t *testing.T) {
	store := storage.NewMemoryStore()
	c := newClock()
	r := newTestReconciler(store, c)
	ctx := context.Background()

	r.Save(ctx, sampleRecords())
	c.advance(time.Hour)
	r.Save(ctx, sampleRecords())
	if h := store.PriceHistory(); len(h) != 0 {
		t.Fatalf("unchanged prices produced %d history entries", len(h))
	}

	changed := sampleRecords()
	changed[0].Price = ptr(85500.0)
	changed[1].Price = nil
	changed[2].Price = ptr(250000.0)
	c.advance(time.Hour)
	r.Save(ctx, changed)

	h := store.PriceHistory()
	if len(h) != 2 {
		t.Fatalf("history entries = %d; want 2", len(h))
	}
	byKey := map[string]models.PriceChange{}
	for _, ch := range h {
		byKey[ch.ExternalID] = ch
	}
	drop := byKey["MLA100"]
	if drop.ChangePercent == nil || *drop.ChangePercent != -10 {
		t.Errorf("MLA100 change percent = %v; want -10", drop.ChangePercent)
	}
	if drop.ListingID == "" || !drop.ChangedAt.Equal(c.t) {
		t.Errorf("MLA100 entry = %+v", drop)
	}
	first := byKey["ap-300"]
	if first.PreviousPrice != nil || first.ChangePercent != nil {
		t.Errorf("first known price should have no previous: %+v", first)
	}
}

// flakyStore fails writes for chosen external ids.
type flakyStore struct {
	*storage.MemoryStore
	failInsert map[string]bool
	failFind   map[string]bool
}

func (f *flakyStore) Insert(ctx context.Context, rec *models.ListingRecord) error {
	if f.failInsert[rec.ExternalID] {
		return errors.New("connection reset")
	}
	return f.MemoryStore.Insert(ctx, rec)
}

func (f *flakyStore) FindByKey(ctx context.Context, key models.ListingKey) (*models.ListingRecord, error) {
	if f.failFind[key.ExternalID] {
		return nil, errors.New("timeout")
	}
	return f.MemoryStore.FindByKey(ctx, key)
}

func TestSaveCountsErrorsAndContinues(t *testing.T) {
	store := &flakyStore{
		MemoryStore: storage.NewMemoryStore(),
		failInsert:  map[string]bool{"zp-200": true},
		failFind:    map[string]bool{"ap-300": true},
	}
	r := newTestReconciler(store, newClock())

	recs := append(sampleRecords(), &models.ListingRecord{Source: models.SourceZonaprop})
	got := r.Save(context.Background(), recs)
	if got != (models.SaveStats{Inserted: 1, Errors: 3}) {
		t.Errorf("Save = %+v; want 1 inserted 3 errors", got)
	}
}

// racyStore reports a duplicate on insert, as if a concurrent writer won.
type racyStore struct {
	*storage.MemoryStore
}

func (s racyStore) Insert(ctx context.Context, rec *models.ListingRecord) error {
	_ = s.MemoryStore.Insert(ctx, rec)
	return storage.ErrDuplicateKey
}

func TestSaveDuplicateInsertFallsBackToUpdate(t *testing.T) {
	store := racyStore{storage.NewMemoryStore()}
	r := newTestReconciler(store, newClock())

	got := r.Save(context.Background(), sampleRecords()[:1])
	if got != (models.SaveStats{Updated: 1}) {
		t.Errorf("Save = %+v; want 1 updated", got)
	}
}
