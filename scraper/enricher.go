package scraper

import (
	"context"
	"sync"

	"property-scraper/models"
	"property-scraper/utils"
)

// DefaultEnrichConcurrency is the number of detail pages fetched at once.
const DefaultEnrichConcurrency = 5

const progressEvery = 20

// EnrichStats counts the outcome of one enrichment pass.
type EnrichStats struct {
	Enriched int
	Kept     int
}

// Enricher replaces search thumbnails with the full photo set of each
// listing's detail page.
type Enricher struct {
	fetchers Fetchers
	jitter   Jitter
	logger   *utils.Logger
}

func NewEnricher(fetchers Fetchers, jitter Jitter, logger *utils.Logger) *Enricher {
	return &Enricher{fetchers: fetchers, jitter: jitter, logger: logger}
}

// Enrich visits every record's detail page with at most limit fetches in
// flight. Every input record appears exactly once in the result, in
// completion order: enriched when the detail page produced photos,
// unchanged otherwise.
func (e *Enricher) Enrich(ctx context.Context, src Source, records []*models.ListingRecord, limit int) ([]*models.ListingRecord, EnrichStats) {
	if !src.HasDetailPhotos() || len(records) == 0 {
		return records, EnrichStats{Kept: len(records)}
	}
	if limit < 1 {
		limit = DefaultEnrichConcurrency
	}

	fetcher, err := e.fetchers.For(src.Strategy())
	if err != nil {
		e.logger.Error("[enricher] %s: %v", src.ID(), err)
		return records, EnrichStats{Kept: len(records)}
	}
	sess, err := fetcher.NewSession(ctx)
	if err != nil {
		e.logger.Error("[enricher] %s: open session: %v", src.ID(), err)
		return records, EnrichStats{Kept: len(records)}
	}
	defer func() {
		if err := sess.Close(); err != nil {
			e.logger.Warn("[enricher] Closing session: %v", err)
		}
	}()

	e.logger.Info("[enricher] %s: fetching detail photos for %d listings (%d at a time)",
		src.ID(), len(records), limit)

	var (
		mu    sync.Mutex
		out   = make([]*models.ListingRecord, 0, len(records))
		stats EnrichStats
	)
	done := func(rec *models.ListingRecord, enriched bool) {
		mu.Lock()
		defer mu.Unlock()
		out = append(out, rec)
		if enriched {
			stats.Enriched++
		} else {
			stats.Kept++
		}
		if len(out)%progressEvery == 0 {
			e.logger.Info("[enricher] %s: %d/%d done", src.ID(), len(out), len(records))
		}
	}

	pool := utils.NewWorkerPool(limit)
	for _, rec := range records {
		r := rec
		err := pool.Submit(ctx, func() {
			enriched, ok := e.enrichOne(ctx, src, sess, r)
			done(enriched, ok)
		})
		if err != nil {
			done(r, false)
		}
	}
	pool.Wait()

	e.logger.Info("[enricher] %s: %d enriched, %d kept original photos",
		src.ID(), stats.Enriched, stats.Kept)
	return out, stats
}

// enrichOne never fails the caller: errors, empty results and panics from
// unexpected detail markup all return rec unchanged.
func (e *Enricher) enrichOne(ctx context.Context, src Source, sess Session, rec *models.ListingRecord) (out *models.ListingRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("[enricher] %s: detail photos panic: %v", rec.Key(), r)
			out, ok = rec, false
		}
	}()

	if err := e.jitter.Wait(ctx); err != nil {
		return rec, false
	}

	photos, err := src.DetailPhotos(ctx, sess, rec.URL)
	if err != nil {
		e.logger.Debug("[enricher] %s: detail photos failed: %v", rec.Key(), err)
		return rec, false
	}
	if len(photos) == 0 {
		return rec, false
	}

	enriched := *rec
	enriched.Photos = photos
	return &enriched, true
}
