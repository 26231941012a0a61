package services

import (
	"context"
	"time"

	"property-scraper/models"
	"property-scraper/scraper"
	"property-scraper/storage"
	"property-scraper/utils"
)

// RunOptions bounds one scheduled run.
type RunOptions struct {
	Regions          []string
	PagesPerRegion   int
	FetchPhotos      bool
	PhotoConcurrency int
	StaleHours       int
}

// Pipeline runs crawl, enrichment and reconciliation for each source and
// finishes with the staleness sweep.
type Pipeline struct {
	crawler    *scraper.Crawler
	enricher   *scraper.Enricher
	reconciler *Reconciler
	snapshot   storage.SnapshotWriter
	opts       RunOptions
	logger     *utils.Logger
	now        func() time.Time
}

// NewPipeline wires the run. snapshot may be nil.
func NewPipeline(crawler *scraper.Crawler, enricher *scraper.Enricher, reconciler *Reconciler,
	snapshot storage.SnapshotWriter, opts RunOptions, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		crawler:    crawler,
		enricher:   enricher,
		reconciler: reconciler,
		snapshot:   snapshot,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Run processes sources one after another. A source that yields nothing
// does not stop the others. The sweep is skipped when ctx is already done.
func (p *Pipeline) Run(ctx context.Context, sources []scraper.Source) *models.RunReport {
	report := &models.RunReport{StartedAt: p.now()}

	p.logger.Info("[pipeline] Run starting: %d sources, %d regions, %d pages per region",
		len(sources), len(p.opts.Regions), p.opts.PagesPerRegion)

	for _, src := range sources {
		if ctx.Err() != nil {
			p.logger.Warn("[pipeline] Stopping before %s: %v", src.ID(), ctx.Err())
			break
		}
		report.Sources = append(report.Sources, p.runSource(ctx, src))
	}

	if ctx.Err() != nil {
		report.SweepErr = ctx.Err()
	} else {
		report.Swept, report.SweepErr = p.reconciler.SweepStale(ctx, p.opts.StaleHours)
		if report.SweepErr != nil {
			p.logger.Error("[pipeline] %v", report.SweepErr)
		}
	}

	report.Finished = p.now()
	return report
}

func (p *Pipeline) runSource(ctx context.Context, src scraper.Source) *models.SourceReport {
	start := p.now()
	sr := &models.SourceReport{Source: src.ID(), ByRegion: map[string]int{}}
	log := p.logger.With("source", string(src.ID()))

	log.Info("[pipeline] Crawling %s", src.ID())
	records, regionStats := p.crawler.CrawlAll(ctx, src, p.opts.Regions, p.opts.PagesPerRegion)
	for _, st := range regionStats {
		sr.Skipped += st.Skipped
	}
	for _, rec := range records {
		sr.ByRegion[rec.Region]++
	}
	sr.Found = len(records)

	if len(records) == 0 {
		log.Warn("[pipeline] No listings found for %s", src.ID())
		sr.Duration = p.now().Sub(start)
		return sr
	}

	if p.opts.FetchPhotos && src.HasDetailPhotos() {
		var es scraper.EnrichStats
		records, es = p.enricher.Enrich(ctx, src, records, p.opts.PhotoConcurrency)
		sr.Enriched = es.Enriched
	}

	if p.snapshot != nil {
		if err := p.snapshot.WriteSnapshot(records); err != nil {
			log.Error("[pipeline] Snapshot write failed: %v", err)
		}
	}

	sr.Saved = p.reconciler.Save(ctx, records)
	sr.Duration = p.now().Sub(start)

	log.Info("[pipeline] %s done in %s: found %d, inserted %d, updated %d, errors %d",
		src.ID(), sr.Duration.Round(time.Second), sr.Found, sr.Saved.Inserted, sr.Saved.Updated, sr.Saved.Errors)
	return sr
}
