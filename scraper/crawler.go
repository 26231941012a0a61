package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"property-scraper/models"
	"property-scraper/utils"
)

// RegionStats describes one region crawl.
type RegionStats struct {
	Region  string
	Pages   int
	Found   int
	Skipped int
	// Skips counts skipped cards by reason.
	Skips map[string]int
	// Stop explains why pagination ended before maxPages, if it did.
	Stop error
}

// outcome is the result of parsing one listing card: a record or the
// reason it was skipped.
type outcome struct {
	rec  *models.ListingRecord
	skip error
}

// Crawler walks a source's paginated search results region by region.
type Crawler struct {
	fetchers Fetchers
	logger   *utils.Logger
}

func NewCrawler(fetchers Fetchers, logger *utils.Logger) *Crawler {
	return &Crawler{fetchers: fetchers, logger: logger}
}

// CrawlRegion fetches up to maxPages result pages for region and returns the
// parsed records. Pagination stops at the first fetch failure or the first
// page without listing cards. One session serves the whole region and is
// always closed before returning.
func (c *Crawler) CrawlRegion(ctx context.Context, src Source, region string, maxPages int) ([]*models.ListingRecord, RegionStats) {
	stats := RegionStats{Region: region, Skips: map[string]int{}}
	log := c.logger.With("source", string(src.ID()), "region", region)

	fetcher, err := c.fetchers.For(src.Strategy())
	if err != nil {
		stats.Stop = err
		log.Error("[crawler] %v", err)
		return nil, stats
	}
	sess, err := fetcher.NewSession(ctx)
	if err != nil {
		stats.Stop = fmt.Errorf("open session: %w", err)
		log.Error("[crawler] Could not open %s session: %v", src.Strategy(), err)
		return nil, stats
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("[crawler] Closing session: %v", err)
		}
	}()

	var records []*models.ListingRecord
	for page := 1; page <= maxPages; page++ {
		url := src.SearchURL(region, page)
		log.Info("[crawler] Page %d: %s", page, url)

		doc, err := sess.Fetch(ctx, url)
		if err != nil {
			stats.Stop = err
			log.Warn("[crawler] Page %d fetch failed, stopping region: %v", page, err)
			break
		}
		stats.Pages++

		cards := src.ListingElements(doc)
		if cards.Length() == 0 {
			stats.Stop = errNoListings
			log.Info("[crawler] Page %d has no listings, end of results", page)
			break
		}

		pageFound, pageSkipped := 0, 0
		cards.Each(func(_ int, card *goquery.Selection) {
			o := parseCard(src, card)
			if o.skip != nil {
				pageSkipped++
				stats.Skips[o.skip.Error()]++
				log.Debug("[crawler] Skipped card: %v", o.skip)
				return
			}
			o.rec.Region = region
			o.rec.Source = src.ID()
			o.rec.Operation = models.OperationSale
			records = append(records, o.rec)
			pageFound++
		})

		stats.Found += pageFound
		stats.Skipped += pageSkipped
		log.Info("[crawler] Page %d done: %d listings, %d skipped", page, pageFound, pageSkipped)
	}

	log.Info("[crawler] Region done: %d listings over %d pages", stats.Found, stats.Pages)
	return records, stats
}

var errNoListings = errors.New("no listings on page")

// parseCard runs ParseListing, turning panics from unexpected markup into
// skip outcomes so one bad card never aborts the page.
func parseCard(src Source, card *goquery.Selection) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			o = outcome{skip: fmt.Errorf("parse panic: %v", r)}
		}
	}()

	rec, err := src.ParseListing(card)
	if err != nil {
		return outcome{skip: err}
	}
	if rec == nil {
		return outcome{skip: ErrNoListingLink}
	}
	if rec.Photos == nil {
		rec.Photos = []string{}
	}
	return outcome{rec: rec}
}

// CrawlAll crawls regions one after another and concatenates the results.
// A listing seen in an earlier region is not repeated.
func (c *Crawler) CrawlAll(ctx context.Context, src Source, regions []string, maxPagesPerRegion int) ([]*models.ListingRecord, []RegionStats) {
	seen := utils.NewKeySet()
	var (
		all   []*models.ListingRecord
		stats []RegionStats
	)

	for _, region := range regions {
		if ctx.Err() != nil {
			c.logger.Warn("[crawler] %s: stopping before %s: %v", src.ID(), region, ctx.Err())
			break
		}

		records, st := c.CrawlRegion(ctx, src, region, maxPagesPerRegion)
		for _, r := range records {
			if !seen.Add(r.Key().String()) {
				c.logger.Debug("[crawler] Duplicate listing %s in %s", r.Key(), region)
				continue
			}
			all = append(all, r)
		}
		stats = append(stats, st)
	}

	c.logger.Info("[crawler] %s: %d unique listings across %d regions", src.ID(), seen.Size(), len(stats))
	return all, stats
}
