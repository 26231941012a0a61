package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// FetchStrategy selects how a source's pages are retrieved.
type FetchStrategy int

const (
	// StrategyHTTP issues a plain GET with browser-like headers.
	StrategyHTTP FetchStrategy = iota
	// StrategyBrowser renders the page in headless Chrome.
	StrategyBrowser
)

func (s FetchStrategy) String() string {
	switch s {
	case StrategyHTTP:
		return "http"
	case StrategyBrowser:
		return "browser"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

const (
	requestTimeout = 30 * time.Second
	renderSettle   = 3 * time.Second

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var browserHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "es-AR,es;q=0.9,en;q=0.8",
	"Cache-Control":   "no-cache",
	"Connection":      "keep-alive",
}

// Fetcher opens fetch sessions. A session is scoped to one region crawl or
// one enrichment pass and must be closed by whoever opened it.
type Fetcher interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session retrieves documents. Fetch waits the configured jitter before
// every request, including the first.
type Session interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
	Close() error
}

// Fetchers maps each strategy to the fetcher that implements it.
type Fetchers map[FetchStrategy]Fetcher

func (f Fetchers) For(s FetchStrategy) (Fetcher, error) {
	fetcher, ok := f[s]
	if !ok || fetcher == nil {
		return nil, fmt.Errorf("scraper: no fetcher configured for %s strategy", s)
	}
	return fetcher, nil
}

// FetchError reports a page that could not be retrieved: a network error,
// a non-2xx status, a render timeout or an empty document. Callers treat
// it as the end of available data.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Jitter is a uniformly random pause in [Min, Max].
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

var (
	// FetchJitter precedes every page request.
	FetchJitter = Jitter{Min: 2 * time.Second, Max: 5 * time.Second}
	// EnrichJitter precedes every detail-photo task.
	EnrichJitter = Jitter{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond}
)

func (j Jitter) Duration() time.Duration {
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + time.Duration(rand.Int63n(int64(j.Max-j.Min+1)))
}

// Wait sleeps for a random duration or until ctx is done.
func (j Jitter) Wait(ctx context.Context) error {
	d := j.Duration()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
