package scraper

import (
	"bytes"
	"context"
	"errors"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"property-scraper/utils"
)

var errEmptyDocument = errors.New("empty document")

// HTTPFetcher retrieves pages with plain GET requests. Sessions share one
// parent collector and clone it per request so callbacks never leak between
// fetches.
type HTTPFetcher struct {
	collector *colly.Collector
	jitter    Jitter
	logger    *utils.Logger
}

func NewHTTPFetcher(jitter Jitter, logger *utils.Logger) *HTTPFetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(requestTimeout)

	return &HTTPFetcher{collector: c, jitter: jitter, logger: logger}
}

func (f *HTTPFetcher) NewSession(context.Context) (Session, error) {
	return &httpSession{f: f}, nil
}

type httpSession struct {
	f *HTTPFetcher
}

func (s *httpSession) Fetch(ctx context.Context, target string) (*goquery.Document, error) {
	if err := s.f.jitter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}

	c := s.f.collector.Clone()
	c.Context = ctx

	var (
		body     []byte
		status   int
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range browserHeaders {
			r.Headers.Set(k, v)
		}
		s.f.logger.Debug("[fetch] GET %s", r.URL)
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		status = r.StatusCode
		fetchErr = err
	})

	if err := c.Visit(target); err != nil && fetchErr == nil {
		fetchErr = err
	}
	c.Wait()

	if fetchErr != nil {
		return nil, &FetchError{URL: target, Status: status, Err: fetchErr}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &FetchError{URL: target, Status: status, Err: errEmptyDocument}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: target, Status: status, Err: err}
	}
	if u, err := url.Parse(target); err == nil {
		doc.Url = u
	}
	return doc, nil
}

// Close is a no-op: HTTP sessions hold no resources of their own.
func (s *httpSession) Close() error { return nil }
