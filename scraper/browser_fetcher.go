package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"property-scraper/utils"
)

var errSessionClosed = errors.New("browser session closed")

// BrowserFetcher renders pages in headless Chrome for sources that block
// non-browser clients.
type BrowserFetcher struct {
	chromeBin string
	jitter    Jitter
	settle    time.Duration
	logger    *utils.Logger
}

// NewBrowserFetcher looks up a Chrome binary when chromeBin is empty.
func NewBrowserFetcher(chromeBin string, jitter Jitter, logger *utils.Logger) *BrowserFetcher {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	return &BrowserFetcher{
		chromeBin: chromeBin,
		jitter:    jitter,
		settle:    renderSettle,
		logger:    logger,
	}
}

// NewSession returns a session whose browser starts on the first Fetch.
func (f *BrowserFetcher) NewSession(context.Context) (Session, error) {
	return &browserSession{f: f}, nil
}

type browserSession struct {
	f *BrowserFetcher

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	closed        bool
}

func (s *browserSession) start() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errSessionClosed
	}
	if s.browserCtx != nil {
		return s.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("lang", "es-AR"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
	)
	if s.f.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(s.f.chromeBin))
	}

	// The browser outlives any single request context; Close tears it down.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	s.f.logger.Debug("[browser] started %s", s.f.chromeBin)
	s.browserCtx = browserCtx
	s.cancelAlloc = cancelAlloc
	s.cancelBrowser = cancelBrowser
	return browserCtx, nil
}

// Fetch opens a tab, navigates, waits for client-side rendering to settle
// and returns the rendered document.
func (s *browserSession) Fetch(ctx context.Context, target string) (*goquery.Document, error) {
	if err := s.f.jitter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}

	browserCtx, err := s.start()
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, requestTimeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(target))
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	if resp != nil && (resp.Status < 200 || resp.Status >= 300) {
		return nil, &FetchError{URL: target, Status: int(resp.Status), Err: errors.New(resp.StatusText)}
	}

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Sleep(s.f.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	if strings.TrimSpace(html) == "" {
		return nil, &FetchError{URL: target, Err: errEmptyDocument}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	return doc, nil
}

// Close stops the browser if it was started. It is safe to call twice.
func (s *browserSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancelBrowser != nil {
		s.cancelBrowser()
		s.cancelAlloc()
		s.f.logger.Debug("[browser] stopped")
	}
	s.browserCtx = nil
	return nil
}

func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
