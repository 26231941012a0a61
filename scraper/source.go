package scraper

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"property-scraper/extract"
	"property-scraper/models"
)

// MaxDetailPhotos caps the photo set harvested from a detail page.
const MaxDetailPhotos = 20

// DefaultTitle is used when a card carries no readable title.
const DefaultTitle = "Sin título"

// Skip reasons returned by Source.ParseListing.
var (
	ErrNoListingLink = errors.New("listing has no link")
	ErrNoListingID   = errors.New("listing link carries no id")
)

// Source is one listings site. The crawler and enricher only talk to sites
// through this interface; the concrete site is chosen by its models.Source.
type Source interface {
	ID() models.Source
	Strategy() FetchStrategy
	// SearchURL builds the results URL for a region and a 1-based page.
	SearchURL(region string, page int) string
	// ListingElements returns the listing cards of a results page, trying
	// each selector strategy in order until one matches.
	ListingElements(doc *goquery.Document) *goquery.Selection
	// ParseListing maps one card to a record. Missing sub-fields stay nil;
	// a card without a usable link or id yields a skip reason error.
	ParseListing(card *goquery.Selection) (*models.ListingRecord, error)
	HasDetailPhotos() bool
	DetailPhotos(ctx context.Context, sess Session, url string) ([]string, error)
}

// FirstMatch returns the matches of the first selector that finds anything.
func FirstMatch(sel *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, s := range selectors {
		if found := sel.Find(s); found.Length() > 0 {
			return found
		}
	}
	return sel.Slice(0, 0)
}

// FirstText returns the normalized text of the first element matched by the
// first selector that yields non-empty text.
func FirstText(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if t := extract.Text(sel.Find(s).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// ImageURL returns the lazy-load or plain source of an img, ignoring
// inline data: placeholders.
func ImageURL(img *goquery.Selection) string {
	for _, attr := range []string{"data-src", "src"} {
		v := strings.TrimSpace(img.AttrOr(attr, ""))
		if v != "" && !strings.HasPrefix(v, "data:") {
			return v
		}
	}
	return ""
}

// AbsoluteURL resolves href against base.
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// ApplyFeature classifies one card attribute such as "65 m² cub.",
// "3 amb." or "2 baños" and fills the matching record field.
func ApplyFeature(rec *models.ListingRecord, text string) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "m²") || strings.Contains(lower, "m2"):
		area := extract.Area(text)
		switch {
		case strings.Contains(lower, "tot"):
			rec.TotalArea = area
		case strings.Contains(lower, "cub"):
			rec.CoveredArea = area
		case rec.CoveredArea == nil:
			rec.CoveredArea = area
		}
	case strings.Contains(lower, "amb"):
		rec.Rooms = extract.Int(text)
	case strings.Contains(lower, "dorm"):
		rec.Bedrooms = extract.Int(text)
	case strings.Contains(lower, "baño"):
		rec.Bathrooms = extract.Int(text)
	}
}

// RegionSlug turns a region name into its URL form: lower case, accents
// removed, spaces replaced with dashes. "Núñez" becomes "nunez".
func RegionSlug(region string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, region)
	if err != nil {
		s = region
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// HarvestPhotos collects image URLs on a detail page that match host,
// upgrades each with upgrade, and returns at most MaxDetailPhotos unique
// URLs in order of first appearance.
func HarvestPhotos(doc *goquery.Document, host *regexp.Regexp, upgrade func(string) string) []string {
	photos := make([]string, 0, MaxDetailPhotos)
	seen := make(map[string]struct{})

	add := func(raw string) bool {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "data:") || !host.MatchString(raw) {
			return true
		}
		u := raw
		if upgrade != nil {
			u = upgrade(raw)
		}
		if _, dup := seen[u]; dup {
			return true
		}
		seen[u] = struct{}{}
		photos = append(photos, u)
		return len(photos) < MaxDetailPhotos
	}

	doc.Find("img, source").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		for _, attr := range []string{"src", "data-src", "data-zoom", "srcset", "data-srcset"} {
			v, ok := el.Attr(attr)
			if !ok {
				continue
			}
			if strings.HasSuffix(attr, "srcset") {
				v = firstSrcsetURL(v)
			}
			if !add(v) {
				return false
			}
		}
		return true
	})
	return photos
}

func firstSrcsetURL(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
