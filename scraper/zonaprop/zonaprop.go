// Package zonaprop reads sale listings from Zonaprop. The site rejects
// plain HTTP clients, so pages are rendered in a headless browser.
package zonaprop

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"property-scraper/extract"
	"property-scraper/models"
	"property-scraper/scraper"
)

const baseURL = "https://www.zonaprop.com.ar"

var (
	listingSelectors = []string{
		"[data-qa='posting PROPERTY']",
		".postingCard, .posting-card",
		"[class*='postingCard']",
	}
	linkSelectors  = []string{"a[data-qa='posting PROPERTY'], a[href*='/propiedades/']", "a[href]"}
	titleSelectors = []string{"[data-qa='POSTING_CARD_LOCATION']", ".postingAddress", "h2"}
	priceSelectors = []string{"[data-qa='POSTING_CARD_PRICE']", ".firstPrice", ".price"}
	imageSelectors = []string{"img[data-src], img[src*='zonaprop']", "img"}

	featureSelector = "[data-qa='POSTING_CARD_FEATURES'] span, .postingCardMainFeatures span, .mainFeatures span"

	idRegexp         = regexp.MustCompile(`-(\d+)\.html`)
	idFallbackRegexp = regexp.MustCompile(`/(\d+)`)
	areaSpanRegexp   = regexp.MustCompile(`^\d+\s*(m²|m2)`)
	photoHost        = regexp.MustCompile(`zonapropcdn\.com`)
	sizeSegment      = regexp.MustCompile(`/\d+x\d+/`)
)

type Source struct{}

func New() *Source { return &Source{} }

func (*Source) ID() models.Source               { return models.SourceZonaprop }
func (*Source) Strategy() scraper.FetchStrategy { return scraper.StrategyBrowser }
func (*Source) HasDetailPhotos() bool           { return true }

// SearchURL pages by number: page 1 has no suffix, page n ends in
// "-pagina-n".
func (*Source) SearchURL(region string, page int) string {
	u := fmt.Sprintf("%s/casas-departamentos-venta-%s-capital-federal", baseURL, scraper.RegionSlug(region))
	if page > 1 {
		u += fmt.Sprintf("-pagina-%d", page)
	}
	return u + ".html"
}

func (*Source) ListingElements(doc *goquery.Document) *goquery.Selection {
	return scraper.FirstMatch(doc.Selection, listingSelectors...)
}

func (*Source) ParseListing(card *goquery.Selection) (*models.ListingRecord, error) {
	href := listingHref(card)
	if href == "" {
		return nil, scraper.ErrNoListingLink
	}

	id := listingID(href)
	if id == "" {
		id = strings.TrimSpace(card.AttrOr("data-id", ""))
	}
	if id == "" {
		return nil, scraper.ErrNoListingID
	}

	rec := &models.ListingRecord{
		ExternalID: "zp-" + id,
		URL:        scraper.AbsoluteURL(baseURL, href),
		Title:      scraper.FirstText(card, titleSelectors...),
		Photos:     []string{},
	}
	if rec.Title == "" {
		rec.Title = scraper.DefaultTitle
	}

	rec.Price, rec.Currency = extract.Price(scraper.FirstText(card, priceSelectors...))

	if img := scraper.ImageURL(scraper.FirstMatch(card, imageSelectors...).First()); img != "" {
		rec.Photos = append(rec.Photos, img)
	}

	card.Find(featureSelector).Each(func(_ int, span *goquery.Selection) {
		scraper.ApplyFeature(rec, extract.Text(span.Text()))
	})
	if rec.CoveredArea == nil && rec.TotalArea == nil {
		card.Find("span").Each(func(_ int, span *goquery.Selection) {
			if t := extract.Text(span.Text()); areaSpanRegexp.MatchString(t) {
				scraper.ApplyFeature(rec, t)
			}
		})
	}

	// Card blurbs are truncated teasers; description stays unset.
	rec.PropertyType = extract.PropertyType(rec.Title, href)
	return rec, nil
}

func listingHref(card *goquery.Selection) string {
	if to := strings.TrimSpace(card.AttrOr("data-to-posting", "")); to != "" {
		return to
	}
	if card.Is("a[href]") {
		return strings.TrimSpace(card.AttrOr("href", ""))
	}
	return strings.TrimSpace(scraper.FirstMatch(card, linkSelectors...).First().AttrOr("href", ""))
}

func listingID(href string) string {
	if m := idRegexp.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	if m := idFallbackRegexp.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

func (*Source) DetailPhotos(ctx context.Context, sess scraper.Session, url string) ([]string, error) {
	doc, err := sess.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return scraper.HarvestPhotos(doc, photoHost, upgradePhoto), nil
}

// upgradePhoto requests the largest rendition the CDN serves.
func upgradePhoto(u string) string {
	return sizeSegment.ReplaceAllString(u, "/1200x1200/")
}
