// Package argenprop reads sale listings from Argenprop over plain HTTP.
// Cards already carry the photo the site shows, so there is no detail pass.
package argenprop

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

const baseURL = "https://www.argenprop.com"

var (
	listingSelectors = []string{
		".listing__item, .card--listing",
		"[class*='listing']",
		"article.card",
	}
	linkSelectors  = []string{"a.card, a[href*='/propiedad/'], a.listing__item", "a[href]"}
	titleSelectors = []string{".card__address, .listing__item__address", "h2", ".card__title"}
	priceSelectors = []string{".card__price, .listing__item__price", ".price"}
	imageSelectors = []string{"img[data-src], img[src*='argenprop'], img.card__image", "img"}
	typeSelectors  = []string{".card__type, .listing__item__type"}

	featureSelector = ".card__main-features li, .card__features li, .listing__item__features span"

	idRegexp         = regexp.MustCompile(`--(\d+)$`)
	idFallbackRegexp = regexp.MustCompile(`/(\d+)`)
	backgroundRegexp = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)
)

type Source struct{}

func New() *Source { return &Source{} }

func (*Source) ID() models.Source               { return models.SourceArgenprop }
func (*Source) Strategy() scraper.FetchStrategy { return scraper.StrategyHTTP }
func (*Source) HasDetailPhotos() bool           { return false }

// SearchURL pages by number: page 1 has no suffix, page n adds "?pagina-n".
func (*Source) SearchURL(region string, page int) string {
	u := fmt.Sprintf("%s/casas-o-departamentos/venta/capital-federal/%s", baseURL, scraper.RegionSlug(region))
	if page > 1 {
		u += fmt.Sprintf("?pagina-%d", page)
	}
	return u
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
		return nil, scraper.ErrNoListingID
	}

	rec := &models.ListingRecord{
		ExternalID: "ap-" + id,
		URL:        scraper.AbsoluteURL(baseURL, href),
		Title:      scraper.FirstText(card, titleSelectors...),
		Photos:     []string{},
	}
	if rec.Title == "" {
		rec.Title = scraper.DefaultTitle
	}

	rec.Price, rec.Currency = extract.Price(scraper.FirstText(card, priceSelectors...))

	if img := listingImage(card); img != "" {
		rec.Photos = append(rec.Photos, img)
	}

	card.Find(featureSelector).Each(func(_ int, li *goquery.Selection) {
		scraper.ApplyFeature(rec, extract.Text(li.Text()))
	})

	rec.PropertyType = extract.PropertyType(scraper.FirstText(card, typeSelectors...), rec.Title)
	return rec, nil
}

func listingHref(card *goquery.Selection) string {
	if card.Is("a[href]") {
		return strings.TrimSpace(card.AttrOr("href", ""))
	}
	return strings.TrimSpace(scraper.FirstMatch(card, linkSelectors...).First().AttrOr("href", ""))
}

func listingID(href string) string {
	path, _, _ := strings.Cut(href, "?")
	if m := idRegexp.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	if m := idFallbackRegexp.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	return ""
}

// listingImage prefers an img element and falls back to an inline
// background-image style.
func listingImage(card *goquery.Selection) string {
	if img := scraper.ImageURL(scraper.FirstMatch(card, imageSelectors...).First()); img != "" {
		return scraper.AbsoluteURL(baseURL, img)
	}
	var found string
	card.Find("[style*='background-image']").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if m := backgroundRegexp.FindStringSubmatch(el.AttrOr("style", "")); m != nil {
			found = scraper.AbsoluteURL(baseURL, strings.TrimSpace(m[1]))
			return false
		}
		return true
	})
	return found
}

// DetailPhotos is never called for this source; the card photo is kept.
func (*Source) DetailPhotos(context.Context, scraper.Session, string) ([]string, error) {
	return nil, nil
}
