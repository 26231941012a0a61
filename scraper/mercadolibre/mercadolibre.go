// Package mercadolibre reads sale listings from MercadoLibre Inmuebles.
// Search pages are server rendered, so plain HTTP is enough.
package mercadolibre

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

const (
	baseURL = "https://inmuebles.mercadolibre.com.ar"
	// pageSize is the number of results per search page; pagination is by
	// 1-based result offset.
	pageSize = 48
)

var (
	listingSelectors = []string{
		"li.ui-search-layout__item",
		"div.ui-search-result",
		"[class*='ui-search-layout__item']",
	}
	linkSelectors  = []string{"a.ui-search-link, a[href*='inmueble']", "a[href*='MLA']"}
	titleSelectors = []string{"h2.ui-search-item__title, .ui-search-item__title", ".poly-component__title", "h2"}
	imageSelectors = []string{"img.ui-search-result-image__element, img[data-src]", "img"}

	attributeSelector = ".ui-search-card-attributes__attribute, .ui-search-item__attributes li, .poly-attributes-list__item"

	idRegexp   = regexp.MustCompile(`MLA-?(\d+)`)
	photoHost  = regexp.MustCompile(`mlstatic\.com`)
	sizeSuffix = regexp.MustCompile(`-[A-Z]\.(jpe?g|png|webp)`)
)

type Source struct{}

func New() *Source { return &Source{} }

func (*Source) ID() models.Source               { return models.SourceMercadoLibre }
func (*Source) Strategy() scraper.FetchStrategy { return scraper.StrategyHTTP }
func (*Source) HasDetailPhotos() bool           { return true }

// SearchURL pages by result offset: page 1 has no offset suffix, page n
// starts at result (n-1)*48+1.
func (*Source) SearchURL(region string, page int) string {
	u := fmt.Sprintf("%s/departamentos-o-casas/venta/capital-federal/%s", baseURL, scraper.RegionSlug(region))
	if offset := (page - 1) * pageSize; offset > 0 {
		u += fmt.Sprintf("_Desde_%d", offset+1)
	}
	return u + "_NoIndex_True"
}

func (*Source) ListingElements(doc *goquery.Document) *goquery.Selection {
	return scraper.FirstMatch(doc.Selection, listingSelectors...)
}

func (*Source) ParseListing(card *goquery.Selection) (*models.ListingRecord, error) {
	href, ok := scraper.FirstMatch(card, linkSelectors...).First().Attr("href")
	href, _, _ = strings.Cut(strings.TrimSpace(href), "#")
	if !ok || href == "" {
		return nil, scraper.ErrNoListingLink
	}

	m := idRegexp.FindStringSubmatch(href)
	if m == nil {
		return nil, scraper.ErrNoListingID
	}

	rec := &models.ListingRecord{
		ExternalID: "MLA" + m[1],
		URL:        scraper.AbsoluteURL(baseURL, href),
		Title:      scraper.FirstText(card, titleSelectors...),
		Photos:     []string{},
	}
	if rec.Title == "" {
		rec.Title = scraper.DefaultTitle
	}

	fraction := scraper.FirstText(card, ".andes-money-amount__fraction, .price-tag-fraction")
	symbol := scraper.FirstText(card, ".andes-money-amount__currency-symbol, .price-tag-symbol")
	rec.Price, rec.Currency = extract.Price(symbol + " " + fraction)

	if img := scraper.ImageURL(scraper.FirstMatch(card, imageSelectors...).First()); img != "" {
		rec.Photos = append(rec.Photos, upgradePhoto(img))
	}

	card.Find(attributeSelector).Each(func(_ int, attr *goquery.Selection) {
		scraper.ApplyFeature(rec, extract.Text(attr.Text()))
	})

	rec.PropertyType = extract.PropertyType(rec.Title)
	return rec, nil
}

func (*Source) DetailPhotos(ctx context.Context, sess scraper.Session, url string) ([]string, error) {
	doc, err := sess.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return scraper.HarvestPhotos(doc, photoHost, upgradePhoto), nil
}

// upgradePhoto swaps the size letter of an mlstatic image for the
// original-size "O" variant.
func upgradePhoto(u string) string {
	return sizeSuffix.ReplaceAllString(u, "-O.${1}")
}
