package argenprop

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"property-scraper/models"
	"property-scraper/scraper"
)

const searchPage = `<html><body><div class="listing-container">
<div class="listing__item">
  <a class="card" href="/departamento-en-venta-en-palermo-3-ambientes--15432123">
    <img class="card__image" data-src="https://static1.sysarmy.argenprop.com/photos/abc_u_small.jpg">
    <p class="card__price">USD 210.000</p>
    <h2 class="card__address">Gorriti al 4800</h2>
    <p class="card__type">Departamento</p>
    <ul class="card__main-features">
      <li>82 m² cubie.</li><li>3 ambientes</li><li>2 dormitorios</li><li>1 baño</li>
    </ul>
  </a>
</div>
<div class="listing__item">
  <a class="card" href="/casa-en-venta-en-villa-devoto--9988776?from=home">
    <div class="card__photo" style="background-image: url('https://static1.sysarmy.argenprop.com/photos/casa.jpg')"></div>
    <p class="card__price">Consultar precio</p>
    <p class="card__type">Casa</p>
  </a>
</div>
<div class="listing__item"><p>Banner</p></div>
</div></body></html>`

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestSearchURL(t *testing.T) {
	s := New()
	tests := []struct {
		region string
		page   int
		want   string
	}{
		{"Palermo", 1, "https://www.argenprop.com/casas-o-departamentos/venta/capital-federal/palermo"},
		{"Palermo", 2, "https://www.argenprop.com/casas-o-departamentos/venta/capital-federal/palermo?pagina-2"},
		{"Villa Devoto", 3, "https://www.argenprop.com/casas-o-departamentos/venta/capital-federal/villa-devoto?pagina-3"},
	}
	for _, tt := range tests {
		if got := s.SearchURL(tt.region, tt.page); got != tt.want {
			t.Errorf("SearchURL(%q, %d) = %q; want %q", tt.region, tt.page, got, tt.want)
		}
	}
}

func TestParseListing(t *testing.T) {
	s := New()
	cards := s.ListingElements(parse(t, searchPage))
	if cards.Length() != 3 {
		t.Fatalf("cards: got %d, want 3", cards.Length())
	}

	rec, err := s.ParseListing(cards.Eq(0))
	if err != nil {
		t.Fatalf("ParseListing: %v", err)
	}
	if rec.ExternalID != "ap-15432123" {
		t.Errorf("ExternalID = %q", rec.ExternalID)
	}
	if rec.URL != "https://www.argenprop.com/departamento-en-venta-en-palermo-3-ambientes--15432123" {
		t.Errorf("URL = %q", rec.URL)
	}
	if rec.Title != "Gorriti al 4800" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Price == nil || *rec.Price != 210000 || rec.Currency != models.CurrencyUSD {
		t.Errorf("price = %v %s", rec.Price, rec.Currency)
	}
	if rec.CoveredArea == nil || *rec.CoveredArea != 82 || rec.Rooms == nil || *rec.Rooms != 3 ||
		rec.Bedrooms == nil || *rec.Bedrooms != 2 || rec.Bathrooms == nil || *rec.Bathrooms != 1 {
		t.Errorf("features: %v %v %v %v", rec.CoveredArea, rec.Rooms, rec.Bedrooms, rec.Bathrooms)
	}
	if len(rec.Photos) != 1 || rec.Photos[0] != "https://static1.sysarmy.argenprop.com/photos/abc_u_small.jpg" {
		t.Errorf("photos = %v", rec.Photos)
	}
	if rec.PropertyType != models.PropertyApartment {
		t.Errorf("PropertyType = %s", rec.PropertyType)
	}

	house, err := s.ParseListing(cards.Eq(1))
	if err != nil {
		t.Fatalf("ParseListing house: %v", err)
	}
	if house.ExternalID != "ap-9988776" || house.PropertyType != models.PropertyHouse {
		t.Errorf("house = %s %s", house.ExternalID, house.PropertyType)
	}
	if house.Price != nil || house.Title != scraper.DefaultTitle {
		t.Errorf("house price %v title %q", house.Price, house.Title)
	}
	if len(house.Photos) != 1 || house.Photos[0] != "https://static1.sysarmy.argenprop.com/photos/casa.jpg" {
		t.Errorf("background photo = %v", house.Photos)
	}

	if _, err := s.ParseListing(cards.Eq(2)); !errors.Is(err, scraper.ErrNoListingLink) {
		t.Errorf("banner: got %v, want ErrNoListingLink", err)
	}
}

func TestNoDetailPhotos(t *testing.T) {
	if New().HasDetailPhotos() {
		t.Error("argenprop should not request detail photos")
	}
}
