package models

import "time"

// Source identifies the listing site a record was collected from.
type Source string

const (
	SourceMercadoLibre Source = "mercadolibre"
	SourceZonaprop     Source = "zonaprop"
	SourceArgenprop    Source = "argenprop"
)

// AllSources lists every supported source in crawl order.
var AllSources = []Source{SourceMercadoLibre, SourceZonaprop, SourceArgenprop}

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyARS Currency = "ARS"
)

type PropertyType string

const (
	PropertyHouse     PropertyType = "house"
	PropertyApartment PropertyType = "apartment"
)

type Operation string

const OperationSale Operation = "sale"

// ListingRecord is the normalized listing shared by every source. Nullable
// numerics are pointers so an unparsed value stays distinguishable from zero.
type ListingRecord struct {
	ID           string       `json:"id" bson:"_id"`
	ExternalID   string       `json:"externalId" bson:"externalId"`
	Source       Source       `json:"source" bson:"source"`
	URL          string       `json:"url" bson:"url"`
	Title        string       `json:"title" bson:"title"`
	Price        *float64     `json:"price" bson:"price"`
	Currency     Currency     `json:"currency" bson:"currency"`
	PropertyType PropertyType `json:"propertyType" bson:"propertyType"`
	Rooms        *int         `json:"rooms" bson:"rooms"`
	Bedrooms     *int         `json:"bedrooms" bson:"bedrooms"`
	Bathrooms    *int         `json:"bathrooms" bson:"bathrooms"`
	CoveredArea  *float64     `json:"coveredArea" bson:"coveredArea"`
	TotalArea    *float64     `json:"totalArea" bson:"totalArea"`
	Photos       []string     `json:"photos" bson:"photos"`
	Description  *string      `json:"description" bson:"description"`
	Region       string       `json:"region" bson:"region"`
	Operation    Operation    `json:"operation" bson:"operation"`
	FirstSeenAt  time.Time    `json:"firstSeenAt" bson:"firstSeenAt"`
	LastSeenAt   time.Time    `json:"lastSeenAt" bson:"lastSeenAt"`
	Active       bool         `json:"active" bson:"active"`
}

// ListingKey is the natural key of a listing.
type ListingKey struct {
	ExternalID string
	Source     Source
}

func (r *ListingRecord) Key() ListingKey {
	return ListingKey{ExternalID: r.ExternalID, Source: r.Source}
}

func (k ListingKey) String() string {
	return string(k.Source) + ":" + k.ExternalID
}

// ListingUpdate holds the only fields a re-observation may overwrite.
type ListingUpdate struct {
	Price      *float64
	Currency   Currency
	Photos     []string
	LastSeenAt time.Time
	Active     bool
}

// PriceChange is an append-only history entry written when a re-observed
// listing reports a different price or currency.
type PriceChange struct {
	ListingID     string    `json:"listingId" bson:"listingId"`
	ExternalID    string    `json:"externalId" bson:"externalId"`
	Source        Source    `json:"source" bson:"source"`
	PreviousPrice *float64  `json:"previousPrice" bson:"previousPrice"`
	NewPrice      *float64  `json:"newPrice" bson:"newPrice"`
	Currency      Currency  `json:"currency" bson:"currency"`
	ChangePercent *float64  `json:"changePercent" bson:"changePercent"`
	ChangedAt     time.Time `json:"changedAt" bson:"changedAt"`
}

// SaveStats summarizes one reconciliation batch.
type SaveStats struct {
	Inserted int
	Updated  int
	Errors   int
}

func (s *SaveStats) Add(o SaveStats) {
	s.Inserted += o.Inserted
	s.Updated += o.Updated
	s.Errors += o.Errors
}

// SourceReport holds the per-source outcome of a run.
type SourceReport struct {
	Source   Source
	Found    int
	Skipped  int
	Enriched int
	Saved    SaveStats
	ByRegion map[string]int
	Duration time.Duration
}

// RunReport holds the computed summary of one ingestion run.
type RunReport struct {
	StartedAt time.Time
	Finished  time.Time
	Sources   []*SourceReport
	Swept     int64
	SweepErr  error
}

func (r *RunReport) Totals() SaveStats {
	var t SaveStats
	for _, s := range r.Sources {
		t.Add(s.Saved)
	}
	return t
}
