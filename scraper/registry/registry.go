// Package registry maps source identifiers to their adapters.
package registry

import (
	"fmt"
	"strings"

	"property-scraper/models"
	"property-scraper/scraper"
	"property-scraper/scraper/argenprop"
	"property-scraper/scraper/mercadolibre"
	"property-scraper/scraper/zonaprop"
)

func New(id models.Source) (scraper.Source, error) {
	switch id {
	case models.SourceMercadoLibre:
		return mercadolibre.New(), nil
	case models.SourceZonaprop:
		return zonaprop.New(), nil
	case models.SourceArgenprop:
		return argenprop.New(), nil
	default:
		return nil, fmt.Errorf("registry: unknown source %q", id)
	}
}

// ParseSources reads a comma-separated source list such as
// "mercadolibre,argenprop". An empty list selects every source.
func ParseSources(list string) ([]models.Source, error) {
	if strings.TrimSpace(list) == "" {
		return models.AllSources, nil
	}
	var out []models.Source
	seen := map[models.Source]bool{}
	for _, part := range strings.Split(list, ",") {
		id := models.Source(strings.ToLower(strings.TrimSpace(part)))
		if id == "" || seen[id] {
			continue
		}
		if _, err := New(id); err != nil {
			return nil, err
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// Build returns the adapters for ids in order.
func Build(ids []models.Source) ([]scraper.Source, error) {
	out := make([]scraper.Source, 0, len(ids))
	for _, id := range ids {
		src, err := New(id)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}
