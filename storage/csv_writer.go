package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"property-scraper/models"
)

var csvHeader = []string{
	"source", "external_id", "region", "title", "price", "currency", "property_type",
	"rooms", "bedrooms", "bathrooms", "covered_area", "total_area", "photos", "url", "scraped_at",
}

// CSVWriter writes a snapshot of every crawled listing to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	now    func() time.Time
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w, now: time.Now}, nil
}

// WriteSnapshot appends one row per record. Photos are joined with "|".
func (c *CSVWriter) WriteSnapshot(records []*models.ListingRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	scrapedAt := c.now().Format(time.RFC3339)
	for _, r := range records {
		row := []string{
			string(r.Source),
			r.ExternalID,
			r.Region,
			r.Title,
			formatFloat(r.Price),
			string(r.Currency),
			string(r.PropertyType),
			formatInt(r.Rooms),
			formatInt(r.Bedrooms),
			formatInt(r.Bathrooms),
			formatFloat(r.CoveredArea),
			formatFloat(r.TotalArea),
			strings.Join(r.Photos, "|"),
			r.URL,
			scrapedAt,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
