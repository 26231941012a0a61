// Package extract turns the loose text found on listing cards into typed
// values. Every function here is pure; an unparseable input yields nil.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"property-scraper/models"
)

var (
	// numberRegexp captures the first run of digits and separators.
	numberRegexp = regexp.MustCompile(`\d[\d.,]*`)
	intRegexp    = regexp.MustCompile(`\d+`)

	// areaRegexp captures a number directly followed by a metre marker.
	areaRegexp  = regexp.MustCompile(`(?i)(\d[\d.,]*)\s*m`)
	houseRegexp = regexp.MustCompile(`(?i)\b(casa|casas|chalet|ph)\b`)
)

// Price parses a price label such as "US$ 150.000" or "$ 85.500".
// The currency is ARS only when a bare "$" appears without a US marker.
// Dots are thousands separators and a comma is the decimal separator.
func Price(text string) (*float64, models.Currency) {
	upper := strings.ToUpper(text)

	currency := models.CurrencyUSD
	if strings.Contains(upper, "$") && !strings.Contains(upper, "US") && !strings.Contains(upper, "U$") {
		currency = models.CurrencyARS
	}

	match := numberRegexp.FindString(upper)
	if match == "" {
		return nil, currency
	}

	cleaned := strings.ReplaceAll(match, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, currency
	}
	return &val, currency
}

// Int returns the first run of digits in text.
func Int(text string) *int {
	match := intRegexp.FindString(text)
	if match == "" {
		return nil
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &n
}

// Area returns the surface in m² from labels like "50 m²" or "120m2 totales".
// Only the decimal comma is normalized; a dot is read as a decimal point, so
// "1.200 m²" yields 1.2. Listing sites print areas without thousands
// separators.
func Area(text string) *float64 {
	m := areaRegexp.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	val, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return nil
	}
	return &val
}

// PropertyType guesses house vs apartment from a title or type label.
// It is a keyword heuristic: any whole word casa, chalet or ph means house,
// anything else is an apartment. Sources do not label consistently, so the
// result is a best effort and not authoritative.
func PropertyType(texts ...string) models.PropertyType {
	for _, t := range texts {
		if houseRegexp.MatchString(t) {
			return models.PropertyHouse
		}
	}
	return models.PropertyApartment
}

// Text strips leading/trailing whitespace and collapses internal whitespace.
func Text(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
