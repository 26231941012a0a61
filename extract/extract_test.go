package extract

import (
	"testing"

	"property-scraper/models"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		raw      string
		want     float64
		wantNil  bool
		currency models.Currency
	}{
		{"US$ 150.000", 150000, false, models.CurrencyUSD},
		{"$ 85.500", 85500, false, models.CurrencyARS},
		{"", 0, true, models.CurrencyUSD},
		{"U$S 99.000", 99000, false, models.CurrencyUSD},
		{"USD 1.250.000", 1250000, false, models.CurrencyUSD},
		{"$ 1.234,50", 1234.5, false, models.CurrencyARS},
		{"Consultar precio", 0, true, models.CurrencyUSD},
		{"$ a convenir", 0, true, models.CurrencyARS},
	}

	for _, tt := range tests {
		got, cur := Price(tt.raw)
		if cur != tt.currency {
			t.Errorf("Price(%q) currency = %s; want %s", tt.raw, cur, tt.currency)
		}
		if tt.wantNil {
			if got != nil {
				t.Errorf("Price(%q) = %v; want nil", tt.raw, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("Price(%q) = %v; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantNil bool
	}{
		{"3 amb.", 3, false},
		{"2 dormitorios", 2, false},
		{"Monoambiente", 0, true},
		{"", 0, true},
		{"baños: 12", 12, false},
	}

	for _, tt := range tests {
		got := Int(tt.raw)
		if tt.wantNil {
			if got != nil {
				t.Errorf("Int(%q) = %d; want nil", tt.raw, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("Int(%q) = %v; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestArea(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantNil bool
	}{
		{"50 m²", 50, false},
		{"120m2 totales", 120, false},
		{"45,5 M² cub.", 45.5, false},
		{"1.200 m²", 1.2, false},
		{"3 ambientes", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got := Area(tt.raw)
		if tt.wantNil {
			if got != nil {
				t.Errorf("Area(%q) = %v; want nil", tt.raw, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("Area(%q) = %v; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestPropertyType(t *testing.T) {
	tests := []struct {
		texts []string
		want  models.PropertyType
	}{
		{[]string{"Casa en Belgrano"}, models.PropertyHouse},
		{[]string{"Departamento 3 amb", "Chalet"}, models.PropertyHouse},
		{[]string{"PH con terraza"}, models.PropertyHouse},
		{[]string{"Departamento luminoso"}, models.PropertyApartment},
		{[]string{"Phoenix Tower"}, models.PropertyApartment},
		{nil, models.PropertyApartment},
	}

	for _, tt := range tests {
		if got := PropertyType(tt.texts...); got != tt.want {
			t.Errorf("PropertyType(%q) = %s; want %s", tt.texts, got, tt.want)
		}
	}
}

func TestText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  hello   world  ", "hello world"},
		{"line1\n\tline2", "line1 line2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Errorf("Text(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
