package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultRegions is the built-in catalog: the neighbourhoods of the City of
// Buenos Aires.
var DefaultRegions = []string{
	"Agronomia", "Almagro", "Balvanera", "Barracas", "Belgrano", "Boedo",
	"Caballito", "Chacarita", "Coghlan", "Colegiales", "Constitucion",
	"Flores", "Floresta", "La Boca", "La Paternal", "Liniers", "Mataderos",
	"Monte Castro", "Montserrat", "Nueva Pompeya", "Nunez", "Palermo",
	"Parque Avellaneda", "Parque Chacabuco", "Parque Chas", "Parque Patricios",
	"Puerto Madero", "Recoleta", "Retiro", "Saavedra", "San Cristobal",
	"San Nicolas", "San Telmo", "Velez Sarsfield", "Versalles", "Villa Crespo",
	"Villa del Parque", "Villa Devoto", "Villa General Mitre", "Villa Lugano",
	"Villa Luro", "Villa Ortuzar", "Villa Pueyrredon", "Villa Real",
	"Villa Riachuelo", "Villa Santa Rita", "Villa Soldati", "Villa Urquiza",
}

// RegionCatalog is the ordered list of searchable regions.
//
//	regions:
//	  - Palermo
//	  - Villa Crespo
type RegionCatalog struct {
	Regions []string `yaml:"regions"`
}

// LoadRegions reads a YAML catalog from path, or returns the built-in
// catalog when path is empty.
func LoadRegions(path string) (*RegionCatalog, error) {
	if path == "" {
		return &RegionCatalog{Regions: DefaultRegions}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open regions %q: %w", path, err)
	}
	defer f.Close()

	cat := &RegionCatalog{}
	if err := yaml.NewDecoder(f).Decode(cat); err != nil {
		return nil, fmt.Errorf("config: decode regions %q: %w", path, err)
	}

	cleaned := cat.Regions[:0]
	seen := map[string]bool{}
	for _, r := range cat.Regions {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		cleaned = append(cleaned, r)
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("config: regions %q: catalog is empty", path)
	}
	cat.Regions = cleaned
	return cat, nil
}

// Window returns count regions starting at offset, wrapping around the end
// of the catalog. A count outside 1..len returns the whole catalog.
func (c *RegionCatalog) Window(offset, count int) []string {
	n := len(c.Regions)
	if n == 0 {
		return nil
	}
	if count <= 0 || count >= n {
		return append([]string(nil), c.Regions...)
	}
	offset = ((offset % n) + n) % n

	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, c.Regions[(offset+i)%n])
	}
	return out
}

// RotationOffset picks the window start for a run. A non-negative
// configured offset wins; otherwise the day number advances the window by
// count regions per day so successive daily runs cover the whole catalog.
func RotationOffset(configured, count int, now time.Time) int {
	if configured >= 0 {
		return configured
	}
	if count <= 0 {
		return 0
	}
	day := int(now.UTC().Unix() / int64(24*time.Hour/time.Second))
	return day * count
}
