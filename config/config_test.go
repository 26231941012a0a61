package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Mongo")
	t.Setenv("REGIONS_PER_RUN", "4")
	t.Setenv("PAGES_PER_REGION", "not-a-number")
	t.Setenv("FETCH_PHOTOS", "false")
	t.Setenv("POSTGRES_DB", "listings_test")

	cfg := Load()

	if cfg.StoreBackend != "mongo" {
		t.Errorf("StoreBackend: got %q, want mongo", cfg.StoreBackend)
	}
	if cfg.RegionsPerRun != 4 {
		t.Errorf("RegionsPerRun: got %d, want 4", cfg.RegionsPerRun)
	}
	if cfg.PagesPerRegion != 2 {
		t.Errorf("PagesPerRegion: got %d, want default 2", cfg.PagesPerRegion)
	}
	if cfg.FetchPhotos {
		t.Error("FetchPhotos: got true, want false")
	}
	if cfg.StaleHours != 48 || cfg.PhotoConcurrency != 5 {
		t.Errorf("defaults: stale %d concurrency %d", cfg.StaleHours, cfg.PhotoConcurrency)
	}
	if !strings.Contains(cfg.DSN(), "dbname=listings_test") {
		t.Errorf("DSN: %q", cfg.DSN())
	}
}

func TestLoadRegionsDefault(t *testing.T) {
	cat, err := LoadRegions("")
	if err != nil {
		t.Fatalf("LoadRegions: %v", err)
	}
	if len(cat.Regions) != 48 || cat.Regions[0] != "Agronomia" || cat.Regions[47] != "Villa Urquiza" {
		t.Errorf("default catalog: %d regions, first %q", len(cat.Regions), cat.Regions[0])
	}
}

func TestLoadRegionsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	body := "regions:\n  - Palermo\n  - \"  Belgrano \"\n  - Palermo\n  - \"\"\n  - Núñez\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := LoadRegions(path)
	if err != nil {
		t.Fatalf("LoadRegions: %v", err)
	}
	want := []string{"Palermo", "Belgrano", "Núñez"}
	if strings.Join(cat.Regions, ",") != strings.Join(want, ",") {
		t.Errorf("regions: got %v, want %v", cat.Regions, want)
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	_ = os.WriteFile(empty, []byte("regions: []\n"), 0o644)
	if _, err := LoadRegions(empty); err == nil {
		t.Error("empty catalog should fail")
	}
	if _, err := LoadRegions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestWindowWraps(t *testing.T) {
	cat := &RegionCatalog{Regions: []string{"A", "B", "C", "D", "E"}}
	tests := []struct {
		offset, count int
		want          string
	}{
		{0, 2, "A,B"},
		{4, 3, "E,A,B"},
		{12, 2, "C,D"},
		{-1, 2, "E,A"},
		{3, 0, "A,B,C,D,E"},
		{3, 9, "A,B,C,D,E"},
	}
	for _, tt := range tests {
		if got := strings.Join(cat.Window(tt.offset, tt.count), ","); got != tt.want {
			t.Errorf("Window(%d, %d) = %s; want %s", tt.offset, tt.count, got, tt.want)
		}
	}
}

func TestRotationOffset(t *testing.T) {
	day := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	next := day.Add(24 * time.Hour)

	if got := RotationOffset(7, 10, day); got != 7 {
		t.Errorf("configured offset: got %d, want 7", got)
	}
	a, b := RotationOffset(-1, 10, day), RotationOffset(-1, 10, next)
	if b-a != 10 {
		t.Errorf("daily advance: got %d, want 10", b-a)
	}
}
