package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"property-scraper/models"
)

// PrintReport renders the run summary to w.
func PrintReport(w io.Writer, r *models.RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 LISTING INGESTION SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	for _, s := range r.Sources {
		fmt.Fprintf(w, "\033[1;33m  %s\033[0m (%s)\n", s.Source, s.Duration.Round(time.Second))
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  Found    : \033[1m%d\033[0m (skipped cards: %d, enriched: %d)\n",
			s.Found, s.Skipped, s.Enriched)
		fmt.Fprintf(w, "  Inserted : \033[1;32m%d\033[0m\n", s.Saved.Inserted)
		fmt.Fprintf(w, "  Updated  : \033[1;32m%d\033[0m\n", s.Saved.Updated)
		fmt.Fprintf(w, "  Errors   : %s\n", colorErrors(s.Saved.Errors))
		printRegions(w, s.ByRegion)
		fmt.Fprintln(w)
	}
	if len(r.Sources) == 0 {
		fmt.Fprintf(w, "  No sources were processed\n\n")
	}

	t := r.Totals()
	fmt.Fprintf(w, "\033[1;33m  Totals\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Inserted %d | Updated %d | Errors %s\n", t.Inserted, t.Updated, colorErrors(t.Errors))
	if r.SweepErr != nil {
		fmt.Fprintf(w, "  Marked inactive : \033[1;31msweep failed: %v\033[0m\n", r.SweepErr)
	} else {
		fmt.Fprintf(w, "  Marked inactive : \033[1m%d\033[0m\n", r.Swept)
	}
	if !r.Finished.IsZero() {
		fmt.Fprintf(w, "  Elapsed         : %s\n", r.Finished.Sub(r.StartedAt).Round(time.Second))
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printRegions(w io.Writer, byRegion map[string]int) {
	type regionCount struct {
		region string
		count  int
	}
	var regions []regionCount
	for reg, n := range byRegion {
		regions = append(regions, regionCount{reg, n})
	}
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].count != regions[j].count {
			return regions[i].count > regions[j].count
		}
		return regions[i].region < regions[j].region
	})
	for _, rc := range regions {
		bar := strings.Repeat("█", min(rc.count, 40))
		fmt.Fprintf(w, "    %-24s %s (%d)\n", truncate(rc.region, 22), bar, rc.count)
	}
}

func colorErrors(n int) string {
	if n == 0 {
		return "0"
	}
	return fmt.Sprintf("\033[1;31m%d\033[0m", n)
}

// truncate shortens s to max runes, ending in "..." when cut.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
