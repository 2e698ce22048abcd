// Package infrascan aggregates nearby OpenStreetMap features into a fixed
// set of infrastructure categories.
package infrascan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tjfontaine/geoscope/internal/domain"
	"github.com/tjfontaine/geoscope/internal/overpass"
)

// DefaultRadiusMeters is used when the caller does not pick a radius.
const DefaultRadiusMeters = 500

const sourceName = "Overpass API (OpenStreetMap)"

// bucketCap bounds each category list so tool payloads stay small.
const bucketCap = 10

// Categories holds the deduplicated feature labels per bucket. Field order
// is the canonical bucket order used by the narrative summary.
type Categories struct {
	Education      []string `json:"education"`
	Health         []string `json:"health"`
	Commerce       []string `json:"commerce"`
	Transport      []string `json:"transport"`
	PublicServices []string `json:"public_services"`
	Leisure        []string `json:"leisure"`
	Emergency      []string `json:"emergency"`
	Territorial    []string `json:"territorial_infrastructure"`
	Other          []string `json:"other"`
}

// Report is the scan result. It is always structurally complete; when every
// upstream mirror failed the buckets are empty and Warning is set.
type Report struct {
	Coordinate   domain.Coordinate `json:"coordinate"`
	RadiusMeters int               `json:"radius_meters"`
	ElementCount int               `json:"element_count"`
	Categories   Categories        `json:"categories"`
	Summary      string            `json:"summary"`
	Warning      string            `json:"warning,omitempty"`
	Source       string            `json:"source"`
}

// arealQuerier is the slice of the Overpass client the scanner needs.
type arealQuerier interface {
	Query(ctx context.Context, query string) (*overpass.Response, error)
}

// Scanner classifies nearby features into infrastructure categories.
type Scanner struct {
	querier arealQuerier
	logger  *slog.Logger
}

// NewScanner creates a scanner over the given Overpass client.
func NewScanner(querier arealQuerier, logger *slog.Logger) *Scanner {
	return &Scanner{querier: querier, logger: logger}
}

// Scan queries features around the coordinate and buckets them. It never
// fails outward: when every mirror is down it returns an empty report with a
// warning so the caller can continue with a degraded narrative.
func (s *Scanner) Scan(ctx context.Context, coord domain.Coordinate, radiusMeters int) *Report {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}

	report := &Report{
		Coordinate:   coord,
		RadiusMeters: radiusMeters,
		Categories:   emptyCategories(),
		Source:       sourceName,
	}

	resp, err := s.querier.Query(ctx, buildQuery(coord, radiusMeters))
	if err != nil {
		s.logger.Warn("infrastructure scan degraded",
			slog.String("coordinate", coord.String()),
			slog.String("error", err.Error()),
		)
		report.Summary = "Infrastructure information is temporarily unavailable."
		report.Warning = "all infrastructure data endpoints are unavailable"
		return report
	}

	report.ElementCount = len(resp.Elements)
	classifyAll(resp.Elements, &report.Categories)
	report.Summary = summarize(report.Categories, report.ElementCount)
	return report
}

func emptyCategories() Categories {
	return Categories{
		Education:      []string{},
		Health:         []string{},
		Commerce:       []string{},
		Transport:      []string{},
		PublicServices: []string{},
		Leisure:        []string{},
		Emergency:      []string{},
		Territorial:    []string{},
		Other:          []string{},
	}
}

// buildQuery covers pointlike amenity/shop/tourism features plus the linear
// layers that matter outside dense urban areas.
func buildQuery(coord domain.Coordinate, radiusMeters int) string {
	around := fmt.Sprintf("(around:%d,%f,%f)", radiusMeters, coord.Latitude, coord.Longitude)

	var b strings.Builder
	b.WriteString("[out:json][timeout:15];\n(\n")
	for _, key := range []string{"amenity", "shop", "tourism"} {
		for _, kind := range []string{"node", "way", "relation"} {
			fmt.Fprintf(&b, "  %s[%q]%s;\n", kind, key, around)
		}
	}
	for _, key := range []string{"highway", "waterway", "power", "man_made"} {
		fmt.Fprintf(&b, "  way[%q]%s;\n", key, around)
	}
	b.WriteString(");\nout body;\n")
	return b.String()
}

// bucket identifiers used by classify.
type bucket int

const (
	bucketEducation bucket = iota
	bucketHealth
	bucketCommerce
	bucketTransport
	bucketPublicServices
	bucketLeisure
	bucketEmergency
	bucketTerritorial
	bucketOther
	bucketNone
)

// classify assigns a feature to exactly one bucket. Emergency and healthcare
// tags take precedence, then the amenity mapping, then shop, tourism and the
// territorial layers. Unrecognized amenities land in the other bucket.
func classify(tags map[string]string) bucket {
	if tags["emergency"] != "" || tags["healthcare"] != "" {
		return bucketEmergency
	}
	if amenity := tags["amenity"]; amenity != "" {
		switch amenity {
		case "school", "university", "college", "kindergarten":
			return bucketEducation
		case "hospital", "clinic", "doctors", "pharmacy":
			return bucketHealth
		case "restaurant", "cafe", "bar", "pub":
			return bucketCommerce
		case "bus_station", "parking", "fuel":
			return bucketTransport
		case "police", "fire_station", "post_office", "townhall":
			return bucketPublicServices
		case "cinema", "theatre", "library":
			return bucketLeisure
		default:
			return bucketOther
		}
	}
	if tags["shop"] != "" {
		return bucketCommerce
	}
	if tags["tourism"] != "" {
		return bucketLeisure
	}
	if tags["highway"] != "" || tags["waterway"] != "" || tags["power"] != "" || tags["man_made"] != "" {
		return bucketTerritorial
	}
	return bucketNone
}

// label picks a human-readable name for a feature.
func label(tags map[string]string) string {
	for _, key := range []string{"name", "amenity", "shop", "tourism", "highway", "waterway", "power", "man_made"} {
		if tags[key] != "" {
			return tags[key]
		}
	}
	return "unnamed"
}

// classifyAll fills the buckets in input order, deduplicating by label and
// capping each bucket. First-seen entries win so repeated scans over the
// same input are reproducible.
func classifyAll(elements []overpass.Element, cats *Categories) {
	slots := [...]*[]string{
		bucketEducation:      &cats.Education,
		bucketHealth:         &cats.Health,
		bucketCommerce:       &cats.Commerce,
		bucketTransport:      &cats.Transport,
		bucketPublicServices: &cats.PublicServices,
		bucketLeisure:        &cats.Leisure,
		bucketEmergency:      &cats.Emergency,
		bucketTerritorial:    &cats.Territorial,
		bucketOther:          &cats.Other,
	}

	seen := make([]map[string]struct{}, len(slots))
	for i := range seen {
		seen[i] = make(map[string]struct{})
	}

	for _, el := range elements {
		if len(el.Tags) == 0 {
			continue
		}
		b := classify(el.Tags)
		if b == bucketNone {
			continue
		}
		name := label(el.Tags)
		if _, dup := seen[b][name]; dup {
			continue
		}
		if len(*slots[b]) >= bucketCap {
			continue
		}
		seen[b][name] = struct{}{}
		*slots[b] = append(*slots[b], name)
	}
}

// summarize builds the narrative sentence over the non-empty buckets in
// canonical order. Emergency and other are deliberately left out of the
// sentence, matching what readers of the report expect to see highlighted.
func summarize(cats Categories, total int) string {
	if total == 0 {
		return "Area with little infrastructure registered in OpenStreetMap or data unavailable."
	}

	parts := []string{}
	add := func(entries []string, noun string) {
		if len(entries) > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", len(entries), noun))
		}
	}
	add(cats.Education, "educational centers")
	add(cats.Health, "health facilities")
	add(cats.Commerce, "shops and businesses")
	add(cats.Transport, "transport points")
	add(cats.PublicServices, "public services")
	add(cats.Leisure, "points of interest")
	add(cats.Territorial, "territorial infrastructure features")

	if len(parts) == 0 {
		return "Area with basic infrastructure."
	}
	return "Area with " + strings.Join(parts, ", ") + "."
}
