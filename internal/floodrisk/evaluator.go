// Package floodrisk scores flood exposure from terrain elevation and nearby
// watercourses.
package floodrisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/tjfontaine/geoscope/internal/domain"
	"github.com/tjfontaine/geoscope/internal/overpass"
)

const (
	// waterRadiusMeters is the search radius for nearby watercourses.
	waterRadiusMeters = 1000

	lookupTimeout = 10 * time.Second

	// fallbackElevation is the conservative assumption when the elevation
	// endpoint is unreachable: high enough to avoid the low-lying buckets.
	fallbackElevation = 100.0

	sourceName = "Open-Elevation API + OpenStreetMap"
)

// Risk levels, ordered by severity. LevelUnknown never comes out of
// scoring; it is reserved for assessments produced without reaching the
// scoring step at all.
const (
	LevelLow     = "low"
	LevelMedium  = "medium"
	LevelHigh    = "high"
	LevelUnknown = "unknown"
)

// Factors summarizes the boolean risk drivers for the report.
type Factors struct {
	LowElevation bool `json:"low_elevation"`
	NearWater    bool `json:"near_water"`
	CoastalZone  bool `json:"coastal_zone"`
}

// Assessment is the evaluation result. ElevationMeters and NearestWaterName
// are nil when the underlying datum could not be obtained.
type Assessment struct {
	Coordinate           domain.Coordinate `json:"coordinate"`
	ElevationMeters      *float64          `json:"elevation_meters"`
	NearbyWaterways      int               `json:"nearby_waterways"`
	NearestWaterName     *string           `json:"nearest_water_name"`
	NearestWaterDistance string            `json:"nearest_water_distance"`
	RiskLevel            string            `json:"risk_level"`
	RiskScore            int               `json:"risk_score"`
	Description          string            `json:"description"`
	Recommendations      []string          `json:"recommendations"`
	Factors              Factors           `json:"factors"`
	Warning              string            `json:"warning,omitempty"`
	Source               string            `json:"source"`
}

type arealQuerier interface {
	Query(ctx context.Context, query string) (*overpass.Response, error)
}

// EvaluatorOption configures the evaluator.
type EvaluatorOption func(*Evaluator)

// WithHTTPClient sets the HTTP client used for elevation lookups.
func WithHTTPClient(httpClient *http.Client) EvaluatorOption {
	return func(e *Evaluator) {
		e.httpClient = httpClient
	}
}

// Evaluator combines an elevation endpoint with watercourse queries.
type Evaluator struct {
	elevationURL string
	querier      arealQuerier
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewEvaluator creates an evaluator. The querier is typically the shared
// mirror-backed Overpass client.
func NewEvaluator(elevationURL string, querier arealQuerier, logger *slog.Logger, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		elevationURL: elevationURL,
		querier:      querier,
		httpClient:   http.DefaultClient,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores the coordinate. It never fails outward: each sub-lookup
// isolates its own failure, so a missing elevation datum falls back to a
// conservative estimate and a failed water query counts as zero
// watercourses. Scoring always runs over the resolved values, substituted
// or not.
func (e *Evaluator) Evaluate(ctx context.Context, coord domain.Coordinate) *Assessment {
	elevation, elevErr := e.fetchElevation(ctx, coord)
	water, waterErr := e.findNearbyWater(ctx, coord)

	elevationKnown := elevErr == nil
	if elevErr != nil {
		e.logger.Warn("elevation lookup failed, using conservative estimate",
			slog.String("error", elevErr.Error()))
		elevation = fallbackElevation
	}
	if waterErr != nil {
		e.logger.Warn("watercourse lookup failed, assuming none",
			slog.String("error", waterErr.Error()))
		water = waterSearch{distance: "unknown"}
	}

	score, level, description := scoreFor(elevation, water)

	a := &Assessment{
		Coordinate:           coord,
		NearbyWaterways:      water.count,
		NearestWaterName:     water.nearestName,
		NearestWaterDistance: water.distance,
		RiskLevel:            level,
		RiskScore:            score,
		Description:          description,
		Recommendations:      recommendationsFor(level),
		Factors: Factors{
			LowElevation: elevation < 100,
			NearWater:    water.count > 0,
			CoastalZone:  math.Abs(coord.Latitude) < 45 && elevation < 20,
		},
		Source: sourceName,
	}
	if elevationKnown {
		a.ElevationMeters = &elevation
	}
	if elevErr != nil && waterErr != nil {
		a.Warning = "limited data"
	}
	return a
}

type elevationResponse struct {
	Results []struct {
		Elevation float64 `json:"elevation"`
	} `json:"results"`
}

func (e *Evaluator) fetchElevation(ctx context.Context, coord domain.Coordinate) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s?locations=%f,%f", e.elevationURL, coord.Latitude, coord.Longitude)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("elevation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("elevation endpoint returned status %d", resp.StatusCode)
	}

	var decoded elevationResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("failed to decode elevation response: %w", err)
	}
	if len(decoded.Results) == 0 {
		return 0, fmt.Errorf("elevation endpoint returned no results")
	}
	return decoded.Results[0].Elevation, nil
}

type waterSearch struct {
	count       int
	nearestName *string
	distance    string
}

func (e *Evaluator) findNearbyWater(ctx context.Context, coord domain.Coordinate) (waterSearch, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	query := fmt.Sprintf(`[out:json][timeout:10];
(
  way["waterway"="river"](around:%[1]d,%[2]f,%[3]f);
  way["waterway"="stream"](around:%[1]d,%[2]f,%[3]f);
  way["natural"="water"](around:%[1]d,%[2]f,%[3]f);
);
out body;
`, waterRadiusMeters, coord.Latitude, coord.Longitude)

	resp, err := e.querier.Query(ctx, query)
	if err != nil {
		return waterSearch{}, err
	}

	result := waterSearch{count: len(resp.Elements), distance: "none within 1km"}
	if result.count > 0 {
		name := "Unnamed watercourse"
		if n := resp.Elements[0].Tags["name"]; n != "" {
			name = n
		}
		result.nearestName = &name
		result.distance = "less than 1km"
	}
	return result, nil
}

// scoreFor is the pure scoring rule. Elevation buckets contribute 40, 20 or
// 10 points below 10m, 50m and 100m; water proximity contributes 30 points
// for more than two watercourses or 15 for at least one. The maximum is 70.
func scoreFor(elevation float64, water waterSearch) (score int, level, description string) {
	switch {
	case elevation < 10:
		score += 40
		description += "Very low elevation area (< 10m). "
	case elevation < 50:
		score += 20
		description += "Low elevation area (< 50m). "
	case elevation < 100:
		score += 10
	}

	switch {
	case water.count > 2:
		score += 30
		description += fmt.Sprintf("Multiple nearby watercourses (%d). ", water.count)
	case water.count > 0:
		name := "Unnamed watercourse"
		if water.nearestName != nil {
			name = *water.nearestName
		}
		description += fmt.Sprintf("Nearby watercourse: %s. ", name)
		score += 15
	}

	switch {
	case score >= 50:
		level = LevelHigh
	case score >= 25:
		level = LevelMedium
	default:
		level = LevelLow
		description += "Area at safe elevation with low apparent risk."
	}

	if description == "" {
		description = "Assessment based on topography and nearby watercourses."
	}
	return score, level, description
}

func recommendationsFor(level string) []string {
	switch level {
	case LevelHigh:
		return []string{
			"Review the flood history of the area",
			"Consider drainage and protection systems",
			"Consult official flood zone maps",
		}
	case LevelMedium:
		return []string{
			"Review local drainage systems",
			"Consult authorities about historical risks",
			"Consider basic preventive measures",
		}
	default:
		return []string{
			"Low risk according to topographic data",
			"Keep drainage systems in good condition",
		}
	}
}
