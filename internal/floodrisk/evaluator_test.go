package floodrisk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/tjfontaine/geoscope/internal/domain"
	"github.com/tjfontaine/geoscope/internal/overpass"
)

type fakeQuerier struct {
	resp *overpass.Response
	err  error
}

func (f *fakeQuerier) Query(context.Context, string) (*overpass.Response, error) {
	return f.resp, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func elevationServer(t *testing.T, elevation float64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("locations") == "" {
			t.Error("expected locations query parameter")
		}
		w.Write([]byte(`{"results":[{"elevation":` + strconv.FormatFloat(elevation, 'f', -1, 64) + `}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEvaluate_HighElevationNoWater(t *testing.T) {
	srv := elevationServer(t, 667)
	q := &fakeQuerier{resp: &overpass.Response{}}

	e := NewEvaluator(srv.URL, q, testLogger())
	a := e.Evaluate(context.Background(), domain.Coordinate{Latitude: 40.4, Longitude: -3.7})

	if a.RiskScore != 0 {
		t.Errorf("score = %d, want 0", a.RiskScore)
	}
	if a.RiskLevel != LevelLow {
		t.Errorf("level = %q, want low", a.RiskLevel)
	}
	if a.ElevationMeters == nil || *a.ElevationMeters != 667 {
		t.Errorf("elevation = %v, want 667", a.ElevationMeters)
	}
	if a.NearbyWaterways != 0 {
		t.Errorf("waterways = %d, want 0", a.NearbyWaterways)
	}
	if a.NearestWaterName != nil {
		t.Errorf("nearest water = %v, want nil", a.NearestWaterName)
	}
	if len(a.Recommendations) != 2 {
		t.Errorf("recommendations = %d, want 2", len(a.Recommendations))
	}
}

func TestEvaluate_LowLyingRiverside(t *testing.T) {
	srv := elevationServer(t, 5)
	q := &fakeQuerier{resp: &overpass.Response{Elements: []overpass.Element{
		{Type: "way", Tags: map[string]string{"waterway": "river", "name": "Manzanares"}},
		{Type: "way", Tags: map[string]string{"waterway": "stream"}},
		{Type: "way", Tags: map[string]string{"natural": "water"}},
	}}}

	e := NewEvaluator(srv.URL, q, testLogger())
	a := e.Evaluate(context.Background(), domain.Coordinate{Latitude: 40.4, Longitude: -3.7})

	if a.RiskScore != 70 {
		t.Errorf("score = %d, want 70", a.RiskScore)
	}
	if a.RiskLevel != LevelHigh {
		t.Errorf("level = %q, want high", a.RiskLevel)
	}
	if a.NearbyWaterways != 3 {
		t.Errorf("waterways = %d, want 3", a.NearbyWaterways)
	}
	if a.NearestWaterName == nil || *a.NearestWaterName != "Manzanares" {
		t.Errorf("nearest water = %v, want Manzanares", a.NearestWaterName)
	}
	if len(a.Recommendations) != 3 {
		t.Errorf("recommendations = %d, want 3", len(a.Recommendations))
	}
	if !a.Factors.LowElevation || !a.Factors.NearWater || !a.Factors.CoastalZone {
		t.Errorf("factors = %+v, want all set", a.Factors)
	}
}

func TestEvaluate_ElevationOutageUsesConservativeDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	q := &fakeQuerier{resp: &overpass.Response{Elements: []overpass.Element{
		{Type: "way", Tags: map[string]string{"waterway": "river"}},
	}}}

	e := NewEvaluator(srv.URL, q, testLogger())
	a := e.Evaluate(context.Background(), domain.Coordinate{Latitude: 40.4, Longitude: -3.7})

	if a.ElevationMeters != nil {
		t.Errorf("elevation = %v, want nil when the lookup failed", a.ElevationMeters)
	}
	// Conservative 100m assumption: no elevation points, only water points.
	if a.RiskScore != 15 {
		t.Errorf("score = %d, want 15", a.RiskScore)
	}
	if a.RiskLevel != LevelLow {
		t.Errorf("level = %q, want low", a.RiskLevel)
	}
}

func TestEvaluate_WaterOutageCountsZero(t *testing.T) {
	srv := elevationServer(t, 5)
	q := &fakeQuerier{err: errors.New("mirrors down")}

	e := NewEvaluator(srv.URL, q, testLogger())
	a := e.Evaluate(context.Background(), domain.Coordinate{Latitude: 40.4, Longitude: -3.7})

	if a.RiskScore != 40 {
		t.Errorf("score = %d, want 40 from elevation alone", a.RiskScore)
	}
	if a.NearbyWaterways != 0 {
		t.Errorf("waterways = %d, want 0", a.NearbyWaterways)
	}
	if a.NearestWaterDistance != "unknown" {
		t.Errorf("distance = %q, want unknown", a.NearestWaterDistance)
	}
}

func TestEvaluate_TotalOutageScoresWithDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	q := &fakeQuerier{err: errors.New("mirrors down")}

	e := NewEvaluator(srv.URL, q, testLogger())
	a := e.Evaluate(context.Background(), domain.Coordinate{Latitude: 40.4, Longitude: -3.7})

	// Each sub-lookup substitutes its own default (100m elevation, zero
	// watercourses), so scoring still runs: 0 points, low risk.
	if a.RiskLevel != LevelLow {
		t.Errorf("level = %q, want low", a.RiskLevel)
	}
	if a.RiskScore != 0 {
		t.Errorf("score = %d, want 0", a.RiskScore)
	}
	if a.ElevationMeters != nil {
		t.Errorf("elevation = %v, want nil", a.ElevationMeters)
	}
	if a.NearbyWaterways != 0 {
		t.Errorf("waterways = %d, want 0", a.NearbyWaterways)
	}
	if a.NearestWaterDistance != "unknown" {
		t.Errorf("distance = %q, want unknown", a.NearestWaterDistance)
	}
	if a.Warning == "" {
		t.Error("expected a warning on the degraded assessment")
	}
	if len(a.Recommendations) != 2 {
		t.Errorf("recommendations = %d, want the low-risk pair", len(a.Recommendations))
	}
}

func TestScoreFor_Monotonicity(t *testing.T) {
	// Holding water fixed, lower elevation never lowers the score.
	water := waterSearch{count: 1, distance: "less than 1km"}
	prev := -1
	for _, elevation := range []float64{150, 99, 49, 9} {
		score, _, _ := scoreFor(elevation, water)
		if score < prev {
			t.Errorf("score decreased to %d at elevation %v", score, elevation)
		}
		prev = score
	}

	// Holding elevation fixed, more water never lowers the score.
	prev = -1
	for _, count := range []int{0, 1, 3} {
		score, _, _ := scoreFor(30, waterSearch{count: count})
		if score < prev {
			t.Errorf("score decreased to %d at water count %d", score, count)
		}
		prev = score
	}
}

func TestScoreFor_Bounds(t *testing.T) {
	for _, elevation := range []float64{-5, 0, 5, 10, 49, 50, 99, 100, 500} {
		for _, count := range []int{0, 1, 2, 3, 10} {
			score, level, _ := scoreFor(elevation, waterSearch{count: count})
			if score < 0 || score > 70 {
				t.Errorf("score %d out of [0,70] at elevation=%v count=%d", score, elevation, count)
			}
			wantLevel := LevelLow
			if score >= 50 {
				wantLevel = LevelHigh
			} else if score >= 25 {
				wantLevel = LevelMedium
			}
			if level != wantLevel {
				t.Errorf("level %q at score %d, want %q", level, score, wantLevel)
			}
		}
	}
}
