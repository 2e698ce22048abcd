package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/tjfontaine/geoscope/internal/domain"
	"github.com/tjfontaine/geoscope/internal/floodrisk"
	"github.com/tjfontaine/geoscope/internal/geocode"
	"github.com/tjfontaine/geoscope/internal/infrascan"
)

type fakeGeocoder struct {
	result *geocode.Result
	err    error

	gotQuery string
}

func (f *fakeGeocoder) Lookup(_ context.Context, query string) (*geocode.Result, error) {
	f.gotQuery = query
	return f.result, f.err
}

type fakeScanner struct {
	gotCoord  domain.Coordinate
	gotRadius int
}

func (f *fakeScanner) Scan(_ context.Context, coord domain.Coordinate, radius int) *infrascan.Report {
	f.gotCoord = coord
	f.gotRadius = radius
	return &infrascan.Report{Coordinate: coord, RadiusMeters: radius, Summary: "Area with basic infrastructure."}
}

type fakeEvaluator struct {
	gotCoord domain.Coordinate
}

func (f *fakeEvaluator) Evaluate(_ context.Context, coord domain.Coordinate) *floodrisk.Assessment {
	f.gotCoord = coord
	return &floodrisk.Assessment{Coordinate: coord, RiskLevel: floodrisk.LevelLow}
}

func newTestRegistry() (*Registry, *fakeGeocoder, *fakeScanner, *fakeEvaluator) {
	g := &fakeGeocoder{}
	s := &fakeScanner{}
	e := &fakeEvaluator{}
	return NewRegistry(g, s, e), g, s, e
}

func TestCatalog(t *testing.T) {
	r, _, _, _ := newTestRegistry()
	catalog := r.Catalog()

	if len(catalog) != 3 {
		t.Fatalf("catalog = %d tools, want 3", len(catalog))
	}
	for i, name := range Names() {
		if catalog[i].Function.Name != name {
			t.Errorf("catalog[%d] = %q, want %q", i, catalog[i].Function.Name, name)
		}
		if catalog[i].Type != "function" {
			t.Errorf("catalog[%d] type = %q", i, catalog[i].Type)
		}
		if catalog[i].Function.Parameters == nil {
			t.Errorf("catalog[%d] has no parameter schema", i)
		}
	}
}

func TestDispatch_Geocode(t *testing.T) {
	r, g, _, _ := newTestRegistry()
	g.result = &geocode.Result{
		Coordinate:  domain.Coordinate{Latitude: 40.4168, Longitude: -3.7038},
		DisplayName: "Madrid, Spain",
	}

	record := r.Dispatch(context.Background(), ToolGeocodeAddress, `{"address":"Madrid"}`)
	if record.Failed() {
		t.Fatalf("dispatch failed: %+v", record.Failure)
	}
	if g.gotQuery != "Madrid" {
		t.Errorf("query = %q", g.gotQuery)
	}

	var payload map[string]any
	if err := json.Unmarshal(record.Result, &payload); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if payload["display_name"] != "Madrid, Spain" {
		t.Errorf("display_name = %v", payload["display_name"])
	}
	if payload["latitude"].(float64) != 40.4168 {
		t.Errorf("latitude = %v", payload["latitude"])
	}
}

func TestDispatch_GeocodeNotFound(t *testing.T) {
	r, g, _, _ := newTestRegistry()
	g.err = geocode.ErrNotFound

	record := r.Dispatch(context.Background(), ToolGeocodeAddress, `{"address":"xyzzy"}`)
	if !record.Failed() {
		t.Fatal("expected failure for unresolvable place")
	}
	if !strings.Contains(record.Failure.Reason, "no location found") {
		t.Errorf("reason = %q, want not-found wording", record.Failure.Reason)
	}
}

func TestDispatch_ScanDefaults(t *testing.T) {
	r, _, s, _ := newTestRegistry()

	record := r.Dispatch(context.Background(), ToolScanInfrastructure, `{"latitude":40.4,"longitude":-3.7}`)
	if record.Failed() {
		t.Fatalf("dispatch failed: %+v", record.Failure)
	}
	if s.gotRadius != infrascan.DefaultRadiusMeters {
		t.Errorf("radius = %d, want default %d", s.gotRadius, infrascan.DefaultRadiusMeters)
	}

	record = r.Dispatch(context.Background(), ToolScanInfrastructure, `{"latitude":40.4,"longitude":-3.7,"radius":1200}`)
	if record.Failed() {
		t.Fatalf("dispatch failed: %+v", record.Failure)
	}
	if s.gotRadius != 1200 {
		t.Errorf("radius = %d, want 1200", s.gotRadius)
	}
}

func TestDispatch_ZeroCoordinateIsValid(t *testing.T) {
	r, _, _, e := newTestRegistry()

	record := r.Dispatch(context.Background(), ToolAssessFloodRisk, `{"latitude":0,"longitude":0}`)
	if record.Failed() {
		t.Fatalf("dispatch failed for (0,0): %+v", record.Failure)
	}
	if e.gotCoord != (domain.Coordinate{}) {
		t.Errorf("coordinate = %+v, want origin", e.gotCoord)
	}
}

func TestDispatch_OutOfRangeCoordinate(t *testing.T) {
	r, _, _, _ := newTestRegistry()

	record := r.Dispatch(context.Background(), ToolAssessFloodRisk, `{"latitude":91,"longitude":0}`)
	if !record.Failed() {
		t.Fatal("expected failure for latitude 91")
	}
}

func TestDispatch_MissingCoordinates(t *testing.T) {
	r, _, _, _ := newTestRegistry()

	record := r.Dispatch(context.Background(), ToolScanInfrastructure, `{"latitude":40.4}`)
	if !record.Failed() {
		t.Fatal("expected failure for missing longitude")
	}
	if !strings.Contains(record.Failure.Reason, "latitude and longitude") {
		t.Errorf("reason = %q", record.Failure.Reason)
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	r, _, _, _ := newTestRegistry()

	record := r.Dispatch(context.Background(), "teleport", `{}`)
	if !record.Failed() {
		t.Fatal("expected failure for unknown tool")
	}
	if !strings.Contains(record.Failure.Reason, "teleport") {
		t.Errorf("reason = %q, want the unknown name echoed", record.Failure.Reason)
	}
}

func TestDispatch_MalformedArguments(t *testing.T) {
	r, _, _, _ := newTestRegistry()

	// Parsing degrades to an empty argument set; the handler then reports
	// the precise missing field.
	record := r.Dispatch(context.Background(), ToolGeocodeAddress, `{not json`)
	if !record.Failed() {
		t.Fatal("expected failure for malformed arguments")
	}
	if !strings.Contains(record.Failure.Reason, "address") {
		t.Errorf("reason = %q", record.Failure.Reason)
	}
}

func TestPayload_FailureShape(t *testing.T) {
	r, _, _, _ := newTestRegistry()

	record := r.Dispatch(context.Background(), "teleport", `{}`)
	var payload struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(record.Payload()), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Success {
		t.Error("success = true, want false")
	}
	if payload.Error == "" {
		t.Error("expected an error message in the payload")
	}
}
