// Package tools maps named tool schemas to the geodata adapters behind them.
// The reasoning model only ever sees the catalog; dispatch hides every
// adapter detail and never returns a fatal error, because the loop must
// continue so the model can react to failures.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tjfontaine/geoscope/internal/api/openai"
	"github.com/tjfontaine/geoscope/internal/domain"
	"github.com/tjfontaine/geoscope/internal/floodrisk"
	"github.com/tjfontaine/geoscope/internal/geocode"
	"github.com/tjfontaine/geoscope/internal/infrascan"
)

// Tool names as exposed in the catalog.
const (
	ToolGeocodeAddress     = "geocode_address"
	ToolScanInfrastructure = "scan_infrastructure"
	ToolAssessFloodRisk    = "assess_flood_risk"
)

// Names lists the catalog in its fixed order.
func Names() []string {
	return []string{ToolGeocodeAddress, ToolScanInfrastructure, ToolAssessFloodRisk}
}

type geocoder interface {
	Lookup(ctx context.Context, query string) (*geocode.Result, error)
}

type scanner interface {
	Scan(ctx context.Context, coord domain.Coordinate, radiusMeters int) *infrascan.Report
}

type evaluator interface {
	Evaluate(ctx context.Context, coord domain.Coordinate) *floodrisk.Assessment
}

// Registry owns the three adapters and their schemas.
type Registry struct {
	geocoder  geocoder
	scanner   scanner
	evaluator evaluator
}

// NewRegistry creates a registry over the given adapters.
func NewRegistry(g geocoder, s scanner, e evaluator) *Registry {
	return &Registry{geocoder: g, scanner: s, evaluator: e}
}

// Catalog returns the function schemas advertised to the reasoning model.
func (r *Registry) Catalog() []openai.Tool {
	coordinateProps := map[string]any{
		"latitude":  map[string]any{"type": "number", "description": "Latitude in decimal degrees"},
		"longitude": map[string]any{"type": "number", "description": "Longitude in decimal degrees"},
	}

	return []openai.Tool{
		{
			Type: "function",
			Function: openai.FunctionTool{
				Name:        ToolGeocodeAddress,
				Description: "Resolves a free-text address or place name to coordinates using OpenStreetMap data.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"address": map[string]any{"type": "string", "description": "Free-text address or place name"},
					},
					"required":             []string{"address"},
					"additionalProperties": false,
				},
			},
		},
		{
			Type: "function",
			Function: openai.FunctionTool{
				Name:        ToolScanInfrastructure,
				Description: "Lists nearby infrastructure (education, health, commerce, transport, public services, leisure, territorial) from OpenStreetMap.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"latitude":  coordinateProps["latitude"],
						"longitude": coordinateProps["longitude"],
						"radius": map[string]any{
							"type":        "number",
							"description": "Search radius in meters (default 500)",
							"default":     infrascan.DefaultRadiusMeters,
						},
					},
					"required":             []string{"latitude", "longitude"},
					"additionalProperties": false,
				},
			},
		},
		{
			Type: "function",
			Function: openai.FunctionTool{
				Name:        ToolAssessFloodRisk,
				Description: "Assesses flood risk from terrain elevation and proximity to watercourses. Returns a level (low/medium/high) and recommendations.",
				Parameters: map[string]any{
					"type":                 "object",
					"properties":           coordinateProps,
					"required":             []string{"latitude", "longitude"},
					"additionalProperties": false,
				},
			},
		},
	}
}

// Dispatch executes one named tool call and records its outcome. Unknown
// names and bad arguments become Failure records, never errors: the record
// always goes back into the conversation.
func (r *Registry) Dispatch(ctx context.Context, name, rawArguments string) domain.ToolInvocationRecord {
	args := parseArguments(rawArguments)
	record := domain.ToolInvocationRecord{Tool: name, Arguments: args}

	switch name {
	case ToolGeocodeAddress:
		r.dispatchGeocode(ctx, &record)
	case ToolScanInfrastructure:
		r.dispatchScan(ctx, &record)
	case ToolAssessFloodRisk:
		r.dispatchFloodRisk(ctx, &record)
	default:
		record.Failure = &domain.Failure{Reason: fmt.Sprintf("unknown tool: %s", name)}
	}
	return record
}

// parseArguments is best-effort: unparseable input degrades to an empty set
// so the handler can still fail with a precise per-field reason.
func parseArguments(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}

func (r *Registry) dispatchGeocode(ctx context.Context, record *domain.ToolInvocationRecord) {
	address, _ := record.Arguments["address"].(string)
	if address == "" {
		record.Failure = &domain.Failure{Reason: "missing required argument: address"}
		return
	}

	result, err := r.geocoder.Lookup(ctx, address)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			record.Failure = &domain.Failure{Reason: fmt.Sprintf("no location found for %q", address)}
		} else {
			record.Failure = &domain.Failure{Reason: "geocoding service unavailable: " + err.Error()}
		}
		return
	}
	record.Result = marshalResult(map[string]any{
		"latitude":     result.Coordinate.Latitude,
		"longitude":    result.Coordinate.Longitude,
		"display_name": result.DisplayName,
		"source":       "Nominatim (OpenStreetMap)",
	})
}

func (r *Registry) dispatchScan(ctx context.Context, record *domain.ToolInvocationRecord) {
	coord, err := coordinateFrom(record.Arguments)
	if err != nil {
		record.Failure = &domain.Failure{Reason: err.Error()}
		return
	}

	radius := infrascan.DefaultRadiusMeters
	if v, ok := record.Arguments["radius"].(float64); ok && v > 0 {
		radius = int(v)
	}

	record.Result = marshalResult(r.scanner.Scan(ctx, coord, radius))
}

func (r *Registry) dispatchFloodRisk(ctx context.Context, record *domain.ToolInvocationRecord) {
	coord, err := coordinateFrom(record.Arguments)
	if err != nil {
		record.Failure = &domain.Failure{Reason: err.Error()}
		return
	}
	record.Result = marshalResult(r.evaluator.Evaluate(ctx, coord))
}

// coordinateFrom extracts and validates the coordinate arguments. JSON
// numbers arrive as float64; anything else counts as missing.
func coordinateFrom(args map[string]any) (domain.Coordinate, error) {
	lat, latOK := args["latitude"].(float64)
	lon, lonOK := args["longitude"].(float64)
	if !latOK || !lonOK {
		return domain.Coordinate{}, fmt.Errorf("missing required arguments: latitude and longitude")
	}
	coord := domain.Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		return domain.Coordinate{}, err
	}
	return coord, nil
}

func marshalResult(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// Adapter results are plain structs; this cannot realistically fail.
		return json.RawMessage(`{"success":false,"error":"result serialization failed"}`)
	}
	return data
}
