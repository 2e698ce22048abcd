// Package analysis exposes the geospatial analysis API: one endpoint that
// runs the tool-calling loop and one that reports service status.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/geoscope/internal/domain"
	"github.com/tjfontaine/geoscope/internal/orchestrator"
	"github.com/tjfontaine/geoscope/internal/server"
	"github.com/tjfontaine/geoscope/internal/storage"
	"github.com/tjfontaine/geoscope/internal/validate"
)

// Request is the inbound analysis request. Coordinates are pointers because
// zero is a legal coordinate and must be distinguishable from absent.
type Request struct {
	Query     string   `json:"query,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Response is the success payload.
type Response struct {
	Success    bool                `json:"success"`
	Query      string              `json:"query"`
	ToolsUsed  domain.Trace        `json:"tools_used"`
	AIResponse string              `json:"ai_response"`
	Iterations int                 `json:"iterations"`
	Validation validate.Validation `json:"validation"`
	Timestamp  time.Time           `json:"timestamp"`
}

type errorResponse struct {
	Success   bool         `json:"success"`
	Error     string       `json:"error"`
	ToolsUsed domain.Trace `json:"tools_used,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

type runner interface {
	Run(ctx context.Context, userPrompt string) (*orchestrator.Result, error)
}

// Handler serves the analysis endpoints.
type Handler struct {
	runner runner
	store  storage.RunStore
	model  string
	logger *slog.Logger
}

// NewHandler creates the handler. The store may be a NopStore when auditing
// is disabled.
func NewHandler(r runner, store storage.RunStore, model string, logger *slog.Logger) *Handler {
	return &Handler{runner: r, store: store, model: model, logger: logger}
}

// Routes mounts the endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/analyze", h.Analyze)
	r.Get("/api/health", h.Health)
}

// Analyze runs one analysis. Input validation happens before any network
// call; only iteration exhaustion and reasoning outages surface as errors.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrInputValidation("request body is not valid JSON"), nil)
		return
	}

	prompt, label, err := promptFrom(req)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	start := time.Now()
	result, runErr := h.runner.Run(r.Context(), prompt)

	server.AddLogField(r.Context(), "query", label)
	if result != nil {
		server.AddLogField(r.Context(), "tools_used", strconv.Itoa(len(result.Trace)))
	}

	if runErr != nil {
		var trace domain.Trace
		if result != nil {
			trace = result.Trace
		}
		h.audit(r.Context(), label, storage.StatusFailed, result, time.Since(start))
		h.writeError(w, r, runErr, trace)
		return
	}

	validation := validate.Check(result.Trace, result.FinalText)
	h.audit(r.Context(), label, storage.StatusCompleted, result, time.Since(start))

	writeJSON(w, http.StatusOK, Response{
		Success:    true,
		Query:      label,
		ToolsUsed:  result.Trace,
		AIResponse: result.FinalText,
		Iterations: result.IterationsUsed,
		Validation: validation,
		Timestamp:  time.Now().UTC(),
	})
}

// healthResponse mirrors the service self-description.
type healthResponse struct {
	Service        string            `json:"service"`
	Status         string            `json:"status"`
	Model          string            `json:"model"`
	ToolsAvailable []string          `json:"tools_available"`
	Endpoints      map[string]string `json:"endpoints"`
}

// Health reports static service information.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Service: "AI geospatial analysis API",
		Status:  "online",
		Model:   h.model,
		ToolsAvailable: []string{
			"geocode_address - Geocoding (Nominatim/OSM)",
			"scan_infrastructure - Nearby infrastructure (Overpass/OSM)",
			"assess_flood_risk - Flood risk (Open-Elevation + Overpass/OSM)",
		},
		Endpoints: map[string]string{
			"POST /api/analyze": "Analyze a location",
			"GET /api/health":   "Service status",
		},
	})
}

// promptFrom validates the request and derives the user prompt plus the
// short label used in logs and the audit trail. Exactly one of query or the
// full coordinate pair must be present.
func promptFrom(req Request) (prompt, label string, err error) {
	hasQuery := req.Query != ""
	hasLat := req.Latitude != nil
	hasLon := req.Longitude != nil

	switch {
	case hasLat != hasLon:
		return "", "", domain.ErrInputValidation("latitude and longitude must be provided together")
	case hasQuery && hasLat:
		return "", "", domain.ErrInputValidation("provide either query or coordinates, not both")
	case !hasQuery && !hasLat:
		return "", "", domain.ErrInputValidation("query or coordinates (latitude, longitude) required")
	}

	if hasQuery {
		return req.Query, req.Query, nil
	}

	coord := domain.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if err := coord.Validate(); err != nil {
		return "", "", domain.ErrInputValidation(err.Error())
	}
	return "Analyze this location by coordinates: " + coord.String() + ".", coord.String(), nil
}

// audit records the run outcome. Best-effort: failures are logged, never
// surfaced. The request context may already be done, so the write gets its
// own deadline.
func (h *Handler) audit(ctx context.Context, label, status string, result *orchestrator.Result, elapsed time.Duration) {
	record := &storage.RunRecord{
		Query:    label,
		Status:   status,
		Duration: elapsed,
	}
	if result != nil {
		record.Iterations = result.IterationsUsed
		if trace, err := json.Marshal(result.Trace); err == nil {
			record.ToolsUsed = string(trace)
		}
	}
	if record.ToolsUsed == "" {
		record.ToolsUsed = "[]"
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := h.store.SaveRun(auditCtx, record); err != nil {
		h.logger.Warn("failed to save run audit record", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, trace domain.Trace) {
	server.AddError(r.Context(), err)

	status := http.StatusInternalServerError
	message := "internal error"
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatusCode()
		message = apiErr.Message
	}

	writeJSON(w, status, errorResponse{
		Success:   false,
		Error:     message,
		ToolsUsed: trace,
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
