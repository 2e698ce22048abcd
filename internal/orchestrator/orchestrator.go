// Package orchestrator drives the bounded tool-calling loop: seed a
// conversation, let the model request data lookups, feed results back, and
// stop at the first tool-less answer.
package orchestrator

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/geoscope/internal/api/openai"
	"github.com/tjfontaine/geoscope/internal/domain"
	"github.com/tjfontaine/geoscope/internal/reasoning"
)

// systemPrompt is the report-format contract sent with every run. The
// validator checks the source citations it demands, advisorily.
const systemPrompt = `You are an expert geospatial analysis assistant.

INSTRUCTIONS:
1. Use the available tools to obtain real data
2. NEVER invent information - only use data from the tools
3. Always cite the sources: Nominatim/OSM, Overpass/OSM, Open-Elevation
4. If an API fails, mention the limitation but continue with the available data

REPORT FORMAT:
Your answer must be a structured report with these sections:

## 📍 Location
- Exact coordinates and full address
- Data source

## 🏙️ Urban Infrastructure
- Summary of elements found per category
- Highlight the most relevant services
- Search radius

## 🌊 Flood Risk Assessment
- Risk level (low/medium/high) with justification
- Factors considered (elevation, proximity to watercourses)
- Specific recommendations

## 📊 Conclusion
- Executive summary of the area
- Final considerations

Use Markdown formatting for readability. Be concise but complete.`

// gateway is the reasoning step.
type gateway interface {
	Complete(ctx context.Context, conv *domain.Conversation, catalog []openai.Tool) (reasoning.Turn, error)
}

// registry is the tool surface.
type registry interface {
	Catalog() []openai.Tool
	Dispatch(ctx context.Context, name, rawArguments string) domain.ToolInvocationRecord
}

// Result is a completed run. IterationsUsed is the zero-based index of the
// iteration that produced the final answer.
type Result struct {
	FinalText      string
	Trace          domain.Trace
	IterationsUsed int
}

// Orchestrator owns no state between runs; every Run gets a fresh
// conversation and trace.
type Orchestrator struct {
	gateway       gateway
	registry      registry
	maxIterations int
	logger        *slog.Logger
}

// New creates an orchestrator. All collaborators are injected at process
// start; a missing credential fails there, not mid-run.
func New(gw gateway, reg registry, maxIterations int, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:       gw,
		registry:      reg,
		maxIterations: maxIterations,
		logger:        logger,
	}
}

// Run executes one analysis. On IterationLimitExceeded the partial trace is
// still returned alongside the error for diagnostics.
func (o *Orchestrator) Run(ctx context.Context, userPrompt string) (*Result, error) {
	conv := domain.NewConversation(systemPrompt, userPrompt)
	catalog := o.registry.Catalog()
	trace := domain.Trace{}

	for i := 0; i < o.maxIterations; i++ {
		turn, err := o.gateway.Complete(ctx, conv, catalog)
		if err != nil {
			return &Result{Trace: trace}, err
		}

		if turn.Final() {
			o.logger.Info("analysis complete",
				slog.Int("iterations", i),
				slog.Int("tools_used", len(trace)),
			)
			return &Result{
				FinalText:      turn.Content,
				Trace:          trace,
				IterationsUsed: i,
			}, nil
		}

		conv.Append(domain.AssistantMessage(turn.Content, turn.ToolRequests))

		// Requests within one assistant message are independent, so they
		// run concurrently. Results are appended in request order afterward
		// so the correlation ids line up deterministically.
		records := make([]domain.ToolInvocationRecord, len(turn.ToolRequests))
		var g errgroup.Group
		for idx, req := range turn.ToolRequests {
			g.Go(func() error {
				records[idx] = o.registry.Dispatch(ctx, req.Name, req.RawArguments)
				return nil
			})
		}
		// Dispatch never returns an error; failures travel inside records.
		_ = g.Wait()

		for idx, req := range turn.ToolRequests {
			record := records[idx]
			if record.Failed() {
				o.logger.Warn("tool invocation failed",
					slog.String("tool", record.Tool),
					slog.String("reason", record.Failure.Reason),
				)
			}
			trace = append(trace, record)
			conv.Append(domain.ToolResultMessage(req.ID, record.Payload()))
		}
	}

	o.logger.Error("iteration limit exceeded",
		slog.Int("max_iterations", o.maxIterations),
		slog.Int("tools_used", len(trace)),
	)
	return &Result{Trace: trace, IterationsUsed: o.maxIterations},
		domain.ErrIterationLimit(o.maxIterations)
}
