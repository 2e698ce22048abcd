// Package reasoning provides the stateless client to the language-model
// completion endpoint. It translates a conversation plus a tool catalog into
// one chat-completions call and hands back either a final answer or the set
// of tool invocations the model requested.
package reasoning

import (
	"context"
	"log/slog"

	"github.com/tjfontaine/geoscope/internal/api/openai"
	"github.com/tjfontaine/geoscope/internal/domain"
)

// Turn is one assistant step. When ToolRequests is empty, Content is the
// final answer for the run.
type Turn struct {
	Content      string
	ToolRequests []domain.ToolRequest
}

// Final reports whether this turn ends the run.
func (t Turn) Final() bool {
	return len(t.ToolRequests) == 0
}

// Gateway is a stateless chat-completions client. It is constructed once at
// process start with validated credentials and injected into the
// orchestrator; there is no lazy global client.
type Gateway struct {
	client  *openai.Client
	model   string
	counter *Counter
	logger  *slog.Logger
}

// NewGateway creates a gateway speaking to the given model.
func NewGateway(client *openai.Client, model string, logger *slog.Logger) *Gateway {
	return &Gateway{
		client:  client,
		model:   model,
		counter: NewCounter(model),
		logger:  logger,
	}
}

// Complete sends the full conversation and the complete tool catalog, with
// tool selection left to the model ("auto"). Any upstream failure is
// returned as a reasoning-unavailable error; the orchestrator cannot recover
// from a missing reasoning step.
func (g *Gateway) Complete(ctx context.Context, conv *domain.Conversation, catalog []openai.Tool) (Turn, error) {
	req := &openai.ChatCompletionRequest{
		Model:      g.model,
		Messages:   toAPIMessages(conv.Messages()),
		Tools:      catalog,
		ToolChoice: "auto",
	}

	if estimate, err := g.counter.Count(req.Messages); err == nil {
		g.logger.Debug("reasoning request",
			slog.String("model", g.model),
			slog.Int("messages", len(req.Messages)),
			slog.Int("prompt_tokens_estimate", estimate),
		)
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Turn{}, domain.ErrReasoningUnavailable(err.Error())
	}
	if len(resp.Choices) == 0 {
		return Turn{}, domain.ErrReasoningUnavailable("completion returned no choices")
	}

	msg := resp.Choices[0].Message
	turn := Turn{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		turn.ToolRequests = append(turn.ToolRequests, domain.ToolRequest{
			ID:           tc.ID,
			Name:         tc.Function.Name,
			RawArguments: tc.Function.Arguments,
		})
	}
	return turn, nil
}

// toAPIMessages converts the closed message variant to wire messages.
// Assistant tool requests become tool_calls; tool results carry the
// correlation id in tool_call_id.
func toAPIMessages(msgs []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		apiMsg := openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
		for _, tr := range m.ToolRequests {
			apiMsg.ToolCalls = append(apiMsg.ToolCalls, openai.ToolCall{
				ID:   tr.ID,
				Type: "function",
				Function: openai.FunctionCall{
					Name:      tr.Name,
					Arguments: tr.RawArguments,
				},
			})
		}
		if m.Role == domain.RoleTool {
			apiMsg.ToolCallID = m.ToolRequestID
		}
		out = append(out, apiMsg)
	}
	return out
}
