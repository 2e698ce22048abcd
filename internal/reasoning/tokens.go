package reasoning

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tjfontaine/geoscope/internal/api/openai"
)

// Counter estimates prompt token counts with tiktoken so each reasoning
// round can log its cost before the call goes out. Estimates, not billing
// figures: message framing overhead is approximated.
type Counter struct {
	model string

	once  sync.Once
	codec tokenizer.Codec
	err   error
}

// NewCounter creates a counter for the given model. The codec is resolved
// lazily on first use.
func NewCounter(model string) *Counter {
	return &Counter{model: model}
}

func (c *Counter) getCodec() (tokenizer.Codec, error) {
	c.once.Do(func() {
		codec, err := tokenizer.ForModel(tokenizer.Model(c.model))
		if err != nil {
			// Fall back to encoding by model family
			codec, err = tokenizer.Get(modelToEncoding(c.model))
		}
		c.codec, c.err = codec, err
	})
	return c.codec, c.err
}

// Count estimates the prompt tokens for a message sequence.
func (c *Counter) Count(messages []openai.ChatCompletionMessage) (int, error) {
	codec, err := c.getCodec()
	if err != nil {
		return 0, err
	}

	// Per-message framing overhead for chat models: 3 tokens per message
	// plus 1 for the role.
	total := 0
	for _, msg := range messages {
		total += 4
		ids, _, err := codec.Encode(msg.Content)
		if err != nil {
			return 0, err
		}
		total += len(ids)

		for _, tc := range msg.ToolCalls {
			ids, _, err := codec.Encode(tc.Function.Name + tc.Function.Arguments)
			if err != nil {
				return 0, err
			}
			total += len(ids) + 3
		}
	}
	return total, nil
}

// modelToEncoding maps model names to encodings for fallback.
// O200kBase covers GPT-4o and newer; Cl100kBase covers GPT-4 and GPT-3.5.
func modelToEncoding(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "gpt-5"), strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "gpt-4"), strings.HasPrefix(model, "gpt-3.5"):
		return tokenizer.Cl100kBase
	default:
		return tokenizer.O200kBase
	}
}
