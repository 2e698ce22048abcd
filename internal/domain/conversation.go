// Package domain provides the core types shared by the orchestrator, the
// reasoning gateway, and the tool adapters: conversations, tool requests,
// invocation traces, coordinates, and canonical errors.
package domain

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolRequest is a single tool invocation requested by the model.
// ID is the opaque correlation identifier the model expects to see echoed
// back on the matching tool-result message.
type ToolRequest struct {
	ID   string
	Name string
	// RawArguments is the model-provided argument payload, not yet parsed
	// or validated.
	RawArguments string
}

// Message is one entry in a conversation. The set of legal shapes is closed:
// system and user messages carry text only, an assistant message may
// additionally carry tool requests, and a tool-result message carries the
// payload for exactly one prior request.
type Message struct {
	Role    Role
	Content string

	// ToolRequests is set only on assistant messages.
	ToolRequests []ToolRequest

	// ToolRequestID is set only on tool-result messages and references the
	// assistant tool request this message answers.
	ToolRequestID string
}

// SystemMessage builds the fixed system instruction message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage builds a user prompt message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage builds an assistant turn, preserving any tool requests
// the model issued alongside its text.
func AssistantMessage(text string, requests []ToolRequest) Message {
	return Message{Role: RoleAssistant, Content: text, ToolRequests: requests}
}

// ToolResultMessage builds the tool-result message for one request. The
// payload is the serialized outcome, success or failure; the model must see
// failures to reason about degraded data.
func ToolResultMessage(requestID, payload string) Message {
	return Message{Role: RoleTool, Content: payload, ToolRequestID: requestID}
}

// Conversation is the append-only message sequence owned by a single run.
// The first message is always the system instruction; nothing is ever
// removed or reordered, and the conversation is discarded with the run.
type Conversation struct {
	messages []Message
}

// NewConversation seeds a conversation with the system instruction and the
// initial user prompt.
func NewConversation(systemPrompt, userPrompt string) *Conversation {
	return &Conversation{messages: []Message{
		SystemMessage(systemPrompt),
		UserMessage(userPrompt),
	}}
}

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(msg Message) {
	c.messages = append(c.messages, msg)
}

// Messages returns the ordered messages. The returned slice must not be
// mutated by callers.
func (c *Conversation) Messages() []Message {
	return c.messages
}

// Len returns the number of messages in the conversation.
func (c *Conversation) Len() int {
	return len(c.messages)
}
