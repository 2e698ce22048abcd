package domain

import "encoding/json"

// Failure is the recorded outcome of a tool invocation that did not produce
// a usable result: unknown tool name, arguments the adapter could not work
// with, or an adapter error that was not recoverable locally.
type Failure struct {
	Reason string `json:"reason"`
}

// ToolInvocationRecord is one entry in a run's trace. Exactly one of Result
// or Failure is set. Records are immutable once appended; the trace is owned
// solely by the orchestrator for the duration of one run.
type ToolInvocationRecord struct {
	Tool      string          `json:"tool"`
	Arguments map[string]any  `json:"arguments"`
	Result    json.RawMessage `json:"result,omitempty"`
	Failure   *Failure        `json:"failure,omitempty"`
}

// Failed reports whether the invocation ended in a Failure outcome.
func (r ToolInvocationRecord) Failed() bool {
	return r.Failure != nil
}

// Payload returns the JSON document fed back into the conversation for this
// record: the adapter result as-is on success, or an error envelope the
// model can reason about on failure.
func (r ToolInvocationRecord) Payload() string {
	if r.Failure != nil {
		b, _ := json.Marshal(map[string]any{
			"success": false,
			"error":   r.Failure.Reason,
		})
		return string(b)
	}
	return string(r.Result)
}

// Trace is the ordered record of every tool invocation during one run.
type Trace []ToolInvocationRecord
