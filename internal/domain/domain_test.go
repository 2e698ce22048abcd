package domain

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{"origin", Coordinate{0, 0}, false},
		{"madrid", Coordinate{40.4168, -3.7038}, false},
		{"poles", Coordinate{90, 180}, false},
		{"negative bounds", Coordinate{-90, -180}, false},
		{"latitude too high", Coordinate{90.1, 0}, true},
		{"latitude too low", Coordinate{-91, 0}, true},
		{"longitude too high", Coordinate{0, 181}, true},
		{"longitude too low", Coordinate{0, -180.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.Type != ErrorTypeMalformedToolArguments {
					t.Errorf("error = %v, want malformed-arguments APIError", err)
				}
			}
		})
	}
}

func TestToolInvocationRecordPayload(t *testing.T) {
	success := ToolInvocationRecord{Tool: "geocode_address", Result: json.RawMessage(`{"latitude":40.4}`)}
	if success.Failed() {
		t.Error("Failed() = true for a success record")
	}
	if success.Payload() != `{"latitude":40.4}` {
		t.Errorf("payload = %q", success.Payload())
	}

	failed := ToolInvocationRecord{Tool: "teleport", Failure: &Failure{Reason: "unknown tool: teleport"}}
	if !failed.Failed() {
		t.Error("Failed() = false for a failure record")
	}
	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(failed.Payload()), &envelope); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if envelope.Success || !strings.Contains(envelope.Error, "teleport") {
		t.Errorf("envelope = %+v", envelope)
	}
}

func TestConversation(t *testing.T) {
	conv := NewConversation("be helpful", "analyze Madrid")
	if conv.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", conv.Len())
	}

	conv.Append(AssistantMessage("", []ToolRequest{{ID: "call_1", Name: "geocode_address"}}))
	conv.Append(ToolResultMessage("call_1", `{"latitude":40.4}`))

	msgs := conv.Messages()
	if msgs[0].Role != RoleSystem || msgs[1].Role != RoleUser {
		t.Errorf("seed roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if msgs[2].ToolRequests[0].ID != msgs[3].ToolRequestID {
		t.Error("tool result does not reference the assistant request")
	}
}

func TestAPIErrorStatusCodes(t *testing.T) {
	tests := []struct {
		err  *APIError
		want int
	}{
		{ErrInputValidation("missing query"), http.StatusBadRequest},
		{ErrUnknownTool("teleport"), http.StatusBadRequest},
		{ErrMalformedToolArguments("bad latitude"), http.StatusBadRequest},
		{ErrUpstreamUnavailable("mirror down"), http.StatusBadGateway},
		{ErrReasoningUnavailable("endpoint down"), http.StatusBadGateway},
		{ErrIterationLimit(6), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.err.HTTPStatusCode(); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.err.Type, got, tt.want)
		}
	}
}

func TestErrIterationLimitMessage(t *testing.T) {
	err := ErrIterationLimit(6)
	if !strings.Contains(err.Error(), "6") {
		t.Errorf("Error() = %q, want the budget included", err.Error())
	}
}
