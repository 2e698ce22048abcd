package domain

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of a service error.
type ErrorType string

const (
	// ErrorTypeInputValidation indicates missing or contradictory request
	// fields. Fatal: returned before any network call is made.
	ErrorTypeInputValidation ErrorType = "input_validation"

	// ErrorTypeUpstreamUnavailable indicates an adapter's own network call
	// failed or timed out. Recovered locally by the adapter; never surfaced
	// as a run failure.
	ErrorTypeUpstreamUnavailable ErrorType = "upstream_unavailable"

	// ErrorTypeUnknownTool indicates the model requested a tool name the
	// registry does not know. Reported back into the conversation.
	ErrorTypeUnknownTool ErrorType = "unknown_tool"

	// ErrorTypeMalformedToolArguments indicates tool arguments that could
	// not be parsed or failed validation. Reported back into the
	// conversation.
	ErrorTypeMalformedToolArguments ErrorType = "malformed_tool_arguments"

	// ErrorTypeIterationLimit indicates the run exhausted its iteration
	// budget without a tool-less answer. Fatal to the run; the partial
	// trace is still returned.
	ErrorTypeIterationLimit ErrorType = "iteration_limit_exceeded"

	// ErrorTypeReasoningUnavailable indicates the reasoning endpoint itself
	// failed. Fatal: no adapter can compensate for the missing reasoning
	// step.
	ErrorTypeReasoningUnavailable ErrorType = "reasoning_unavailable"
)

// APIError is the canonical error carried across package boundaries and
// translated to an HTTP response by the analysis handler.
type APIError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`

	// StatusCode overrides the default HTTP status for this error type.
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeInputValidation, ErrorTypeMalformedToolArguments, ErrorTypeUnknownTool:
		return http.StatusBadRequest
	case ErrorTypeUpstreamUnavailable, ErrorTypeReasoningUnavailable:
		return http.StatusBadGateway
	case ErrorTypeIterationLimit:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new canonical error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{Type: errType, Message: message}
}

// ErrInputValidation creates an input validation error.
func ErrInputValidation(message string) *APIError {
	return NewAPIError(ErrorTypeInputValidation, message)
}

// ErrUpstreamUnavailable creates an upstream unavailability error.
func ErrUpstreamUnavailable(message string) *APIError {
	return NewAPIError(ErrorTypeUpstreamUnavailable, message)
}

// ErrUnknownTool creates an unknown tool error carrying the offending name.
func ErrUnknownTool(name string) *APIError {
	return NewAPIError(ErrorTypeUnknownTool, "unknown tool: "+name)
}

// ErrMalformedToolArguments creates a malformed tool arguments error.
func ErrMalformedToolArguments(message string) *APIError {
	return NewAPIError(ErrorTypeMalformedToolArguments, message)
}

// ErrIterationLimit creates an iteration limit exceeded error.
func ErrIterationLimit(maxIterations int) *APIError {
	return NewAPIError(ErrorTypeIterationLimit,
		fmt.Sprintf("no final answer within %d iterations", maxIterations))
}

// ErrReasoningUnavailable creates a reasoning endpoint failure error.
func ErrReasoningUnavailable(message string) *APIError {
	return NewAPIError(ErrorTypeReasoningUnavailable, message)
}
