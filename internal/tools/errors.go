package tools

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTool is returned by Register when the name is taken.
	ErrDuplicateTool = errors.New("tools: duplicate tool")
	// ErrUnknownTool is carried by results for calls naming no registered tool.
	ErrUnknownTool = errors.New("tools: unknown tool")
	// ErrInvalidDescriptor is returned by Register for incomplete descriptors.
	ErrInvalidDescriptor = errors.New("tools: invalid descriptor")
)

// MissingParameterError reports a required argument the caller omitted.
type MissingParameterError struct {
	Tool  string
	Param string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("tools: %s: missing required parameter %q", e.Tool, e.Param)
}

// TypeMismatchError reports an argument of the wrong JSON type or value set.
type TypeMismatchError struct {
	Tool     string
	Param    string
	Expected ParamType
	Detail   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("tools: %s: parameter %q must be %s (%s)", e.Tool, e.Param, e.Expected, e.Detail)
}

// Failure is returned by handlers for an expected, user-facing failure. Its
// Payload becomes the result payload so the model sees structured detail.
type Failure struct {
	Message string
	Payload any
}

func (f *Failure) Error() string { return f.Message }

// Fail builds a Failure whose payload is {"success": false, "error": msg} merged with extra.
func Fail(msg string, extra map[string]any) *Failure {
	payload := map[string]any{"success": false, "error": msg}
	for k, v := range extra {
		payload[k] = v
	}
	return &Failure{Message: msg, Payload: payload}
}

// Rejection is the payload of a failure the patient can act on, such as a
// booking refused for a date, time or conflict reason. Callers surface
// ErrorType and the suggestions alongside the reply.
type Rejection struct {
	Success        bool   `json:"success"`
	Error          string `json:"error"`
	ErrorType      string `json:"error_type"`
	SuggestedSlots any    `json:"suggested_slots,omitempty"`
	ProviderName   string `json:"doctor_name,omitempty"`
	RequestedDate  string `json:"requested_date,omitempty"`
}

// Reject builds a Failure carrying a Rejection payload.
func Reject(r Rejection) *Failure {
	r.Success = false
	return &Failure{Message: r.Error, Payload: r}
}
