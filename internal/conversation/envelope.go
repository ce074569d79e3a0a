package conversation

import (
	"github.com/wolfman30/clinic-booking-agent/internal/tools"
)

// Request is one inbound user message.
type Request struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	Mode      Mode   `json:"mode,omitempty"`
}

// Response is the envelope returned for a completed turn. Booking rejections
// fill ErrorType, SuggestedSlots, ProviderName and RequestedDate even when
// the turn itself succeeded.
type Response struct {
	Success        bool   `json:"success"`
	Response       string `json:"response,omitempty"`
	ToolCallsMade  int    `json:"tool_calls_made"`
	Iterations     int    `json:"iterations"`
	Warning        string `json:"warning,omitempty"`
	Error          string `json:"error,omitempty"`
	ErrorType      string `json:"error_type,omitempty"`
	SuggestedSlots any    `json:"suggested_slots,omitempty"`
	ProviderName   string `json:"provider_name,omitempty"`
	RequestedDate  string `json:"requested_date,omitempty"`
}

const (
	warnMaxIterations = "Max iterations reached. Response synthesized from tool results."
	warnEmptyAnswer   = "Model returned no final text. Response synthesized from tool results."

	errorTypeMaxIterations = "max_iterations"
	unableToProcess        = "I apologize, but I'm having trouble processing your request. Please try again."
)

// lastRejection returns the most recent rejection that no later successful
// call of the same tool superseded.
func lastRejection(results []tools.Result) (tools.Rejection, bool) {
	var (
		rej     tools.Rejection
		rejTool string
		found   bool
	)
	for _, res := range results {
		if r, ok := res.Payload.(tools.Rejection); ok {
			rej, rejTool, found = r, res.ToolName, true
			continue
		}
		if found && res.OK && res.ToolName == rejTool {
			found = false
		}
	}
	return rej, found
}

func (r *Response) applyRejection(rej tools.Rejection) {
	r.ErrorType = rej.ErrorType
	r.SuggestedSlots = rej.SuggestedSlots
	r.ProviderName = rej.ProviderName
	r.RequestedDate = rej.RequestedDate
}
