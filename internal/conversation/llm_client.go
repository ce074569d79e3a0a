package conversation

import (
	"context"

	"github.com/wolfman30/clinic-booking-agent/internal/tools"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleTool      = "tool"
)

// ChatMessage is the provider-neutral message form. Assistant messages may
// carry tool calls; tool messages answer exactly one call.
type ChatMessage struct {
	Role       string       `json:"role"`
	Content    string       `json:"content"`
	ToolCalls  []tools.Call `json:"tool_calls,omitempty"`
	ToolCallID string       `json:"tool_call_id,omitempty"`
	ToolName   string       `json:"tool_name,omitempty"`
	// ToolFailed marks a tool message whose invocation did not succeed.
	ToolFailed bool `json:"tool_failed,omitempty"`
}

// ToolSpec is a tool as advertised to the model.
type ToolSpec struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object.
	Parameters map[string]any
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	Tools       []ToolSpec
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// LLMResponse carries either final text, tool calls, or both.
type LLMResponse struct {
	Text       string
	ToolCalls  []tools.Call
	Usage      TokenUsage
	StopReason string
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// toolSpecs advertises registry descriptors in registry order.
func toolSpecs(descs []tools.Descriptor) []ToolSpec {
	out := make([]ToolSpec, len(descs))
	for i, d := range descs {
		out[i] = ToolSpec{Name: d.Name, Description: d.Description, Parameters: d.Parameters.JSONSchema()}
	}
	return out
}
