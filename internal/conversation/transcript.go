package conversation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wolfman30/clinic-booking-agent/internal/tools"
)

// ErrDuplicateToolResult is returned when a call id already has a result in
// the transcript.
var ErrDuplicateToolResult = errors.New("conversation: duplicate tool result")

// Turn is one entry of a turn's transcript: a UserTurn, AssistantTurn or
// ToolResultTurn.
type Turn interface {
	isTurn()
}

type UserTurn struct {
	Content string
}

type AssistantTurn struct {
	Content   string
	ToolCalls []tools.Call
}

type ToolResultTurn struct {
	Result tools.Result
}

func (UserTurn) isTurn()       {}
func (AssistantTurn) isTurn()  {}
func (ToolResultTurn) isTurn() {}

// Transcript is the append-only record of one agent turn. It owns the only
// path for adding tool results, so a call id can appear at most once.
type Transcript struct {
	turns   []Turn
	results map[string]bool
}

func NewTranscript(userMessage string) *Transcript {
	return &Transcript{
		turns:   []Turn{UserTurn{Content: userMessage}},
		results: make(map[string]bool),
	}
}

func (t *Transcript) AppendAssistant(content string, calls []tools.Call) {
	t.turns = append(t.turns, AssistantTurn{Content: content, ToolCalls: calls})
}

// AppendResult records a tool result once per call id.
func (t *Transcript) AppendResult(res tools.Result) error {
	if t.results[res.CallID] {
		return fmt.Errorf("%w: %s", ErrDuplicateToolResult, res.CallID)
	}
	t.results[res.CallID] = true
	t.turns = append(t.turns, ToolResultTurn{Result: res})
	return nil
}

// HasResult reports whether callID already has a result.
func (t *Transcript) HasResult(callID string) bool { return t.results[callID] }

func (t *Transcript) Turns() []Turn {
	return append([]Turn(nil), t.turns...)
}

// Results returns tool results in the order they were appended.
func (t *Transcript) Results() []tools.Result {
	var out []tools.Result
	for _, turn := range t.turns {
		if tr, ok := turn.(ToolResultTurn); ok {
			out = append(out, tr.Result)
		}
	}
	return out
}

// Messages converts the transcript into provider-neutral chat messages.
// Tool payloads are sent as JSON.
func (t *Transcript) Messages() []ChatMessage {
	out := make([]ChatMessage, 0, len(t.turns))
	for _, turn := range t.turns {
		switch v := turn.(type) {
		case UserTurn:
			out = append(out, ChatMessage{Role: ChatRoleUser, Content: v.Content})
		case AssistantTurn:
			out = append(out, ChatMessage{Role: ChatRoleAssistant, Content: v.Content, ToolCalls: v.ToolCalls})
		case ToolResultTurn:
			out = append(out, ChatMessage{
				Role:       ChatRoleTool,
				Content:    payloadJSON(v.Result.Payload),
				ToolCallID: v.Result.CallID,
				ToolName:   v.Result.ToolName,
				ToolFailed: !v.Result.OK,
			})
		}
	}
	return out
}

func payloadJSON(payload any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return string(raw)
}
