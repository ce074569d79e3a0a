package conversation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-agent/internal/tools"
)

func TestTranscript_RejectsDuplicateResult(t *testing.T) {
	tr := NewTranscript("hello")
	tr.AppendAssistant("", []tools.Call{{ID: "c1", Name: "list_doctors"}})

	require.NoError(t, tr.AppendResult(tools.Result{CallID: "c1", ToolName: "list_doctors", OK: true}))
	err := tr.AppendResult(tools.Result{CallID: "c1", ToolName: "list_doctors", OK: true})
	assert.True(t, errors.Is(err, ErrDuplicateToolResult))
	assert.Len(t, tr.Results(), 1)
	assert.Len(t, tr.Turns(), 3)
}

func TestTranscript_Messages(t *testing.T) {
	tr := NewTranscript("book me")
	tr.AppendAssistant("checking", []tools.Call{{ID: "c1", Name: "book_appointment"}})
	require.NoError(t, tr.AppendResult(tools.Result{
		CallID: "c1", ToolName: "book_appointment",
		Payload: map[string]any{"success": false, "error": "closed"},
	}))

	msgs := tr.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, ChatMessage{Role: ChatRoleUser, Content: "book me"}, msgs[0])
	assert.Equal(t, "checking", msgs[1].Content)
	assert.Equal(t, ChatRoleTool, msgs[2].Role)
	assert.JSONEq(t, `{"success":false,"error":"closed"}`, msgs[2].Content)
	assert.True(t, msgs[2].ToolFailed)
	assert.Equal(t, "book_appointment", msgs[2].ToolName)
}

func TestSynthesize_Fallbacks(t *testing.T) {
	reg := tools.NewRegistry(nil)
	got := synthesize(reg, []tools.Result{{ToolName: "silent", OK: true}})
	assert.Equal(t, "I completed 1 action, but I don't have anything more to add. How else can I help?", got)
}
