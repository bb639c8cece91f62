package conversation

import (
	"encoding/json"
	"testing"

	"github.com/poiesic/folio/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assistantCalling(calls ...ai.ToolCall) ai.Message {
	return ai.Message{Role: ai.RoleAssistant, ToolCalls: calls}
}

func TestNewTranscript(t *testing.T) {
	tr := NewTranscript("be Shakespearean", "hello")
	require.Equal(t, 2, tr.Len())
	msgs := tr.Messages()
	assert.Equal(t, ai.RoleSystem, msgs[0].Role)
	assert.Equal(t, ai.RoleUser, msgs[1].Role)

	assert.Equal(t, 1, NewTranscript("", "hello").Len())
}

func TestTranscript_ToolTurnCorrelation(t *testing.T) {
	tr := NewTranscript("sys", "user")
	a := ai.ToolCall{ID: "a", Name: "retrieve", Arguments: `{"query":"x"}`}
	b := ai.ToolCall{ID: "b", Name: "retrieve", Arguments: `{"query":"y"}`}
	require.NoError(t, tr.Append(assistantCalling(a, b)))

	assert.Equal(t, []ai.ToolCall{a, b}, tr.PendingToolCalls())

	// Unknown call id
	err := tr.Append(ai.Message{Role: ai.RoleTool, ToolCallID: "zzz", Content: "{}"})
	assert.ErrorIs(t, err, ErrInvalidTurn)

	// Name must match the call
	err = tr.Append(ai.Message{Role: ai.RoleTool, ToolCallID: "a", Name: "other", Content: "{}"})
	assert.ErrorIs(t, err, ErrInvalidTurn)

	// Non-tool turn while calls are pending
	err = tr.Append(ai.UserMessage("impatient"))
	assert.ErrorIs(t, err, ErrPendingToolCalls)

	require.NoError(t, tr.Append(ai.ToolMessage(b, "{}")))
	assert.Equal(t, []ai.ToolCall{a}, tr.PendingToolCalls())

	// Each call is answered at most once
	err = tr.Append(ai.ToolMessage(b, "{}"))
	assert.ErrorIs(t, err, ErrInvalidTurn)

	// Name is filled from the call when omitted
	require.NoError(t, tr.Append(ai.Message{Role: ai.RoleTool, ToolCallID: "a", Content: "{}"}))
	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, "retrieve", last.Name)

	assert.Empty(t, tr.PendingToolCalls())
	require.NoError(t, tr.Append(ai.Message{Role: ai.RoleAssistant, Content: "Done."}))
	require.NoError(t, tr.Validate())
}

func TestTranscript_ToolTurnWithoutAssistant(t *testing.T) {
	tr := NewTranscript("sys", "user")
	err := tr.Append(ai.Message{Role: ai.RoleTool, ToolCallID: "a", Content: "{}"})
	assert.ErrorIs(t, err, ErrInvalidTurn)
}

func TestTranscript_RejectsBadAssistantCalls(t *testing.T) {
	tr := NewTranscript("sys", "user")

	err := tr.Append(assistantCalling(ai.ToolCall{Name: "retrieve"}))
	assert.ErrorIs(t, err, ErrInvalidTurn)

	err = tr.Append(assistantCalling(ai.ToolCall{ID: "x", Name: "a"}, ai.ToolCall{ID: "x", Name: "b"}))
	assert.ErrorIs(t, err, ErrInvalidTurn)

	err = tr.Append(ai.Message{Role: "narrator"})
	assert.ErrorIs(t, err, ErrInvalidTurn)

	assert.Equal(t, 2, tr.Len())
}

func TestTranscript_MessagesIsACopy(t *testing.T) {
	tr := NewTranscript("sys", "user")
	require.NoError(t, tr.Append(assistantCalling(ai.ToolCall{ID: "a", Name: "retrieve"})))

	msgs := tr.Messages()
	msgs[0].Content = "changed"
	msgs[2].ToolCalls[0].ID = "changed"

	fresh := tr.Messages()
	assert.Equal(t, "sys", fresh[0].Content)
	assert.Equal(t, "a", fresh[2].ToolCalls[0].ID)
}

func TestTranscript_JSON(t *testing.T) {
	call := ai.ToolCall{ID: "call_1", Name: "retrieve", Arguments: `{"query":"Hamlet"}`}
	tr := NewTranscript("sys", "user")
	require.NoError(t, tr.Append(assistantCalling(call)))
	require.NoError(t, tr.Append(ai.ToolMessage(call, `{"text":[]}`)))

	data, err := json.Marshal(tr)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tool_call_id":"call_1"`)

	var decoded Transcript
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, tr.Messages(), decoded.Messages())

	broken := `[{"role":"user","content":"x"},{"role":"tool","content":"{}","tool_call_id":"nope"}]`
	assert.ErrorIs(t, json.Unmarshal([]byte(broken), &decoded), ErrInvalidTurn)

	empty, err := json.Marshal(&Transcript{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}
