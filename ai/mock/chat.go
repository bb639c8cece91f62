package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/poiesic/folio/ai"
)

// ErrScriptExhausted is returned when a MockChatModel runs out of scripted replies.
var ErrScriptExhausted = errors.New("mock chat model: no scripted reply left")

// MockChatModel is a test double for ai.ChatModel.
// It replays scripted assistant turns in order and records every request.
type MockChatModel struct {
	// CompleteFunc is called by Complete if set.
	// If nil, the next scripted reply is returned.
	CompleteFunc func(ctx context.Context, messages []ai.Message, tools []ai.ToolDefinition) (*ai.Message, error)

	mu      sync.Mutex
	replies []*ai.Message
	calls   [][]ai.Message
	tools   [][]ai.ToolDefinition
}

// NewMockChatModel creates a chat model that returns the given replies in order.
// Once they run out, Complete returns ErrScriptExhausted.
func NewMockChatModel(replies ...*ai.Message) *MockChatModel {
	return &MockChatModel{replies: replies}
}

// Script appends further replies to the queue.
func (m *MockChatModel) Script(replies ...*ai.Message) *MockChatModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
	return m
}

// Complete records the request and returns the next scripted reply.
func (m *MockChatModel) Complete(ctx context.Context, messages []ai.Message, tools []ai.ToolDefinition) (*ai.Message, error) {
	m.mu.Lock()
	snapshot := make([]ai.Message, len(messages))
	copy(snapshot, messages)
	m.calls = append(m.calls, snapshot)
	m.tools = append(m.tools, tools)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if fn != nil {
		return fn(ctx, messages, tools)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return nil, ErrScriptExhausted
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]

	out := *reply
	if out.Role == "" {
		out.Role = ai.RoleAssistant
	}
	return &out, nil
}

// CallCount returns the number of Complete invocations.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns the transcripts sent on each invocation.
func (m *MockChatModel) Calls() [][]ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]ai.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// Tools returns the tool declarations sent on each invocation.
func (m *MockChatModel) Tools() [][]ai.ToolDefinition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]ai.ToolDefinition, len(m.tools))
	copy(out, m.tools)
	return out
}

// Reply builds a final assistant turn with text content.
func Reply(content string) *ai.Message {
	return &ai.Message{Role: ai.RoleAssistant, Content: content}
}

// CallTools builds an assistant turn that requests the given tool calls.
func CallTools(calls ...ai.ToolCall) *ai.Message {
	return &ai.Message{Role: ai.RoleAssistant, ToolCalls: calls}
}
