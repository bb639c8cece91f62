// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/folio/ai"
	"github.com/poiesic/folio/core"
)

// DefaultMaxToolRounds bounds how many times tools are executed in one Run.
const DefaultMaxToolRounds = 5

// Tool is a function the chat model may call.
type Tool interface {
	// Definition declares the tool's name, description and JSON schema.
	Definition() ai.ToolDefinition

	// Call executes the tool with JSON-encoded arguments and returns its result text.
	Call(ctx context.Context, arguments string) (string, error)
}

// State is the lifecycle position of a Session.
type State int

const (
	// StateAwaitingModel means the next step is a model invocation.
	StateAwaitingModel State = iota
	// StateTerminal means the model produced a reply without tool calls.
	StateTerminal
	// StateFailed means a run was aborted by an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateTerminal:
		return "terminal"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session drives one conversation between a user, a chat model and a set of tools.
// A Session is not safe for concurrent use.
type Session struct {
	model         ai.ChatModel
	tools         map[string]Tool
	definitions   []ai.ToolDefinition
	transcript    *Transcript
	maxToolRounds int
	strictTools   bool
	state         State
	logger        *slog.Logger
}

// Option configures a Session.
type Option func(*Session) error

// WithMaxToolRounds sets how many rounds of tool execution a single Run may
// perform. The model is invoked at most n+1 times per Run.
// Default is DefaultMaxToolRounds.
func WithMaxToolRounds(n int) Option {
	return func(s *Session) error {
		if n < 0 {
			return fmt.Errorf("%w: max tool rounds must not be negative", core.ErrInvalidArgument)
		}
		s.maxToolRounds = n
		return nil
	}
}

// WithStrictTools aborts the run when the model calls an undeclared tool.
// By default the call is answered with an error result so the model can recover.
func WithStrictTools() Option {
	return func(s *Session) error {
		s.strictTools = true
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "conversation")
		return nil
	}
}

// NewSession creates a session whose transcript starts with the given system
// and user turns. An empty system prompt omits the system turn.
func NewSession(model ai.ChatModel, systemPrompt, userPrompt string, tools []Tool, opts ...Option) (*Session, error) {
	if model == nil {
		return nil, ErrModelRequired
	}
	if err := core.ValidateText(userPrompt); err != nil {
		return nil, fmt.Errorf("user prompt: %w", err)
	}

	s := &Session{
		model:         model,
		tools:         make(map[string]Tool, len(tools)),
		transcript:    NewTranscript(systemPrompt, userPrompt),
		maxToolRounds: DefaultMaxToolRounds,
		state:         StateAwaitingModel,
		logger:        slog.Default().With("component", "conversation"),
	}

	for _, tool := range tools {
		def := tool.Definition()
		if _, exists := s.tools[def.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTool, def.Name)
		}
		s.tools[def.Name] = tool
		s.definitions = append(s.definitions, def)
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// State reports where the session is in its lifecycle.
func (s *Session) State() State {
	return s.state
}

// Transcript returns the session transcript.
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// Run alternates model invocations and tool executions until the model
// replies without tool calls. The transcript is returned even on error and
// holds every turn appended before the failure.
func (s *Session) Run(ctx context.Context) (*Transcript, error) {
	switch s.state {
	case StateTerminal:
		return s.transcript, nil
	case StateFailed:
		return s.transcript, ErrSessionFailed
	}

	if err := s.run(ctx); err != nil {
		s.state = StateFailed
		s.logger.Error("conversation aborted", "turns", s.transcript.Len(), "err", err)
		return s.transcript, err
	}

	s.state = StateTerminal
	return s.transcript, nil
}

// Ask appends a follow-up user turn to a finished exchange and runs again.
func (s *Session) Ask(ctx context.Context, content string) (*Transcript, error) {
	if s.state != StateTerminal {
		return s.transcript, fmt.Errorf("%w: %s", ErrNotTerminal, s.state)
	}
	if err := core.ValidateText(content); err != nil {
		return s.transcript, err
	}
	if err := s.transcript.Append(ai.UserMessage(content)); err != nil {
		return s.transcript, err
	}

	s.state = StateAwaitingModel
	return s.Run(ctx)
}

func (s *Session) run(ctx context.Context) error {
	for round := 0; ; round++ {
		if pending := s.transcript.PendingToolCalls(); len(pending) > 0 {
			return fmt.Errorf("%w: %d call(s) before model invocation", ErrPendingToolCalls, len(pending))
		}

		s.logger.Debug("invoking model", "round", round, "turns", s.transcript.Len())
		reply, err := s.model.Complete(ctx, s.transcript.Messages(), s.definitions)
		if err != nil {
			return fmt.Errorf("model completion: %w", err)
		}

		turn := *reply
		turn.Role = ai.RoleAssistant
		assignCallIDs(&turn, round)

		if err := s.transcript.Append(turn); err != nil {
			return err
		}

		if !turn.HasToolCalls() {
			s.logger.Debug("model replied", "round", round, "length", len(turn.Content))
			return nil
		}

		if round >= s.maxToolRounds {
			return fmt.Errorf("%w: model still requesting tools after %d round(s)", ErrLoopLimitExceeded, s.maxToolRounds)
		}

		for _, call := range turn.ToolCalls {
			content, err := s.execute(ctx, call)
			if err != nil {
				return err
			}
			if err := s.transcript.Append(ai.ToolMessage(call, content)); err != nil {
				return err
			}
		}
	}
}

// execute runs one tool call and returns the content of its tool turn.
func (s *Session) execute(ctx context.Context, call ai.ToolCall) (string, error) {
	tool, ok := s.tools[call.Name]
	if !ok {
		if s.strictTools {
			return "", fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
		}
		s.logger.Warn("model called unknown tool", "tool", call.Name, "call", call.ID)
		out, err := json.Marshal(map[string]string{"error": fmt.Sprintf("unknown tool %q", call.Name)})
		if err != nil {
			return "", err
		}
		return string(out), nil
	}

	s.logger.Debug("calling tool", "tool", call.Name, "call", call.ID)
	out, err := tool.Call(ctx, call.Arguments)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrToolFailed, call.Name, err)
	}
	return out, nil
}

// assignCallIDs gives calls without an ID a stable one so tool turns can reference them.
func assignCallIDs(turn *ai.Message, round int) {
	for i := range turn.ToolCalls {
		if strings.TrimSpace(turn.ToolCalls[i].ID) == "" {
			turn.ToolCalls[i].ID = fmt.Sprintf("call_%d_%d", round, i)
		}
	}
}
