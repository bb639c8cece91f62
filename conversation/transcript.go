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
	"encoding/json"
	"fmt"
	"slices"

	"github.com/poiesic/folio/ai"
)

// Transcript is the append-only record of a conversation.
//
// Append enforces two invariants: every tool turn answers exactly one
// not-yet-answered tool call of the most recent assistant turn, and no
// other turn may follow an assistant turn until all its calls are answered.
type Transcript struct {
	messages []ai.Message
}

// NewTranscript starts a transcript with an optional system turn and a user turn.
func NewTranscript(systemPrompt, userPrompt string) *Transcript {
	t := &Transcript{}
	if systemPrompt != "" {
		t.messages = append(t.messages, ai.SystemMessage(systemPrompt))
	}
	if userPrompt != "" {
		t.messages = append(t.messages, ai.UserMessage(userPrompt))
	}
	return t
}

// Append adds a turn to the end of the transcript.
func (t *Transcript) Append(msg ai.Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidTurn, msg.Role)
	}

	pending := t.PendingToolCalls()

	if msg.Role != ai.RoleTool {
		if len(pending) > 0 {
			return fmt.Errorf("%w: %d call(s) awaiting a tool turn", ErrPendingToolCalls, len(pending))
		}
		if msg.Role == ai.RoleAssistant {
			if err := checkCallIDs(msg.ToolCalls); err != nil {
				return err
			}
		}
		t.messages = append(t.messages, cloneMessage(msg))
		return nil
	}

	i := slices.IndexFunc(pending, func(c ai.ToolCall) bool { return c.ID == msg.ToolCallID })
	if i < 0 {
		return fmt.Errorf("%w: tool turn %q does not answer a pending call", ErrInvalidTurn, msg.ToolCallID)
	}
	call := pending[i]
	if msg.Name == "" {
		msg.Name = call.Name
	} else if msg.Name != call.Name {
		return fmt.Errorf("%w: tool turn %q is named %q, call was to %q", ErrInvalidTurn, msg.ToolCallID, msg.Name, call.Name)
	}

	t.messages = append(t.messages, cloneMessage(msg))
	return nil
}

// PendingToolCalls returns the calls of the most recent assistant turn that
// have no tool turn yet, in request order.
func (t *Transcript) PendingToolCalls() []ai.ToolCall {
	last := -1
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == ai.RoleAssistant {
			last = i
			break
		}
	}
	if last < 0 || len(t.messages[last].ToolCalls) == 0 {
		return nil
	}

	answered := make(map[string]bool)
	for _, msg := range t.messages[last+1:] {
		if msg.Role != ai.RoleTool {
			return nil
		}
		answered[msg.ToolCallID] = true
	}

	var pending []ai.ToolCall
	for _, call := range t.messages[last].ToolCalls {
		if !answered[call.ID] {
			pending = append(pending, call)
		}
	}
	return pending
}

// Messages returns a copy of the turns in order.
func (t *Transcript) Messages() []ai.Message {
	out := make([]ai.Message, len(t.messages))
	for i, msg := range t.messages {
		out[i] = cloneMessage(msg)
	}
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Last returns the most recent turn.
func (t *Transcript) Last() (ai.Message, bool) {
	if len(t.messages) == 0 {
		return ai.Message{}, false
	}
	return cloneMessage(t.messages[len(t.messages)-1]), true
}

// Validate replays every turn through Append to check the invariants.
func (t *Transcript) Validate() error {
	replay := &Transcript{}
	for i, msg := range t.messages {
		if err := replay.Append(msg); err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}
	}
	return nil
}

// MarshalJSON encodes the transcript as an array of turns.
func (t *Transcript) MarshalJSON() ([]byte, error) {
	if t.messages == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.messages)
}

// UnmarshalJSON decodes an array of turns and validates it.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	var messages []ai.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return err
	}
	candidate := &Transcript{messages: messages}
	if err := candidate.Validate(); err != nil {
		return err
	}
	t.messages = messages
	return nil
}

func checkCallIDs(calls []ai.ToolCall) error {
	seen := make(map[string]bool, len(calls))
	for _, call := range calls {
		if call.ID == "" {
			return fmt.Errorf("%w: tool call to %q has no id", ErrInvalidTurn, call.Name)
		}
		if seen[call.ID] {
			return fmt.Errorf("%w: duplicate tool call id %q", ErrInvalidTurn, call.ID)
		}
		seen[call.ID] = true
	}
	return nil
}

func cloneMessage(msg ai.Message) ai.Message {
	msg.ToolCalls = slices.Clone(msg.ToolCalls)
	return msg
}
