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

import "errors"

var (
	// ErrModelRequired is returned when a session is created without a chat model.
	ErrModelRequired = errors.New("chat model required")

	// ErrDuplicateTool is returned when two tools declare the same name.
	ErrDuplicateTool = errors.New("duplicate tool name")

	// ErrLoopLimitExceeded is returned when the model keeps requesting tools
	// after the configured number of tool rounds.
	ErrLoopLimitExceeded = errors.New("tool loop limit exceeded")

	// ErrUnknownTool is returned in strict mode when the model calls an undeclared tool.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrToolFailed wraps an error returned by a tool.
	ErrToolFailed = errors.New("tool call failed")

	// ErrInvalidTurn is returned when appending a turn would break transcript ordering.
	ErrInvalidTurn = errors.New("invalid transcript turn")

	// ErrPendingToolCalls is returned when a non-tool turn is appended, or the
	// model invoked, while the latest assistant turn has unanswered tool calls.
	ErrPendingToolCalls = errors.New("unanswered tool calls")

	// ErrNotTerminal is returned by Ask when the previous exchange has not finished.
	ErrNotTerminal = errors.New("session is not terminal")

	// ErrSessionFailed is returned when running a session that was aborted by an earlier error.
	ErrSessionFailed = errors.New("session failed")
)
