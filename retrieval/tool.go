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

package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/folio/ai"
	"github.com/poiesic/folio/core"
	"github.com/xeipuuv/gojsonschema"
)

const (
	// ToolName is the name the model uses to call the retrieval tool.
	ToolName = "retrieve"

	// DefaultTopN is the number of passages returned per tool call.
	DefaultTopN = 1

	toolDescription = "Retrieve passages from the complete works of Shakespeare that are most similar to the query."
)

// toolParameters is the JSON schema of the tool's arguments.
var toolParameters = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "Text to search for, such as a quotation, a character or a theme.",
			"minLength":   1,
			"pattern":     `\S`,
		},
	},
	"required": []any{"query"},
}

type toolArguments struct {
	Query string `json:"query"`
}

type toolResult struct {
	Text []Passage `json:"text"`
}

// Tool exposes a Retriever to a chat model.
// Call results have the shape {"text":[{"text":"..."}]}.
type Tool struct {
	retriever *Retriever
	topN      int
	failFast  bool
	schema    *gojsonschema.Schema
	logger    *slog.Logger
}

// ToolOption configures a Tool.
type ToolOption func(*Tool)

// WithTopN sets how many passages each call returns.
func WithTopN(n int) ToolOption {
	return func(t *Tool) {
		t.topN = n
	}
}

// WithFailFast makes embedding and store failures abort the call.
// By default they are logged and the call returns an empty result.
func WithFailFast() ToolOption {
	return func(t *Tool) {
		t.failFast = true
	}
}

// NewTool wraps retriever as a callable tool.
func NewTool(retriever *Retriever, opts ...ToolOption) (*Tool, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(toolParameters))
	if err != nil {
		return nil, fmt.Errorf("compile tool schema: %w", err)
	}

	t := &Tool{
		retriever: retriever,
		topN:      DefaultTopN,
		schema:    schema,
		logger:    slog.Default().With("component", "retrieval-tool"),
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := core.ValidateTopN(t.topN); err != nil {
		return nil, err
	}
	return t, nil
}

// Definition declares the tool to the chat model.
func (t *Tool) Definition() ai.ToolDefinition {
	return ai.ToolDefinition{
		Name:        ToolName,
		Description: toolDescription,
		Parameters:  toolParameters,
	}
}

// Call validates the JSON arguments, retrieves passages and returns them as JSON.
// Malformed arguments fail with core.ErrInvalidInput.
func (t *Tool) Call(ctx context.Context, arguments string) (string, error) {
	args, err := t.parseArguments(arguments)
	if err != nil {
		return "", err
	}

	passages, err := t.retriever.Retrieve(ctx, args.Query, t.topN)
	if err != nil {
		if t.failFast || errors.Is(err, core.ErrInvalidInput) || errors.Is(err, core.ErrInvalidArgument) {
			return "", err
		}
		t.logger.Warn("retrieval failed, returning empty result", "query", core.TextPrefix(args.Query, 80), "err", err)
		passages = nil
	}

	if passages == nil {
		passages = []Passage{}
	}
	out, err := json.Marshal(toolResult{Text: passages})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (t *Tool) parseArguments(arguments string) (*toolArguments, error) {
	result, err := t.schema.Validate(gojsonschema.NewStringLoader(arguments))
	if err != nil {
		return nil, fmt.Errorf("%w: tool arguments: %w", core.ErrInvalidInput, err)
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("%w: tool arguments: %s", core.ErrInvalidInput, strings.Join(details, "; "))
	}

	var args toolArguments
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, fmt.Errorf("%w: tool arguments: %w", core.ErrInvalidInput, err)
	}
	return &args, nil
}
