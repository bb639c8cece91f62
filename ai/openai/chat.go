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

package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/folio/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// toolChoiceAuto lets the model decide whether to call a declared tool.
const toolChoiceAuto = "auto"

// ChatModel implements ai.ChatModel using OpenAI-compatible chat APIs.
type ChatModel struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

var _ ai.ChatModel = (*ChatModel)(nil)

// newChatModel is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newChatModel(config *ai.Config) (*ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.Token()),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return newChatModelWithClient(client, config.Temperature), nil
}

// newChatModelWithClient wraps an existing llms.Model.
func newChatModelWithClient(client llms.Model, temperature float64) *ChatModel {
	return &ChatModel{
		client:      client,
		temperature: temperature,
		logger:      slog.Default().With("component", "openai-chat"),
	}
}

// NewChatModel creates a new chat model using the provided configuration.
//
// Returns ai.ChatModel interface to enforce abstraction.
func NewChatModel(config *ai.Config) (ai.ChatModel, error) {
	return newChatModel(config)
}

// Complete sends the transcript with the declared tools and returns the assistant turn.
func (c *ChatModel) Complete(ctx context.Context, messages []ai.Message, tools []ai.ToolDefinition) (*ai.Message, error) {
	content, err := toMessageContent(messages)
	if err != nil {
		return nil, err
	}

	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(toLLMTools(tools)), llms.WithToolChoice(toolChoiceAuto))
	}

	c.logger.Debug("requesting completion", "messages", len(messages), "tools", len(tools))
	response, err := c.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		c.logger.Error("failed to generate content", "err", err)
		return nil, fmt.Errorf("%w: %w", ai.ErrProvider, err)
	}

	if len(response.Choices) < 1 {
		return nil, fmt.Errorf("%w: %w: no choices returned", ai.ErrProvider, ai.ErrEmptyResponse)
	}

	reply := fromChoice(response.Choices[0])
	c.logger.Debug("received completion", "toolCalls", len(reply.ToolCalls), "length", len(reply.Content))
	return reply, nil
}

// toMessageContent converts transcript turns into langchaingo messages.
func toMessageContent(messages []ai.Message) ([]llms.MessageContent, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
		case ai.RoleUser:
			content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case ai.RoleAssistant:
			parts := make([]llms.ContentPart, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				parts = append(parts, llms.TextPart(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, llms.ToolCall{
					ID:   call.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			content = append(content, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts})
		case ai.RoleTool:
			content = append(content, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: msg.ToolCallID,
						Name:       msg.Name,
						Content:    msg.Content,
					},
				},
			})
		default:
			return nil, fmt.Errorf("message %d: unsupported role %q", i, msg.Role)
		}
	}
	return content, nil
}

// toLLMTools converts tool declarations into langchaingo function tools.
func toLLMTools(tools []ai.ToolDefinition) []llms.Tool {
	out := make([]llms.Tool, len(tools))
	for i, tool := range tools {
		out[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		}
	}
	return out
}

// fromChoice converts a completion choice into an assistant turn.
func fromChoice(choice *llms.ContentChoice) *ai.Message {
	reply := &ai.Message{
		Role:    ai.RoleAssistant,
		Content: choice.Content,
	}
	for _, call := range choice.ToolCalls {
		if call.FunctionCall == nil {
			continue
		}
		reply.ToolCalls = append(reply.ToolCalls, ai.ToolCall{
			ID:        call.ID,
			Name:      call.FunctionCall.Name,
			Arguments: normalizeArguments(call.FunctionCall.Arguments),
		})
	}
	return reply
}
