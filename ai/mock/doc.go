// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.ChatModel,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Fixed vectors for known texts
//	embedder := mock.NewMockEmbedder().WithVectors(map[string][]float32{
//	    "To be or not to be": {1, 0, 0},
//	})
//
//	// Scripted conversation
//	chat := mock.NewMockChatModel(
//	    mock.CallTools(ai.ToolCall{ID: "call_1", Name: "retrieve", Arguments: `{"query":"Hamlet"}`}),
//	    mock.Reply("The rest is silence."),
//	)
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockChatModel: Replays scripted replies, failing once the script is exhausted
//   - MockProvider: Aggregates mock embedder and chat model
package mock
