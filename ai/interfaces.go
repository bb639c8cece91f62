package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Empty or whitespace-only text fails with core.ErrInvalidInput.
	// Provider failures wrap ErrProvider.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the identifier of the embedding model.
	Model() string
}

// ChatModel produces the next assistant turn for a conversation.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	// Complete sends the transcript and the declared tools to the model, letting
	// it decide whether to call a tool. The returned message has RoleAssistant
	// and carries zero or more ToolCalls.
	// Provider failures wrap ErrProvider.
	Complete(ctx context.Context, messages []Message, tools []ToolDefinition) (*Message, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// ChatModel returns the conversation model.
	ChatModel() ChatModel

	// Close releases resources held by the provider and its services.
	Close() error
}
