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

package folio

import (
	"log/slog"
	"strings"

	"github.com/poiesic/folio/ai"
	"github.com/poiesic/folio/ai/openai"
	"github.com/poiesic/folio/conversation"
	"github.com/poiesic/folio/ingestion"
	"github.com/poiesic/folio/retrieval"
	"github.com/poiesic/folio/storage"
	"github.com/poiesic/folio/storage/badger"
)

// DefaultCollection is the collection passages are stored in.
const DefaultCollection = "text_embeddings"

// Library wires a vector store and an AI provider for one collection.
type Library struct {
	store      storage.VectorStore
	provider   ai.AIProvider
	collection string
	toolOpts   []retrieval.ToolOption
	logger     *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*libraryOptions)

type libraryOptions struct {
	aiConfig   *ai.Config
	provider   ai.AIProvider
	store      storage.VectorStore
	collection string
	toolOpts   []retrieval.ToolOption
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) LibraryOption {
	return func(o *libraryOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The library closes it on Close.
func WithProvider(provider ai.AIProvider) LibraryOption {
	return func(o *libraryOptions) {
		o.provider = provider
	}
}

// WithStore uses store instead of opening a badger store at the given path.
// The library closes it on Close.
func WithStore(store storage.VectorStore) LibraryOption {
	return func(o *libraryOptions) {
		o.store = store
	}
}

// WithCollection sets the collection name.
// Default is DefaultCollection.
func WithCollection(name string) LibraryOption {
	return func(o *libraryOptions) {
		o.collection = name
	}
}

// WithRetrievalOptions configures the retrieval tool handed to sessions.
func WithRetrievalOptions(opts ...retrieval.ToolOption) LibraryOption {
	return func(o *libraryOptions) {
		o.toolOpts = append(o.toolOpts, opts...)
	}
}

// Open creates a Library. Unless WithStore is given, a badger store is opened at filePath.
func Open(filePath string, opts ...LibraryOption) (*Library, error) {
	options := &libraryOptions{
		aiConfig:   ai.DefaultConfig(),
		collection: DefaultCollection,
	}
	for _, opt := range opts {
		opt(options)
	}

	if err := storage.ValidateCollectionName(options.collection); err != nil {
		return nil, err
	}

	store := options.store
	if store == nil {
		var err error
		store, err = badger.NewStore(filePath)
		if err != nil {
			return nil, err
		}
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	return &Library{
		store:      store,
		provider:   provider,
		collection: options.collection,
		logger:     slog.Default().With("component", "library"),
		toolOpts:   options.toolOpts,
	}, nil
}

// Close releases the provider and the store.
func (l *Library) Close() error {
	if err := l.provider.Close(); err != nil {
		l.logger.Error("error closing AI provider", "err", err)
	}

	if err := l.store.Close(); err != nil {
		l.logger.Error("error closing vector store", "err", err)
		return err
	}
	return nil
}

func (l *Library) Store() storage.VectorStore {
	return l.store
}

func (l *Library) Provider() ai.AIProvider {
	return l.provider
}

func (l *Library) Collection() string {
	return l.collection
}

func (l *Library) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(l.store, l.provider.Embedder(), l.collection, opts...)
}

func (l *Library) NewRetriever(opts ...retrieval.Option) (*retrieval.Retriever, error) {
	return retrieval.NewRetriever(l.store, l.provider.Embedder(), l.collection, opts...)
}

// NewRetrievalTool builds the retrieval tool with the library's retrieval
// options followed by opts.
func (l *Library) NewRetrievalTool(opts ...retrieval.ToolOption) (*retrieval.Tool, error) {
	retriever, err := l.NewRetriever()
	if err != nil {
		return nil, err
	}
	all := append(append([]retrieval.ToolOption{}, l.toolOpts...), opts...)
	return retrieval.NewTool(retriever, all...)
}

// NewSession starts a conversation about question with the retrieval tool
// and the default Shakespearean system prompt. An empty question asks
// conversation.DefaultUserPrompt.
func (l *Library) NewSession(question string, opts ...conversation.Option) (*conversation.Session, error) {
	if strings.TrimSpace(question) == "" {
		question = conversation.DefaultUserPrompt
	}

	tool, err := l.NewRetrievalTool()
	if err != nil {
		return nil, err
	}

	return conversation.NewSession(
		l.provider.ChatModel(),
		conversation.DefaultSystemPrompt(retrieval.ToolName),
		question,
		[]conversation.Tool{tool},
		opts...,
	)
}
