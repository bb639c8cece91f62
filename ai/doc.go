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

// Package ai provides abstractions for the AI services used by folio.
//
// Two capabilities are needed: turning text into embedding vectors, and
// producing the next assistant turn of a tool-calling conversation.
//
//   - Embedder: Generates vector embeddings from text
//   - ChatModel: Completes a transcript, optionally requesting tool calls
//   - AIProvider: Aggregates both for convenient initialization
//
// The ai/openai sub-package implements them against OpenAI-compatible APIs;
// ai/mock provides deterministic test doubles.
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// interface types. Mock constructors return concrete types so tests can
// inject behavior and inspect calls.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithAPIKey(key)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Once more unto the breach")
package ai
