// Package retrieval answers similarity queries against an ingested collection
// and exposes them to a chat model as the "retrieve" tool.
//
// A Retriever embeds the query text and asks the vector store for the top-N
// most similar records. Tool wraps a Retriever with a JSON schema for its
// arguments and serializes results as {"text":[{"text":"..."}]}.
//
//	retriever, err := retrieval.NewRetriever(store, embedder, "text_embeddings")
//	tool, err := retrieval.NewTool(retriever, retrieval.WithTopN(3))
//	result, err := tool.Call(ctx, `{"query":"To be or not to be"}`)
package retrieval
