// Package ingestion builds the searchable corpus from raw text.
//
// The Pipeline type manages the ingestion workflow:
//   - Fetching raw text from a Source (HTTP, file, or memory)
//   - Splitting it into chunks with the chunker package
//   - Embedding each chunk and storing it as a record in a collection
//
// Chunks are processed concurrently using an ants worker pool, in batches
// embedded with a single EmbedTexts request. A batch whose request fails is
// embedded chunk by chunk instead. Embedding and
// storing are retried with exponential backoff; a chunk that still fails is
// logged with its ID and a short text prefix, collected in the Report, and
// does not affect its siblings. Only a source fetch failure aborts a run.
package ingestion
