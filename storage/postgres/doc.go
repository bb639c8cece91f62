// Package postgres implements storage.VectorStore on Postgres with the
// pgvector extension, using database/sql and the lib/pq driver.
//
// Collection metadata (model and dimension) lives in the folio_collections
// table. Each collection is its own table with a vector(N) column; the
// similarity query is fully parameterized and ranks by cosine similarity:
//
//	SELECT id, text, 1 - (embedding <=> $1::vector) AS cosine_similarity
//	FROM "<collection>" ORDER BY cosine_similarity DESC, id ASC LIMIT $2
//
// Collection names are validated and quoted with pq.QuoteIdentifier.
// The namespace from Config is created if missing and applied as the
// connection search_path.
package postgres
