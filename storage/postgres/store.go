package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
)

const metadataTable = "folio_collections"

// MissingText replaces a NULL text column in query results.
const MissingText = "N/A"

const (
	createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS vector`
	createMetadataSQL  = `CREATE TABLE IF NOT EXISTS ` + metadataTable + ` (
	name TEXT PRIMARY KEY,
	model TEXT NOT NULL,
	dimension INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
)

// bootstrapStatements prepares a database for collections. The namespace
// schema is created first because it heads the connection's search_path and
// receives the extension and the metadata table.
func bootstrapStatements(namespace string) []string {
	var stmts []string
	if namespace != "" {
		stmts = append(stmts, `CREATE SCHEMA IF NOT EXISTS `+pq.QuoteIdentifier(namespace))
	}
	return append(stmts, createExtensionSQL, createMetadataSQL)
}

// Store implements storage.VectorStore on Postgres with pgvector.
// Each collection is a table with a vector(N) column; similarity is
// computed server-side with the cosine distance operator.
type Store struct {
	db      *sql.DB
	ownsDB  bool
	schemas sync.Map // collection name -> *core.CollectionSchema
	logger  *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// Open connects to Postgres, prepares the metadata table and returns a vector store.
// Closing the store closes the connection pool.
func Open(ctx context.Context, config *Config) (storage.VectorStore, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrStore, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect %s:%d: %w", storage.ErrStore, config.Host, config.Port, err)
	}

	store, err := newStore(ctx, db, config.Namespace, true)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStoreWithDB creates a vector store on an existing connection pool.
// A non-empty namespace is created if missing; it must match the pool's
// search_path. The caller remains responsible for closing db.
func NewStoreWithDB(ctx context.Context, db *sql.DB, namespace string) (storage.VectorStore, error) {
	return newStore(ctx, db, namespace, false)
}

func newStore(ctx context.Context, db *sql.DB, namespace string, ownsDB bool) (*Store, error) {
	for _, stmt := range bootstrapStatements(namespace) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("%w: bootstrap: %w", storage.ErrStore, err)
		}
	}

	return &Store{
		db:     db,
		ownsDB: ownsDB,
		logger: slog.Default().With("component", "postgres-store"),
	}, nil
}

// Close closes the connection pool if the store owns it.
func (s *Store) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// EnsureCollection creates the collection schema and table if absent or verifies the existing schema.
func (s *Store) EnsureCollection(ctx context.Context, schema *core.CollectionSchema) (*core.CollectionSchema, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: schema is nil", core.ErrInvalidArgument)
	}
	if err := storage.ValidateCollectionName(schema.Name); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	if schema.Model == "" || schema.Dimension <= 0 {
		return nil, fmt.Errorf("%w: schema requires a model and a positive dimension", core.ErrInvalidArgument)
	}

	return s.ensureSchema(ctx, schema.Name, schema.Model, schema.Dimension)
}

func (s *Store) ensureSchema(ctx context.Context, collection, model string, dimension int) (*core.CollectionSchema, error) {
	if cached, ok := s.schemas.Load(collection); ok {
		schema := cached.(*core.CollectionSchema)
		if !schema.Compatible(model, dimension) {
			return nil, mismatch(schema, model, dimension)
		}
		return schema, nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+metadataTable+` (name, model, dimension) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
		collection, model, dimension)
	if err != nil {
		return nil, err
	}

	schema, err := s.readSchema(ctx, collection)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFound, collection)
	}
	if !schema.Compatible(model, dimension) {
		return nil, mismatch(schema, model, dimension)
	}

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	text TEXT,
	embedding vector(%d) NOT NULL,
	inserted_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, pq.QuoteIdentifier(collection), schema.Dimension)
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return nil, err
	}

	s.schemas.Store(collection, schema)
	s.logger.Debug("collection ready", "collection", collection, "model", schema.Model, "dimension", schema.Dimension)
	return schema, nil
}

// readSchema loads a collection schema. Returns nil if the collection does not exist.
func (s *Store) readSchema(ctx context.Context, collection string) (*core.CollectionSchema, error) {
	if cached, ok := s.schemas.Load(collection); ok {
		return cached.(*core.CollectionSchema), nil
	}

	schema := &core.CollectionSchema{Name: collection}
	err := s.db.QueryRowContext(ctx,
		`SELECT model, dimension, created_at FROM `+metadataTable+` WHERE name = $1`,
		collection).Scan(&schema.Model, &schema.Dimension, &schema.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	schema.CreatedAt = schema.CreatedAt.UTC()
	return schema, nil
}

// Put inserts a single record with one INSERT statement.
func (s *Store) Put(ctx context.Context, collection string, record *core.Record) error {
	if err := storage.ValidateCollectionName(collection); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	if err := core.ValidateRecord(record); err != nil {
		return err
	}

	if _, err := s.ensureSchema(ctx, collection, record.Model, len(record.Vector)); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStoreWrite, err)
	}

	var (
		id         int64
		insertedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (text, embedding) VALUES ($1, $2::vector) RETURNING id, inserted_at`, pq.QuoteIdentifier(collection)),
		record.Text, formatVector(record.Vector)).Scan(&id, &insertedAt)
	if err != nil {
		s.logger.Error("failed to store record", "collection", collection, "err", err)
		return fmt.Errorf("%w: %w", storage.ErrStoreWrite, err)
	}

	record.ID = core.ID(id)
	record.InsertedAt = insertedAt.UTC()
	return nil
}

// QueryTopN ranks records by cosine similarity on the server.
// Returned records carry ID, text and model; vectors are not read back.
func (s *Store) QueryTopN(ctx context.Context, collection string, vector []float32, n int) ([]*core.SearchResult, error) {
	if err := core.ValidateTopN(n); err != nil {
		return nil, err
	}
	if err := storage.ValidateCollectionName(collection); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}

	schema, err := s.readSchema(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrStore, err)
	}
	if err := core.ValidateQueryVector(schema, vector); err != nil {
		return nil, err
	}
	if schema == nil {
		return []*core.SearchResult{}, nil
	}

	query := fmt.Sprintf(
		`SELECT id, text, 1 - (embedding <=> $1::vector) AS cosine_similarity FROM %s ORDER BY cosine_similarity DESC, id ASC LIMIT $2`,
		pq.QuoteIdentifier(collection))

	rows, err := s.db.QueryContext(ctx, query, formatVector(vector), n)
	if err != nil {
		if isUndefinedTable(err) {
			return []*core.SearchResult{}, nil
		}
		return nil, fmt.Errorf("%w: %w", storage.ErrStore, err)
	}
	defer rows.Close()

	results := []*core.SearchResult{}
	for rows.Next() {
		var (
			id    int64
			text  sql.NullString
			score float64
		)
		if err := rows.Scan(&id, &text, &score); err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrStore, err)
		}

		record := &core.Record{ID: core.ID(id), Text: MissingText, Model: schema.Model}
		if text.Valid {
			record.Text = text.String
		}
		results = append(results, &core.SearchResult{Record: record, Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrStore, err)
	}

	return results, nil
}

// Info returns the collection schema and record count.
func (s *Store) Info(ctx context.Context, collection string) (*core.CollectionInfo, error) {
	if err := storage.ValidateCollectionName(collection); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}

	schema, err := s.readSchema(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrStore, err)
	}

	info := &core.CollectionInfo{Schema: schema}
	if schema == nil {
		return info, nil
	}

	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, pq.QuoteIdentifier(collection))).Scan(&info.Count)
	if err != nil && !isUndefinedTable(err) {
		return nil, fmt.Errorf("%w: %w", storage.ErrStore, err)
	}
	return info, nil
}

func mismatch(schema *core.CollectionSchema, model string, dimension int) error {
	return fmt.Errorf("%w: collection %q holds %s/%d, got %s/%d",
		storage.ErrSchemaMismatch, schema.Name, schema.Model, schema.Dimension, model, dimension)
}

// formatVector renders a vector as a pgvector text literal, e.g. [1,0.5,-2].
func formatVector(vector []float32) string {
	var b strings.Builder
	b.Grow(len(vector) * 8)
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// isUndefinedTable reports a Postgres undefined_table (42P01) error.
func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P01"
}
