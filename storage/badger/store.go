package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
)

// Store implements storage.VectorStore on BadgerDB.
// Similarity is computed while iterating a collection's key prefix.
type Store struct {
	backend     *Backend
	ownsBackend bool
	idSeq       *badger.Sequence
	// schemaMu serializes schema creation so the first write wins.
	schemaMu sync.Mutex
	logger   *slog.Logger
}

var _ storage.VectorStore = (*Store)(nil)

// NewStore opens (or creates) a BadgerDB directory and returns a vector store on it.
// Closing the store closes the database.
func NewStore(filePath string) (storage.VectorStore, error) {
	backend, err := OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	store, err := newStore(backend, true)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return store, nil
}

// NewStoreWithBackend creates a vector store on an existing backend.
// The caller remains responsible for closing the backend.
func NewStoreWithBackend(backend *Backend) (storage.VectorStore, error) {
	return newStore(backend, false)
}

func newStore(backend *Backend, ownsBackend bool) (*Store, error) {
	idSeq, err := backend.GetSequence(recordIDSeq)
	if err != nil {
		return nil, err
	}

	return &Store{
		backend:     backend,
		ownsBackend: ownsBackend,
		idSeq:       idSeq,
		logger:      slog.Default().With("component", "badger-store"),
	}, nil
}

// Close releases the ID sequence and, if owned, the database.
func (s *Store) Close() error {
	if err := s.idSeq.Release(); err != nil {
		return err
	}
	if s.ownsBackend {
		return s.backend.Close()
	}
	return nil
}

// EnsureCollection creates the collection schema if absent or verifies the existing one.
func (s *Store) EnsureCollection(ctx context.Context, schema *core.CollectionSchema) (*core.CollectionSchema, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, fmt.Errorf("%w: schema is nil", core.ErrInvalidArgument)
	}
	if err := storage.ValidateCollectionName(schema.Name); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	if schema.Model == "" || schema.Dimension <= 0 {
		return nil, fmt.Errorf("%w: schema requires a model and a positive dimension", core.ErrInvalidArgument)
	}

	return s.ensureSchema(schema.Name, schema.Model, schema.Dimension)
}

// ensureSchema returns the collection schema, creating it if it does not exist.
func (s *Store) ensureSchema(collection, model string, dimension int) (*core.CollectionSchema, error) {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	var result *core.CollectionSchema
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := readSchema(tx, collection)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.Compatible(model, dimension) {
				return fmt.Errorf("%w: collection %q holds %s/%d, got %s/%d",
					storage.ErrSchemaMismatch, collection, existing.Model, existing.Dimension, model, dimension)
			}
			result = existing
			return nil
		}

		created := &core.CollectionSchema{
			Name:      collection,
			Model:     model,
			Dimension: dimension,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Set(makeSchemaKey(collection), storage.MarshalSchema(created)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		s.logger.Info("created collection", "collection", collection, "model", model, "dimension", dimension)
		result = created
		return nil
	}, true)

	return result, err
}

// Put inserts a single record into the collection.
func (s *Store) Put(ctx context.Context, collection string, record *core.Record) error {
	if err := s.checkOpen(ctx); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStoreWrite, err)
	}
	if err := storage.ValidateCollectionName(collection); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	if err := core.ValidateRecord(record); err != nil {
		return err
	}

	if _, err := s.ensureSchema(collection, record.Model, len(record.Vector)); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStoreWrite, err)
	}

	id, err := s.nextID()
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStoreWrite, err)
	}

	stored := *record
	stored.ID = id
	stored.InsertedAt = time.Now().UTC()

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeRecordKey(collection, id), storage.MarshalRecord(&stored)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		s.logger.Error("failed to store record", "collection", collection, "err", err)
		return fmt.Errorf("%w: %w", storage.ErrStoreWrite, err)
	}

	record.ID = stored.ID
	record.InsertedAt = stored.InsertedAt
	return nil
}

// nextID returns the next record ID, skipping zero.
func (s *Store) nextID() (core.ID, error) {
	nextID, err := s.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		if nextID, err = s.idSeq.Next(); err != nil {
			return 0, err
		}
	}
	return core.ID(nextID), nil
}

// QueryTopN returns up to n records most similar to vector.
func (s *Store) QueryTopN(ctx context.Context, collection string, vector []float32, n int) ([]*core.SearchResult, error) {
	if err := core.ValidateTopN(n); err != nil {
		return nil, err
	}
	if err := storage.ValidateCollectionName(collection); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	if err := s.checkOpen(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrStore, err)
	}

	var results []*core.SearchResult
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		schema, err := readSchema(tx, collection)
		if err != nil {
			return err
		}
		if err := core.ValidateQueryVector(schema, vector); err != nil {
			return err
		}
		if schema == nil {
			return nil
		}

		return s.backend.ScanPrefix(tx, makeRecordPrefix(collection), true, func(item *badger.Item) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.Record
			err := item.Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				s.logger.Warn("skipping undecodable record", "key", string(item.Key()), "err", err)
				return nil
			}

			results = append(results, &core.SearchResult{
				Record: record,
				Score:  storage.CosineSimilarity(vector, record.Vector),
			})
			return nil
		})
	}, false)

	if err != nil {
		if errors.Is(err, core.ErrInvalidArgument) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", storage.ErrStore, err)
	}

	if results == nil {
		return []*core.SearchResult{}, nil
	}
	return storage.RankTopN(results, n), nil
}

// Info returns the collection schema and record count.
func (s *Store) Info(ctx context.Context, collection string) (*core.CollectionInfo, error) {
	if err := storage.ValidateCollectionName(collection); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	if err := s.checkOpen(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrStore, err)
	}

	info := &core.CollectionInfo{}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		schema, err := readSchema(tx, collection)
		if err != nil {
			return err
		}
		info.Schema = schema

		return s.backend.ScanPrefix(tx, makeRecordPrefix(collection), false, func(*badger.Item) error {
			info.Count++
			return nil
		})
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrStore, err)
	}
	return info, nil
}

func (s *Store) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// readSchema loads a collection schema. Returns nil if the collection does not exist.
func readSchema(tx *badger.Txn, collection string) (*core.CollectionSchema, error) {
	item, err := tx.Get(makeSchemaKey(collection))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var schema *core.CollectionSchema
	err = item.Value(func(val []byte) error {
		var err error
		schema, err = storage.UnmarshalSchema(val)
		return err
	})
	return schema, err
}
