

package badger

import "github.com/poiesic/folio/storage"

// NewMemoryStore creates an in-memory vector store for testing.
// Closing the store releases the in-memory database.
func NewMemoryStore() (storage.VectorStore, error) {
	backend, err := OpenBackend("", true)
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
