package store

import (
	"sync"

	"github.com/sammcvicker/fruit-sub000/internal/extract"
)

// Entry is one extraction result waiting to be cached.
type Entry struct {
	Fingerprint string
	Path        string
	Metadata    *extract.Metadata
}

// BatchedStore buffers cache writes in memory while extraction workers run.
// Reads pass through to the underlying Store, which is safe for concurrent
// reads.
//
// Thread safety: the mutex protects slice appends.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Entries []Entry
}

// NewBatchedStore creates a BatchedStore backed by the given Store for reads.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{store: s}
}

// Lookup reads through to the Store.
func (b *BatchedStore) Lookup(fingerprint string) (*extract.Metadata, bool, error) {
	return b.store.Lookup(fingerprint)
}

// Add queues a result for the next commit.
func (b *BatchedStore) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Entries = append(b.Entries, e)
}

// Len returns the number of queued results.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Entries)
}
