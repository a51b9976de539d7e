package store

import (
	"fmt"

	"github.com/gofrs/flock"
)

// CommitBatch writes every buffered result from batch into SQLite within a
// single transaction. Concurrent fruit processes sharing one cache file are
// serialized by an advisory lock next to the database. The batch is emptied
// on success.
func (s *Store) CommitBatch(batch *BatchedStore) (int, error) {
	batch.mu.Lock()
	defer batch.mu.Unlock()
	if len(batch.Entries) == 0 {
		return 0, nil
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("commit batch: lock: %w", err)
	}
	defer lock.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertSQL)
	if err != nil {
		return 0, fmt.Errorf("commit batch: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range batch.Entries {
		payload, err := encodePayload(e.Metadata)
		if err != nil {
			return 0, fmt.Errorf("commit batch: %s: %w", e.Path, err)
		}
		if _, err := stmt.Exec(e.Fingerprint, e.Path, payload); err != nil {
			return 0, fmt.Errorf("commit batch: %s: %w", e.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: commit: %w", err)
	}
	n := len(batch.Entries)
	batch.Entries = nil
	return n, nil
}
