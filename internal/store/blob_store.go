package store

import (
	"database/sql"
	"errors"
	"time"
)

// BlobStore is a keyed blob table. The layout manager uses it as the
// durable home for the serialized layout snapshot.
type BlobStore struct {
	db *DB
}

// NewBlobStore creates a blob store using the given database.
func NewBlobStore(db *DB) *BlobStore {
	return &BlobStore{db: db}
}

// Get returns the blob under key. The second return is false when the
// key is absent.
func (s *BlobStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.sql.QueryRow("SELECT value FROM blobs WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put writes the blob under key, replacing any previous value.
func (s *BlobStore) Put(key string, value []byte) error {
	_, err := s.db.sql.Exec(
		`INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Format(time.DateTime),
	)
	return err
}

// Delete removes the blob under key. Deleting an absent key is not an error.
func (s *BlobStore) Delete(key string) error {
	_, err := s.db.sql.Exec("DELETE FROM blobs WHERE key = ?", key)
	return err
}
