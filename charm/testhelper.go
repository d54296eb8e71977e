// ABOUTME: Test utilities for creating isolated outbox clients
// ABOUTME: Backs the client with a temporary BadgerDB so tests need no charm server

package charm

import (
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v3"
)

// badgerStore provides the charm/kv surface on top of a local BadgerDB.
type badgerStore struct {
	db *badger.DB
}

func (s *badgerStore) Get(key []byte) ([]byte, error) {
	var result []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	return result, err
}

func (s *badgerStore) Set(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *badgerStore) Delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (s *badgerStore) Keys() ([][]byte, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

func (s *badgerStore) Sync() error {
	return nil
}

func (s *badgerStore) Reset() error {
	return s.db.DropAll()
}

// NewTestClient creates a client backed by BadgerDB in a test temp directory. The database
// is closed when the test finishes.
func NewTestClient(t testing.TB) *Client {
	t.Helper()

	dir := filepath.Join(t.TempDir(), AppName)
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})

	return &Client{
		store:  &badgerStore{db: db},
		config: &Config{Host: "localhost", AutoSync: false},
	}
}
