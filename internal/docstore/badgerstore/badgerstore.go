// Package badgerstore is an embedded docstore backend on BadgerDB. Keys are
// document paths and values are docstore-encoded JSON.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore"
)

const maxConflictRetries = 8

// Store implements docstore.Backend.
type Store struct {
	db *badger.DB
}

// Open opens a store at path. An empty path keeps everything in memory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already open database.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, path string) (docstore.Snapshot, error) {
	var snap docstore.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		snap, err = get(txn, path)
		return err
	})
	return snap, err
}

func (s *Store) Set(ctx context.Context, path string, data docstore.Data) error {
	return s.Update(ctx, func(tx docstore.Tx) error {
		return tx.Set(path, data)
	})
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return s.Update(ctx, func(tx docstore.Tx) error {
		return tx.Delete(path)
	})
}

// List scans the collection prefix. Filters are applied by the caller.
func (s *Store) List(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	var out []docstore.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(q.Collection + "/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			path := string(item.Key())
			if !docstore.InCollection(path, q.Collection) {
				continue
			}
			var data docstore.Data
			err := item.Value(func(val []byte) error {
				var err error
				data, err = docstore.Decode(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("read %q: %w", path, err)
			}
			if !q.Matches(data) {
				continue
			}
			out = append(out, docstore.Snapshot{Path: path, ID: path[strings.LastIndexByte(path, '/')+1:], Data: data})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", q.Collection, err)
	}
	return out, nil
}

// Update runs fn in a read-write transaction, retrying on write conflicts.
func (s *Store) Update(ctx context.Context, fn func(tx docstore.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return fn(&tx{txn: txn})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return docstore.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type tx struct {
	txn *badger.Txn
}

func (t *tx) Get(path string) (docstore.Snapshot, error) {
	return get(t.txn, path)
}

func (t *tx) Set(path string, data docstore.Data) error {
	b, err := docstore.Encode(data)
	if err != nil {
		return fmt.Errorf("encode %q: %w", path, err)
	}
	return t.txn.Set([]byte(path), b)
}

func (t *tx) Delete(path string) error {
	err := t.txn.Delete([]byte(path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func get(txn *badger.Txn, path string) (docstore.Snapshot, error) {
	snap := docstore.Snapshot{Path: path, ID: path[strings.LastIndexByte(path, '/')+1:]}
	item, err := txn.Get([]byte(path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("get %q: %w", path, err)
	}
	err = item.Value(func(val []byte) error {
		snap.Data, err = docstore.Decode(val)
		return err
	})
	return snap, err
}

var _ docstore.Backend = (*Store)(nil)
