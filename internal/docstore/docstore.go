// Package docstore is a small document database: documents are addressed by
// slash-separated paths, grouped into collections by their parent path, and
// can be read once, queried, written in transactions, or watched live.
//
// Storage is pluggable through Backend (see badgerstore and pgstore). Store
// wraps a Backend and adds live subscriptions fed by a watermill change feed.
package docstore

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidPath = errors.New("invalid document path")
	ErrClosed      = errors.New("document store closed")
)

// Data is the field map of one document. Supported value types are string,
// bool, int64, float64, time.Time, nil, nested Data, and []any.
type Data map[string]any

// Snapshot is a document as read at one point in time. A snapshot of a
// missing document has nil Data.
type Snapshot struct {
	Path string
	ID   string
	Data Data
}

// Exists reports whether the document was present.
func (s Snapshot) Exists() bool { return s.Data != nil }

// DB is everything the domain packages need from a document store.
type DB interface {
	Get(ctx context.Context, path string) (Snapshot, error)
	Set(ctx context.Context, path string, data Data) error
	Delete(ctx context.Context, path string) error
	Query(ctx context.Context, q Query) ([]Snapshot, error)
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	Subscribe(ctx context.Context, q Query, fn func([]Snapshot, error)) (*Subscription, error)
}

// Tx reads and writes inside one atomic transaction.
type Tx interface {
	Get(path string) (Snapshot, error)
	Set(path string, data Data) error
	Delete(path string) error
}

// Backend is a storage engine. List must return at least every document in
// q.Collection matching q; Store re-applies q to whatever List returns, so a
// backend may push down as much or as little of the query as it likes.
type Backend interface {
	Get(ctx context.Context, path string) (Snapshot, error)
	Set(ctx context.Context, path string, data Data) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, q Query) ([]Snapshot, error)
	Update(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Split returns the collection path and document id of a document path.
func Split(path string) (collection, id string, err error) {
	if err := ValidateDocumentPath(path); err != nil {
		return "", "", err
	}
	i := strings.LastIndexByte(path, '/')
	return path[:i], path[i+1:], nil
}

// ValidateDocumentPath checks that path names a document: an even number of
// non-empty segments.
func ValidateDocumentPath(path string) error {
	segs := strings.Split(path, "/")
	if len(segs)%2 != 0 {
		return ErrInvalidPath
	}
	for _, s := range segs {
		if s == "" {
			return ErrInvalidPath
		}
	}
	return nil
}

// ValidateCollectionPath checks that path names a collection: an odd number
// of non-empty segments.
func ValidateCollectionPath(path string) error {
	segs := strings.Split(path, "/")
	if len(segs)%2 != 1 {
		return ErrInvalidPath
	}
	for _, s := range segs {
		if s == "" {
			return ErrInvalidPath
		}
	}
	return nil
}

// InCollection reports whether path is a direct child of collection.
func InCollection(path, collection string) bool {
	rest, ok := strings.CutPrefix(path, collection+"/")
	return ok && rest != "" && !strings.Contains(rest, "/")
}
