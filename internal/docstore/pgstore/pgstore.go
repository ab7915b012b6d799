// Package pgstore is a docstore backend on PostgreSQL through gorm. Each
// document is one row of the documents table with its fields in a jsonb column.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/models"
)

// Store implements docstore.Backend.
type Store struct {
	db *gorm.DB
}

// New uses db, which must already have the documents table migrated.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, path string) (docstore.Snapshot, error) {
	return get(s.db.WithContext(ctx), path, false)
}

func (s *Store) Set(ctx context.Context, path string, data docstore.Data) error {
	return set(s.db.WithContext(ctx), path, data)
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return s.db.WithContext(ctx).Delete(&models.Document{}, "path = ?", path).Error
}

// List selects the collection and pushes contains filters down as ILIKE.
func (s *Store) List(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	var rows []models.Document
	if err := listScope(s.db.WithContext(ctx), q).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %q: %w", q.Collection, err)
	}

	out := make([]docstore.Snapshot, 0, len(rows))
	for _, row := range rows {
		data, err := docstore.Decode(row.Data)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", row.Path, err)
		}
		out = append(out, docstore.Snapshot{Path: row.Path, ID: row.DocID, Data: data})
	}
	return out, nil
}

// listScope narrows db to q's collection. Only contains filters are pushed
// down; the store applies the rest in memory.
func listScope(db *gorm.DB, q docstore.Query) *gorm.DB {
	db = db.Where("collection = ?", q.Collection)
	for _, f := range q.Filters {
		if f.Op != docstore.OpContains {
			continue
		}
		if needle, ok := f.Value.(string); ok {
			db = db.Where("data->>? ILIKE ?", f.Field, "%"+escapeLike(needle)+"%")
		}
	}
	return db
}

// Update runs fn in a database transaction. Reads take row locks.
func (s *Store) Update(ctx context.Context, fn func(tx docstore.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&tx{db: db})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close is a no-op; the connection pool belongs to the caller.
func (s *Store) Close() error { return nil }

type tx struct {
	db *gorm.DB
}

func (t *tx) Get(path string) (docstore.Snapshot, error) { return get(t.db, path, true) }

func (t *tx) Set(path string, data docstore.Data) error { return set(t.db, path, data) }

func (t *tx) Delete(path string) error {
	return t.db.Delete(&models.Document{}, "path = ?", path).Error
}

func get(db *gorm.DB, path string, lock bool) (docstore.Snapshot, error) {
	snap := docstore.Snapshot{Path: path, ID: path[strings.LastIndexByte(path, '/')+1:]}
	if lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var row models.Document
	err := db.Where("path = ?", path).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("get %q: %w", path, err)
	}
	snap.Data, err = docstore.Decode(row.Data)
	if err != nil {
		return snap, fmt.Errorf("read %q: %w", path, err)
	}
	return snap, nil
}

func set(db *gorm.DB, path string, data docstore.Data) error {
	collection, id, err := docstore.Split(path)
	if err != nil {
		return err
	}
	b, err := docstore.Encode(data)
	if err != nil {
		return fmt.Errorf("encode %q: %w", path, err)
	}
	return upsert(db, &models.Document{
		Path:       path,
		Collection: collection,
		DocID:      id,
		Data:       datatypes.JSON(b),
	}).Error
}

func upsert(db *gorm.DB, row *models.Document) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(row)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ docstore.Backend = (*Store)(nil)
