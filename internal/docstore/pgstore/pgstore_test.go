package pgstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/models"
)

// dryRunDB builds statements without opening a connection.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=moodfeed dbname=moodfeed sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	require.NoError(t, err)
	return db
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, escapeLike("50% off_now"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestListPushesContainsDown(t *testing.T) {
	db := dryRunDB(t)
	q := docstore.Collection("users/ana/mood_events").
		Where("trigger", docstore.OpContains, "50% off").
		Where("emotional_state", docstore.OpEq, int64(2))

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []models.Document
		return listScope(tx, q).Find(&rows)
	})

	assert.Contains(t, sql, `FROM "documents"`)
	assert.Contains(t, sql, "collection = 'users/ana/mood_events'")
	assert.Contains(t, sql, `data->>'trigger' ILIKE '%50\% off%'`)
	assert.NotContains(t, sql, "emotional_state", "only contains filters reach SQL")
}

func TestListWithoutFiltersScansCollection(t *testing.T) {
	db := dryRunDB(t)
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []models.Document
		return listScope(tx, docstore.Collection("most_recent_moods")).Find(&rows)
	})

	assert.Contains(t, sql, "collection = 'most_recent_moods'")
	assert.NotContains(t, sql, "ILIKE")
}

func TestSetUpsertsOnPath(t *testing.T) {
	db := dryRunDB(t)
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return upsert(tx, &models.Document{
			Path:       "users/ana",
			Collection: "users",
			DocID:      "ana",
			Data:       datatypes.JSON(`{"username":"ana"}`),
		})
	})

	assert.Contains(t, sql, `INSERT INTO "documents"`)
	assert.Contains(t, sql, `ON CONFLICT ("path") DO UPDATE SET`)
	assert.Contains(t, sql, `"data"="excluded"."data"`)
	assert.Contains(t, sql, `"updated_at"="excluded"."updated_at"`)
}
