package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, 5000.0, cfg.Mood.NearbyRadius)
	assert.Equal(t, 7*24*time.Hour, cfg.Mood.RecentWindow)
	assert.Equal(t, 30*24*time.Hour, cfg.Logging.Retention)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "db:\n  host: db.internal\n  name: moods\nstore:\n  backend: badger\nmood:\n  nearby_radius: 2500\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_NAME", "from_env")
	t.Setenv("RECENT_WINDOW", "48h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "from_env", cfg.Database.Name)
	assert.Equal(t, BackendBadger, cfg.Store.Backend)
	assert.Equal(t, 2500.0, cfg.Mood.NearbyRadius)
	assert.Equal(t, 48*time.Hour, cfg.Mood.RecentWindow)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.JWT.Secret = "secret"
	require.NoError(t, cfg.Validate())

	cfg.Store.Backend = "mongo"
	cfg.Mood.NearbyRadius = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_BACKEND")
	assert.Contains(t, err.Error(), "NEARBY_RADIUS")
}

func TestDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.Password = "pw"
	assert.Equal(t, "host=localhost user=postgres password=pw dbname=moodfeed port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}
