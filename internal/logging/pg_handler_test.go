package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEntryLiftsAttributes(t *testing.T) {
	base := &PGHandler{core: &pgCore{}}
	h := base.WithAttrs([]slog.Attr{
		slog.String("username", "ana"),
		slog.String("query_type", "following"),
	}).(*PGHandler)

	rec := slog.NewRecord(time.Now(), slog.LevelError, "mood list delivery failed", 0)
	rec.AddAttrs(
		slog.String("error", errors.New("boom").Error()),
		slog.Float64("latency_ms", 12.6),
		slog.Int("attempt", 3),
	)

	entry := h.buildEntry(rec)
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "ana", entry.Username)
	assert.Equal(t, "following", entry.QueryType)
	assert.Equal(t, "boom", entry.Error)
	assert.Equal(t, 13, entry.LatencyMs)

	var extra map[string]any
	require.NoError(t, json.Unmarshal(entry.Extra, &extra))
	assert.EqualValues(t, 3, extra["attempt"])

	assert.Empty(t, base.attrs, "WithAttrs must not mutate the parent handler")
}

func TestEnabledOnlyForErrors(t *testing.T) {
	h := &PGHandler{core: &pgCore{}}
	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestMultiHandlerFansOut(t *testing.T) {
	h := &PGHandler{core: &pgCore{}}
	multi := NewMultiHandler(slog.NewJSONHandler(discard{}, nil), h)
	logger := slog.New(multi).With("username", "bo")

	logger.Info("ignored by the database handler")
	logger.Error("kept", "action", "add")

	require.Len(t, h.core.buffer, 1)
	assert.Equal(t, "bo", h.core.buffer[0].Username)
	assert.Equal(t, "add", h.core.buffer[0].Action)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}
