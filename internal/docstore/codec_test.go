package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cellLike string

func TestCodecKeepsTypes(t *testing.T) {
	ts := time.Date(2026, 7, 4, 10, 30, 0, 123456789, time.FixedZone("MDT", -6*3600))
	in := Data{
		"id":       "m1",
		"state":    int64(5),
		"ratio":    0.25,
		"when":     ts,
		"location": cellLike("c3x2"),
		"flag":     true,
		"nothing":  nil,
		"nested":   map[string]any{"n": 7},
		"list":     []any{"a", int64(2)},
	}

	b, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(b)
	require.NoError(t, err)

	assert.Equal(t, "m1", out["id"])
	assert.Equal(t, int64(5), out["state"])
	assert.Equal(t, 0.25, out["ratio"])
	assert.Equal(t, ts.UTC(), out["when"])
	assert.Equal(t, "c3x2", out["location"])
	assert.Equal(t, true, out["flag"])
	assert.Nil(t, out["nothing"])
	assert.Equal(t, map[string]any{"n": int64(7)}, out["nested"])
	assert.Equal(t, []any{"a", int64(2)}, out["list"])
}

func TestCodecRejectsReservedKeys(t *testing.T) {
	_, err := Encode(Data{"$time": "x"})
	assert.Error(t, err)
}

func TestCodecRejectsUnsupportedValues(t *testing.T) {
	_, err := Encode(Data{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestDecodeBadTimestamp(t *testing.T) {
	_, err := Decode([]byte(`{"when":{"$time":"not-a-time"}}`))
	assert.Error(t, err)
}
