package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordMutation(t *testing.T) {
	ok := EngineMutations.WithLabelValues("add", "ok")
	failed := EngineMutations.WithLabelValues("add", "error")
	okBefore := testutil.ToFloat64(ok)
	failedBefore := testutil.ToFloat64(failed)

	RecordMutation("add", nil)
	RecordMutation("add", errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestTrackEngine(t *testing.T) {
	before := testutil.ToFloat64(EngineOpen)
	TrackEngine(true)
	TrackEngine(true)
	TrackEngine(false)
	assert.Equal(t, before+1, testutil.ToFloat64(EngineOpen))
	TrackEngine(false)
}

func TestRecordGeoSearch(t *testing.T) {
	c := testutil.ToFloat64(GeoCandidates)
	a := testutil.ToFloat64(GeoAccepted)
	RecordGeoSearch(5, 3)
	assert.Equal(t, c+5, testutil.ToFloat64(GeoCandidates))
	assert.Equal(t, a+3, testutil.ToFloat64(GeoAccepted))
}

func TestRecordAPIRequest(t *testing.T) {
	RecordAPIRequest("GET", "/api/moods", 200, 15*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(APIRequestDuration, "api_request_duration_seconds"), 1)
}
