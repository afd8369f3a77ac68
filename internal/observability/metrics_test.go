package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("GET", 200, 10*time.Millisecond)
	m.RecordRequest("GET", 200, 30*time.Millisecond)
	m.RecordRequest("POST", 401, 20*time.Millisecond)
	m.RecordError("UNAUTHORIZED")
	m.RecordAuthFailure("token_expired")
	m.RecordAuthFailure("token_expired")
	m.RecordAuthFailure("")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["GET|200"])
	assert.Equal(t, int64(1), snap.Requests["POST|401"])
	assert.Equal(t, int64(1), snap.Errors["UNAUTHORIZED"])
	assert.Equal(t, map[string]int64{"token_expired": 2}, snap.AuthFailures)
	assert.InDelta(t, 20.0, snap.AvgLatencyMs, 0.001)

	// snapshot is detached from live counters
	snap.Errors["UNAUTHORIZED"] = 99
	assert.Equal(t, int64(1), m.Snapshot().Errors["UNAUTHORIZED"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("GET", 200, time.Millisecond)
		m.RecordError("X")
		m.RecordAuthFailure("forbidden")
	})
}
