package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/auth/login", "POST", 200, time.Millisecond)
	m.RecordRequest("/api/auth/login", "POST", 200, time.Millisecond)
	m.RecordError("/api/auth/me", "GET", "UNAUTHENTICATED")
	m.RecordTokenRejection("expired")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/api/auth/login|POST|200"])
	assert.Equal(t, int64(1), snap.Errors["/api/auth/me|GET|UNAUTHENTICATED"])
	assert.Equal(t, int64(1), snap.TokenRejections["expired"])

	snap.TokenRejections["expired"] = 99
	assert.Equal(t, int64(1), m.Snapshot().TokenRejections["expired"], "snapshot must be a copy")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, 0)
		m.RecordError("/", "GET", "X")
		m.RecordTokenRejection("missing")
	})
}
