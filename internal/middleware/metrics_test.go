package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMetricsMiddleware(t *testing.T) {
	m := NewMetrics()
	status := http.StatusOK
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	for _, s := range []int{http.StatusOK, http.StatusNotFound, http.StatusTooManyRequests} {
		status = s
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	m.ObserveAnalysis(false, nil)
	m.ObserveAnalysis(true, nil)
	m.ObserveAnalysis(false, errors.New("x"))

	snap := m.Snapshot()
	assert.Equal(t, uint64(3), snap["requests_total"])
	assert.Equal(t, uint64(1), snap["requests_success"])
	assert.Equal(t, uint64(2), snap["requests_failed"])
	assert.Equal(t, uint64(1), snap["rate_limited"])
	assert.Equal(t, int64(0), snap["requests_in_progress"])
	assert.Equal(t, uint64(3), snap["analyses_total"])
	assert.Equal(t, uint64(1), snap["analyses_cached"])
	assert.Equal(t, uint64(1), snap["analyses_failed"])

	rec := httptest.NewRecorder()
	m.Handler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `"analyses_total":3`)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))
	r := httptest.NewRequest(http.MethodGet, "/v1/analyses/x", nil)
	h.ServeHTTP(httptest.NewRecorder(), r)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		e := entries[0]
		assert.Equal(t, zap.WarnLevel, e.Level)
		fields := e.ContextMap()
		assert.Equal(t, int64(404), fields["status"])
		assert.Equal(t, int64(4), fields["bytes"])
		assert.Equal(t, "/v1/analyses/x", fields["path"])
	}
}
