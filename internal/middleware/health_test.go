package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/neurolint/internal/infra/db/sqlite"
)

func TestHealthHandler(t *testing.T) {
	db, err := sqlite.Connect(context.Background(), sqlite.Memory)
	require.NoError(t, err)
	defer db.Close()

	ok := map[string]HealthChecker{
		"database": &DatabaseHealthChecker{DB: db},
		"redis":    CheckFunc(func(context.Context) error { return nil }),
	}
	rec := httptest.NewRecorder()
	HealthHandler(ok)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "healthy", got.Status)
	assert.Len(t, got.Checks, 2)

	ok["minio"] = CheckFunc(func(context.Context) error { return errors.New("bucket missing") })
	rec = httptest.NewRecorder()
	HealthHandler(ok)(rec, httptest.NewRequest(http.MethodGet, "/healthz/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "unhealthy", got.Status)
	assert.Equal(t, CheckStatus{Status: "unhealthy", Message: "bucket missing"}, got.Checks["minio"])
	assert.Equal(t, "healthy", got.Checks["database"].Status)
}

func TestLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz/live", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
