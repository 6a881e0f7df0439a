package ollama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domai "github.com/bryanwahyu/neurolint/internal/domain/ai"
)

func TestAnalyze(t *testing.T) {
	var req generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(generateResponse{
			Response: `{"security":[],"performance":[{"line":3,"message":"allocation in loop","severity":"medium"}],"quality":[]}`,
			Done:     true,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "", time.Second)
	res, err := c.Analyze(context.Background(), "for {}", "go")
	require.NoError(t, err)
	require.Len(t, res.Performance, 1)
	assert.Equal(t, 93, res.Score)

	assert.Equal(t, DefaultModel, req.Model)
	assert.False(t, req.Stream)
	assert.Equal(t, "json", req.Format)
	assert.Contains(t, req.Prompt, "for {}")
	assert.Equal(t, "ollama", c.Name())
}

func TestAnalyze_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'codellama' not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Analyze(context.Background(), "x", "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.NotErrorIs(t, err, domai.ErrQuotaExceeded)
}
