package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	yaml := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "neurolint.db") + "\nai:\n  secretScan: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	out, err := run(t, "--config", cfg, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "applied migration 1")

	out, err = run(t, "--config", cfg, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite schema is up to date")
}

func TestConfigCheck(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	out, err := run(t, "-c", cfg, "config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "config OK")
	assert.Contains(t, out, "database:   sqlite")
	assert.Contains(t, out, "cache:      disabled")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("database:\n  driver: oracle\n"), 0o600))
	_, err = run(t, "-c", bad, "config", "check")
	assert.ErrorContains(t, err, "unsupported database.driver")
}

func TestAnalyze_Ollama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": `{"security":[],"performance":[],"quality":[{"line":1,"message":"unused variable","severity":"low"}],"score":95}`,
			"done":     true,
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	src := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(src, []byte("package main\n\nvar x = 1\n"), 0o600))

	out, err := run(t, "-c", cfg, "analyze", src, "--endpoint", srv.URL)
	require.NoError(t, err)

	var got struct {
		Language string `json:"language"`
		Provider string `json:"provider"`
		Result   struct {
			Quality []map[string]any `json:"quality"`
			Score   int              `json:"score"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "go", got.Language)
	assert.Equal(t, "ollama", got.Provider)
	assert.Len(t, got.Result.Quality, 1)
	assert.Equal(t, 95, got.Result.Score)
}

func TestAnalyze_Errors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	src := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(src, []byte("print(1)\n"), 0o600))

	_, err := run(t, "-c", cfg, "analyze", filepath.Join(dir, "missing.go"))
	assert.Error(t, err)

	t.Setenv("OPENAI_API_KEY", "")
	_, err = run(t, "-c", cfg, "analyze", src, "--provider", "chatgpt")
	assert.ErrorContains(t, err, "OpenAI API key is required")

	_, err = run(t, "-c", cfg, "analyze", src, "--provider", "gemini")
	assert.ErrorContains(t, err, "invalid")

	_, err = run(t, "-c", cfg, "analyze")
	assert.Error(t, err)
}

func TestLanguageFor(t *testing.T) {
	assert.Equal(t, "go", LanguageFor("x/main.GO"))
	assert.Equal(t, "typescript", LanguageFor("app.tsx"))
	assert.Equal(t, "text", LanguageFor("Makefile"))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "neurolint version "))
}
