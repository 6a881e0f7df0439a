package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/neurolint/internal/domain/settings"
	"github.com/bryanwahyu/neurolint/internal/domain/shared"
	"github.com/bryanwahyu/neurolint/internal/domain/users"
	"github.com/bryanwahyu/neurolint/internal/infra/db/sqlite"
	"github.com/bryanwahyu/neurolint/internal/infra/db/sqlstore"
)

func newService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Connect(ctx, sqlite.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := sqlstore.New(db, sqlstore.SQLite)
	_, err = store.Migrate(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Users.Create(ctx, &users.User{ID: "u1", Email: "grace@example.com", FullName: "Grace"}))
	return &Service{Repo: store.Settings, Users: store.Users}
}

func TestGet_Defaults(t *testing.T) {
	s := newService(t)
	got, err := s.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "", got.LLMProvider)
	assert.Equal(t, domain.ThemeSystem, got.UserSettings.Theme)
	assert.Equal(t, "Grace", got.UserSettings.Name)
	assert.Equal(t, "grace@example.com", got.UserSettings.Email)
	assert.True(t, got.Interface.ShowLineNumbers)
}

func TestPut_MaskedKeysKeepStoredValue(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	in := domain.Defaults()
	in.LLMProvider = "ChatGPT"
	in.OpenAIAPIKey = "sk-secret-1234"
	saved, err := s.Put(ctx, "u1", in)
	require.NoError(t, err)
	assert.Equal(t, "chatgpt", saved.LLMProvider)

	masked := saved.Masked()
	assert.Equal(t, "****1234", masked.OpenAIAPIKey)

	masked.Interface.ShowMinimap = false
	_, err = s.Put(ctx, "u1", masked)
	require.NoError(t, err)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "sk-secret-1234", got.OpenAIAPIKey)
	assert.False(t, got.Interface.ShowMinimap)

	cleared := *got
	cleared.OpenAIAPIKey = ""
	_, err = s.Put(ctx, "u1", cleared)
	require.NoError(t, err)
	got, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.OpenAIAPIKey)
}

func TestPut_Validation(t *testing.T) {
	s := newService(t)
	cases := map[string]domain.UserSettings{
		"provider": {LLMProvider: "gemini"},
		"endpoint": {LLMProvider: "ollama", OllamaEndpoint: "ftp://host"},
		"relative": {OllamaEndpoint: "localhost:11434"},
		"theme":    {UserSettings: domain.Profile{Theme: "neon"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Put(context.Background(), "u1", in)
			assert.True(t, shared.IsValidation(err), "got %v", err)
		})
	}

	ok, err := s.Put(context.Background(), "u1", domain.UserSettings{LLMProvider: "ollama", OllamaEndpoint: "http://localhost:11434"})
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeSystem, ok.UserSettings.Theme)
}

func TestDelete(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, err := s.Put(ctx, "u1", domain.UserSettings{LLMProvider: "claude", AnthropicAPIKey: "ak"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "u1"))
	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.LLMProvider)
}
