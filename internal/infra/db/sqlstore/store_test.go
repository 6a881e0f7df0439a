package sqlstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/neurolint/internal/domain/analysis"
	"github.com/bryanwahyu/neurolint/internal/domain/settings"
	"github.com/bryanwahyu/neurolint/internal/domain/shared"
	"github.com/bryanwahyu/neurolint/internal/domain/users"
	"github.com/bryanwahyu/neurolint/internal/domain/workspaces"
	"github.com/bryanwahyu/neurolint/internal/infra/db/sqlite"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Connect(ctx, sqlite.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db, SQLite)
	ran, err := s.Migrate(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{1}, ran)
	return s
}

func newUser(t *testing.T, s *Store, email string) *users.User {
	t.Helper()
	u := &users.User{ID: uuid.NewString(), Email: email, PasswordHash: "hash"}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newStore(t)
	ran, err := s.Migrate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ran)
}

func TestUsers(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "ada@example.com")

	err := s.Users.Create(ctx, &users.User{ID: uuid.NewString(), Email: "ada@example.com"})
	assert.ErrorIs(t, err, users.ErrEmailExists)

	got, err := s.Users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, users.PlanFree, got.Subscription)
	assert.False(t, got.EmailVerified)
	assert.Equal(t, time.UTC, got.CreatedAt.Location())

	require.NoError(t, s.Users.MarkVerified(ctx, u.ID))
	require.NoError(t, s.Users.IncrementUsage(ctx, u.ID))
	require.NoError(t, s.Users.IncrementUsage(ctx, u.ID))
	require.NoError(t, s.Users.UpdateProfile(ctx, u.ID, "Ada", "https://img/ada.png"))
	require.NoError(t, s.Users.UpdatePassword(ctx, u.ID, "newhash"))

	got, err = s.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	assert.Equal(t, int64(2), got.UsageCount)
	assert.Equal(t, "Ada", got.FullName)
	assert.Equal(t, "newhash", got.PasswordHash)

	assert.ErrorIs(t, s.Users.IncrementUsage(ctx, "missing"), shared.ErrNotFound)
	_, err = s.Users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, s.Users.Delete(ctx, u.ID))
	_, err = s.Users.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTokens(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "t@example.com")
	now := time.Now().UTC()

	require.NoError(t, s.Tokens.Save(ctx, &users.Token{Hash: "live", UserID: u.ID, Kind: users.TokenSession, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.Tokens.Save(ctx, &users.Token{Hash: "old", UserID: u.ID, Kind: users.TokenSession, ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, s.Tokens.Save(ctx, &users.Token{Hash: "reset", UserID: u.ID, Kind: users.TokenReset, ExpiresAt: now.Add(time.Hour)}))

	tok, err := s.Tokens.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, users.TokenSession, tok.Kind)
	assert.WithinDuration(t, now.Add(time.Hour), tok.ExpiresAt, time.Millisecond)

	n, err := s.Tokens.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.Tokens.DeleteForUser(ctx, u.ID, users.TokenReset))
	_, err = s.Tokens.Get(ctx, "reset")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, s.Tokens.Delete(ctx, "live"))
	_, err = s.Tokens.Get(ctx, "live")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSettings(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "s@example.com")

	_, err := s.Settings.Get(ctx, u.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	in := settings.Defaults()
	in.LLMProvider = "claude"
	in.AnthropicAPIKey = "ak-123456"
	require.NoError(t, s.Settings.Upsert(ctx, u.ID, &in))

	in.LLMProvider = "ollama"
	in.OllamaEndpoint = "http://localhost:11434"
	require.NoError(t, s.Settings.Upsert(ctx, u.ID, &in))

	got, err := s.Settings.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, in, *got)

	require.NoError(t, s.Settings.Delete(ctx, u.ID))
	_, err = s.Settings.Get(ctx, u.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestWorkspaces(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "w@example.com")
	other := newUser(t, s, "o@example.com")
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	a := &workspaces.Workspace{ID: "a", UserID: u.ID, Name: "A", Language: "go", CreatedAt: base, UpdatedAt: base}
	b := &workspaces.Workspace{ID: "b", UserID: u.ID, Name: "B", Language: "go", CreatedAt: base, UpdatedAt: base.Add(time.Minute)}
	require.NoError(t, s.Workspaces.Create(ctx, a))
	require.NoError(t, s.Workspaces.Create(ctx, b))

	list, err := s.Workspaces.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)

	a.Code = "fmt.Println()"
	a.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, s.Workspaces.Update(ctx, a))
	list, err = s.Workspaces.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "fmt.Println()", list[0].Code)

	foreign := *a
	foreign.UserID = other.ID
	assert.ErrorIs(t, s.Workspaces.Update(ctx, &foreign), shared.ErrNotFound)
	_, err = s.Workspaces.Get(ctx, other.ID, "a")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, s.Workspaces.Delete(ctx, u.ID, "a"))
	require.NoError(t, s.Workspaces.Delete(ctx, u.ID, "a"))
	require.NoError(t, s.Workspaces.DeleteAllForUser(ctx, u.ID))
	list, err = s.Workspaces.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHistory(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	u := newUser(t, s, "h@example.com")
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		h := &analysis.History{
			ID:       fmt.Sprintf("h%d", i),
			UserID:   u.ID,
			Code:     "x",
			Language: "go",
			Provider: "chatgpt",
			Model:    "gpt-4o",
			Results: analysis.Result{
				Security:    []analysis.Issue{{Line: i, Message: "m", Severity: analysis.SeverityHigh}},
				Performance: []analysis.Issue{},
				Quality:     []analysis.Issue{},
				Score:       80 + i,
			},
			CreatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}
		require.NoError(t, s.History.Save(ctx, h))
	}

	items, total, err := s.History.List(ctx, u.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, items, 2)
	assert.Equal(t, "h4", items[0].ID)
	assert.Equal(t, 84, items[0].Results.Score)
	assert.Equal(t, 4, items[0].Results.Security[0].Line)

	items, _, err = s.History.List(ctx, u.ID, 3, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "h0", items[0].ID)

	n, err := s.History.CountSince(ctx, u.ID, base.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	since, err := s.History.ListSince(ctx, u.ID, base.Add(72*time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, since, 2)

	prev := eachBatch
	eachBatch = 2
	defer func() { eachBatch = prev }()
	var langs, scores int
	err = s.History.EachSince(ctx, u.ID, base, func(lang string, res *analysis.Result) error {
		langs++
		scores += res.Score
		assert.Equal(t, "go", lang)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, langs)
	assert.Equal(t, 80+81+82+83+84, scores)

	require.NoError(t, s.History.UpdateReportURL(ctx, u.ID, "h1", "https://reports/h1.json"))
	got, err := s.History.Get(ctx, u.ID, "h1")
	require.NoError(t, err)
	assert.Equal(t, "https://reports/h1.json", got.ReportURL)

	require.NoError(t, s.History.Delete(ctx, u.ID, "h1"))
	assert.ErrorIs(t, s.History.Delete(ctx, u.ID, "h1"), shared.ErrNotFound)
	_, err = s.History.Get(ctx, u.ID, "h1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, s.History.DeleteAllForUser(ctx, u.ID))
	_, total, err = s.History.List(ctx, u.ID, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
}
