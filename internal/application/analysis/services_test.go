package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domai "github.com/bryanwahyu/neurolint/internal/domain/ai"
	domain "github.com/bryanwahyu/neurolint/internal/domain/analysis"
	"github.com/bryanwahyu/neurolint/internal/domain/settings"
	"github.com/bryanwahyu/neurolint/internal/domain/shared"
	"github.com/bryanwahyu/neurolint/internal/domain/users"
	"github.com/bryanwahyu/neurolint/internal/infra/db/sqlite"
	"github.com/bryanwahyu/neurolint/internal/infra/db/sqlstore"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeProvider struct{ name, model, key string }

func (p fakeProvider) Analyze(context.Context, string, string) (*domain.Result, error) {
	return nil, errors.New("not used")
}
func (p fakeProvider) Name() string  { return p.name }
func (p fakeProvider) Model() string { return p.model }

type fakeRunner struct {
	calls   int32
	delay   time.Duration
	err     error
	resolve error
	// revoked is an API key the fake upstream rejects
	revoked string
	// stall blocks Run until ctx is done
	stall bool
}

func (r *fakeRunner) Resolve(s settings.UserSettings) (domai.Provider, error) {
	if r.resolve != nil {
		return nil, r.resolve
	}
	if s.LLMProvider == "" {
		return nil, domai.ErrProviderNotConfigured
	}
	model := s.Model
	if model == "" {
		model = "m1"
	}
	return fakeProvider{name: s.LLMProvider, model: model, key: s.OpenAIAPIKey}, nil
}

func (r *fakeRunner) Run(ctx context.Context, p domai.Provider, code, language string) (*domain.Result, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.stall {
		<-ctx.Done()
		return nil, fmt.Errorf("%s analysis failed: %w", p.Name(), ctx.Err())
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.err != nil {
		return nil, r.err
	}
	if fp, ok := p.(fakeProvider); ok && r.revoked != "" && fp.key == r.revoked {
		return nil, fmt.Errorf("%s analysis failed: %w", p.Name(), domai.ErrUpstreamAuth)
	}
	return (&domain.Result{
		Security: []domain.Issue{{Line: 1, Message: "issue in " + language, Severity: domain.SeverityHigh}},
		Score:    80,
	}).Normalize(), nil
}

type memCache struct {
	mu sync.Mutex
	m  map[string]*domain.Result
}

func (c *memCache) Get(_ context.Context, key string) (*domain.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[key]
	return r, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, r *domain.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = r
	return nil
}

type memReports struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func (m *memReports) PutJSON(_ context.Context, key string, data []byte) (string, error) {
	if m.fail {
		return "", errors.New("bucket down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "http://minio/reports/" + key, nil
}

func (m *memReports) Presign(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "http://minio/reports/" + key + "?sig=1&ttl=" + ttl.String(), nil
}

func (m *memReports) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type fixture struct {
	svc     *Service
	store   *sqlstore.Store
	runner  *fakeRunner
	reports *memReports
	user    *users.User
}

var now = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Connect(ctx, sqlite.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := sqlstore.New(db, sqlstore.SQLite)
	_, err = store.Migrate(ctx)
	require.NoError(t, err)

	u := &users.User{ID: uuid.NewString(), Email: "dev@example.com"}
	require.NoError(t, store.Users.Create(ctx, u))
	us := settings.Defaults()
	us.LLMProvider = "chatgpt"
	require.NoError(t, store.Settings.Upsert(ctx, u.ID, &us))

	f := &fixture{
		store:   store,
		runner:  &fakeRunner{},
		reports: &memReports{objects: map[string][]byte{}},
		user:    u,
	}
	f.svc = &Service{
		History:  store.History,
		Settings: store.Settings,
		Users:    store.Users,
		AI:       f.runner,
		Cache:    &memCache{m: map[string]*domain.Result{}},
		Reports:  f.reports,
		Clock:    fixedClock{now},
		Logger:   zaptest.NewLogger(t),
		Limits:   Limits{MaxCodeBytes: 1024, FreeMonthly: 3},
	}
	return f
}

func TestAnalyze_PersistsAndArchives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "x := 1", Language: "Go"})
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Equal(t, "chatgpt", out.Provider)
	assert.Equal(t, "m1", out.Model)
	assert.Equal(t, 80, out.Result.Score)
	assert.Equal(t, "http://minio/reports/"+domain.ReportKey(f.user.ID, out.ID), out.ReportURL)

	h, err := f.store.History.Get(ctx, f.user.ID, out.ID)
	require.NoError(t, err)
	assert.Equal(t, "go", h.Language)
	assert.Equal(t, out.ReportURL, h.ReportURL)
	assert.True(t, now.Equal(h.CreatedAt), "created_at %s", h.CreatedAt)

	u, err := f.store.Users.GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.UsageCount)
	assert.Contains(t, string(f.reports.objects[domain.ReportKey(f.user.ID, out.ID)]), `"id":"`+out.ID+`"`)
}

func TestAnalyze_CacheHit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cmd := AnalyzeCommand{UserID: f.user.ID, Code: "x := 1", Language: "go"}

	_, err := f.svc.Analyze(ctx, cmd)
	require.NoError(t, err)
	out, err := f.svc.Analyze(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, out.Cached)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.runner.calls))

	page, err := f.svc.List(ctx, f.user.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestAnalyze_CoalescesConcurrentCalls(t *testing.T) {
	f := newFixture(t)
	f.svc.Cache = nil
	f.runner.delay = 50 * time.Millisecond
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*AnalyzeResult, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "same", Language: "go"})
			assert.NoError(t, err)
			results[i] = out
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&f.runner.calls))
	ids := map[string]bool{}
	for _, r := range results {
		require.NotNil(t, r)
		ids[r.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestAnalyze_ConcurrentUsersDoNotShareErrors(t *testing.T) {
	f := newFixture(t)
	f.svc.Cache = nil
	f.runner.delay = 100 * time.Millisecond
	f.runner.revoked = "sk-revoked"
	ctx := context.Background()

	us := settings.Defaults()
	us.LLMProvider = "chatgpt"
	us.OpenAIAPIKey = "sk-revoked"
	require.NoError(t, f.store.Settings.Upsert(ctx, f.user.ID, &us))

	other := &users.User{ID: uuid.NewString(), Email: "other@example.com"}
	require.NoError(t, f.store.Users.Create(ctx, other))
	us.OpenAIAPIKey = "sk-good"
	require.NoError(t, f.store.Settings.Upsert(ctx, other.ID, &us))

	var wg sync.WaitGroup
	var errA, errB error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errA = f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "x := 1", Language: "go"})
	}()
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		_, errB = f.svc.Analyze(ctx, AnalyzeCommand{UserID: other.ID, Code: "x := 1", Language: "go"})
	}()
	wg.Wait()

	assert.ErrorIs(t, errA, domai.ErrUpstreamAuth)
	assert.NoError(t, errB)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.runner.calls))
}

func TestAnalyze_Timeout(t *testing.T) {
	f := newFixture(t)
	f.runner.stall = true
	f.svc.Limits.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := f.svc.Analyze(context.Background(), AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, total, err := f.store.History.List(context.Background(), f.user.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAnalyze_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []struct {
		name string
		cmd  AnalyzeCommand
	}{
		{"empty code", AnalyzeCommand{UserID: f.user.ID, Code: "  ", Language: "go"}},
		{"too large", AnalyzeCommand{UserID: f.user.ID, Code: strings.Repeat("x", 2048), Language: "go"}},
		{"no language", AnalyzeCommand{UserID: f.user.ID, Code: "x"}},
		{"bad language", AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go; drop table"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Analyze(ctx, tc.cmd)
			assert.True(t, shared.IsValidation(err), "got %v", err)
		})
	}
	assert.Zero(t, atomic.LoadInt32(&f.runner.calls))
}

func TestAnalyze_ProviderSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	us := settings.Defaults()
	us.LLMProvider = "chatgpt"
	us.Model = "gpt-4o"
	require.NoError(t, f.store.Settings.Upsert(ctx, f.user.ID, &us))

	out, err := f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", out.Model)

	// the stored model belongs to chatgpt and must not follow an override
	out, err = f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go", Provider: "claude"})
	require.NoError(t, err)
	assert.Equal(t, "claude", out.Provider)
	assert.Equal(t, "m1", out.Model)

	out, err = f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go", Provider: "chatgpt"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", out.Model)

	require.NoError(t, f.store.Settings.Delete(ctx, f.user.ID))
	_, err = f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go"})
	assert.ErrorIs(t, err, domai.ErrProviderNotConfigured)
}

func TestAnalyze_FreeQuota(t *testing.T) {
	f := newFixture(t)
	f.svc.Cache = nil
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go"})
		require.NoError(t, err)
	}
	_, err := f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go"})
	assert.ErrorIs(t, err, domai.ErrQuotaExceeded)

	// next month the allowance resets
	f.svc.Clock = fixedClock{now.AddDate(0, 1, 0)}
	_, err = f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go"})
	assert.NoError(t, err)

	f.svc.Clock = fixedClock{now}
	f.svc.Limits.FreeMonthly = 0
	_, err = f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go"})
	assert.NoError(t, err)
}

func TestAnalyze_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.reports.fail = true
	out, err := f.svc.Analyze(context.Background(), AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go"})
	require.NoError(t, err)
	assert.Empty(t, out.ReportURL)
}

func TestAnalyze_ProviderErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.runner.err = domai.ErrUpstreamAuth
	_, err := f.svc.Analyze(context.Background(), AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go"})
	assert.ErrorIs(t, err, domai.ErrUpstreamAuth)
	_, total, err := f.store.History.List(context.Background(), f.user.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestGetDeleteAndReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out, err := f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "x", Language: "go"})
	require.NoError(t, err)

	link, err := f.svc.ReportURL(ctx, f.user.ID, out.ID)
	require.NoError(t, err)
	assert.Contains(t, link, "ttl=15m0s")

	_, err = f.svc.Get(ctx, "someone-else", out.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, f.user.ID, out.ID))
	assert.Empty(t, f.reports.objects)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.user.ID, out.ID), shared.ErrNotFound)
	_, err = f.svc.ReportURL(ctx, f.user.ID, out.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.Limits.FreeMonthly = 0

	old := &domain.History{ID: "old", UserID: f.user.ID, Code: "x", Language: "go", Provider: "chatgpt", Model: "m",
		Results:   domain.Result{Security: []domain.Issue{}, Performance: []domain.Issue{}, Quality: []domain.Issue{}, Score: 10},
		CreatedAt: now.AddDate(0, 0, -30)}
	require.NoError(t, f.store.History.Save(ctx, old))

	_, err := f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "a", Language: "go"})
	require.NoError(t, err)
	_, err = f.svc.Analyze(ctx, AnalyzeCommand{UserID: f.user.ID, Code: "b", Language: "python"})
	require.NoError(t, err)

	sum, err := f.svc.Summary(ctx, f.user.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, sum.Days)
	assert.Equal(t, 2, sum.TotalAnalyses)
	assert.Equal(t, 80.0, sum.AverageScore)
	assert.Equal(t, domain.SeverityCounts{High: 2, Total: 2}, sum.Counts)
	assert.Equal(t, 2, sum.ByCategory[domain.CategorySecurity])
	assert.Equal(t, 0, sum.ByCategory[domain.CategoryQuality])
	assert.Equal(t, map[string]int{"go": 1, "python": 1}, sum.ByLanguage)

	sum, err = f.svc.Summary(ctx, f.user.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, 365, sum.Days)
	assert.Equal(t, 3, sum.TotalAnalyses)
	assert.Equal(t, 56.67, sum.AverageScore)
}

func TestSummary_CountsPastOnePage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const n = 1203
	for i := 0; i < n; i++ {
		h := &domain.History{ID: fmt.Sprintf("h%05d", i), UserID: f.user.ID, Code: "x", Language: "go", Provider: "chatgpt", Model: "m",
			Results:   domain.Result{Security: []domain.Issue{}, Performance: []domain.Issue{}, Quality: []domain.Issue{}, Score: 50},
			CreatedAt: now.Add(-time.Duration(i) * time.Second)}
		require.NoError(t, f.store.History.Save(ctx, h))
	}

	sum, err := f.svc.Summary(ctx, f.user.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, n, sum.TotalAnalyses)
	assert.Equal(t, n, sum.ByLanguage["go"])
	assert.Equal(t, 50.0, sum.AverageScore)
}

func TestList_PageSizeCap(t *testing.T) {
	f := newFixture(t)
	page, err := f.svc.List(context.Background(), f.user.ID, 2, 500)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 100, page.PageSize)
	assert.NotNil(t, page.Data)
	assert.Zero(t, page.Total)
}
