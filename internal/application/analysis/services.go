package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bryanwahyu/neurolint/internal/application"
	domai "github.com/bryanwahyu/neurolint/internal/domain/ai"
	domain "github.com/bryanwahyu/neurolint/internal/domain/analysis"
	"github.com/bryanwahyu/neurolint/internal/domain/settings"
	"github.com/bryanwahyu/neurolint/internal/domain/shared"
	"github.com/bryanwahyu/neurolint/internal/domain/users"
)

// Runner resolves and calls providers; *ai.Service in production.
type Runner interface {
	Resolve(s settings.UserSettings) (domai.Provider, error)
	Run(ctx context.Context, p domai.Provider, code, language string) (*domain.Result, error)
}

// Accounts is the slice of users.Repository the service needs.
type Accounts interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
	IncrementUsage(ctx context.Context, id string) error
}

type Limits struct {
	MaxCodeBytes int
	// FreeMonthly caps analyses per calendar month on the free plan; <=0 disables the cap.
	FreeMonthly int
	// Timeout bounds one whole Analyze call, retries included. Keep it under
	// the server's write timeout.
	Timeout time.Duration
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultDays     = 7
	maxDays         = 365
	reportURLTTL    = 15 * time.Minute
)

var languageRe = regexp.MustCompile(`^[a-zA-Z0-9#+._-]{1,32}$`)

// Service implements use-cases untuk analysis.
// Cache and Reports are optional.
type Service struct {
	History  domain.HistoryRepository
	Settings settings.Repository
	Users    Accounts
	AI       Runner
	Cache    domain.ResultCache
	Reports  domain.ReportStore
	Clock    application.Clock
	Logger   *zap.Logger
	Limits   Limits

	group singleflight.Group
}

// Command untuk analyze
type AnalyzeCommand struct {
	UserID   string
	Code     string
	Language string
	// Provider overrides settings.llmProvider for this call when set.
	Provider string
}

type AnalyzeResult struct {
	ID        string         `json:"id"`
	Result    *domain.Result `json:"result"`
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	Cached    bool           `json:"cached"`
	ReportURL string         `json:"reportUrl,omitempty"`
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

// Analyze validate → quota → cache/provider → simpan history.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*AnalyzeResult, error) {
	lang := strings.TrimSpace(cmd.Language)
	if strings.TrimSpace(cmd.Code) == "" {
		return nil, shared.Invalid("code", "code is required")
	}
	if s.Limits.MaxCodeBytes > 0 && len(cmd.Code) > s.Limits.MaxCodeBytes {
		return nil, shared.Invalid("code", fmt.Sprintf("code exceeds %d bytes", s.Limits.MaxCodeBytes))
	}
	if lang == "" {
		return nil, shared.Invalid("language", "language is required")
	}
	if !languageRe.MatchString(lang) {
		return nil, shared.Invalid("language", "invalid language")
	}
	lang = strings.ToLower(lang)

	if s.Limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Limits.Timeout)
		defer cancel()
	}

	us, err := s.Settings.Get(ctx, cmd.UserID)
	if errors.Is(err, shared.ErrNotFound) {
		d := settings.Defaults()
		us = &d
	} else if err != nil {
		return nil, err
	}
	if cmd.Provider != "" && !strings.EqualFold(cmd.Provider, us.LLMProvider) {
		// the stored model belongs to the stored provider
		us.LLMProvider = cmd.Provider
		us.Model = ""
	}

	p, err := s.AI.Resolve(*us)
	if err != nil {
		return nil, err
	}

	user, err := s.Users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, user); err != nil {
		return nil, err
	}

	key := domain.CacheKey(p.Name(), p.Model(), endpoint(*us), lang, cmd.Code)
	res, cached, err := s.resultFor(ctx, key, domain.FlightKey(key, credential(*us)), p, cmd.Code, lang)
	if err != nil {
		return nil, err
	}

	h := &domain.History{
		ID:        uuid.NewString(),
		UserID:    cmd.UserID,
		Code:      cmd.Code,
		Language:  lang,
		Provider:  p.Name(),
		Model:     p.Model(),
		Results:   *res,
		CreatedAt: s.now(),
	}
	if err := s.History.Save(ctx, h); err != nil {
		return nil, err
	}
	if err := s.Users.IncrementUsage(ctx, cmd.UserID); err != nil {
		s.log().Warn("increment usage failed", zap.String("user_id", cmd.UserID), zap.Error(err))
	}
	s.archive(ctx, h)

	return &AnalyzeResult{
		ID:        h.ID,
		Result:    res,
		Provider:  h.Provider,
		Model:     h.Model,
		Cached:    cached,
		ReportURL: h.ReportURL,
	}, nil
}

func (s *Service) checkQuota(ctx context.Context, u *users.User) error {
	if s.Limits.FreeMonthly <= 0 {
		return nil
	}
	if u.Subscription != "" && u.Subscription != users.PlanFree {
		return nil
	}
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	n, err := s.History.CountSince(ctx, u.ID, monthStart)
	if err != nil {
		return err
	}
	if n >= int64(s.Limits.FreeMonthly) {
		return fmt.Errorf("%w: free plan allows %d analyses per month", domai.ErrQuotaExceeded, s.Limits.FreeMonthly)
	}
	return nil
}

type flightResult struct {
	res    *domain.Result
	cached bool
}

// credential identifies who pays for and authenticates a provider call.
func credential(us settings.UserSettings) string {
	switch domai.ProviderKind(strings.ToLower(strings.TrimSpace(us.LLMProvider))) {
	case domai.ProviderChatGPT:
		return us.OpenAIAPIKey
	case domai.ProviderClaude:
		return us.AnthropicAPIKey
	case domai.ProviderOllama:
		return us.OllamaEndpoint
	}
	return ""
}

// endpoint is part of the cache key for self-hosted backends only.
func endpoint(us settings.UserSettings) string {
	if domai.ProviderKind(strings.ToLower(strings.TrimSpace(us.LLMProvider))) == domai.ProviderOllama {
		return strings.TrimRight(strings.TrimSpace(us.OllamaEndpoint), "/")
	}
	return ""
}

// resultFor serves from cache or calls the provider once per flight key,
// however many callers are waiting on it.
func (s *Service) resultFor(ctx context.Context, key, flight string, p domai.Provider, code, lang string) (*domain.Result, bool, error) {
	v, err, _ := s.group.Do(flight, func() (any, error) {
		if s.Cache != nil {
			res, ok, err := s.Cache.Get(ctx, key)
			if err != nil {
				s.log().Warn("cache get failed", zap.Error(err))
			} else if ok {
				return flightResult{res: res.Normalize(), cached: true}, nil
			}
		}
		res, err := s.AI.Run(ctx, p, code, lang)
		if err != nil {
			return nil, err
		}
		if s.Cache != nil {
			if err := s.Cache.Set(ctx, key, res); err != nil {
				s.log().Warn("cache set failed", zap.Error(err))
			}
		}
		return flightResult{res: res}, nil
	})
	if err != nil {
		return nil, false, err
	}
	fr := v.(flightResult)
	// shared callers must not alias one result
	return cloneResult(fr.res), fr.cached, nil
}

func cloneResult(r *domain.Result) *domain.Result {
	c := *r
	c.Security = append([]domain.Issue{}, r.Security...)
	c.Performance = append([]domain.Issue{}, r.Performance...)
	c.Quality = append([]domain.Issue{}, r.Quality...)
	c.Suggestions = append([]domain.Suggestion{}, r.Suggestions...)
	if r.Metrics != nil {
		m := *r.Metrics
		c.Metrics = &m
	}
	return &c
}

// archive uploads the report; failures are logged and never fail the analysis.
func (s *Service) archive(ctx context.Context, h *domain.History) {
	if s.Reports == nil {
		return
	}
	data, err := json.Marshal(h)
	if err != nil {
		s.log().Warn("marshal report failed", zap.String("analysis_id", h.ID), zap.Error(err))
		return
	}
	loc, err := s.Reports.PutJSON(ctx, domain.ReportKey(h.UserID, h.ID), data)
	if err != nil {
		s.log().Warn("archive report failed", zap.String("analysis_id", h.ID), zap.Error(err))
		return
	}
	if err := s.History.UpdateReportURL(ctx, h.UserID, h.ID, loc); err != nil {
		s.log().Warn("save report url failed", zap.String("analysis_id", h.ID), zap.Error(err))
		return
	}
	h.ReportURL = loc
}

// List newest first. page defaults to 1, pageSize to 20 (max 100).
func (s *Service) List(ctx context.Context, userID string, page, pageSize int) (domain.Page, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	items, total, err := s.History.List(ctx, userID, page, pageSize)
	if err != nil {
		return domain.Page{}, err
	}
	if items == nil {
		items = []*domain.History{}
	}
	return domain.Page{Data: items, Page: page, PageSize: pageSize, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*domain.History, error) {
	return s.History.Get(ctx, userID, id)
}

// Delete removes the row and its archived report.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	h, err := s.History.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.History.Delete(ctx, userID, id); err != nil {
		return err
	}
	if s.Reports != nil && h.ReportURL != "" {
		if err := s.Reports.Delete(ctx, domain.ReportKey(userID, id)); err != nil {
			s.log().Warn("delete report failed", zap.String("analysis_id", id), zap.Error(err))
		}
	}
	return nil
}

// ReportURL returns a short lived link to the archived report.
func (s *Service) ReportURL(ctx context.Context, userID, id string) (string, error) {
	h, err := s.History.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if s.Reports == nil || h.ReportURL == "" {
		return "", fmt.Errorf("report: %w", shared.ErrNotFound)
	}
	return s.Reports.Presign(ctx, domain.ReportKey(userID, id), reportURLTTL)
}

// Summary aggregates the last days (default 7, max 365).
func (s *Service) Summary(ctx context.Context, userID string, days int) (domain.Summary, error) {
	if days <= 0 {
		days = defaultDays
	}
	if days > maxDays {
		days = maxDays
	}
	since := s.now().AddDate(0, 0, -days)
	sum := domain.Summary{
		Days:       days,
		ByCategory: map[domain.Category]int{domain.CategorySecurity: 0, domain.CategoryPerformance: 0, domain.CategoryQuality: 0},
		ByLanguage: map[string]int{},
	}
	var scoreTotal int
	err := s.History.EachSince(ctx, userID, since, func(lang string, res *domain.Result) error {
		sum.TotalAnalyses++
		scoreTotal += res.Score
		c := res.Counts()
		sum.Counts.High += c.High
		sum.Counts.Medium += c.Medium
		sum.Counts.Low += c.Low
		sum.Counts.Total += c.Total
		for cat := range sum.ByCategory {
			sum.ByCategory[cat] += len(res.Issues(cat))
		}
		sum.ByLanguage[lang]++
		return nil
	})
	if err != nil {
		return domain.Summary{}, err
	}
	if sum.TotalAnalyses > 0 {
		avg := float64(scoreTotal) / float64(sum.TotalAnalyses)
		sum.AverageScore = math.Round(avg*100) / 100
	}
	return sum, nil
}
