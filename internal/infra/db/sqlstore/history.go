package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	json "github.com/goccy/go-json"

	"github.com/bryanwahyu/neurolint/internal/domain/analysis"
	"github.com/bryanwahyu/neurolint/internal/domain/shared"
)

type HistoryRepository struct{ conn }

func NewHistoryRepository(db *sql.DB, d Dialect) *HistoryRepository {
	return &HistoryRepository{conn{db: db, d: d}}
}

const historyCols = `id, user_id, code, language, provider, model, results, report_url, created_at`

// maxSince caps ListSince when the caller passes no limit.
const maxSince = 5000

// eachBatch is the page size EachSince walks the table with.
var eachBatch = 500

func (r *HistoryRepository) Save(ctx context.Context, h *analysis.History) error {
	raw, err := json.Marshal(h.Results)
	if err != nil {
		return err
	}
	h.CreatedAt = ts(h.CreatedAt)
	_, err = r.exec(ctx, `
INSERT INTO analysis_history (id, user_id, code, language, provider, model, results, score, report_url, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		h.ID, h.UserID, h.Code, h.Language, h.Provider, h.Model, string(raw), h.Results.Score, h.ReportURL, h.CreatedAt)
	return err
}

func (r *HistoryRepository) Get(ctx context.Context, userID, id string) (*analysis.History, error) {
	h, err := scanHistory(r.queryRow(ctx, `SELECT `+historyCols+` FROM analysis_history WHERE user_id=? AND id=? LIMIT 1`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	return h, err
}

// List is classic offset pagination, newest first.
func (r *HistoryRepository) List(ctx context.Context, userID string, page, pageSize int) ([]*analysis.History, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	var total int64
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM analysis_history WHERE user_id=?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.list(ctx, `SELECT `+historyCols+` FROM analysis_history WHERE user_id=? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		userID, pageSize, (page-1)*pageSize)
	return items, total, err
}

func (r *HistoryRepository) ListSince(ctx context.Context, userID string, since time.Time, limit int) ([]*analysis.History, error) {
	if limit <= 0 || limit > maxSince {
		limit = maxSince
	}
	return r.list(ctx, `SELECT `+historyCols+` FROM analysis_history WHERE user_id=? AND created_at >= ? ORDER BY created_at DESC, id LIMIT ?`,
		userID, ts(since), limit)
}

func (r *HistoryRepository) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var n int64
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM analysis_history WHERE user_id=? AND created_at >= ?`, userID, ts(since)).Scan(&n)
	return n, err
}

// EachSince visits every row since the given time, paging by id so no cap
// applies. The code column is never loaded.
func (r *HistoryRepository) EachSince(ctx context.Context, userID string, since time.Time, fn func(language string, res *analysis.Result) error) error {
	after := ""
	for {
		n, last, err := r.eachPage(ctx, userID, ts(since), after, fn)
		if err != nil {
			return err
		}
		if n < eachBatch {
			return nil
		}
		after = last
	}
}

func (r *HistoryRepository) eachPage(ctx context.Context, userID string, since time.Time, after string, fn func(string, *analysis.Result) error) (int, string, error) {
	rows, err := r.query(ctx, `SELECT id, language, results FROM analysis_history
WHERE user_id=? AND created_at >= ? AND id > ? ORDER BY id LIMIT ?`, userID, since, after, eachBatch)
	if err != nil {
		return 0, "", err
	}
	defer rows.Close()

	var n int
	var last string
	for rows.Next() {
		var lang string
		var raw []byte
		if err := rows.Scan(&last, &lang, &raw); err != nil {
			return 0, "", err
		}
		var res analysis.Result
		if err := json.Unmarshal(raw, &res); err != nil {
			return 0, "", err
		}
		if err := fn(lang, &res); err != nil {
			return 0, "", err
		}
		n++
	}
	return n, last, rows.Err()
}

func (r *HistoryRepository) UpdateReportURL(ctx context.Context, userID, id, url string) error {
	res, err := r.exec(ctx, `UPDATE analysis_history SET report_url=? WHERE user_id=? AND id=?`, url, userID, id)
	return affected(res, err, shared.ErrNotFound)
}

func (r *HistoryRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.exec(ctx, `DELETE FROM analysis_history WHERE user_id=? AND id=?`, userID, id)
	return affected(res, err, shared.ErrNotFound)
}

func (r *HistoryRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.exec(ctx, `DELETE FROM analysis_history WHERE user_id=?`, userID)
	return err
}

func (r *HistoryRepository) list(ctx context.Context, q string, args ...any) ([]*analysis.History, error) {
	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*analysis.History{}
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanHistory(s scanner) (*analysis.History, error) {
	var h analysis.History
	var raw []byte
	if err := s.Scan(&h.ID, &h.UserID, &h.Code, &h.Language, &h.Provider, &h.Model, &raw, &h.ReportURL, &h.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &h.Results); err != nil {
		return nil, err
	}
	h.CreatedAt = h.CreatedAt.UTC()
	return &h, nil
}
