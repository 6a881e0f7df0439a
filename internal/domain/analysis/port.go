package analysis

import (
	"context"
	"time"
)

// HistoryRepository port untuk persistence analysis history
type HistoryRepository interface {
	Save(ctx context.Context, h *History) error
	Get(ctx context.Context, userID, id string) (*History, error)
	List(ctx context.Context, userID string, page, pageSize int) ([]*History, int64, error)
	ListSince(ctx context.Context, userID string, since time.Time, limit int) ([]*History, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int64, error)
	// EachSince streams language and results of every row since the given time.
	EachSince(ctx context.Context, userID string, since time.Time, fn func(language string, res *Result) error) error
	UpdateReportURL(ctx context.Context, userID, id, url string) error
	Delete(ctx context.Context, userID, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// ResultCache stores provider output keyed by a content hash.
type ResultCache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Set(ctx context.Context, key string, r *Result) error
}

// ReportStore archives analysis reports as objects.
type ReportStore interface {
	PutJSON(ctx context.Context, key string, data []byte) (string, error)
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}
