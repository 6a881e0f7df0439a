package analysis

import (
	"fmt"
	"time"
)

// Severity of a single issue
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Category groups issues in a Result
type Category string

const (
	CategorySecurity    Category = "security"
	CategoryPerformance Category = "performance"
	CategoryQuality     Category = "quality"
)

// Issue is one finding reported against a line of the submitted code.
type Issue struct {
	Line     int      `json:"line"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Metrics are optional 0..100 quality indicators some backends return.
type Metrics struct {
	Complexity      int `json:"complexity"`
	Maintainability int `json:"maintainability"`
	TestCoverage    int `json:"testCoverage"`
	CodeDuplication int `json:"codeDuplication"`
	Documentation   int `json:"documentation"`
}

// Suggestion is a concrete improvement, optionally with replacement code.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Code        string `json:"code,omitempty"`
}

// Result is the normalized shape every provider is coerced into.
type Result struct {
	Security    []Issue      `json:"security"`
	Performance []Issue      `json:"performance"`
	Quality     []Issue      `json:"quality"`
	Suggestions []Suggestion `json:"suggestions"`
	Score       int          `json:"score"`
	Metrics     *Metrics     `json:"metrics,omitempty"`
}

// History is a persisted analysis run.
type History struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Results   Result    `json:"results"`
	ReportURL string    `json:"report_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SeverityCounts value object
type SeverityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Total  int `json:"total"`
}

// Summary aggregates a user's analyses over a window.
type Summary struct {
	Days          int              `json:"days"`
	TotalAnalyses int              `json:"total_analyses"`
	AverageScore  float64          `json:"average_score"`
	Counts        SeverityCounts   `json:"counts"`
	ByCategory    map[Category]int `json:"by_category"`
	ByLanguage    map[string]int   `json:"by_language"`
}

// Page is a slice of history with pagination metadata.
type Page struct {
	Data     []*History `json:"data"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
	Total    int64      `json:"totalItems"`
}

// ReportKey is the object key of an archived analysis report.
func ReportKey(userID, analysisID string) string {
	return fmt.Sprintf("%s/analyses/%s.json", userID, analysisID)
}
