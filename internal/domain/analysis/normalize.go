package analysis

import (
	"strconv"
	"strings"
)

// ParseSeverity maps the free-form severity strings returned by models onto
// the three supported levels. Unknown values become low.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical", "severe", "error", "blocker":
		return SeverityHigh
	case "medium", "moderate", "major", "warning", "warn":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Normalize coerces r into the canonical shape in place and returns it.
func (r *Result) Normalize() *Result {
	r.Security = normalizeIssues(r.Security)
	r.Performance = normalizeIssues(r.Performance)
	r.Quality = normalizeIssues(r.Quality)
	r.Suggestions = normalizeSuggestions(r.Suggestions)
	r.Score = clamp(r.Score)
	if r.Metrics != nil {
		m := r.Metrics
		m.Complexity = clamp(m.Complexity)
		m.Maintainability = clamp(m.Maintainability)
		m.TestCoverage = clamp(m.TestCoverage)
		m.CodeDuplication = clamp(m.CodeDuplication)
		m.Documentation = clamp(m.Documentation)
	}
	return r
}

func normalizeIssues(in []Issue) []Issue {
	out := make([]Issue, 0, len(in))
	for _, it := range in {
		msg := strings.TrimSpace(it.Message)
		if msg == "" {
			continue
		}
		line := it.Line
		if line < 0 {
			line = 0
		}
		out = append(out, Issue{Line: line, Message: msg, Severity: ParseSeverity(string(it.Severity))})
	}
	return out
}

// suggestions without a title are dropped
func normalizeSuggestions(in []Suggestion) []Suggestion {
	out := make([]Suggestion, 0, len(in))
	for _, sg := range in {
		title := strings.TrimSpace(sg.Title)
		if title == "" {
			continue
		}
		out = append(out, Suggestion{
			Title:       title,
			Description: strings.TrimSpace(sg.Description),
			Code:        strings.Trim(sg.Code, "\n"),
		})
	}
	return out
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Issues returns the list for a category.
func (r *Result) Issues(c Category) []Issue {
	switch c {
	case CategorySecurity:
		return r.Security
	case CategoryPerformance:
		return r.Performance
	case CategoryQuality:
		return r.Quality
	}
	return nil
}

// Counts tallies issues by severity across every category.
func (r *Result) Counts() SeverityCounts {
	var c SeverityCounts
	for _, list := range [][]Issue{r.Security, r.Performance, r.Quality} {
		for _, it := range list {
			switch it.Severity {
			case SeverityHigh:
				c.High++
			case SeverityMedium:
				c.Medium++
			default:
				c.Low++
			}
			c.Total++
		}
	}
	return c
}

// Merge appends issues to category c, skipping ones already reported on the
// same line with the same message.
func (r *Result) Merge(c Category, extra []Issue) {
	if len(extra) == 0 {
		return
	}
	existing := r.Issues(c)
	seen := make(map[string]bool, len(existing))
	for _, it := range existing {
		seen[issueKey(it)] = true
	}
	for _, it := range extra {
		k := issueKey(it)
		if seen[k] {
			continue
		}
		seen[k] = true
		existing = append(existing, it)
	}
	switch c {
	case CategorySecurity:
		r.Security = existing
	case CategoryPerformance:
		r.Performance = existing
	case CategoryQuality:
		r.Quality = existing
	}
}

func issueKey(it Issue) string {
	return strings.ToLower(strings.TrimSpace(it.Message)) + "|" + strconv.Itoa(it.Line)
}

// ScoreFromIssues derives a score for backends that omit one.
func ScoreFromIssues(r *Result) int {
	c := r.Counts()
	return clamp(100 - 15*c.High - 7*c.Medium - 2*c.Low)
}
