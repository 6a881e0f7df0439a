package prompt

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	domai "github.com/bryanwahyu/neurolint/internal/domain/ai"
	"github.com/bryanwahyu/neurolint/internal/domain/analysis"
)

// rawResult tolerates the loose shapes models produce: numbers as strings,
// missing score.
type rawResult struct {
	Security    []rawIssue        `json:"security"`
	Performance []rawIssue        `json:"performance"`
	Quality     []rawIssue        `json:"quality"`
	Suggestions []rawSuggestion   `json:"suggestions"`
	Score       *json.Number      `json:"score"`
	Metrics     *analysis.Metrics `json:"metrics"`
}

// models sometimes answer with "name"/"detail" instead of title/description
type rawSuggestion struct {
	Title       string `json:"title"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Detail      string `json:"detail"`
	Code        string `json:"code"`
}

type rawIssue struct {
	Line     json.Number `json:"line"`
	Message  string      `json:"message"`
	Severity string      `json:"severity"`
}

// ParseResult turns backend text into a normalized analysis result.
func ParseResult(text string) (*analysis.Result, error) {
	body := extractJSON(text)
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", domai.ErrMalformedResponse)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var raw rawResult
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domai.ErrMalformedResponse, err)
	}

	r := &analysis.Result{
		Security:    convertIssues(raw.Security),
		Performance: convertIssues(raw.Performance),
		Quality:     convertIssues(raw.Quality),
		Suggestions: convertSuggestions(raw.Suggestions),
		Metrics:     raw.Metrics,
	}
	r.Normalize()
	if raw.Score != nil {
		r.Score = numberToInt(*raw.Score)
		r.Normalize()
	} else {
		r.Score = analysis.ScoreFromIssues(r)
	}
	return r, nil
}

func convertIssues(in []rawIssue) []analysis.Issue {
	out := make([]analysis.Issue, 0, len(in))
	for _, it := range in {
		out = append(out, analysis.Issue{
			Line:     numberToInt(it.Line),
			Message:  it.Message,
			Severity: analysis.Severity(it.Severity),
		})
	}
	return out
}

func convertSuggestions(in []rawSuggestion) []analysis.Suggestion {
	out := make([]analysis.Suggestion, 0, len(in))
	for _, sg := range in {
		out = append(out, analysis.Suggestion{
			Title:       firstNonEmpty(sg.Title, sg.Name),
			Description: firstNonEmpty(sg.Description, sg.Detail),
			Code:        sg.Code,
		})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func numberToInt(n json.Number) int {
	if n == "" {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return int(f + 0.5)
	}
	return 0
}

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost {...} block.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) >= 2 {
			end := len(lines)
			if strings.TrimSpace(lines[end-1]) == "```" {
				end--
			}
			s = strings.Join(lines[1:end], "\n")
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
