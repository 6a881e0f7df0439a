// Package secrets flags hardcoded credentials in submitted code before it is
// sent to a model. Findings are reported as high severity security issues.
package secrets

import (
	"regexp"
	"strings"

	"github.com/bryanwahyu/neurolint/internal/domain/analysis"
)

type detector struct {
	re    *regexp.Regexp
	title string
}

var detectors = []detector{
	{regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`), "Private key material committed"},
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), "AWS access key exposed"},
	{regexp.MustCompile(`(?i)aws_secret_access_key\s*[:=]\s*["']?[A-Za-z0-9/+=]{20,}`), "AWS secret access key exposed"},
	{regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{20,}`), "GitHub token exposed"},
	{regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`), "GitHub PAT exposed"},
	{regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`), "Google API key exposed"},
	{regexp.MustCompile(`xox[baprs]-[A-Za-z0-9\-]{10,}`), "Slack token exposed"},
	{regexp.MustCompile(`sk_(?:live|test)_[0-9A-Za-z]{10,}`), "Stripe secret key exposed"},
	{regexp.MustCompile(`(?i)\bsk-[a-z0-9\-_]{20,}`), "OpenAI API key exposed"},
	{regexp.MustCompile(`[A-Za-z0-9-_]{8,}\.eyJ[A-Za-z0-9-_]{5,}\.[A-Za-z0-9-_]{10,}`), "JWT token present"},
	{regexp.MustCompile(`(?i)authorization\s*[:=]\s*["']?bearer\s+[A-Za-z0-9\-\._~\+\/]+=*`), "Bearer token exposed"},
	{regexp.MustCompile(`(?i)(api[_-]?key|client[_-]?secret|secret|token|password)\s*[:=]\s*["'][^\s"']{12,}["']`), "Sensitive credential literal detected"},
	{regexp.MustCompile(`://[^\s/:@]+:[^\s/@]+@`), "Credentials embedded in URL"},
}

const advice = "Do not hardcode secrets. Rotate it and load it from the environment or a secret manager."

// Scan returns one issue per (line, detector) hit. Each detector reports at
// most once per line; the first matching detector wins for that line.
func Scan(code string) []analysis.Issue {
	if code == "" {
		return nil
	}
	var out []analysis.Issue
	for i, line := range strings.Split(code, "\n") {
		for _, d := range detectors {
			if d.re.MatchString(line) {
				out = append(out, analysis.Issue{
					Line:     i + 1,
					Message:  d.title + ". " + advice,
					Severity: analysis.SeverityHigh,
				})
				break
			}
		}
	}
	return out
}
