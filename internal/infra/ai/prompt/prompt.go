package prompt

import (
	"fmt"
	"strings"
)

const schema = `{
  "security": [{ "line": number, "message": string, "severity": "low" | "medium" | "high" }],
  "performance": [{ "line": number, "message": string, "severity": "low" | "medium" | "high" }],
  "quality": [{ "line": number, "message": string, "severity": "low" | "medium" | "high" }],
  "suggestions": [{ "title": string, "description": string, "code": string }],
  "score": number,
  "metrics": { "complexity": number, "maintainability": number, "testCoverage": number, "codeDuplication": number, "documentation": number }
}`

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt(language string) string {
	return fmt.Sprintf(`You are a code analysis expert. Analyze the following %s code for security, performance, and quality issues.
You must produce one valid JSON object only (no markdown, no commentary, no code fences) that follows this schema:
%s

Requirements:
- "line" is the 1-based line number in the submitted code, or 0 when the issue is not tied to a line.
- Use lowercase severity values: low, medium, high.
- "score" is the overall score from 0 (unusable) to 100 (no issues).
- Every metric is an integer from 0 to 100. Omit "metrics" if you cannot estimate it.
- "suggestions" are concrete improvements; "code" holds an optional corrected snippet and may be omitted.
- Keep messages concise and actionable. Empty lists are allowed.`, languageName(language), schema)
}

// GetUserPrompt wraps the code for backends that take the whole request as one message.
func GetUserPrompt(code, language string) string {
	return fmt.Sprintf("Analyze this %s code for security, performance, and quality issues. Return the analysis in the JSON format described.\n\nHere's the code to analyze:\n%s",
		languageName(language), code)
}

// Combined is the single-prompt form used by completion style backends (Ollama).
func Combined(code, language string) string {
	return GetSystemPrompt(language) + "\n\n" + GetUserPrompt(code, language)
}

func languageName(language string) string {
	l := strings.TrimSpace(language)
	if l == "" {
		return "source"
	}
	return l
}
