package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/neurolint/internal/app"
	appai "github.com/bryanwahyu/neurolint/internal/application/ai"
	"github.com/bryanwahyu/neurolint/internal/domain/settings"
)

var extLanguages = map[string]string{
	".go":    "go",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".py":    "python",
	".rb":    "ruby",
	".java":  "java",
	".kt":    "kotlin",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "c++",
	".cs":    "c#",
	".php":   "php",
	".swift": "swift",
	".sql":   "sql",
	".sh":    "shell",
}

// LanguageFor guesses the language from a file extension.
func LanguageFor(path string) string {
	if l, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return l
	}
	return "text"
}

type analyzeOptions struct {
	provider string
	model    string
	language string
	apiKey   string
	endpoint string
	noSecret bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	o := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze one file with an LLM provider and print the JSON result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			code, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if cfg.AI.MaxCodeBytes > 0 && len(code) > cfg.AI.MaxCodeBytes {
				return fmt.Errorf("%s exceeds %d bytes", args[0], cfg.AI.MaxCodeBytes)
			}
			lang := o.language
			if lang == "" {
				lang = LanguageFor(args[0])
			}

			svc := appai.NewService(app.ProviderOptions(cfg), cfg.AI.SecretScan && !o.noSecret)
			p, err := svc.Resolve(o.settings())
			if err != nil {
				return err
			}
			res, err := svc.Run(cmd.Context(), p, string(code), lang)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(map[string]any{
				"file":     args[0],
				"language": lang,
				"provider": p.Name(),
				"model":    p.Model(),
				"result":   res,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.provider, "provider", "p", "ollama", "chatgpt | claude | ollama")
	f.StringVarP(&o.model, "model", "m", "", "model override")
	f.StringVarP(&o.language, "language", "l", "", "language (default: from file extension)")
	f.StringVar(&o.apiKey, "api-key", "", "API key (default: OPENAI_API_KEY or ANTHROPIC_API_KEY)")
	f.StringVar(&o.endpoint, "endpoint", "http://localhost:11434", "Ollama endpoint")
	f.BoolVar(&o.noSecret, "no-secret-scan", false, "skip the local secret pre-scan")
	return cmd
}

func (o *analyzeOptions) settings() settings.UserSettings {
	us := settings.UserSettings{
		LLMProvider:    strings.ToLower(o.provider),
		Model:          o.model,
		OllamaEndpoint: o.endpoint,
	}
	switch us.LLMProvider {
	case "chatgpt":
		us.OpenAIAPIKey = firstNonEmpty(o.apiKey, os.Getenv("OPENAI_API_KEY"))
	case "claude":
		us.AnthropicAPIKey = firstNonEmpty(o.apiKey, os.Getenv("ANTHROPIC_API_KEY"))
	}
	return us
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
