package settings

import "strings"

// Theme preference
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Profile is the user block of the settings document.
type Profile struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Theme Theme  `json:"theme,omitempty"`
}

// Interface holds editor preferences.
type Interface struct {
	DarkMode        bool `json:"darkMode"`
	Notifications   bool `json:"notifications"`
	AutoSave        bool `json:"autoSave"`
	ShowLineNumbers bool `json:"showLineNumbers"`
	ShowMinimap     bool `json:"showMinimap"`
}

// UserSettings is the per-user settings document.
type UserSettings struct {
	LLMProvider     string    `json:"llmProvider"`
	Model           string    `json:"model,omitempty"`
	OllamaEndpoint  string    `json:"ollamaEndpoint,omitempty"`
	OpenAIAPIKey    string    `json:"openaiApiKey,omitempty"`
	AnthropicAPIKey string    `json:"anthropicApiKey,omitempty"`
	UserSettings    Profile   `json:"userSettings"`
	Interface       Interface `json:"interface"`
}

// Defaults returns the settings a new user starts with.
func Defaults() UserSettings {
	return UserSettings{
		UserSettings: Profile{Theme: ThemeSystem},
		Interface: Interface{
			DarkMode:        true,
			Notifications:   true,
			AutoSave:        true,
			ShowLineNumbers: true,
			ShowMinimap:     true,
		},
	}
}

const maskPrefix = "****"

// MaskKey hides all but the last four characters of a secret.
func MaskKey(k string) string {
	if k == "" {
		return ""
	}
	if len(k) <= 4 {
		return maskPrefix
	}
	return maskPrefix + k[len(k)-4:]
}

// IsMasked reports whether v looks like a value produced by MaskKey.
func IsMasked(v string) bool {
	return strings.HasPrefix(v, maskPrefix)
}

// Masked returns a copy safe to send to clients.
func (s UserSettings) Masked() UserSettings {
	s.OpenAIAPIKey = MaskKey(s.OpenAIAPIKey)
	s.AnthropicAPIKey = MaskKey(s.AnthropicAPIKey)
	return s
}
