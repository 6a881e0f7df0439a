package workspaces

import "time"

// DefaultLanguage is used when a workspace is saved without a language.
const DefaultLanguage = "javascript"

// MaxNameLength bounds workspace names.
const MaxNameLength = 120

// Workspace is a saved editor buffer owned by a user.
type Workspace struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
