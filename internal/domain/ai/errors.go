package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar)
// or the user's plan allowance is used up.
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrProviderNotConfigured is returned when the selected provider lacks a key or endpoint.
var ErrProviderNotConfigured = errors.New("ai provider not configured")

// ErrInvalidProvider is returned for an unknown provider kind.
var ErrInvalidProvider = errors.New("invalid LLM provider")

// ErrUpstreamAuth means the backend rejected the configured credentials.
var ErrUpstreamAuth = errors.New("ai provider rejected credentials")

// ErrMalformedResponse means the backend answered with text that is not an analysis.
var ErrMalformedResponse = errors.New("ai provider returned malformed analysis")
