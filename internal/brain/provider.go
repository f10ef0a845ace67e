// Package brain talks to generative-text services.
//
// Two implementations exist: ClaudeProvider on the Anthropic SDK, and a
// config-driven HTTPProvider for OpenAI-compatible and Ollama endpoints.
// Everything upstream sees only the Provider interface.
package brain

import (
	"context"
	"errors"
)

var (
	// ErrProviderUnavailable means no usable provider is configured.
	ErrProviderUnavailable = errors.New("brain: provider unavailable")

	// ErrQuotaExceeded means the service (or the local guard) refused the call.
	ErrQuotaExceeded = errors.New("brain: quota exceeded")

	// ErrMalformedResponse means the service answered with something unusable.
	ErrMalformedResponse = errors.New("brain: malformed response")
)

// Provider is the interface for generative-text providers
type Provider interface {
	// Name returns the provider name (e.g., "claude", "openai")
	Name() string

	// Available returns true if the provider is configured and ready
	Available() bool

	// Generate sends a prompt and returns the response
	Generate(ctx context.Context, req Request) (Response, error)
}

// Request is a prompt request to a provider
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// Response is the provider's response
type Response struct {
	Content string
	Model   string
}

// ProviderManager picks a provider by preference with fallback
type ProviderManager struct {
	providers []Provider
	preferred string
}

// NewProviderManager creates a new provider manager
func NewProviderManager(providers ...Provider) *ProviderManager {
	return &ProviderManager{providers: providers}
}

// AddProvider adds a provider to the manager
func (pm *ProviderManager) AddProvider(p Provider) {
	pm.providers = append(pm.providers, p)
}

// SetPreferred sets the preferred provider by name
func (pm *ProviderManager) SetPreferred(name string) {
	pm.preferred = name
}

// GetAvailable returns the first available provider, preferring the preferred one
func (pm *ProviderManager) GetAvailable() Provider {
	if pm.preferred != "" {
		for _, p := range pm.providers {
			if p.Name() == pm.preferred && p.Available() {
				return p
			}
		}
	}

	for _, p := range pm.providers {
		if p.Available() {
			return p
		}
	}

	return nil
}

// ListAvailable returns names of all available providers
func (pm *ProviderManager) ListAvailable() []string {
	var names []string
	for _, p := range pm.providers {
		if p.Available() {
			names = append(names, p.Name())
		}
	}
	return names
}

// Reason maps a provider error to a short label for logs, metrics and the
// degraded list.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "service_error"
}
