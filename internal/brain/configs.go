package brain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Settings is the resolved provider configuration. Keys are resolved by
// the config package; nothing here reads the environment.
type Settings struct {
	Provider   string
	Model      string
	APIKey     string
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	MaxTokens  int
}

// New builds the provider named by s.Provider.
func New(s Settings) (Provider, error) {
	switch s.Provider {
	case "", "claude", "anthropic":
		return NewClaudeProvider(s), nil
	case "openai":
		return NewHTTPProvider(OpenAIConfig(s), s.Timeout), nil
	case "grok":
		return NewHTTPProvider(GrokConfig(s), s.Timeout), nil
	case "ollama":
		return NewHTTPProvider(OllamaConfig(s), s.Timeout), nil
	}
	return nil, fmt.Errorf("unknown provider %q: %w", s.Provider, ErrProviderUnavailable)
}

func OpenAIConfig(s Settings) *ProviderConfig {
	return &ProviderConfig{
		Name:          "openai",
		Endpoint:      valueOr(s.Endpoint, "https://api.openai.com/v1/chat/completions"),
		APIKey:        s.APIKey,
		Model:         valueOr(s.Model, "gpt-4o"),
		MaxTokens:     s.MaxTokens,
		AuthHeader:    "Authorization",
		AuthPrefix:    "Bearer ",
		BuildBody:     buildOpenAIBody,
		ParseResponse: parseOpenAIResponse,
	}
}

// GrokConfig speaks the OpenAI wire format against x.ai.
func GrokConfig(s Settings) *ProviderConfig {
	return &ProviderConfig{
		Name:          "grok",
		Endpoint:      valueOr(s.Endpoint, "https://api.x.ai/v1/chat/completions"),
		APIKey:        s.APIKey,
		Model:         valueOr(s.Model, "grok-3-fast"),
		MaxTokens:     s.MaxTokens,
		AuthHeader:    "Authorization",
		AuthPrefix:    "Bearer ",
		BuildBody:     buildOpenAIBody,
		ParseResponse: parseOpenAIResponse,
	}
}

func OllamaConfig(s Settings) *ProviderConfig {
	host := strings.TrimSuffix(valueOr(s.Endpoint, "http://localhost:11434"), "/")
	return &ProviderConfig{
		Name:          "ollama",
		Endpoint:      host + "/api/generate",
		Model:         valueOr(s.Model, "llama3.1"),
		MaxTokens:     s.MaxTokens,
		NoAuth:        true,
		BuildBody:     buildOllamaBody,
		ParseResponse: parseOllamaResponse,
	}
}

// Body builders

func buildOpenAIBody(cfg *ProviderConfig, req Request) map[string]any {
	messages := []map[string]string{}
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.UserPrompt})

	return map[string]any{
		"model":                 cfg.Model,
		"max_completion_tokens": maxTokensOr(req.MaxTokens, maxTokensOr(cfg.MaxTokens, 2048)),
		"messages":              messages,
	}
}

func buildOllamaBody(cfg *ProviderConfig, req Request) map[string]any {
	prompt := req.UserPrompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.UserPrompt
	}
	return map[string]any{
		"model":  cfg.Model,
		"prompt": prompt,
		"stream": false,
	}
}

// Response parsers

func parseOpenAIResponse(body []byte) (string, string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, resp.Model, nil
	}
	return "", resp.Model, nil
}

func parseOllamaResponse(body []byte) (string, string, error) {
	var resp struct {
		Response string `json:"response"`
		Model    string `json:"model"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	return resp.Response, resp.Model, nil
}

// Helpers

func valueOr(v, defaultVal string) string {
	if v != "" {
		return v
	}
	return defaultVal
}

func maxTokensOr(v, defaultVal int) int {
	if v > 0 {
		return v
	}
	return defaultVal
}
