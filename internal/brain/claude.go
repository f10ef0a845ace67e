package brain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/abelbrown/goldmine/internal/logging"
)

// DefaultClaudeModel is used when Settings.Model is empty.
const DefaultClaudeModel = "claude-sonnet-4-5-20250929"

var _ Provider = (*ClaudeProvider)(nil)

// ClaudeProvider implements Provider on the Anthropic SDK
type ClaudeProvider struct {
	apiKey    string
	model     string
	maxTokens int
	client    anthropic.Client
}

// NewClaudeProvider creates a Claude provider. SDK retries are off unless
// s.MaxRetries asks for them; the pipeline treats a failed call as a fallback.
func NewClaudeProvider(s Settings) *ClaudeProvider {
	model := s.Model
	if model == "" {
		model = DefaultClaudeModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithMaxRetries(s.MaxRetries),
	}
	if s.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(s.Timeout))
	}
	if s.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(s.Endpoint))
	}

	return &ClaudeProvider{
		apiKey:    s.APIKey,
		model:     model,
		maxTokens: s.MaxTokens,
		client:    anthropic.NewClient(opts...),
	}
}

func (c *ClaudeProvider) Name() string {
	return "claude"
}

func (c *ClaudeProvider) Available() bool {
	return c.apiKey != ""
}

func (c *ClaudeProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if !c.Available() {
		return Response{}, fmt.Errorf("claude: %w", ErrProviderUnavailable)
	}

	logging.Debug("Claude request", "model", c.model)
	start := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokensOr(req.MaxTokens, maxTokensOr(c.maxTokens, 2048))),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, classifyClaudeError(err)
	}

	var texts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}

	logging.Debug("Claude response", "model", msg.Model, "blocks", len(msg.Content), "took", time.Since(start))

	return Response{
		Content: strings.Join(texts, "\n\n"),
		Model:   string(msg.Model),
	}, nil
}

func classifyClaudeError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("claude: %w: %v", ErrQuotaExceeded, err)
		}
		return fmt.Errorf("claude: status %d: %w", apiErr.StatusCode, err)
	}
	return fmt.Errorf("claude: %w", err)
}
