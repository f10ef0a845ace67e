// Package blueprint expands a finalist into a structured product blueprint.
//
// Generation never fails. Quota refusals, service errors and unusable
// replies all produce the deterministic Fallback blueprint.
package blueprint

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abelbrown/goldmine/internal/brain"
	"github.com/abelbrown/goldmine/internal/logging"
	"github.com/abelbrown/goldmine/internal/model"
	"github.com/abelbrown/goldmine/internal/quota"
)

// Service expands one candidate into a loose blueprint.
type Service interface {
	Expand(ctx context.Context, c model.ScoredCandidate) (Raw, error)
}

// Outcome is the result of generating one blueprint.
type Outcome struct {
	Blueprint model.Blueprint
	Degraded  bool
	Reason    string
}

// Generator gates a Service behind a quota guard.
type Generator struct {
	svc   Service
	guard quota.Checker
}

// NewGenerator creates a generator. A nil guard means unlimited.
func NewGenerator(svc Service, guard quota.Checker) *Generator {
	if guard == nil {
		guard = quota.Unlimited{}
	}
	return &Generator{svc: svc, guard: guard}
}

// Generate returns a complete blueprint for c. Safe for concurrent use if
// the Service is.
func (g *Generator) Generate(ctx context.Context, c model.ScoredCandidate) Outcome {
	if d := g.guard.CheckAllowed(); !d.Allowed {
		return g.fallback(c, brain.ErrQuotaExceeded)
	}
	if g.svc == nil {
		return g.fallback(c, brain.ErrProviderUnavailable)
	}

	raw, err := g.svc.Expand(ctx, c)
	if err != nil {
		return g.fallback(c, err)
	}
	if len(raw) == 0 {
		return g.fallback(c, fmt.Errorf("empty blueprint: %w", brain.ErrMalformedResponse))
	}

	return Outcome{Blueprint: Normalize(raw, c)}
}

func (g *Generator) fallback(c model.ScoredCandidate, err error) Outcome {
	reason := brain.Reason(err)
	logging.Warn("Blueprint fallback", "id", c.ID, "reason", reason, "error", err)
	return Outcome{Blueprint: Fallback(c), Degraded: true, Reason: reason}
}

// LLMService asks a brain.Provider for a blueprint.
type LLMService struct {
	provider  brain.Provider
	maxTokens int
}

// NewLLMService creates a service backed by p.
func NewLLMService(p brain.Provider) *LLMService {
	return &LLMService{provider: p, maxTokens: 2048}
}

func (s *LLMService) Expand(ctx context.Context, c model.ScoredCandidate) (Raw, error) {
	if s.provider == nil || !s.provider.Available() {
		return nil, brain.ErrProviderUnavailable
	}

	resp, err := s.provider.Generate(ctx, brain.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(c),
		MaxTokens:    s.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	return ParseRaw(resp.Content)
}

// ParseRaw decodes a reply that must be a JSON object.
func ParseRaw(content string) (Raw, error) {
	payload := strings.TrimSpace(brain.ExtractJSON(content))
	if !strings.HasPrefix(payload, "{") {
		return nil, fmt.Errorf("blueprint reply is not an object: %w", brain.ErrMalformedResponse)
	}

	var raw Raw
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("blueprint reply: %w: %v", brain.ErrMalformedResponse, err)
	}
	return raw, nil
}
