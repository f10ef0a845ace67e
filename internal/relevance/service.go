package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abelbrown/goldmine/internal/brain"
	"github.com/abelbrown/goldmine/internal/model"
)

// Verdict is the service's judgement of one shortlisted item, addressed by
// its position in the request.
type Verdict struct {
	Index          int
	IsOpportunity  bool
	RelevanceScore *float64
	Intensity      string
}

// Service classifies a batch of items.
type Service interface {
	Classify(ctx context.Context, items []model.CandidateItem) ([]Verdict, error)
}

// LLMService asks a brain.Provider to classify items.
type LLMService struct {
	provider  brain.Provider
	maxTokens int
}

// NewLLMService creates a service backed by p.
func NewLLMService(p brain.Provider) *LLMService {
	return &LLMService{provider: p, maxTokens: 2048}
}

func (s *LLMService) Classify(ctx context.Context, items []model.CandidateItem) ([]Verdict, error) {
	if s.provider == nil || !s.provider.Available() {
		return nil, brain.ErrProviderUnavailable
	}

	resp, err := s.provider.Generate(ctx, brain.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(items),
		MaxTokens:    s.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	return ParseVerdicts(resp.Content)
}

type wireVerdict struct {
	Index          *int     `json:"index"`
	IsOpportunity  *bool    `json:"isOpportunity"`
	RelevanceScore *float64 `json:"relevanceScore"`
	Intensity      string   `json:"intensity"`
}

// ParseVerdicts decodes a reply that must be a JSON array of verdict
// objects. Any element that does not decode, or lacks index or
// isOpportunity, makes the whole reply ErrMalformedResponse.
func ParseVerdicts(content string) ([]Verdict, error) {
	payload := strings.TrimSpace(brain.ExtractJSON(content))
	if !strings.HasPrefix(payload, "[") {
		return nil, fmt.Errorf("classify reply is not an array: %w", brain.ErrMalformedResponse)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("classify reply: %w: %v", brain.ErrMalformedResponse, err)
	}

	verdicts := make([]Verdict, 0, len(raw))
	for i, r := range raw {
		var w wireVerdict
		if err := json.Unmarshal(r, &w); err != nil {
			return nil, fmt.Errorf("classify reply element %d: %w: %v", i, brain.ErrMalformedResponse, err)
		}
		if w.Index == nil || w.IsOpportunity == nil {
			return nil, fmt.Errorf("classify reply element %d missing index or isOpportunity: %w", i, brain.ErrMalformedResponse)
		}
		verdicts = append(verdicts, Verdict{
			Index:          *w.Index,
			IsOpportunity:  *w.IsOpportunity,
			RelevanceScore: w.RelevanceScore,
			Intensity:      normalizeIntensity(w.Intensity),
		})
	}
	return verdicts, nil
}

func normalizeIntensity(s string) string {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "high", "medium", "low":
		return s
	}
	return ""
}
