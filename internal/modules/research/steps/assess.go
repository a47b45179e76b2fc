package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/paperlens-backend/internal/clients/literature"
	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/modules/research/prompts"
	"github.com/yungbote/paperlens-backend/internal/platform/llm"
)

type noveltyResponse struct {
	domain.NoveltyAssessment
}

func (r *noveltyResponse) Validate() error {
	var ok bool
	if r.Explored, ok = oneOf(r.Explored, "Yes", "Partially", "No"); !ok {
		return fmt.Errorf("explored must be Yes, Partially or No, got %q", r.Explored)
	}
	if r.Maturity, ok = oneOf(r.Maturity, "Unexplored", "Emerging", "Active", "Saturated"); !ok {
		return fmt.Errorf("maturity must be Unexplored, Emerging, Active or Saturated, got %q", r.Maturity)
	}
	return scoreInRange("novelty_score", r.NoveltyScore)
}

type doabilityResponse struct {
	domain.DoabilityAssessment
}

func (r *doabilityResponse) Validate() error {
	if strings.TrimSpace(r.Timeline) == "" {
		return fmt.Errorf("timeline is required")
	}
	return scoreInRange("doability_score", r.DoabilityScore)
}

func scoreInRange(field string, v float64) error {
	if v < 1 || v > MaxScore {
		return fmt.Errorf("%s must be within [1,5], got %v", field, v)
	}
	return nil
}

type AssessInput struct {
	Idea    domain.CandidateIdea
	Papers  []literature.Paper
	Profile *domain.StructuredProfile
	// LiteratureMissing is set when the literature search failed.
	LiteratureMissing bool
}

func AssessNovelty(ctx context.Context, deps LLMDeps, in AssessInput) (domain.NoveltyAssessment, error) {
	p, err := prompts.Build(prompts.PromptNovelty, prompts.Input{
		IdeaTitle:       in.Idea.Title,
		IdeaDescription: in.Idea.Description,
		Papers:          numberedPapers(in.Papers, maxNoveltyPapers, 300),
	})
	if err != nil {
		return domain.NoveltyAssessment{}, err
	}
	var out noveltyResponse
	if err := llm.GenerateJSON(ctx, deps.LLM, "novelty", llm.Request{System: p.System, Prompt: p.User, Model: deps.Model}, &out); err != nil {
		return domain.NoveltyAssessment{}, err
	}
	out.LiteratureMissing = in.LiteratureMissing
	return out.NoveltyAssessment, nil
}

func AssessDoability(ctx context.Context, deps LLMDeps, in AssessInput) (domain.DoabilityAssessment, error) {
	p, err := prompts.Build(prompts.PromptDoability, prompts.Input{
		IdeaTitle:       in.Idea.Title,
		IdeaDescription: in.Idea.Description,
		Papers:          numberedPapers(in.Papers, maxDoabilityPapers, 0),
		Profile:         profileJSON(in.Profile),
	})
	if err != nil {
		return domain.DoabilityAssessment{}, err
	}
	var out doabilityResponse
	if err := llm.GenerateJSON(ctx, deps.LLM, "doability", llm.Request{System: p.System, Prompt: p.User, Model: deps.Model}, &out); err != nil {
		return domain.DoabilityAssessment{}, err
	}
	return out.DoabilityAssessment, nil
}
