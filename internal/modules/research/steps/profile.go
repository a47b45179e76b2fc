package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/modules/research/prompts"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/platform/llm"
)

type profileResponse struct {
	domain.StructuredProfile
}

func (r *profileResponse) Validate() error {
	var ok bool
	if len(nonEmpty(r.ResearchAreas)) == 0 {
		return errors.New("research_areas must not be empty")
	}
	if r.ResearchStyle, ok = oneOf(r.ResearchStyle, "Empirical", "Theoretical", "Applied"); !ok {
		return fmt.Errorf("research_style must be Empirical, Theoretical or Applied, got %q", r.ResearchStyle)
	}
	if r.ResourceAccess, ok = oneOf(r.ResourceAccess, "Limited", "Moderate", "Extensive"); !ok {
		return fmt.Errorf("resource_access must be Limited, Moderate or Extensive, got %q", r.ResourceAccess)
	}
	if !unit(r.NoveltyWeight) || !unit(r.DoabilityWeight) {
		return fmt.Errorf("preference weights must be within [0,1]")
	}
	return nil
}

type ProfileInput struct {
	Description     string
	ExperienceLevel string
	Scholar         *domain.ScholarProfile
}

// BuildProfile turns free text and/or scraped Scholar data into a
// structured profile.
func BuildProfile(ctx context.Context, deps LLMDeps, in ProfileInput) (domain.StructuredProfile, error) {
	var scholar string
	if in.Scholar != nil {
		b, err := json.MarshalIndent(in.Scholar, "", "  ")
		if err != nil {
			return domain.StructuredProfile{}, err
		}
		scholar = string(b)
	}
	if strings.TrimSpace(in.Description) == "" && scholar == "" {
		return domain.StructuredProfile{}, errkind.Validationf("profile_build", "profile needs a description or Scholar data")
	}
	p, err := prompts.Build(prompts.PromptProfile, prompts.Input{
		Description:     strings.TrimSpace(in.Description),
		ExperienceLevel: strings.TrimSpace(in.ExperienceLevel),
		Scholar:         scholar,
	})
	if err != nil {
		return domain.StructuredProfile{}, err
	}
	var out profileResponse
	if err := llm.GenerateJSON(ctx, deps.LLM, "profile", llm.Request{System: p.System, Prompt: p.User, Model: deps.Model}, &out); err != nil {
		return domain.StructuredProfile{}, err
	}
	sp := out.StructuredProfile
	sp.ResearchAreas = capList(nonEmpty(sp.ResearchAreas), 5)
	sp.SpecificTopics = capList(nonEmpty(sp.SpecificTopics), 10)
	sp.TechnicalSkills = nonEmpty(sp.TechnicalSkills)
	return sp, nil
}
