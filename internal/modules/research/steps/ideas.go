package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/modules/research/prompts"
	"github.com/yungbote/paperlens-backend/internal/platform/llm"
)

type IdeasInput struct {
	Extraction domain.Extraction
	Topics     []string
	Profile    *domain.StructuredProfile
}

// ideasResponse accepts {"ideas": [...]} or a bare array.
type ideasResponse struct {
	Ideas []domain.CandidateIdea `json:"ideas"`
}

func (r *ideasResponse) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(b, &r.Ideas)
	}
	type plain ideasResponse
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = ideasResponse(p)
	return nil
}

func (r *ideasResponse) Validate() error {
	n := 0
	for _, idea := range r.Ideas {
		if strings.TrimSpace(idea.Title) != "" {
			n++
		}
	}
	if n < minAcceptedIdeas {
		return fmt.Errorf("expected %d-%d ideas with titles, got %d", MinIdeas, MaxIdeas, n)
	}
	return nil
}

// GenerateIdeas produces the ordered candidate list. Topic tags are
// restricted to the user's topics, spelled the way the user spelled them.
func GenerateIdeas(ctx context.Context, deps LLMDeps, in IdeasInput) ([]domain.CandidateIdea, error) {
	ex := in.Extraction
	p, err := prompts.Build(prompts.PromptIdeas, prompts.Input{
		Summary:     ex.Summary,
		Concepts:    joinList(ex.Concepts, 10),
		Findings:    joinList(ex.Findings, 0),
		Limitations: joinList(ex.Limitations, 0),
		FutureWork:  joinList(ex.FutureWork, 0),
		Topics:      joinList(in.Topics, 0),
		Profile:     profileJSON(in.Profile),
		MinIdeas:    MinIdeas,
		MaxIdeas:    MaxIdeas,
	})
	if err != nil {
		return nil, err
	}
	var out ideasResponse
	if err := llm.GenerateJSON(ctx, deps.LLM, "ideas", llm.Request{System: p.System, Prompt: p.User, Model: deps.Model}, &out); err != nil {
		return nil, err
	}

	ideas := make([]domain.CandidateIdea, 0, MaxIdeas)
	for _, idea := range out.Ideas {
		idea.Title = strings.TrimSpace(idea.Title)
		if idea.Title == "" {
			continue
		}
		idea.Description = strings.TrimSpace(idea.Description)
		idea.Rationale = strings.TrimSpace(idea.Rationale)
		idea.TopicTags = CanonicalTags(idea.TopicTags, in.Topics)
		ideas = append(ideas, idea)
		if len(ideas) == MaxIdeas {
			break
		}
	}
	deps.Log.Info("ideas generated", "count", len(ideas))
	return ideas, nil
}

// CanonicalTags keeps the tags that name one of topics (case-insensitive),
// returned in the topic's own spelling and without repeats.
func CanonicalTags(tags, topics []string) []string {
	byKey := map[string]string{}
	for _, t := range topics {
		if k := topicKey(t); k != "" {
			if _, ok := byKey[k]; !ok {
				byKey[k] = strings.TrimSpace(t)
			}
		}
	}
	seen := map[string]bool{}
	out := []string{}
	for _, tag := range tags {
		k := topicKey(tag)
		canon, ok := byKey[k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, canon)
	}
	return out
}

func topicKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
