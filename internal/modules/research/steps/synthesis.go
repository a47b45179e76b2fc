package steps

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/paperlens-backend/internal/clients/literature"
	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/domain/papers"
	"github.com/yungbote/paperlens-backend/internal/modules/research/prompts"
	"github.com/yungbote/paperlens-backend/internal/platform/llm"
)

type synthesisResponse struct {
	domain.LiteratureSynthesis
}

func (r *synthesisResponse) Validate() error {
	if strings.TrimSpace(r.Overview) == "" {
		return errors.New("overview is required")
	}
	if len(r.KeyPapers) == 0 {
		return errors.New("key_papers must not be empty")
	}
	for i := range r.KeyPapers {
		cat, ok := normalizeCategory(r.KeyPapers[i].Category)
		if !ok {
			return errors.New("key_papers category must be foundational, recent or gap")
		}
		r.KeyPapers[i].Category = cat
	}
	return nil
}

// normalizeCategory accepts the short names and the long forms models tend
// to echo ("Foundational Work", "Recent Advances", "Identifies Gaps").
func normalizeCategory(c string) (string, bool) {
	c = strings.ToLower(strings.TrimSpace(c))
	switch {
	case strings.HasPrefix(c, "found"):
		return papers.CategoryFoundational, true
	case strings.HasPrefix(c, "recent"):
		return papers.CategoryRecent, true
	case strings.HasPrefix(c, "gap"), strings.HasPrefix(c, "identifies gap"):
		return papers.CategoryGap, true
	}
	return c, false
}

type SynthesisInput struct {
	Idea   domain.CandidateIdea
	Papers []literature.Paper
	// RecencyYears splits fallback references into recent and foundational.
	RecencyYears int
	Now          time.Time
}

// Synthesize summarizes the literature around one idea and returns the
// references it cites. Ideas without retrieved papers get no synthesis.
func Synthesize(ctx context.Context, deps LLMDeps, in SynthesisInput) (*domain.LiteratureSynthesis, []domain.Reference, error) {
	cands := in.Papers
	if len(cands) > maxSynthesisPapers {
		cands = cands[:maxSynthesisPapers]
	}
	if len(cands) == 0 {
		return nil, nil, nil
	}
	minPapers := minKeyPapers
	if len(cands) < minPapers {
		minPapers = len(cands)
	}
	p, err := prompts.Build(prompts.PromptSynthesis, prompts.Input{
		IdeaTitle:       in.Idea.Title,
		IdeaDescription: in.Idea.Description,
		Papers:          numberedPapers(cands, 0, 200),
		MinPapers:       minPapers,
		MaxPapers:       len(cands),
	})
	if err != nil {
		return nil, nil, err
	}
	var out synthesisResponse
	if err := llm.GenerateJSON(ctx, deps.LLM, "synthesis", llm.Request{System: p.System, Prompt: p.User, Model: deps.Model}, &out); err != nil {
		return nil, nil, err
	}

	syn := out.LiteratureSynthesis
	var (
		refs []domain.Reference
		kept []domain.KeyPaper
		used = map[int]bool{}
	)
	for _, kp := range syn.KeyPapers {
		if kp.PaperIndex < 1 || kp.PaperIndex > len(cands) || used[kp.PaperIndex] {
			continue
		}
		used[kp.PaperIndex] = true
		kept = append(kept, kp)
		refs = append(refs, referenceFor(cands[kp.PaperIndex-1], kp.Category, kp.Summary))
	}
	if len(refs) == 0 {
		// Every cited index was out of range; cite the leading candidates.
		deps.Log.Warn("synthesis cited no retrieved paper; using leading candidates", "idea", in.Idea.Title)
		for i := 0; i < minPapers; i++ {
			cat := papers.CategoryRecent
			if in.RecencyYears > 0 && cands[i].Year > 0 && cands[i].Year < in.Now.Year()-in.RecencyYears {
				cat = papers.CategoryFoundational
			}
			kp := domain.KeyPaper{PaperIndex: i + 1, Category: cat, Summary: cands[i].Abstract}
			kept = append(kept, kp)
			refs = append(refs, referenceFor(cands[i], cat, kp.Summary))
		}
	}
	syn.KeyPapers = kept
	return &syn, refs, nil
}

func referenceFor(p literature.Paper, category, summary string) domain.Reference {
	ref := domain.Reference{
		Title:     p.Title,
		Authors:   authorsJSON(p.Authors),
		Venue:     p.Venue,
		Abstract:  p.Abstract,
		URL:       p.URL,
		Citations: p.Citations,
		Source:    p.Source,
		Category:  category,
		Summary:   strings.TrimSpace(summary),
	}
	if p.Year > 0 {
		y := p.Year
		ref.Year = &y
	}
	return ref
}

func authorsJSON(v []string) datatypes.JSON {
	if v == nil {
		v = []string{}
	}
	return mustJSON(v)
}
