package steps

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/paperlens-backend/internal/clients/literature"
	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/platform/llm"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

const (
	MinIdeas = 8
	MaxIdeas = 10
	// minAcceptedIdeas is the smallest idea list accepted from the model
	// before it counts as a malformed response.
	minAcceptedIdeas = 3

	maxConcepts = 15
	maxFindings = 5

	PaperTextLimit = 15000

	minKeyPapers       = 5
	maxSynthesisPapers = 8
	maxNoveltyPapers   = 10
	maxDoabilityPapers = 3
)

// LLMDeps is what every LLM-backed step needs.
type LLMDeps struct {
	Log   *logger.Logger
	LLM   llm.Client
	Model string
}

// ScoredIdea carries one selected candidate through the search stage.
type ScoredIdea struct {
	SourceIndex int
	Idea        domain.CandidateIdea

	Papers    []literature.Paper
	SearchErr error

	Novelty    domain.NoveltyAssessment
	Doability  domain.DoabilityAssessment
	TopicMatch float64
	Composite  float64

	Synthesis  *domain.LiteratureSynthesis
	References []domain.Reference
}

func profileJSON(p *domain.StructuredProfile) string {
	if p == nil {
		return ""
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

func joinList(items []string, max int) string {
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return strings.Join(items, ", ")
}

// numberedPapers renders papers as a 1-based list for prompts.
func numberedPapers(papers []literature.Paper, max, abstractChars int) string {
	if max > 0 && len(papers) > max {
		papers = papers[:max]
	}
	var b strings.Builder
	for i, p := range papers {
		year := "n.d."
		if p.Year > 0 {
			year = fmt.Sprint(p.Year)
		}
		fmt.Fprintf(&b, "[%d] %s (%s)\n", i+1, p.Title, year)
		if abstractChars > 0 && p.Abstract != "" {
			abs := []rune(p.Abstract)
			if len(abs) > abstractChars {
				abs = append(abs[:abstractChars], []rune("...")...)
			}
			b.WriteString(string(abs))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func oneOf(v string, allowed ...string) (string, bool) {
	v = strings.TrimSpace(v)
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a, true
		}
	}
	return v, false
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}
