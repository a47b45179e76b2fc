package steps

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/paperlens-backend/internal/clients/literature"
	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/modules/research/prompts"
	"github.com/yungbote/paperlens-backend/internal/platform/llm"
)

// DuplicateChecker returns near-duplicate pairs as 0-based positions in top.
type DuplicateChecker func(ctx context.Context, top []ScoredIdea) ([][2]int, error)

type diversityResponse struct {
	Duplicates [][2]int `json:"duplicates"`
}

func (r *diversityResponse) Validate() error {
	if r.Duplicates == nil {
		return fmt.Errorf("duplicates is required")
	}
	return nil
}

// LLMDuplicateChecker asks the model to compare the ideas, and always adds
// pairs whose titles are identical after normalization.
func LLMDuplicateChecker(deps LLMDeps) DuplicateChecker {
	return func(ctx context.Context, top []ScoredIdea) ([][2]int, error) {
		pairs := exactTitlePairs(top)
		var b strings.Builder
		for i, s := range top {
			fmt.Fprintf(&b, "%d. %s\n%s\n\n", i+1, s.Idea.Title, s.Idea.Description)
		}
		p, err := prompts.Build(prompts.PromptDiversity, prompts.Input{Ideas: strings.TrimSpace(b.String())})
		if err != nil {
			return pairs, err
		}
		var out diversityResponse
		if err := llm.GenerateJSON(ctx, deps.LLM, "diversity", llm.Request{System: p.System, Prompt: p.User, Model: deps.Model}, &out); err != nil {
			return pairs, err
		}
		for _, d := range out.Duplicates {
			a, b := d[0]-1, d[1]-1
			if a < 0 || b < 0 || a >= len(top) || b >= len(top) || a == b {
				continue
			}
			pairs = append(pairs, [2]int{a, b})
		}
		return pairs, nil
	}
}

func exactTitlePairs(top []ScoredIdea) [][2]int {
	var pairs [][2]int
	for i := 0; i < len(top); i++ {
		for j := i + 1; j < len(top); j++ {
			if literature.NormalizeTitle(top[i].Idea.Title) == literature.NormalizeTitle(top[j].Idea.Title) {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// SelectDiverse takes the top k of a ranked list and runs one duplicate
// check over it. For every flagged pair the lower-ranked idea is replaced
// by the next ranked idea whose title is not already present. The check
// then runs once more to confirm; duplicates it still finds are reported
// but not replaced. When the checker fails, identical titles are still
// flagged and replaced.
func SelectDiverse(ctx context.Context, ranked []ScoredIdea, k int, check DuplicateChecker) ([]ScoredIdea, domain.DiversityReport) {
	if k > len(ranked) {
		k = len(ranked)
	}
	top := append([]ScoredIdea(nil), ranked[:k]...)
	report := domain.DiversityReport{}
	if len(top) < 2 || check == nil {
		report.Note = "fewer than two ideas; nothing to compare"
		return top, report
	}

	pairs, err := check(ctx, top)
	if err != nil {
		report.Note = "diversity check failed: " + err.Error()
		pairs = append(pairs, exactTitlePairs(top)...)
	} else {
		report.Checked = true
	}
	pairs = normalizePairs(pairs)
	if len(pairs) == 0 {
		return top, report
	}
	report.Duplicates = sourcePairs(top, pairs)

	drop := map[int]bool{}
	for _, p := range pairs {
		drop[p[1]] = true
	}
	kept := make([]ScoredIdea, 0, k)
	for i, s := range top {
		if !drop[i] {
			kept = append(kept, s)
		}
	}
	next := k
	for len(kept) < k && next < len(ranked) {
		cand := ranked[next]
		next++
		if hasTitle(kept, cand.Idea.Title) {
			continue
		}
		kept = append(kept, cand)
		report.Replacements++
	}
	if report.Replacements < len(drop) {
		// Not enough distinct candidates; keep the original ideas in the
		// freed slots rather than shrinking the selection.
		for i := len(top) - 1; i >= 0 && len(kept) < k; i-- {
			if drop[i] && !contains(kept, top[i].SourceIndex) {
				kept = append(kept, top[i])
			}
		}
		kept = Rank(kept)
		report.Note = appendNote(report.Note, "no distinct replacement candidate for every duplicate")
	}
	if report.Replacements == 0 {
		return top, report
	}

	again, err := check(ctx, kept)
	switch {
	case err != nil:
		report.Note = appendNote(report.Note, "confirmation check failed: "+err.Error())
		if len(exactTitlePairs(kept)) > 0 {
			report.Note = appendNote(report.Note, "duplicates remain after the replacement pass")
		}
	case len(normalizePairs(again)) > 0:
		report.Note = appendNote(report.Note, "duplicates remain after the replacement pass")
	}
	return kept, report
}

// normalizePairs orders each pair (higher rank first) and drops repeats.
func normalizePairs(pairs [][2]int) [][2]int {
	seen := map[[2]int]bool{}
	var out [][2]int
	for _, p := range pairs {
		if p[0] == p[1] {
			continue
		}
		if p[0] > p[1] {
			p[0], p[1] = p[1], p[0]
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

func sourcePairs(top []ScoredIdea, pairs [][2]int) [][2]int {
	out := make([][2]int, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, [2]int{top[p[0]].SourceIndex, top[p[1]].SourceIndex})
	}
	return out
}

func hasTitle(ideas []ScoredIdea, title string) bool {
	key := literature.NormalizeTitle(title)
	for _, s := range ideas {
		if literature.NormalizeTitle(s.Idea.Title) == key {
			return true
		}
	}
	return false
}

func contains(ideas []ScoredIdea, sourceIndex int) bool {
	for _, s := range ideas {
		if s.SourceIndex == sourceIndex {
			return true
		}
	}
	return false
}

func appendNote(note, add string) string {
	if note == "" {
		return add
	}
	return note + "; " + add
}
