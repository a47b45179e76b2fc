package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/platform/llm/llmtest"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

func idea(src int, title string, composite float64) ScoredIdea {
	return ScoredIdea{SourceIndex: src, Idea: domain.CandidateIdea{Title: title}, Composite: composite}
}

func sources(ideas []ScoredIdea) []int {
	out := make([]int, 0, len(ideas))
	for _, s := range ideas {
		out = append(out, s.SourceIndex)
	}
	return out
}

func TestSelectDiverseReplacesLowerRankedDuplicateOnce(t *testing.T) {
	ranked := []ScoredIdea{
		idea(4, "Sparse Retrieval for Long Context", 4.5),
		idea(1, "Sparse retrieval for long context!", 4.4),
		idea(2, "Curriculum Distillation", 4.0),
		idea(0, "Multilingual Probing", 3.0),
		idea(3, "Robust Evaluation", 2.0),
	}
	// The model sees no duplicates; the exact-title rule still fires.
	c := llmtest.Texts(`{"duplicates": []}`, `{"duplicates": []}`)
	check := LLMDuplicateChecker(LLMDeps{Log: logger.Nop(), LLM: c})

	top, report := SelectDiverse(context.Background(), ranked, 3, check)
	require.Equal(t, []int{4, 2, 0}, sources(top))
	require.True(t, report.Checked)
	require.Equal(t, 1, report.Replacements)
	require.Equal(t, [][2]int{{4, 1}}, report.Duplicates)
	require.Equal(t, 2, c.Calls())

	// Re-running on the deduplicated selection changes nothing.
	c2 := llmtest.Texts(`{"duplicates": []}`)
	again, report2 := SelectDiverse(context.Background(), top, 3, LLMDuplicateChecker(LLMDeps{Log: logger.Nop(), LLM: c2}))
	require.Equal(t, sources(top), sources(again))
	require.Zero(t, report2.Replacements)
	require.Empty(t, report2.Duplicates)
	require.Equal(t, 1, c2.Calls())
}

func TestSelectDiverseModelFlaggedPair(t *testing.T) {
	ranked := []ScoredIdea{
		idea(0, "A", 5), idea(1, "B", 4), idea(2, "C", 3), idea(3, "D", 2),
	}
	calls := 0
	check := func(ctx context.Context, top []ScoredIdea) ([][2]int, error) {
		calls++
		if calls == 1 {
			return [][2]int{{2, 0}}, nil
		}
		return nil, nil
	}
	top, report := SelectDiverse(context.Background(), ranked, 3, check)
	require.Equal(t, []int{0, 1, 3}, sources(top))
	require.Equal(t, 1, report.Replacements)
	require.Equal(t, 2, calls)
}

func TestSelectDiverseNoCandidateIsNoop(t *testing.T) {
	ranked := []ScoredIdea{idea(0, "Same Idea", 5), idea(1, "Same idea", 4)}
	check := func(ctx context.Context, top []ScoredIdea) ([][2]int, error) {
		return exactTitlePairs(top), nil
	}
	top, report := SelectDiverse(context.Background(), ranked, 3, check)
	require.Equal(t, []int{0, 1}, sources(top))
	require.Zero(t, report.Replacements)
	require.Contains(t, report.Note, "no distinct replacement")
}

func TestSelectDiverseCheckFailureKeepsSelection(t *testing.T) {
	ranked := []ScoredIdea{idea(0, "A", 5), idea(1, "B", 4), idea(2, "C", 3), idea(3, "D", 2)}
	check := func(ctx context.Context, top []ScoredIdea) ([][2]int, error) {
		return nil, errors.New("provider down")
	}
	top, report := SelectDiverse(context.Background(), ranked, 3, check)
	require.Equal(t, []int{0, 1, 2}, sources(top))
	require.False(t, report.Checked)
	require.Contains(t, report.Note, "provider down")
}

func TestSelectDiverseSingleIdeaSkipsCheck(t *testing.T) {
	called := false
	check := func(ctx context.Context, top []ScoredIdea) ([][2]int, error) {
		called = true
		return nil, nil
	}
	top, _ := SelectDiverse(context.Background(), []ScoredIdea{idea(0, "A", 5)}, 3, check)
	require.Len(t, top, 1)
	require.False(t, called)
}

func TestSelectDiverseCheckFailureStillReplacesIdenticalTitles(t *testing.T) {
	ranked := []ScoredIdea{
		idea(0, "Sparse Retrieval", 4.8),
		idea(1, "Sparse retrieval", 4.6),
		idea(2, "Curriculum Distillation", 4.0),
		idea(3, "Multilingual Probing", 3.5),
		idea(4, "Robust Evaluation", 2.0),
	}
	// Malformed reply plus its corrective retry; the confirmation call then
	// finds the script empty and fails too.
	c := llmtest.Texts("not json", "not json")
	check := LLMDuplicateChecker(LLMDeps{Log: logger.Nop(), LLM: c})

	top, report := SelectDiverse(context.Background(), ranked, 3, check)
	require.Equal(t, []int{0, 2, 3}, sources(top))
	require.False(t, report.Checked)
	require.Equal(t, 1, report.Replacements)
	require.Equal(t, [][2]int{{0, 1}}, report.Duplicates)
	require.Contains(t, report.Note, "diversity check failed")
	require.NotContains(t, report.Note, "duplicates remain")
}
