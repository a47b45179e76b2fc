package steps

import (
	"context"
	"time"

	"github.com/yungbote/paperlens-backend/internal/clients/literature"
	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
)

type ScoreIdeaDeps struct {
	LLMDeps
	Literature   literature.Searcher
	Limit        int
	RecencyYears int
	Now          time.Time
}

type ScoreIdeaInput struct {
	SourceIndex int
	Idea        domain.CandidateIdea
	Topics      []string
	Profile     *domain.StructuredProfile
	Weights     Weights
}

// ScoreIdea runs the per-idea search stage pipeline. A failed literature
// search is recorded on the result and scoring continues without
// literature; assessment failures are returned.
func ScoreIdea(ctx context.Context, deps ScoreIdeaDeps, in ScoreIdeaInput) (ScoredIdea, error) {
	out := ScoredIdea{SourceIndex: in.SourceIndex, Idea: in.Idea}

	query := literature.BuildQuery(in.Idea.Title, in.Idea.TopicTags)
	found, err := deps.Literature.Search(ctx, query, deps.Limit)
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		deps.Log.Warn("literature search failed; scoring without literature",
			"idea", in.Idea.Title, "kind", errkind.KindOf(err), "error", err)
		out.SearchErr = err
	} else {
		out.Papers = literature.FilterRecent(found, deps.RecencyYears, deps.Now)
	}

	assessIn := AssessInput{
		Idea:              in.Idea,
		Papers:            out.Papers,
		Profile:           in.Profile,
		LiteratureMissing: out.SearchErr != nil,
	}
	if out.Novelty, err = AssessNovelty(ctx, deps.LLMDeps, assessIn); err != nil {
		return out, err
	}
	if out.Doability, err = AssessDoability(ctx, deps.LLMDeps, assessIn); err != nil {
		return out, err
	}
	out.TopicMatch = TopicMatch(in.Idea.TopicTags, in.Topics)
	out.Composite = Composite(out.Novelty.NoveltyScore, out.Doability.DoabilityScore, out.TopicMatch, in.Weights)
	return out, nil
}
