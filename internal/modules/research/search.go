package research

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/modules/research/steps"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
)

const MaxSelectedIdeas = 10

type SearchInput struct {
	AnalysisID uuid.UUID
	Report     Reporter
}

type SearchOutput struct {
	Skipped bool
	Status  domain.AnalysisStatus
	Ranked  int
	// Failed counts ideas whose literature search failed.
	Failed    int
	Diversity domain.DiversityReport
}

// ValidateSelection checks idea indices against the candidate count.
func ValidateSelection(indices []int, candidates int) error {
	if len(indices) == 0 {
		return errkind.Validationf("select_ideas", "select at least one idea")
	}
	if len(indices) > MaxSelectedIdeas {
		return errkind.Validationf("select_ideas", "select at most %d ideas, got %d", MaxSelectedIdeas, len(indices))
	}
	seen := map[int]bool{}
	for _, i := range indices {
		if i < 0 || i >= candidates {
			return errkind.Validationf("select_ideas", "idea index %d out of range [0,%d)", i, candidates)
		}
		if seen[i] {
			return errkind.Validationf("select_ideas", "idea index %d selected twice", i)
		}
		seen[i] = true
	}
	return nil
}

// Search runs the searcher stage for an analysis already moved to
// searching. Ideas, references and the complete status are written in one
// transaction; a redelivered run replaces whatever an earlier attempt left.
func (u Usecases) Search(ctx context.Context, in SearchInput) (SearchOutput, error) {
	dbc := dbctx.Context{Ctx: ctx}
	a, err := u.deps.Analyses.GetByID(dbc, in.AnalysisID)
	if err != nil {
		return SearchOutput{}, err
	}
	switch a.Status {
	case domain.AnalysisSearching:
	case domain.AnalysisComplete, domain.AnalysisError:
		return SearchOutput{Skipped: true, Status: a.Status}, nil
	default:
		return SearchOutput{}, fmt.Errorf("analysis %s is %s, not searching: %w", a.ID, a.Status, pkgerrors.ErrConflict)
	}

	candidates, err := decodeJSON[[]domain.CandidateIdea](a.CandidateIdeas, "candidate_ideas")
	if err != nil {
		return SearchOutput{}, err
	}
	selected, err := decodeJSON[[]int](a.SelectedIdeas, "selected_ideas")
	if err != nil {
		return SearchOutput{}, err
	}
	if err := ValidateSelection(selected, len(candidates)); err != nil {
		return SearchOutput{}, err
	}
	topics, err := decodeJSON[[]string](a.Topics, "topics")
	if err != nil {
		return SearchOutput{}, err
	}
	profile, err := decodeJSON[*domain.StructuredProfile](a.ProfileSnapshot, "profile_snapshot")
	if err != nil {
		return SearchOutput{}, err
	}

	cfg := u.deps.Config
	now := u.deps.Now()
	weights := steps.WeightsFor(profile)
	scoreDeps := steps.ScoreIdeaDeps{
		LLMDeps:      u.searcherDeps(),
		Literature:   u.deps.Literature,
		Limit:        cfg.LiteratureLimit,
		RecencyYears: cfg.RecencyYears,
		Now:          now,
	}

	prog := u.newProgress(a.ID, a.Progress, in.Report)
	prog.report(ctx, "searching", domain.ProgressFloorOf(domain.AnalysisSearching), fmt.Sprintf("Researching %d ideas", len(selected)))

	scored := make([]steps.ScoredIdea, len(selected))
	var done atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.SearchConcurrency)
	for i, idx := range selected {
		g.Go(func() error {
			s, err := steps.ScoreIdea(gctx, scoreDeps, steps.ScoreIdeaInput{
				SourceIndex: idx,
				Idea:        candidates[idx],
				Topics:      topics,
				Profile:     profile,
				Weights:     weights,
			})
			if err != nil {
				return fmt.Errorf("idea %d: %w", idx, err)
			}
			scored[i] = s
			n := int(done.Add(1))
			prog.report(ctx, "searching", 50+30*n/len(selected), fmt.Sprintf("Scored %d of %d ideas", n, len(selected)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SearchOutput{}, err
	}

	ranked := steps.Rank(scored)
	prog.report(ctx, "ranking", 82, "Checking the top ideas for duplicates")
	top, diversity := steps.SelectDiverse(ctx, ranked, cfg.TopK, steps.LLMDuplicateChecker(u.searcherDeps()))

	prog.report(ctx, "synthesis", 88, "Synthesizing literature for the top ideas")
	sg, sctx := errgroup.WithContext(ctx)
	sg.SetLimit(cfg.SearchConcurrency)
	for i := range top {
		sg.Go(func() error {
			syn, refs, err := steps.Synthesize(sctx, u.searcherDeps(), steps.SynthesisInput{
				Idea:         top[i].Idea,
				Papers:       top[i].Papers,
				RecencyYears: cfg.RecencyYears,
				Now:          now,
			})
			if err != nil {
				return fmt.Errorf("synthesis for idea %d: %w", top[i].SourceIndex, err)
			}
			top[i].Synthesis = syn
			top[i].References = refs
			return nil
		})
	}
	if err := sg.Wait(); err != nil {
		return SearchOutput{}, err
	}

	rows := ideaRows(a.ID, top)
	failed := 0
	for _, s := range scored {
		if s.SearchErr != nil {
			failed++
		}
	}

	err = dbctx.InTx(dbctx.Context{Ctx: ctx}, u.deps.DB, func(txc dbctx.Context) error {
		if err := u.deps.Ideas.ReplaceForAnalysis(txc, a.ID, rows); err != nil {
			return err
		}
		ok, err := u.deps.Analyses.Transition(txc, a.ID, domain.AnalysisSearching, domain.AnalysisComplete, map[string]interface{}{
			"diversity":    mustJSON(diversity),
			"progress":     domain.ProgressFloorOf(domain.AnalysisComplete),
			"completed_at": u.deps.Now(),
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("analysis %s left searching concurrently: %w", a.ID, pkgerrors.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return SearchOutput{}, err
	}
	if in.Report != nil {
		in.Report("complete", 100, fmt.Sprintf("Ranked %d ideas", len(rows)))
	}
	return SearchOutput{Status: domain.AnalysisComplete, Ranked: len(rows), Failed: failed, Diversity: diversity}, nil
}

// ideaRows numbers the final ideas 1..K in selection order.
func ideaRows(analysisID uuid.UUID, top []steps.ScoredIdea) []*domain.ResearchIdea {
	rows := make([]*domain.ResearchIdea, 0, len(top))
	for i, s := range top {
		row := &domain.ResearchIdea{
			AnalysisID:          analysisID,
			Rank:                i + 1,
			SourceIndex:         s.SourceIndex,
			Title:               s.Idea.Title,
			Description:         s.Idea.Description,
			Rationale:           s.Idea.Rationale,
			TopicTags:           mustJSON(nonNil(s.Idea.TopicTags)),
			NoveltyScore:        s.Novelty.NoveltyScore,
			DoabilityScore:      s.Doability.DoabilityScore,
			TopicMatchScore:     s.TopicMatch,
			CompositeScore:      s.Composite,
			NoveltyAssessment:   mustJSON(s.Novelty),
			DoabilityAssessment: mustJSON(s.Doability),
			LiteratureSynthesis: mustJSON(s.Synthesis),
			SearchFailed:        s.SearchErr != nil,
			References:          s.References,
		}
		if s.SearchErr != nil {
			row.SearchError = fmt.Sprintf("%s: %s", errkind.KindOf(s.SearchErr), s.SearchErr.Error())
		}
		rows = append(rows, row)
	}
	return rows
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
