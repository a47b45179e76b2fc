package research

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/clients/literature"
	"github.com/yungbote/paperlens-backend/internal/data/repos"
	"github.com/yungbote/paperlens-backend/internal/data/repos/testutil"
	"github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/platform/llm"
	"github.com/yungbote/paperlens-backend/internal/platform/llm/llmtest"
	"github.com/yungbote/paperlens-backend/internal/platform/objectstore"
	"github.com/yungbote/paperlens-backend/internal/platform/pdftext"
	"github.com/yungbote/paperlens-backend/internal/platform/pdftext/pdftest"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeLiterature struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (f *fakeLiterature) Search(ctx context.Context, query string, limit int) ([]literature.Paper, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []literature.Paper{
		{Title: "Retrieval for " + query, Authors: []string{"B. Author"}, Year: 2024, Source: "arxiv", URL: "https://arxiv.org/abs/2401.00001"},
		{Title: "Classic work on " + query, Year: 2015, Source: "semantic_scholar"},
	}, nil
}

// routedLLM answers each prompt kind with a canned response. Novelty scores
// are keyed on the idea title so ranking is deterministic.
func routedLLM(novelty map[string]int) *llmtest.Client {
	c := &llmtest.Client{}
	c.Route = func(req llm.Request) (string, bool, error) {
		switch {
		case strings.Contains(req.System, "extract their key information"):
			return `{"summary":"A paper about sparse attention.","concepts":["attention","sparsity"],"findings":["faster"],"limitations":["small data"],"datasets":[],"future_work":["scale up"]}`, true, nil
		case strings.Contains(req.System, "find novel, specific follow-up work"):
			ideas := make([]string, 0, 8)
			for i := 0; i < 8; i++ {
				ideas = append(ideas, fmt.Sprintf(`{"title":"Idea %d","description":"desc %d","rationale":"why","topic_tags":["nlp"]}`, i, i))
			}
			return `{"ideas":[` + strings.Join(ideas, ",") + `]}`, true, nil
		case strings.Contains(req.System, "how novel"):
			score := 3
			for title, s := range novelty {
				if strings.Contains(req.Prompt, "Title: "+title+"\n") {
					score = s
				}
			}
			return fmt.Sprintf(`{"explored":"Partially","maturity":"Emerging","gap":"g","novelty_score":%d}`, score), true, nil
		case strings.Contains(req.System, "feasibility"):
			return `{"data_availability":"Available","methodology_complexity":"Standard","timeline":"3-6 months","expertise_level":"PhD","doability_score":3}`, true, nil
		case strings.Contains(req.System, "near-duplicates"):
			return `{"duplicates":[]}`, true, nil
		case strings.Contains(req.System, "synthesize prior literature"):
			return `{"overview":"o","key_papers":[{"paper_index":1,"category":"recent","summary":"s"},{"paper_index":2,"category":"foundational","summary":"s"}],"whats_missing":"w","suggested_approach":"a"}`, true, nil
		}
		return "", false, nil
	}
	return c
}

type fixture struct {
	db   *gorm.DB
	uc   Usecases
	lit  *fakeLiterature
	llm  *llmtest.Client
	repo repos.Repos
}

func newFixture(t *testing.T, llmc *llmtest.Client) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	store, err := objectstore.NewLocal(t.TempDir())
	require.NoError(t, err)
	r := repos.New(db, log)
	lit := &fakeLiterature{}
	uc := New(UsecasesDeps{
		DB:         db,
		Log:        log,
		LLM:        llmc,
		Literature: lit,
		Store:      store,
		PDF:        pdftext.NewExtractor(log, nil),
		Papers:     r.Paper,
		Analyses:   r.Analysis,
		Ideas:      r.ResearchIdea,
		Profiles:   r.UserProfile,
		Now:        func() time.Time { return fixedNow },
	})
	return &fixture{db: db, uc: uc, lit: lit, llm: llmc, repo: r}
}

func (f *fixture) seedUploaded(t *testing.T, pdf []byte) *domain.Analysis {
	t.Helper()
	ctx := context.Background()
	paper := testutil.SeedPaper(t, ctx, f.db, "Sparse Attention")
	require.NoError(t, f.uc.deps.Store.Put(ctx, paper.StorageKey, bytes.NewReader(pdf), "application/pdf"))
	return testutil.SeedAnalysis(t, ctx, f.db, paper.ID, domain.AnalysisUploaded, []string{"NLP"})
}

func (f *fixture) selectIdeas(t *testing.T, id uuid.UUID, indices []int) {
	t.Helper()
	ok, err := f.repo.Analysis.Transition(dbctx.Context{Ctx: context.Background()}, id, domain.AnalysisIdeasReady, domain.AnalysisSearching, map[string]interface{}{
		"selected_ideas": mustJSON(indices),
		"started_at":     fixedNow,
	})
	require.NoError(t, err)
	require.True(t, ok)
}

func (f *fixture) load(t *testing.T, id uuid.UUID) *domain.Analysis {
	t.Helper()
	var a domain.Analysis
	require.NoError(t, f.db.First(&a, "id = ?", id).Error)
	return &a
}

func textPDF() []byte {
	return pdftest.Build("Sparse Attention", "Sparse Attention for Long Documents\nWe study sparse attention patterns.")
}

func TestReadThenSearchCompletesAnalysis(t *testing.T) {
	f := newFixture(t, routedLLM(nil))
	a := f.seedUploaded(t, textPDF())
	ctx := context.Background()

	var stages []string
	read, err := f.uc.Read(ctx, ReadInput{AnalysisID: a.ID, Report: func(stage string, pct int, msg string) {
		stages = append(stages, stage)
	}})
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisIdeasReady, read.Status)
	assert.Equal(t, 8, read.Ideas)
	assert.Contains(t, stages, "parsing")
	assert.Contains(t, stages, "reading")

	got := f.load(t, a.ID)
	assert.Equal(t, domain.AnalysisIdeasReady, got.Status)
	assert.Equal(t, 50, got.Progress)
	require.NotNil(t, got.StartedAt)
	ideas, err := decodeJSON[[]domain.CandidateIdea](got.CandidateIdeas, "candidate_ideas")
	require.NoError(t, err)
	require.Len(t, ideas, 8)
	assert.Equal(t, []string{"NLP"}, ideas[0].TopicTags)

	f.selectIdeas(t, a.ID, []int{0})
	out, err := f.uc.Search(ctx, SearchInput{AnalysisID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisComplete, out.Status)
	assert.Equal(t, 1, out.Ranked)
	assert.Zero(t, out.Failed)

	got = f.load(t, a.ID)
	assert.Equal(t, domain.AnalysisComplete, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.CompletedAt)

	rows, err := f.repo.ResearchIdea.ListByAnalysis(dbctx.Context{Ctx: ctx}, a.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "Idea 0", rows[0].Title)
	assert.Equal(t, 5.0, rows[0].TopicMatchScore)
	assert.InDelta(t, 0.3*3+0.4*3+0.3*5, rows[0].CompositeScore, 1e-9)
	require.Len(t, rows[0].References, 2)
	cats := []string{rows[0].References[0].Category, rows[0].References[1].Category}
	assert.ElementsMatch(t, []string{"recent", "foundational"}, cats)
	require.Len(t, f.lit.queries, 1)
	assert.Contains(t, f.lit.queries[0], "Idea 0")
}

func TestSearchRanksByCompositeAndKeepsTopThree(t *testing.T) {
	f := newFixture(t, routedLLM(map[string]int{"Idea 2": 5, "Idea 4": 4, "Idea 1": 1}))
	a := f.seedUploaded(t, textPDF())
	ctx := context.Background()

	_, err := f.uc.Read(ctx, ReadInput{AnalysisID: a.ID})
	require.NoError(t, err)
	f.selectIdeas(t, a.ID, []int{1, 2, 3, 4})

	out, err := f.uc.Search(ctx, SearchInput{AnalysisID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Ranked)
	assert.True(t, out.Diversity.Checked)
	assert.Zero(t, out.Diversity.Replacements)

	rows, err := f.repo.ResearchIdea.ListByAnalysis(dbctx.Context{Ctx: ctx}, a.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	titles := []string{rows[0].Title, rows[1].Title, rows[2].Title}
	assert.Equal(t, []string{"Idea 2", "Idea 4", "Idea 3"}, titles)
	for i, r := range rows {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestSearchAbsorbsLiteratureFailure(t *testing.T) {
	f := newFixture(t, routedLLM(nil))
	f.lit.err = errkind.RateLimit("semantic_scholar", fmt.Errorf("429"))
	a := f.seedUploaded(t, textPDF())
	ctx := context.Background()

	_, err := f.uc.Read(ctx, ReadInput{AnalysisID: a.ID})
	require.NoError(t, err)
	f.selectIdeas(t, a.ID, []int{0, 1})

	out, err := f.uc.Search(ctx, SearchInput{AnalysisID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Failed)

	rows, err := f.repo.ResearchIdea.ListByAnalysis(dbctx.Context{Ctx: ctx}, a.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.True(t, r.SearchFailed)
		assert.Contains(t, r.SearchError, "rate_limit")
		assert.Empty(t, r.References)
	}
}

func TestReadScannedPDFStopsBeforeReading(t *testing.T) {
	f := newFixture(t, routedLLM(nil))
	a := f.seedUploaded(t, pdftest.Build("Scanned", ""))

	_, err := f.uc.Read(context.Background(), ReadInput{AnalysisID: a.ID})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindParse), "got kind %s", errkind.KindOf(err))
	assert.Zero(t, f.llm.Calls())

	got := f.load(t, a.ID)
	assert.Equal(t, domain.AnalysisParsing, got.Status)
	assert.Empty(t, got.Extraction)
	assert.Empty(t, got.CandidateIdeas)
}

func TestRedeliveredStagesAreNoops(t *testing.T) {
	f := newFixture(t, routedLLM(nil))
	a := f.seedUploaded(t, textPDF())
	ctx := context.Background()

	_, err := f.uc.Read(ctx, ReadInput{AnalysisID: a.ID})
	require.NoError(t, err)
	calls := f.llm.Calls()

	again, err := f.uc.Read(ctx, ReadInput{AnalysisID: a.ID})
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.Equal(t, calls, f.llm.Calls())

	_, err = f.uc.Search(ctx, SearchInput{AnalysisID: a.ID})
	require.ErrorContains(t, err, "not searching")

	f.selectIdeas(t, a.ID, []int{0})
	_, err = f.uc.Search(ctx, SearchInput{AnalysisID: a.ID})
	require.NoError(t, err)
	done, err := f.uc.Search(ctx, SearchInput{AnalysisID: a.ID})
	require.NoError(t, err)
	assert.True(t, done.Skipped)
	assert.Equal(t, domain.AnalysisComplete, done.Status)
}

func TestValidateSelection(t *testing.T) {
	require.NoError(t, ValidateSelection([]int{0, 2}, 3))
	cases := []struct {
		name       string
		sel        []int
		candidates int
	}{
		{"empty", []int{}, 3},
		{"out of range", []int{3}, 3},
		{"negative", []int{-1}, 3},
		{"duplicate", []int{1, 1}, 3},
		{"too many", []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 11},
	}
	for _, tc := range cases {
		err := ValidateSelection(tc.sel, tc.candidates)
		if !errkind.Is(err, errkind.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}
