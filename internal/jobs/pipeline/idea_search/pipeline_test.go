package idea_search

import (
	"context"
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
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
	"github.com/yungbote/paperlens-backend/internal/jobs/pipeline/analysisjob"
	jobrt "github.com/yungbote/paperlens-backend/internal/jobs/runtime"
	"github.com/yungbote/paperlens-backend/internal/modules/research"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/platform/llm"
	"github.com/yungbote/paperlens-backend/internal/platform/llm/llmtest"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

type staticLiterature struct{}

func (staticLiterature) Search(ctx context.Context, query string, limit int) ([]literature.Paper, error) {
	return []literature.Paper{{Title: "Prior work", Year: 2023, Source: "arxiv"}}, nil
}

type projectorSpy struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (p *projectorSpy) ProjectAnalysis(ctx context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return p.err
}

func searcherLLM() *llmtest.Client {
	c := &llmtest.Client{}
	c.Route = func(req llm.Request) (string, bool, error) {
		switch {
		case strings.Contains(req.System, "how novel"):
			return `{"explored":"No","maturity":"Emerging","gap":"g","novelty_score":4}`, true, nil
		case strings.Contains(req.System, "feasibility"):
			return `{"data_availability":"Available","methodology_complexity":"Standard","timeline":"3-6 months","expertise_level":"PhD","doability_score":4}`, true, nil
		case strings.Contains(req.System, "near-duplicates"):
			return `{"duplicates":[]}`, true, nil
		case strings.Contains(req.System, "synthesize prior literature"):
			return `{"overview":"o","key_papers":[{"paper_index":1,"category":"recent","summary":"s"}],"whats_missing":"w","suggested_approach":"a"}`, true, nil
		}
		return "", false, nil
	}
	return c
}

type harness struct {
	db   *gorm.DB
	repo repos.Repos
	proj *projectorSpy
	p    *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := logger.Nop()
	r := repos.New(db, log)
	uc := research.New(research.UsecasesDeps{
		DB:         db,
		Log:        log,
		LLM:        searcherLLM(),
		Literature: staticLiterature{},
		Papers:     r.Paper,
		Analyses:   r.Analysis,
		Ideas:      r.ResearchIdea,
		Profiles:   r.UserProfile,
	})
	proj := &projectorSpy{}
	return &harness{db: db, repo: r, proj: proj, p: New(log, uc, analysisjob.Deps{Analyses: r.Analysis}, proj)}
}

func (h *harness) searching(t *testing.T, selected []int) *types.Analysis {
	t.Helper()
	ctx := context.Background()
	paper := testutil.SeedPaper(t, ctx, h.db, "Sparse Attention")
	a := testutil.SeedIdeasReady(t, ctx, h.db, paper.ID, []string{"nlp"}, []types.CandidateIdea{
		{Title: "Idea A", Description: "a", TopicTags: []string{"nlp"}},
		{Title: "Idea B", Description: "b", TopicTags: []string{"vision"}},
	})
	ok, err := h.repo.Analysis.Transition(dbctx.Context{Ctx: ctx}, a.ID, types.AnalysisIdeasReady, types.AnalysisSearching, map[string]interface{}{
		"selected_ideas": testutil.JSON(t, selected),
		"started_at":     time.Now(),
	})
	require.NoError(t, err)
	require.True(t, ok)
	return a
}

func (h *harness) job(t *testing.T, analysisID uuid.UUID) *jobrt.Context {
	t.Helper()
	ctx := context.Background()
	job := testutil.SeedJobRun(t, ctx, h.db, &types.JobRun{
		ID:         uuid.New(),
		JobType:    jobs.TypeIdeaSearch,
		EntityType: jobs.EntityAnalysis,
		EntityID:   testutil.PtrUUID(analysisID),
		Status:     jobs.StatusRunning,
		Stage:      "running",
		Attempts:   1,
		Payload:    testutil.JSON(t, map[string]string{"analysis_id": analysisID.String()}),
	})
	return jobrt.NewContext(ctx, h.db, job, h.repo.JobRun, nil)
}

func TestRunCompletesAndProjects(t *testing.T) {
	h := newHarness(t)
	a := h.searching(t, []int{0, 1})
	jc := h.job(t, a.ID)

	require.NoError(t, h.p.Run(jc))
	assert.Equal(t, jobs.StatusSucceeded, jc.Job.Status)
	assert.Equal(t, []uuid.UUID{a.ID}, h.proj.ids)

	got, err := h.repo.Analysis.GetByID(dbctx.Context{Ctx: context.Background()}, a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisComplete, got.Status)
	rows, err := h.repo.ResearchIdea.ListByAnalysis(dbctx.Context{Ctx: context.Background()}, a.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRunProjectionFailureDoesNotFailJob(t *testing.T) {
	h := newHarness(t)
	h.proj.err = assert.AnError
	a := h.searching(t, []int{0})
	jc := h.job(t, a.ID)

	require.NoError(t, h.p.Run(jc))
	assert.Equal(t, jobs.StatusSucceeded, jc.Job.Status)
}

func TestRunRedeliveryAfterCompleteSkipsProjection(t *testing.T) {
	h := newHarness(t)
	a := h.searching(t, []int{0})

	require.NoError(t, h.p.Run(h.job(t, a.ID)))
	jc := h.job(t, a.ID)
	require.NoError(t, h.p.Run(jc))
	assert.Equal(t, jobs.StatusSucceeded, jc.Job.Status)
	assert.Len(t, h.proj.ids, 1)
}

func TestRunBeforeSelectionIsConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	paper := testutil.SeedPaper(t, ctx, h.db, "Sparse Attention")
	a := testutil.SeedIdeasReady(t, ctx, h.db, paper.ID, []string{"nlp"}, []types.CandidateIdea{{Title: "Idea A"}})
	jc := h.job(t, a.ID)

	require.NoError(t, h.p.Run(jc))
	assert.Equal(t, jobs.StatusDead, jc.Job.Status)
	got, err := h.repo.Analysis.GetByID(dbctx.Context{Ctx: ctx}, a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisIdeasReady, got.Status)
	assert.Empty(t, h.proj.ids)
}
