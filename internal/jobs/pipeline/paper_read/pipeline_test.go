package paper_read

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos"
	"github.com/yungbote/paperlens-backend/internal/data/repos/testutil"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
	"github.com/yungbote/paperlens-backend/internal/jobs/pipeline/analysisjob"
	jobrt "github.com/yungbote/paperlens-backend/internal/jobs/runtime"
	"github.com/yungbote/paperlens-backend/internal/modules/research"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/platform/llm/llmtest"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/platform/objectstore"
	"github.com/yungbote/paperlens-backend/internal/platform/pdftext"
	"github.com/yungbote/paperlens-backend/internal/platform/pdftext/pdftest"
)

const extractReply = `{"summary":"Sparse attention.","concepts":["attention"],"findings":["faster"],"limitations":[],"datasets":[],"future_work":[]}`

func ideasReply() string {
	ideas := make([]string, 0, 9)
	for i := 0; i < 9; i++ {
		ideas = append(ideas, fmt.Sprintf(`{"title":"Idea %d","description":"d","rationale":"r","topic_tags":["nlp"]}`, i))
	}
	return `{"ideas":[` + strings.Join(ideas, ",") + `]}`
}

type harness struct {
	db    *gorm.DB
	repo  repos.Repos
	store *objectstore.Local
	p     *Pipeline
}

func newHarness(t *testing.T, llmc *llmtest.Client) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := logger.Nop()
	r := repos.New(db, log)
	store, err := objectstore.NewLocal(t.TempDir())
	require.NoError(t, err)
	uc := research.New(research.UsecasesDeps{
		DB:       db,
		Log:      log,
		LLM:      llmc,
		Store:    store,
		PDF:      pdftext.NewExtractor(log, nil),
		Papers:   r.Paper,
		Analyses: r.Analysis,
		Ideas:    r.ResearchIdea,
		Profiles: r.UserProfile,
	})
	p := New(log, uc, analysisjob.Deps{Analyses: r.Analysis})
	return &harness{db: db, repo: r, store: store, p: p}
}

func (h *harness) seed(t *testing.T, pdf []byte) *types.Analysis {
	t.Helper()
	ctx := context.Background()
	paper := testutil.SeedPaper(t, ctx, h.db, "Sparse Attention")
	require.NoError(t, h.store.Put(ctx, paper.StorageKey, bytes.NewReader(pdf), "application/pdf"))
	return testutil.SeedAnalysis(t, ctx, h.db, paper.ID, types.AnalysisUploaded, []string{"nlp"})
}

func (h *harness) job(t *testing.T, analysisID uuid.UUID) *jobrt.Context {
	t.Helper()
	ctx := context.Background()
	job := testutil.SeedJobRun(t, ctx, h.db, &types.JobRun{
		ID:         uuid.New(),
		JobType:    jobs.TypePaperRead,
		EntityType: jobs.EntityAnalysis,
		EntityID:   testutil.PtrUUID(analysisID),
		Status:     jobs.StatusRunning,
		Stage:      "running",
		Attempts:   1,
		Payload:    testutil.JSON(t, map[string]string{"analysis_id": analysisID.String()}),
	})
	return jobrt.NewContext(ctx, h.db, job, h.repo.JobRun, nil)
}

func TestRunReachesIdeasReady(t *testing.T) {
	llmc := llmtest.Texts(extractReply, ideasReply())
	h := newHarness(t, llmc)
	a := h.seed(t, pdftest.Build("Sparse Attention", "Sparse Attention for Long Documents"))
	jc := h.job(t, a.ID)

	require.NoError(t, h.p.Run(jc))
	assert.Equal(t, jobs.StatusSucceeded, jc.Job.Status)
	assert.Equal(t, 2, llmc.Calls())

	got, err := h.repo.Analysis.GetByID(dbctx.Context{Ctx: context.Background()}, a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisIdeasReady, got.Status)
}

func TestRunScannedPDFFailsAnalysis(t *testing.T) {
	llmc := llmtest.New()
	h := newHarness(t, llmc)
	a := h.seed(t, pdftest.Build("Scanned", ""))
	jc := h.job(t, a.ID)

	require.NoError(t, h.p.Run(jc))
	assert.Equal(t, jobs.StatusDead, jc.Job.Status)
	assert.Zero(t, llmc.Calls())

	got, err := h.repo.Analysis.GetByID(dbctx.Context{Ctx: context.Background()}, a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisError, got.Status)
	assert.Equal(t, "parse", got.ErrorKind)
}

func TestRunMissingAnalysisIsPermanent(t *testing.T) {
	h := newHarness(t, llmtest.New())
	jc := h.job(t, uuid.New())

	require.NoError(t, h.p.Run(jc))
	assert.Equal(t, jobs.StatusDead, jc.Job.Status)
	assert.Equal(t, "validate", jc.Job.Stage)
}
