package papers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/paperlens-backend/internal/data/repos/testutil"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
)

func TestAnalysisRepoTransition(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewAnalysisRepo(db, testutil.Logger(t))

	paper := testutil.SeedPaper(t, ctx, tx, "Attention")
	a := testutil.SeedAnalysis(t, ctx, tx, paper.ID, types.AnalysisUploaded, []string{"NLP"})

	ok, err := repo.Transition(dbc, a.ID, types.AnalysisUploaded, types.AnalysisParsing, map[string]interface{}{"progress": 10})
	require.NoError(t, err)
	assert.True(t, ok)

	// Stale writer loses the compare-and-set.
	ok, err = repo.Transition(dbc, a.ID, types.AnalysisUploaded, types.AnalysisParsing, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// complete is terminal; the repo refuses the edge before touching the row.
	ok, err = repo.Transition(dbc, a.ID, types.AnalysisComplete, types.AnalysisParsing, nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, pkgerrors.ErrIllegalTransition)
	assert.ErrorIs(t, err, pkgerrors.ErrConflict)

	// Skipping reading is refused as well.
	_, err = repo.Transition(dbc, a.ID, types.AnalysisParsing, types.AnalysisComplete, nil)
	assert.ErrorIs(t, err, pkgerrors.ErrIllegalTransition)

	got, err := repo.GetByID(dbc, a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisParsing, got.Status)
	assert.Equal(t, 10, got.Progress)

	ok, err = repo.Fail(dbc, a.ID, "parse", "no text")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Fail(dbc, a.ID, "parse", "again")
	require.NoError(t, err)
	assert.False(t, ok, "terminal analyses are not re-failed")

	got, err = repo.GetByID(dbc, a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisError, got.Status)
	assert.Equal(t, "no text", got.ErrorMessage)
}

func TestAnalysisRepoListing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewAnalysisRepo(db, testutil.Logger(t))
	paperRepo := NewPaperRepo(db, testutil.Logger(t))

	paper := testutil.SeedPaper(t, ctx, tx, "Graphs")
	first := testutil.SeedAnalysis(t, ctx, tx, paper.ID, types.AnalysisComplete, nil)
	second := testutil.SeedAnalysis(t, ctx, tx, paper.ID, types.AnalysisUploaded, nil)
	require.NoError(t, tx.Model(first).Update("created_at", time.Now().Add(-time.Hour)).Error)

	list, err := repo.ListByPaper(dbc, paper.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	unstarted, err := repo.LatestUnstarted(dbc, paper.ID)
	require.NoError(t, err)
	require.NotNil(t, unstarted)
	assert.Equal(t, second.ID, unstarted.ID)

	papers, err := paperRepo.List(dbc, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, papers)
	assert.Equal(t, int64(2), papers[0].AnalysisCount)

	_, err = repo.GetByID(dbc, paper.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestAnalysisRepoListStale(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewAnalysisRepo(db, testutil.Logger(t))

	paper := testutil.SeedPaper(t, ctx, tx, "Stale")
	old := testutil.SeedAnalysis(t, ctx, tx, paper.ID, types.AnalysisReading, nil)
	require.NoError(t, tx.Model(old).Update("started_at", time.Now().Add(-time.Hour)).Error)
	testutil.SeedAnalysis(t, ctx, tx, paper.ID, types.AnalysisSearching, nil)
	testutil.SeedAnalysis(t, ctx, tx, paper.ID, types.AnalysisIdeasReady, nil)

	stale, err := repo.ListStale(dbc, time.Now().Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}

func TestAnalysisRepoClaimUnstarted(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewAnalysisRepo(db, testutil.Logger(t))

	paper := testutil.SeedPaper(t, ctx, tx, "Claims")
	a := testutil.SeedAnalysis(t, ctx, tx, paper.ID, types.AnalysisUploaded, nil)
	running := testutil.SeedAnalysis(t, ctx, tx, paper.ID, types.AnalysisReading, nil)

	jobID := uuid.New()
	ok, err := repo.ClaimUnstarted(dbc, a.ID, map[string]interface{}{"job_id": jobID})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ClaimUnstarted(dbc, a.ID, map[string]interface{}{"job_id": uuid.New()})
	require.NoError(t, err)
	assert.False(t, ok, "an analysis with a job is already claimed")

	ok, err = repo.ClaimUnstarted(dbc, running.ID, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(dbc, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.JobID)
	assert.Equal(t, jobID, *got.JobID)
}
