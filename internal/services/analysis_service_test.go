package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/paperlens-backend/internal/data/repos/testutil"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
	"github.com/yungbote/paperlens-backend/internal/domain/user"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
	"github.com/yungbote/paperlens-backend/internal/realtime"
)

func newAnalysisService(e *env) AnalysisService {
	return NewAnalysisService(e.db, e.log, e.repos, e.jobs, e.notify)
}

func threeIdeas() []types.CandidateIdea {
	return []types.CandidateIdea{
		{Title: "Idea A", TopicTags: []string{"nlp"}},
		{Title: "Idea B", TopicTags: []string{"vision"}},
		{Title: "Idea C", TopicTags: []string{"nlp", "graphs"}},
	}
}

func TestNormalizeTopics(t *testing.T) {
	got := NormalizeTopics([]string{" NLP ", "nlp", "", "Vision", "  "})
	assert.Equal(t, []string{"NLP", "Vision"}, got)
	assert.Empty(t, NormalizeTopics(nil))
}

func TestAnalyzeQueuesReadJob(t *testing.T) {
	e := newEnv(t)
	svc := newAnalysisService(e)
	ctx := context.Background()
	paper := testutil.SeedPaper(t, ctx, e.db, "Sparse Attention")
	seeded := testutil.SeedAnalysis(t, ctx, e.db, paper.ID, types.AnalysisUploaded, nil)

	a, job, err := svc.Analyze(dbctx.Context{Ctx: ctx}, AnalyzeInput{
		PaperID: paper.ID,
		Topics:  []string{" NLP ", "nlp", "Vision"},
	})
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, a.ID, "the paper's unstarted analysis is reused")
	assert.Equal(t, types.AnalysisUploaded, a.Status, "the worker moves it to parsing")
	require.NotNil(t, a.JobID)
	assert.Equal(t, job.ID, *a.JobID)

	var topics []string
	require.NoError(t, json.Unmarshal(a.Topics, &topics))
	assert.Equal(t, []string{"NLP", "Vision"}, topics)

	assert.Equal(t, jobs.TypePaperRead, job.JobType)
	assert.Equal(t, jobs.StatusQueued, job.Status)
	require.NotNil(t, job.EntityID)
	assert.Equal(t, a.ID, *job.EntityID)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, a.ID.String(), payload["analysis_id"])

	assert.Contains(t, e.emit.events(a.ID.String()), realtime.SSEEventJobCreated)
}

func TestAnalyzeRejectsEmptyTopics(t *testing.T) {
	e := newEnv(t)
	svc := newAnalysisService(e)
	ctx := context.Background()
	paper := testutil.SeedPaper(t, ctx, e.db, "Graphs")
	seeded := testutil.SeedAnalysis(t, ctx, e.db, paper.ID, types.AnalysisUploaded, nil)

	_, _, err := svc.Analyze(dbctx.Context{Ctx: ctx}, AnalyzeInput{PaperID: paper.ID, AnalysisID: &seeded.ID, Topics: []string{" ", ""}})
	require.Error(t, err)
	assert.Equal(t, errkind.KindValidation, errkind.KindOf(err))

	got, err := e.repos.Analysis.GetByID(dbctx.Context{Ctx: ctx}, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisUploaded, got.Status)
	assert.Nil(t, got.JobID)
}

func TestAnalyzeUnknownPaper(t *testing.T) {
	e := newEnv(t)
	_, _, err := newAnalysisService(e).Analyze(dbctx.Context{Ctx: context.Background()}, AnalyzeInput{
		PaperID: uuid.New(),
		Topics:  []string{"NLP"},
	})
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestAnalyzeStartedAnalysisConflicts(t *testing.T) {
	e := newEnv(t)
	svc := newAnalysisService(e)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	paper := testutil.SeedPaper(t, ctx, e.db, "Graphs")
	seeded := testutil.SeedAnalysis(t, ctx, e.db, paper.ID, types.AnalysisUploaded, nil)

	first, _, err := svc.Analyze(dbc, AnalyzeInput{PaperID: paper.ID, AnalysisID: &seeded.ID, Topics: []string{"NLP"}})
	require.NoError(t, err)

	_, _, err = svc.Analyze(dbc, AnalyzeInput{PaperID: paper.ID, AnalysisID: &seeded.ID, Topics: []string{"NLP"}})
	assert.ErrorIs(t, err, pkgerrors.ErrConflict)

	// Without an explicit analysis a fresh one is created for the paper.
	second, _, err := svc.Analyze(dbc, AnalyzeInput{PaperID: paper.ID, Topics: []string{"Vision"}})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, paper.ID, second.PaperID)

	other := testutil.SeedPaper(t, ctx, e.db, "Other")
	_, _, err = svc.Analyze(dbc, AnalyzeInput{PaperID: other.ID, AnalysisID: &second.ID, Topics: []string{"NLP"}})
	assert.Equal(t, errkind.KindValidation, errkind.KindOf(err))
}

func TestAnalyzeSnapshotsReadyProfile(t *testing.T) {
	e := newEnv(t)
	svc := newAnalysisService(e)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	paper := testutil.SeedPaper(t, ctx, e.db, "Graphs")

	ready := &types.UserProfile{
		Status:  user.ProfileStatusReady,
		Profile: testutil.JSON(t, types.StructuredProfile{ExpertiseLevel: "phd", NoveltyWeight: 0.6, DoabilityWeight: 0.4}),
	}
	require.NoError(t, e.repos.UserProfile.Create(dbc, ready))
	pending := &types.UserProfile{Status: user.ProfileStatusPending, Description: "nlp"}
	require.NoError(t, e.repos.UserProfile.Create(dbc, pending))

	a, _, err := svc.Analyze(dbc, AnalyzeInput{PaperID: paper.ID, Topics: []string{"NLP"}, UserID: &ready.ID})
	require.NoError(t, err)
	require.NotNil(t, a.UserID)
	assert.Equal(t, ready.ID, *a.UserID)
	var snap types.StructuredProfile
	require.NoError(t, json.Unmarshal(a.ProfileSnapshot, &snap))
	assert.Equal(t, "phd", snap.ExpertiseLevel)

	b, _, err := svc.Analyze(dbc, AnalyzeInput{PaperID: paper.ID, Topics: []string{"NLP"}, UserID: &pending.ID})
	require.NoError(t, err)
	assert.Empty(t, b.ProfileSnapshot, "profiles still building are not snapshotted")

	missing := uuid.New()
	_, _, err = svc.Analyze(dbc, AnalyzeInput{PaperID: paper.ID, Topics: []string{"NLP"}, UserID: &missing})
	assert.Equal(t, errkind.KindValidation, errkind.KindOf(err))
}

func TestSearchRejectsBadSelection(t *testing.T) {
	e := newEnv(t)
	svc := newAnalysisService(e)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	paper := testutil.SeedPaper(t, ctx, e.db, "Graphs")
	a := testutil.SeedIdeasReady(t, ctx, e.db, paper.ID, []string{"nlp"}, threeIdeas())

	cases := map[string][]int{
		"none":         {},
		"too many":     {0, 1, 2, 0, 1, 2, 0, 1, 2, 0, 1},
		"out of range": {3},
		"negative":     {-1},
		"duplicate":    {1, 1},
	}
	for name, indices := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.Search(dbc, a.ID, indices)
			require.Error(t, err)
			assert.Equal(t, errkind.KindValidation, errkind.KindOf(err))
		})
	}

	got, err := e.repos.Analysis.GetByID(dbc, a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisIdeasReady, got.Status)
	assert.Empty(t, got.SelectedIdeas)
	assert.Nil(t, got.JobID)
}

func TestSearchQueuesSearchJob(t *testing.T) {
	e := newEnv(t)
	svc := newAnalysisService(e)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	paper := testutil.SeedPaper(t, ctx, e.db, "Graphs")
	a := testutil.SeedIdeasReady(t, ctx, e.db, paper.ID, []string{"nlp"}, threeIdeas())
	// The read stage used most of its budget; searching starts a fresh one.
	readStart := time.Now().Add(-9 * time.Minute)
	require.NoError(t, e.repos.Analysis.UpdateFields(dbc, a.ID, map[string]interface{}{"started_at": readStart}))

	got, job, err := svc.Search(dbc, a.ID, []int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisSearching, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.True(t, got.StartedAt.After(readStart.Add(time.Minute)))
	var selected []int
	require.NoError(t, json.Unmarshal(got.SelectedIdeas, &selected))
	assert.Equal(t, []int{2, 0}, selected)
	assert.Equal(t, jobs.TypeIdeaSearch, job.JobType)
	assert.Equal(t, job.ID, *got.JobID)

	events := e.emit.events(a.ID.String())
	assert.Contains(t, events, realtime.SSEEventJobCreated)
	assert.Contains(t, events, realtime.SSEEventAnalysisStatus)

	_, _, err = svc.Search(dbc, a.ID, []int{1})
	assert.ErrorIs(t, err, pkgerrors.ErrConflict, "a second selection is rejected once searching")
}

func TestSearchBeforeIdeasReadyConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	paper := testutil.SeedPaper(t, ctx, e.db, "Graphs")
	a := testutil.SeedAnalysis(t, ctx, e.db, paper.ID, types.AnalysisReading, []string{"nlp"})

	_, _, err := newAnalysisService(e).Search(dbctx.Context{Ctx: ctx}, a.ID, []int{0})
	assert.ErrorIs(t, err, pkgerrors.ErrConflict)
}

func TestResultsByStatus(t *testing.T) {
	e := newEnv(t)
	svc := newAnalysisService(e)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	paper := testutil.SeedPaper(t, ctx, e.db, "Graphs")

	uploaded := testutil.SeedAnalysis(t, ctx, e.db, paper.ID, types.AnalysisUploaded, nil)
	res, err := svc.Results(dbc, uploaded.ID)
	require.NoError(t, err)
	assert.False(t, res.Ready)

	ready := testutil.SeedIdeasReady(t, ctx, e.db, paper.ID, []string{"nlp"}, threeIdeas())
	res, err = svc.Results(dbc, ready.ID)
	require.NoError(t, err)
	assert.True(t, res.Ready)
	assert.Len(t, res.Candidates, 3)
	assert.Empty(t, res.Ranked)
	assert.Equal(t, "s", res.Extraction.Summary)
	assert.Equal(t, paper.ID, res.Paper.ID)

	done := testutil.SeedIdeasReady(t, ctx, e.db, paper.ID, []string{"nlp"}, threeIdeas())
	require.NoError(t, e.repos.ResearchIdea.ReplaceForAnalysis(dbc, done.ID, []*types.ResearchIdea{
		{Rank: 2, SourceIndex: 1, Title: "Idea B"},
		{Rank: 1, SourceIndex: 0, Title: "Idea A", References: []types.Reference{{Title: "Prior", Category: "recent"}}},
	}))
	require.NoError(t, e.repos.Analysis.UpdateFields(dbc, done.ID, map[string]interface{}{
		"status":    types.AnalysisComplete,
		"diversity": testutil.JSON(t, types.DiversityReport{Checked: true}),
	}))
	res, err = svc.Results(dbc, done.ID)
	require.NoError(t, err)
	assert.True(t, res.Ready)
	require.Len(t, res.Ranked, 2)
	assert.Equal(t, 1, res.Ranked[0].Rank)
	assert.Len(t, res.Ranked[0].References, 1)
	require.NotNil(t, res.Diversity)
	assert.True(t, res.Diversity.Checked)

	_, err = svc.Results(dbc, uuid.New())
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestListings(t *testing.T) {
	e := newEnv(t)
	svc := newAnalysisService(e)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	paper := testutil.SeedPaper(t, ctx, e.db, "Graphs")
	testutil.SeedAnalysis(t, ctx, e.db, paper.ID, types.AnalysisUploaded, nil)
	testutil.SeedAnalysis(t, ctx, e.db, paper.ID, types.AnalysisComplete, nil)

	papers, err := svc.ListPapers(dbc, 0, -1)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, int64(2), papers[0].AnalysisCount)

	list, err := svc.ListAnalyses(dbc, paper.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.ListAnalyses(dbc, uuid.New())
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestAnalyzeByAnalysisIDOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	paper := testutil.SeedPaper(t, ctx, e.db, "Graphs")
	seeded := testutil.SeedAnalysis(t, ctx, e.db, paper.ID, types.AnalysisUploaded, nil)

	a, _, err := newAnalysisService(e).Analyze(dbctx.Context{Ctx: ctx}, AnalyzeInput{AnalysisID: &seeded.ID, Topics: []string{"NLP"}})
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, a.ID)
	assert.Equal(t, paper.ID, a.PaperID)

	_, _, err = newAnalysisService(e).Analyze(dbctx.Context{Ctx: ctx}, AnalyzeInput{Topics: []string{"NLP"}})
	assert.Equal(t, errkind.KindValidation, errkind.KindOf(err))
}
