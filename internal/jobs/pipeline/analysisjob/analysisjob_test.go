package analysisjob

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos"
	"github.com/yungbote/paperlens-backend/internal/data/repos/testutil"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/paperlens-backend/internal/jobs/runtime"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

type statusRecorder struct {
	mu       sync.Mutex
	statuses []types.AnalysisStatus
}

func (r *statusRecorder) JobCreated(*types.JobRun)                       {}
func (r *statusRecorder) JobProgress(*types.JobRun, string, int, string) {}
func (r *statusRecorder) JobFailed(*types.JobRun, string, string)        {}
func (r *statusRecorder) JobDone(*types.JobRun)                          {}
func (r *statusRecorder) AnalysisStatus(a *types.Analysis) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, a.Status)
}

type fixture struct {
	db     *gorm.DB
	repo   repos.Repos
	notify *statusRecorder
	deps   Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	repo := repos.New(db, logger.Nop())
	notify := &statusRecorder{}
	return &fixture{
		db:     db,
		repo:   repo,
		notify: notify,
		deps: Deps{
			Log:         logger.Nop(),
			Analyses:    repo.Analysis,
			Notify:      notify,
			Budget:      10 * time.Minute,
			MaxAttempts: 3,
		},
	}
}

func (f *fixture) analysis(t *testing.T, status types.AnalysisStatus, startedAt time.Time) *types.Analysis {
	t.Helper()
	ctx := context.Background()
	p := testutil.SeedPaper(t, ctx, f.db, "Attention")
	a := testutil.SeedAnalysis(t, ctx, f.db, p.ID, status, []string{"nlp"})
	require.NoError(t, f.repo.Analysis.UpdateFields(dbctx.Context{Ctx: ctx}, a.ID, map[string]interface{}{"started_at": startedAt}))
	return a
}

func (f *fixture) job(t *testing.T, payload string, attempts int) *jobrt.Context {
	t.Helper()
	ctx := context.Background()
	job := testutil.SeedJobRun(t, ctx, f.db, &types.JobRun{
		ID:         uuid.New(),
		JobType:    jobs.TypePaperRead,
		EntityType: jobs.EntityAnalysis,
		Status:     jobs.StatusRunning,
		Stage:      "running",
		Attempts:   attempts,
		Payload:    []byte(payload),
	})
	return jobrt.NewContext(ctx, f.db, job, f.repo.JobRun, f.notify)
}

func (f *fixture) reload(t *testing.T, jc *jobrt.Context, id uuid.UUID) (*types.JobRun, *types.Analysis) {
	t.Helper()
	dbc := dbctx.Context{Ctx: context.Background()}
	job, err := f.repo.JobRun.GetByID(dbc, jc.Job.ID)
	require.NoError(t, err)
	a, err := f.repo.Analysis.GetByID(dbc, id)
	require.NoError(t, err)
	return job, a
}

func payloadFor(id uuid.UUID) string {
	return fmt.Sprintf(`{"analysis_id":%q}`, id)
}

func TestFinishOutcomes(t *testing.T) {
	cases := []struct {
		name       string
		attempts   int
		err        error
		wantJob    string
		wantStatus types.AnalysisStatus
		wantKind   string
	}{
		{name: "success", err: nil, wantJob: jobs.StatusSucceeded, wantStatus: types.AnalysisReading},
		{name: "provider error is final", attempts: 1, err: errkind.Provider("llm", fmt.Errorf("bad gateway")),
			wantJob: jobs.StatusDead, wantStatus: types.AnalysisError, wantKind: "provider"},
		{name: "internal error retries", attempts: 1, err: fmt.Errorf("connection reset"),
			wantJob: jobs.StatusFailed, wantStatus: types.AnalysisReading},
		{name: "internal error on last attempt is final", attempts: 3, err: fmt.Errorf("connection reset"),
			wantJob: jobs.StatusDead, wantStatus: types.AnalysisError, wantKind: "internal"},
		{name: "lost race leaves analysis alone", attempts: 1, err: fmt.Errorf("transition: %w", pkgerrors.ErrConflict),
			wantJob: jobs.StatusDead, wantStatus: types.AnalysisReading},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			a := f.analysis(t, types.AnalysisReading, time.Now())
			jc := f.job(t, payloadFor(a.ID), tc.attempts)

			run, err := Begin(jc, f.deps)
			require.NoError(t, err)
			assert.Equal(t, a.ID, run.AnalysisID())
			run.Finish("reading", map[string]any{"ok": true}, tc.err)

			job, got := f.reload(t, jc, a.ID)
			assert.Equal(t, tc.wantJob, job.Status)
			assert.Equal(t, tc.wantStatus, got.Status)
			assert.Equal(t, tc.wantKind, got.ErrorKind)
		})
	}
}

func TestFinishAfterBudgetIsTimeout(t *testing.T) {
	f := newFixture(t)
	a := f.analysis(t, types.AnalysisSearching, time.Now().Add(-11*time.Minute))
	jc := f.job(t, payloadFor(a.ID), 1)

	run, err := Begin(jc, f.deps)
	require.NoError(t, err)
	<-run.Ctx.Done()
	run.Finish("searching", nil, run.Ctx.Err())

	job, got := f.reload(t, jc, a.ID)
	assert.Equal(t, jobs.StatusDead, job.Status)
	assert.Equal(t, types.AnalysisError, got.Status)
	assert.Equal(t, "timeout", got.ErrorKind)
	assert.Contains(t, got.ErrorMessage, "budget")
	assert.Equal(t, []types.AnalysisStatus{types.AnalysisError}, f.notify.statuses)
}

func TestFinishOnShutdownRetries(t *testing.T) {
	f := newFixture(t)
	a := f.analysis(t, types.AnalysisReading, time.Now())
	jc := f.job(t, payloadFor(a.ID), 1)
	ctx, cancel := context.WithCancel(context.Background())
	jc.Ctx = ctx

	run, err := Begin(jc, f.deps)
	require.NoError(t, err)
	cancel()
	run.Finish("reading", nil, errkind.Provider("llm", context.Canceled))

	job, got := f.reload(t, jc, a.ID)
	assert.Equal(t, jobs.StatusFailed, job.Status)
	assert.Equal(t, types.AnalysisReading, got.Status)
	assert.Empty(t, f.notify.statuses)
}

func TestBeginRejectsBadPayload(t *testing.T) {
	f := newFixture(t)

	jc := f.job(t, `{}`, 1)
	_, err := Begin(jc, f.deps)
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.KindValidation))
	FailBegin(jc, err)
	assert.Equal(t, jobs.StatusDead, jc.Job.Status)

	missing := f.job(t, payloadFor(uuid.New()), 1)
	_, err = Begin(missing, f.deps)
	require.Error(t, err)
	FailBegin(missing, err)
	assert.Equal(t, jobs.StatusDead, missing.Job.Status)
}
