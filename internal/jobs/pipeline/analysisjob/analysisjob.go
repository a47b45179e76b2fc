// Package analysisjob holds what the analysis stage pipelines share: the
// per-analysis wall-clock budget and the policy that maps a stage error to
// the job and analysis outcome.
package analysisjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/paperlens-backend/internal/data/repos"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/paperlens-backend/internal/jobs/runtime"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/services"
)

const DefaultBudget = 10 * time.Minute

type Deps struct {
	Log      *logger.Logger
	Analyses repos.AnalysisRepo
	Notify   services.JobNotifier
	// Budget is measured from the analysis' started_at.
	Budget      time.Duration
	MaxAttempts int
	Now         func() time.Time
}

func (d Deps) budget() time.Duration {
	if d.Budget <= 0 {
		return DefaultBudget
	}
	return d.Budget
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d Deps) maxAttempts() int {
	if d.MaxAttempts <= 0 {
		return jobs.DefaultMaxAttempts
	}
	return d.MaxAttempts
}

// Run is one analysis stage executed under the budget.
type Run struct {
	deps     Deps
	jc       *jobrt.Context
	parent   context.Context
	Ctx      context.Context
	cancel   context.CancelFunc
	Analysis *types.Analysis
}

// Begin loads the analysis named by the job payload and derives the stage
// context. An analysis without started_at is budgeted from now.
func Begin(jc *jobrt.Context, deps Deps) (*Run, error) {
	id, ok := jc.PayloadUUID("analysis_id")
	if !ok {
		return nil, errkind.Validationf("analysis_job", "missing analysis_id")
	}
	a, err := deps.Analyses.GetByID(dbctx.Context{Ctx: jc.Ctx}, id)
	if err != nil {
		return nil, fmt.Errorf("load analysis %s: %w", id, err)
	}
	start := deps.now()
	if a.StartedAt != nil && !a.StartedAt.IsZero() {
		start = *a.StartedAt
	}
	ctx, cancel := context.WithDeadline(jc.Ctx, start.Add(deps.budget()))
	return &Run{deps: deps, jc: jc, parent: jc.Ctx, Ctx: ctx, cancel: cancel, Analysis: a}, nil
}

// Report forwards stage progress to the job row.
func (r *Run) Report(stage string, pct int, msg string) {
	r.jc.Progress(stage, pct, msg)
}

// Finish ends the job. A nil err succeeds with result. Otherwise:
//   - a worker shutdown or a transient internal error below the attempt
//     limit leaves the analysis alone and lets the job retry;
//   - a lost compare-and-set means another run owns the analysis, so only
//     the job ends;
//   - anything else moves the analysis to error with its kind and ends the
//     job permanently. An exhausted budget is always kind timeout.
func (r *Run) Finish(stage string, result any, err error) {
	defer r.cancel()
	log := r.deps.Log.With("analysis_id", r.Analysis.ID, "job_id", r.jc.Job.ID, "stage", stage)
	if err == nil {
		r.jc.Succeed(stage, result)
		r.notifyStatus()
		return
	}

	kind := errkind.KindOf(err)
	switch {
	case r.parent.Err() != nil:
		log.Warn("analysis stage interrupted; job will be retried", "error", err)
		r.jc.Fail(stage, err)
		return
	case errors.Is(r.Ctx.Err(), context.DeadlineExceeded):
		kind = errkind.KindTimeout
		err = errkind.Timeout(stage, fmt.Errorf("analysis exceeded its %s budget: %w", r.deps.budget(), err))
	case errors.Is(err, pkgerrors.ErrConflict):
		log.Warn("analysis advanced by another run", "error", err)
		r.jc.FailPermanent(stage, err)
		return
	case kind == errkind.KindInternal && r.jc.Job.Attempts < r.deps.maxAttempts():
		log.Warn("transient analysis stage failure; job will be retried", "attempt", r.jc.Job.Attempts, "error", err)
		r.jc.Fail(stage, err)
		return
	}

	log.Error("analysis stage failed", "kind", kind, "error", err)
	if _, ferr := r.deps.Analyses.Fail(dbctx.Context{Ctx: context.WithoutCancel(r.parent)}, r.Analysis.ID, string(kind), err.Error()); ferr != nil {
		log.Error("recording analysis failure failed", "error", ferr)
	}
	r.jc.FailPermanent(stage, err)
	r.notifyStatus()
}

func (r *Run) notifyStatus() {
	if r.deps.Notify == nil {
		return
	}
	a, err := r.deps.Analyses.GetByID(dbctx.Context{Ctx: context.WithoutCancel(r.parent)}, r.Analysis.ID)
	if err != nil {
		return
	}
	r.deps.Notify.AnalysisStatus(a)
}

// AnalysisID is the id Begin resolved.
func (r *Run) AnalysisID() uuid.UUID { return r.Analysis.ID }

// FailBegin ends a job whose analysis could not be loaded. Bad payloads and
// missing analyses are permanent; anything else is retried.
func FailBegin(jc *jobrt.Context, err error) {
	if errkind.Is(err, errkind.KindValidation) || errors.Is(err, pkgerrors.ErrNotFound) {
		jc.FailPermanent("validate", err)
		return
	}
	jc.Fail("load", err)
}
