package runtime

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/services"
)

// Observer receives one call per finished run.
type Observer interface {
	ObserveJob(jobType, status string, dur time.Duration)
}

// Executor runs a claimed job through its handler. The polling worker and
// the Temporal activity share it.
type Executor struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Repo     repos.JobRunRepo
	Registry *Registry
	Notify   services.JobNotifier
	Observer Observer
}

// Execute always leaves the job in a terminal or retryable status: a
// handler that returns an error or panics fails the run, and one that
// returns nil without ending the run is marked succeeded.
func (e *Executor) Execute(ctx context.Context, job *types.JobRun) *Context {
	start := time.Now()
	jc := NewContext(ctx, e.DB, job, e.Repo, e.Notify)
	log := e.Log.With("job_id", job.ID, "job_type", job.JobType)

	h, ok := e.Registry.Get(job.JobType)
	if !ok {
		log.Warn("No handler registered for job_type")
		jc.FailPermanent("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		e.observe(job, start)
		return jc
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Job handler panic", "panic", r)
				jc.Fail("panic", fmt.Errorf("panic: %v", r))
			}
		}()
		if err := h.Run(jc); err != nil {
			if !jc.Terminal() {
				jc.Fail("run", err)
			}
			return
		}
		if !jc.Terminal() {
			log.Warn("Job handler returned without a terminal status; marking succeeded", "stage", job.Stage)
			jc.Succeed("done", nil)
		}
	}()
	e.observe(job, start)
	return jc
}

func (e *Executor) observe(job *types.JobRun, start time.Time) {
	if e.Observer != nil {
		e.Observer.ObserveJob(job.JobType, job.Status, time.Since(start))
	}
}
