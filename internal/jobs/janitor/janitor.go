// Package janitor fails analyses whose worker vanished mid-run. A stage
// job normally enforces the analysis budget itself; the janitor covers
// runs whose process died before it could.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/yungbote/paperlens-backend/internal/data/repos"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/platform/envutil"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/services"
)

const batchSize = 100

type Config struct {
	// Cron is a standard five-field expression.
	Cron   string
	Budget time.Duration
	Grace  time.Duration
}

func LoadConfig(budget time.Duration) Config {
	return Config{
		Cron:   envutil.String("JANITOR_CRON", "*/1 * * * *"),
		Budget: budget,
		Grace:  envutil.Duration("JANITOR_GRACE", time.Minute),
	}
}

type Janitor struct {
	log      *logger.Logger
	analyses repos.AnalysisRepo
	notify   services.JobNotifier
	cfg      Config
	now      func() time.Time
}

func New(log *logger.Logger, analyses repos.AnalysisRepo, notify services.JobNotifier, cfg Config) (*Janitor, error) {
	if !gronx.New().IsValid(cfg.Cron) {
		return nil, fmt.Errorf("janitor: invalid cron expression %q", cfg.Cron)
	}
	if cfg.Budget <= 0 {
		return nil, fmt.Errorf("janitor: budget must be positive")
	}
	return &Janitor{
		log:      log.With("component", "Janitor"),
		analyses: analyses,
		notify:   notify,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// Start sweeps on every cron tick until ctx is done.
func (j *Janitor) Start(ctx context.Context) {
	go func() {
		for {
			next, err := gronx.NextTickAfter(j.cfg.Cron, j.now(), false)
			if err != nil {
				j.log.Error("janitor schedule failed", "cron", j.cfg.Cron, "error", err)
				return
			}
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if n, err := j.Sweep(ctx); err != nil {
				j.log.Warn("janitor sweep failed", "error", err)
			} else if n > 0 {
				j.log.Info("janitor timed out stale analyses", "count", n)
			}
		}
	}()
}

// Sweep moves every analysis running past budget plus grace to error with
// kind timeout and returns how many it moved.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-(j.cfg.Budget + j.cfg.Grace))
	stale, err := j.analyses.ListStale(dbctx.Context{Ctx: ctx}, cutoff, batchSize)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, a := range stale {
		msg := errkind.Timeout("janitor", fmt.Errorf("analysis exceeded its %s budget in %s", j.cfg.Budget, a.Status)).Error()
		ok, err := j.analyses.Fail(dbctx.Context{Ctx: ctx}, a.ID, string(errkind.KindTimeout), msg)
		if err != nil {
			return moved, err
		}
		if !ok {
			continue
		}
		moved++
		if j.notify == nil {
			continue
		}
		if cur, err := j.analyses.GetByID(dbctx.Context{Ctx: ctx}, a.ID); err == nil {
			j.notify.AnalysisStatus(cur)
		}
	}
	return moved, nil
}
