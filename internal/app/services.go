package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos"
	"github.com/yungbote/paperlens-backend/internal/jobs/janitor"
	"github.com/yungbote/paperlens-backend/internal/jobs/pipeline/analysisjob"
	"github.com/yungbote/paperlens-backend/internal/jobs/pipeline/idea_search"
	"github.com/yungbote/paperlens-backend/internal/jobs/pipeline/paper_read"
	"github.com/yungbote/paperlens-backend/internal/jobs/pipeline/profile_build"
	jobruntime "github.com/yungbote/paperlens-backend/internal/jobs/runtime"
	"github.com/yungbote/paperlens-backend/internal/jobs/worker"
	"github.com/yungbote/paperlens-backend/internal/modules/research"
	"github.com/yungbote/paperlens-backend/internal/observability"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/platform/pdftext"
	"github.com/yungbote/paperlens-backend/internal/realtime"
	"github.com/yungbote/paperlens-backend/internal/services"
	"github.com/yungbote/paperlens-backend/internal/temporalx/temporalworker"
)

type Services struct {
	// Core
	Notifier services.JobNotifier
	Jobs     services.JobService
	Analyses services.AnalysisService
	Uploads  services.UploadService
	Profiles services.ProfileService

	// Job infra
	JobRegistry    *jobruntime.Registry
	Executor       *jobruntime.Executor
	JobWorker      *worker.Worker
	TemporalWorker *temporalworker.Runner
	Janitor        *janitor.Janitor
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r repos.Repos, hub *realtime.SSEHub, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	var emitter services.SSEEmitter
	switch {
	case clients.SSEBus != nil:
		// Every server process forwards the bus into its own hub.
		emitter = &services.BusEmitter{Bus: clients.SSEBus, Log: log}
	case cfg.RunServer:
		emitter = &services.HubEmitter{Hub: hub}
	default:
		return Services{}, fmt.Errorf("worker-only mode requires REDIS_ADDR to publish SSE events")
	}

	notifier := services.NewJobNotifier(emitter)
	jobService := services.NewJobService(db, log, r.JobRun, notifier, clients.Temporal, clients.TemporalConfig.TaskQueue)

	out := Services{
		Notifier: notifier,
		Jobs:     jobService,
		Analyses: services.NewAnalysisService(db, log, r, jobService, notifier),
		Uploads:  services.NewUploadService(db, log, clients.Store, r, cfg.MaxUploadBytes),
		Profiles: services.NewProfileService(db, log, r.UserProfile, jobService),
	}
	if !cfg.RunWorker {
		return out, nil
	}

	// --------------------
	// Analysis pipelines
	// --------------------
	var ocr pdftext.OCR
	if clients.OCR != nil {
		ocr = clients.OCR
	}
	uc := research.New(research.UsecasesDeps{
		DB:         db,
		Log:        log,
		LLM:        clients.LLM,
		Literature: clients.Literature,
		Scholar:    clients.Scholar,
		Store:      clients.Store,
		PDF:        pdftext.NewExtractor(log, ocr),
		Papers:     r.Paper,
		Analyses:   r.Analysis,
		Ideas:      r.ResearchIdea,
		Profiles:   r.UserProfile,
		Config:     cfg.Research,
	})

	workerCfg := worker.LoadConfig()
	stage := analysisjob.Deps{
		Analyses:    r.Analysis,
		Notify:      notifier,
		Budget:      cfg.AnalysisBudget,
		MaxAttempts: workerCfg.MaxAttempts,
	}
	projector := services.NewGraphProjector(log, clients.Neo4j, r)

	registry := jobruntime.NewRegistry()
	if err := registry.Register(
		paper_read.New(log, uc, stage),
		idea_search.New(log, uc, stage, projector),
		profile_build.New(log, uc, r.UserProfile, workerCfg.MaxAttempts),
	); err != nil {
		return Services{}, fmt.Errorf("register job handlers: %w", err)
	}
	log.Info("job handlers registered", "types", registry.Types())

	exec := &jobruntime.Executor{
		DB:       db,
		Log:      log,
		Repo:     r.JobRun,
		Registry: registry,
		Notify:   notifier,
	}
	if metrics != nil {
		exec.Observer = metrics
	}
	out.JobRegistry = registry
	out.Executor = exec

	if clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, clients.Temporal, clients.TemporalConfig, exec, workerCfg.Concurrency, workerCfg.Heartbeat)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.TemporalWorker = runner
	} else {
		out.JobWorker = worker.NewWorker(log, r.JobRun, exec, workerCfg)
	}

	jan, err := janitor.New(log, r.Analysis, notifier, janitor.LoadConfig(cfg.AnalysisBudget))
	if err != nil {
		return Services{}, err
	}
	out.Janitor = jan
	return out, nil
}
