package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/paperlens-backend/internal/http/handlers"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/realtime"
)

type Handlers struct {
	Paper    *httpH.PaperHandler
	Analysis *httpH.AnalysisHandler
	Profile  *httpH.ProfileHandler
	Realtime *httpH.RealtimeHandler
	Job      *httpH.JobHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, cfg Config, s Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Paper:    httpH.NewPaperHandler(s.Uploads, s.Analyses, cfg.MaxUploadBytes),
		Analysis: httpH.NewAnalysisHandler(s.Analyses),
		Profile:  httpH.NewProfileHandler(s.Profiles),
		Realtime: httpH.NewRealtimeHandler(log, hub, s.Analyses, s.Profiles),
		Job:      httpH.NewJobHandler(s.Jobs),
		Health:   httpH.NewHealthHandler(db),
	}
}
