package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/paperlens-backend/internal/http"
	"github.com/yungbote/paperlens-backend/internal/observability"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, h Handlers, metrics *observability.Metrics) *gin.Engine {
	log.Info("Wiring router...")
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		AllowedOrigins:  cfg.AllowedOrigins,
		ServiceName:     cfg.ServiceName,
		PaperHandler:    h.Paper,
		AnalysisHandler: h.Analysis,
		ProfileHandler:  h.Profile,
		RealtimeHandler: h.Realtime,
		JobHandler:      h.Job,
		HealthHandler:   h.Health,
	})
}
