package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/paperlens-backend/internal/http/handlers"
	httpMW "github.com/yungbote/paperlens-backend/internal/http/middleware"
	"github.com/yungbote/paperlens-backend/internal/observability"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AllowedOrigins []string
	ServiceName    string

	PaperHandler    *httpH.PaperHandler
	AnalysisHandler *httpH.AnalysisHandler
	ProfileHandler  *httpH.ProfileHandler
	RealtimeHandler *httpH.RealtimeHandler
	JobHandler      *httpH.JobHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = httpMW.AllowedOrigins()
	}
	r.Use(httpMW.CORS(origins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Papers
		if cfg.PaperHandler != nil {
			api.POST("/upload", cfg.PaperHandler.Upload)
			api.GET("/papers", cfg.PaperHandler.ListPapers)
			api.GET("/papers/:id/analyses", cfg.PaperHandler.ListAnalyses)
		}

		// Analysis lifecycle
		if cfg.AnalysisHandler != nil {
			api.POST("/analyze", cfg.AnalysisHandler.Analyze)
			api.POST("/search", cfg.AnalysisHandler.Search)
			api.GET("/status/:id", cfg.AnalysisHandler.Status)
			api.GET("/results/:id", cfg.AnalysisHandler.Results)
			api.GET("/analyses/:id", cfg.AnalysisHandler.GetAnalysis)
		}

		// User profiles
		if cfg.ProfileHandler != nil {
			api.POST("/users/profile", cfg.ProfileHandler.Create)
			api.GET("/users/:id/profile", cfg.ProfileHandler.Get)
			api.PUT("/users/:id/profile", cfg.ProfileHandler.Update)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/analyses/:id/events", cfg.RealtimeHandler.AnalysisEvents)
			api.GET("/users/:id/events", cfg.RealtimeHandler.ProfileEvents)
		}

		// Job
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
