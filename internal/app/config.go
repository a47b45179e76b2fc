package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/yungbote/paperlens-backend/internal/clients/literature"
	"github.com/yungbote/paperlens-backend/internal/modules/research"
	"github.com/yungbote/paperlens-backend/internal/platform/gcp"
	"github.com/yungbote/paperlens-backend/internal/platform/llm"
)

type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	LogMode     string `env:"LOG_MODE" envDefault:"development"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"paperlens-backend"`
	Version     string `env:"APP_VERSION" envDefault:"dev"`

	RunServer bool `env:"RUN_SERVER" envDefault:"true"`
	RunWorker bool `env:"RUN_WORKER" envDefault:"true"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	AutoMigrate    bool   `env:"DATABASE_AUTO_MIGRATE" envDefault:"true"`

	StorageBackend      string `env:"STORAGE_BACKEND" envDefault:"local"`
	StorageEmulatorHost string `env:"STORAGE_EMULATOR_HOST"`
	LocalStorageDir     string `env:"LOCAL_STORAGE_DIR" envDefault:"./uploads"`
	PDFOCREnabled   bool   `env:"PDF_OCR_ENABLED" envDefault:"false"`
	MaxUploadBytes  int64  `env:"MAX_UPLOAD_BYTES" envDefault:"52428800"`

	AnalysisBudget time.Duration `env:"ANALYSIS_BUDGET" envDefault:"10m"`
	MetricsAddr    string        `env:"METRICS_ADDR"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	LLM        llm.Config
	Literature literature.Config
	Research   research.Config
}

func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg.normalize()
}

func (c Config) normalize() (Config, error) {
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	backend, err := gcp.ResolveStorageBackend(c.StorageBackend, c.StorageEmulatorHost)
	if err != nil {
		return c, err
	}
	c.StorageBackend = string(backend)
	if c.AnalysisBudget <= 0 {
		return c, fmt.Errorf("ANALYSIS_BUDGET must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return c, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if !c.RunServer && !c.RunWorker {
		return c, fmt.Errorf("RUN_SERVER and RUN_WORKER are both false")
	}
	var origins []string
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.AllowedOrigins = origins
	return c, nil
}
