// Package research runs the reader and searcher stages of an analysis and
// the optional profile builder.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/clients/literature"
	"github.com/yungbote/paperlens-backend/internal/clients/scholar"
	"github.com/yungbote/paperlens-backend/internal/data/repos"
	"github.com/yungbote/paperlens-backend/internal/modules/research/steps"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/platform/llm"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/platform/objectstore"
	"github.com/yungbote/paperlens-backend/internal/platform/pdftext"
)

type Config struct {
	ReaderModel       string `env:"LLM_MODEL_READER"`
	SearcherModel     string `env:"LLM_MODEL_SEARCHER"`
	SearchConcurrency int    `env:"SEARCH_CONCURRENCY" envDefault:"3"`
	LiteratureLimit   int    `env:"LITERATURE_LIMIT" envDefault:"20"`
	RecencyYears      int    `env:"LITERATURE_RECENCY_YEARS" envDefault:"5"`
	TopK              int    `env:"TOP_IDEAS" envDefault:"3"`
}

func (c Config) withDefaults() Config {
	if c.SearchConcurrency <= 0 {
		c.SearchConcurrency = 3
	}
	if c.LiteratureLimit <= 0 {
		c.LiteratureLimit = 20
	}
	if c.RecencyYears < 0 {
		c.RecencyYears = 0
	}
	if c.TopK <= 0 {
		c.TopK = 3
	}
	return c
}

// TextExtractor turns PDF bytes into cleaned text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (*pdftext.Result, error)
}

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	LLM        llm.Client
	Literature literature.Searcher
	// Optional: only needed for profiles built from a Scholar URL.
	Scholar scholar.Scraper
	Store   objectstore.Store
	PDF     TextExtractor

	Papers   repos.PaperRepo
	Analyses repos.AnalysisRepo
	Ideas    repos.ResearchIdeaRepo
	Profiles repos.UserProfileRepo

	Config Config
	Now    func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	deps.Config = deps.Config.withDefaults()
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return Usecases{deps: deps}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

// Reporter receives stage progress for the job that drives a stage.
type Reporter func(stage string, pct int, msg string)

func (u Usecases) readerDeps() steps.LLMDeps {
	return steps.LLMDeps{Log: u.deps.Log, LLM: u.deps.LLM, Model: u.deps.Config.ReaderModel}
}

func (u Usecases) searcherDeps() steps.LLMDeps {
	return steps.LLMDeps{Log: u.deps.Log, LLM: u.deps.LLM, Model: u.deps.Config.SearcherModel}
}

// progress keeps analysis progress monotonic while several goroutines
// report.
type progress struct {
	mu       sync.Mutex
	u        Usecases
	id       uuid.UUID
	last     int
	reporter Reporter
}

func (u Usecases) newProgress(id uuid.UUID, start int, r Reporter) *progress {
	return &progress{u: u, id: id, last: start, reporter: r}
}

func (p *progress) report(ctx context.Context, stage string, pct int, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pct < p.last {
		pct = p.last
	}
	if pct > p.last {
		if err := p.u.deps.Analyses.UpdateFields(dbctx.Context{Ctx: ctx}, p.id, map[string]interface{}{"progress": pct}); err != nil {
			p.u.deps.Log.Warn("analysis progress update failed", "analysis_id", p.id, "error", err)
		} else {
			p.last = pct
		}
	}
	if p.reporter != nil {
		p.reporter(stage, pct, msg)
	}
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

func decodeJSON[T any](raw datatypes.JSON, field string) (T, error) {
	var out T
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode analysis %s: %w", field, err)
	}
	return out, nil
}
