package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/paperlens-backend/internal/clients/literature"
	"github.com/yungbote/paperlens-backend/internal/clients/scholar"
	"github.com/yungbote/paperlens-backend/internal/observability"
	"github.com/yungbote/paperlens-backend/internal/platform/gcp"
	"github.com/yungbote/paperlens-backend/internal/platform/llm"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/platform/neo4jdb"
	"github.com/yungbote/paperlens-backend/internal/platform/objectstore"
	"github.com/yungbote/paperlens-backend/internal/realtime/bus"
	"github.com/yungbote/paperlens-backend/internal/temporalx"
)

type Clients struct {
	LLM        llm.Client
	Literature *literature.Client
	// LiteratureCache is nil when the in-memory cache is used.
	LiteratureCache *literature.RedisCache
	Scholar         scholar.Scraper
	Store           objectstore.Store
	OCR             *gcp.DocumentOCR
	SSEBus          bus.Bus
	Neo4j           *neo4jdb.Client
	Temporal        temporalsdkclient.Client
	TemporalConfig  temporalx.Config

	closers []func() error
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// LLM
	llmClient, err := llm.NewFromConfig(log, cfg.LLM, llmObserver(metrics))
	if err != nil {
		return c, fmt.Errorf("init llm client: %w", err)
	}
	c.LLM = llmClient

	// Literature (+ Redis cache)
	cache, err := literature.NewRedisCacheFromEnv(log, cfg.Literature.CacheTTL)
	if err != nil {
		log.Warn("Redis literature cache unavailable; using memory cache", "error", err)
		cache = nil
	}
	opts := []literature.Option{}
	if cache != nil {
		c.LiteratureCache = cache
		c.closers = append(c.closers, cache.Close)
		opts = append(opts, literature.WithCache(cache))
	} else {
		opts = append(opts, literature.WithCache(literature.NewMemoryCache(cfg.Literature.CacheTTL)))
	}
	if metrics != nil {
		opts = append(opts, literature.WithObserver(metrics))
	}
	lit, err := literature.NewFromConfig(log, cfg.Literature, opts...)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init literature client: %w", err)
	}
	c.Literature = lit

	// Scholar
	c.Scholar = scholar.New(log, "", &http.Client{Timeout: 20 * time.Second})

	// Object storage
	store, closeStore, err := resolveObjectStore(ctx, log, cfg)
	if err != nil {
		c.Close()
		return Clients{}, err
	}
	c.Store = store
	if closeStore != nil {
		c.closers = append(c.closers, closeStore)
	}

	// Document AI OCR
	if cfg.PDFOCREnabled {
		ocr, err := gcp.NewDocumentOCR(ctx, log)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init document ocr: %w", err)
		}
		c.OCR = ocr
		c.closers = append(c.closers, ocr.Close)
	}

	// Redis SSE bus
	sseBus, err := bus.NewRedisBusFromEnv(log)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
	}
	if sseBus != nil {
		c.SSEBus = sseBus
		c.closers = append(c.closers, sseBus.Close)
	}

	// Neo4j (optional)
	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j unavailable; graph projection disabled", "error", err)
		neo = nil
	}
	if neo != nil {
		c.Neo4j = neo
		c.closers = append(c.closers, func() error { return neo.Close(context.Background()) })
	}

	// Temporal (optional)
	c.TemporalConfig = temporalx.LoadConfig()
	tc, err := temporalx.NewClient(log, c.TemporalConfig)
	if err != nil {
		c.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	if tc != nil {
		c.Temporal = tc
		c.closers = append(c.closers, func() error { tc.Close(); return nil })
	}

	return c, nil
}

// llmObserver avoids handing llm a typed nil.
func llmObserver(m *observability.Metrics) llm.Observer {
	if m == nil {
		return nil
	}
	return m
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
}
