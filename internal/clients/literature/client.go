package literature

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/pkg/httpx"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

// Observer receives one call per upstream attempt.
type Observer interface {
	ObserveLiteratureRequest(source, status string, dur time.Duration)
}

type Config struct {
	Sources            []string      `env:"LITERATURE_SOURCES" envSeparator:"," envDefault:"arxiv,semantic_scholar"`
	RequestsPerSecond  float64       `env:"LITERATURE_RPS" envDefault:"1"`
	Timeout            time.Duration `env:"LITERATURE_TIMEOUT" envDefault:"15s"`
	CacheTTL           time.Duration `env:"LITERATURE_CACHE_TTL" envDefault:"24h"`
	ArxivBaseURL       string        `env:"ARXIV_BASE_URL"`
	SemanticScholarURL string        `env:"SEMANTIC_SCHOLAR_BASE_URL"`
	SemanticScholarKey string        `env:"SEMANTIC_SCHOLAR_API_KEY"`
}

// Client fans a query out to every configured source under one shared
// process-wide limiter, then merges and caches the results.
type Client struct {
	log      *logger.Logger
	sources  []Source
	limiter  *rate.Limiter
	retrier  *httpx.Retrier
	cache    Cache
	observer Observer
}

type Option func(*Client)

func WithCache(c Cache) Option            { return func(cl *Client) { cl.cache = c } }
func WithObserver(o Observer) Option      { return func(cl *Client) { cl.observer = o } }
func WithRetrier(r *httpx.Retrier) Option { return func(cl *Client) { cl.retrier = r } }
func WithLimiter(l *rate.Limiter) Option  { return func(cl *Client) { cl.limiter = l } }

func New(log *logger.Logger, sources []Source, opts ...Option) *Client {
	clog := log.With("component", "LiteratureClient")
	c := &Client{
		log:     clog,
		sources: sources,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		retrier: &httpx.Retrier{Log: clog},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds the sources named in cfg.Sources.
func NewFromConfig(log *logger.Logger, cfg Config, opts ...Option) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := &http.Client{Timeout: timeout}
	var sources []Source
	for _, name := range cfg.Sources {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
		case "arxiv":
			sources = append(sources, NewArxiv(cfg.ArxivBaseURL, hc))
		case "semantic_scholar", "semanticscholar", "s2":
			sources = append(sources, NewSemanticScholar(cfg.SemanticScholarURL, cfg.SemanticScholarKey, hc))
		default:
			return nil, fmt.Errorf("unknown literature source %q", name)
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no literature sources configured")
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	base := []Option{WithLimiter(rate.NewLimiter(rate.Limit(rps), 1))}
	return New(log, sources, append(base, opts...)...), nil
}

// Search returns up to limit merged papers. A source that fails after its
// retry budget is skipped; the search fails only when every source failed.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errkind.Validationf("literature_search", "empty query")
	}
	if limit <= 0 {
		limit = 20
	}
	key := cacheKey(query, limit)
	if c.cache != nil {
		if papers, ok := c.cache.Get(ctx, key); ok {
			return papers, nil
		}
	}

	var (
		lists   [][]Paper
		lastErr error
	)
	for _, src := range c.sources {
		papers, err := c.searchSource(ctx, src, query, limit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			c.log.Warn("literature source failed", "source", src.Name(), "kind", errkind.KindOf(err), "error", err)
			lastErr = err
			continue
		}
		lists = append(lists, papers)
	}
	if len(lists) == 0 && lastErr != nil {
		return nil, lastErr
	}
	merged := Merge(lists...)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	// A partial merge is served but not cached, so the failed source is
	// retried on the next search.
	if c.cache != nil && lastErr == nil {
		c.cache.Set(ctx, key, merged)
	}
	return merged, nil
}

func (c *Client) searchSource(ctx context.Context, src Source, query string, limit int) ([]Paper, error) {
	var out []Paper
	err := c.retrier.Do(ctx, "literature_"+src.Name(), func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		start := time.Now()
		papers, err := src.Search(ctx, query, limit)
		if c.observer != nil {
			status := "ok"
			if err != nil {
				status = string(errkind.KindOf(err))
			}
			c.observer.ObserveLiteratureRequest(src.Name(), status, time.Since(start))
		}
		if err != nil {
			return err
		}
		out = papers
		return nil
	})
	return out, err
}

var _ Searcher = (*Client)(nil)
