// Package llm is the single entry point for language-model calls. Providers
// are thin adapters over vendor SDKs; retries, timeouts and JSON handling
// live here so every caller gets the same policy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/pkg/httpx"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

type Request struct {
	System string
	Prompt string
	// JSON asks the provider for a JSON-only response where supported.
	JSON        bool
	Model       string
	MaxTokens   int
	Temperature *float64
}

type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider is a single vendor integration. Implementations return errors
// classified with errkind and must not retry on their own.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Client is what the rest of the code depends on.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Observer receives one call per provider attempt.
type Observer interface {
	ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int)
}

type Config struct {
	Provider     string        `env:"LLM_PROVIDER" envDefault:"gemini"`
	APIKey       string        `env:"LLM_API_KEY"`
	BaseURL      string        `env:"LLM_BASE_URL"`
	Model        string        `env:"LLM_MODEL"`
	ReaderModel  string        `env:"LLM_MODEL_READER"`
	SearchModel  string        `env:"LLM_MODEL_SEARCHER"`
	Timeout      time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	MaxTokens    int           `env:"LLM_MAX_TOKENS" envDefault:"8192"`
	Temperature  float64       `env:"LLM_TEMPERATURE" envDefault:"0.4"`
	GeminiAPIKey string        `env:"GEMINI_API_KEY"`
	OpenAIAPIKey string        `env:"OPENAI_API_KEY"`
	ClaudeAPIKey string        `env:"ANTHROPIC_API_KEY"`
}

type client struct {
	log      *logger.Logger
	provider Provider
	retrier  *httpx.Retrier
	observer Observer
	timeout  time.Duration
	model    string
	maxTok   int
	temp     float64
}

type Option func(*client)

// WithRetrier replaces the default kind-keyed retrier.
func WithRetrier(r *httpx.Retrier) Option {
	return func(c *client) { c.retrier = r }
}

// New wires a Client around an already-built provider.
func New(log *logger.Logger, p Provider, cfg Config, obs Observer, opts ...Option) Client {
	clog := log.With("component", "LLMClient", "provider", p.Name())
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &client{
		log:      clog,
		provider: p,
		retrier:  &httpx.Retrier{Log: clog},
		observer: obs,
		timeout:  timeout,
		model:    cfg.Model,
		maxTok:   cfg.MaxTokens,
		temp:     cfg.Temperature,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig selects the provider named by cfg.Provider.
func NewFromConfig(log *logger.Logger, cfg Config, obs Observer) (Client, error) {
	var (
		p   Provider
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "anthropic", "claude":
		p, err = NewAnthropicProvider(firstNonEmpty(cfg.APIKey, cfg.ClaudeAPIKey), cfg.BaseURL, firstNonEmpty(cfg.Model, "claude-sonnet-4-5"))
	case "openai":
		p, err = NewOpenAIProvider("openai", firstNonEmpty(cfg.APIKey, cfg.OpenAIAPIKey), cfg.BaseURL, firstNonEmpty(cfg.Model, "gpt-4o-mini"))
	case "", "gemini":
		p, err = NewOpenAIProvider("gemini", firstNonEmpty(cfg.APIKey, cfg.GeminiAPIKey), firstNonEmpty(cfg.BaseURL, GeminiCompatBaseURL), firstNonEmpty(cfg.Model, "gemini-2.5-flash"))
	case "ollama":
		p, err = NewOpenAIProvider("ollama", firstNonEmpty(cfg.APIKey, "ollama"), firstNonEmpty(cfg.BaseURL, "http://localhost:11434/v1/"), firstNonEmpty(cfg.Model, "llama3.1"))
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return New(log, p, cfg, obs), nil
}

func (c *client) Complete(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errkind.Validationf("llm_complete", "empty prompt")
	}
	if req.Model == "" {
		req.Model = c.model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.maxTok
	}
	if req.Temperature == nil {
		t := c.temp
		req.Temperature = &t
	}
	var out string
	err := c.retrier.Do(ctx, "llm_complete", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		start := time.Now()
		resp, err := c.provider.Complete(callCtx, req)
		c.observe(req.Model, resp, err, time.Since(start))
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				// Per-call timeout, not the caller's budget: worth retrying.
				return errkind.Provider(c.provider.Name(), err)
			}
			return err
		}
		out = resp.Text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (c *client) observe(model string, resp *Response, err error, dur time.Duration) {
	if c.observer == nil {
		return
	}
	status := "ok"
	in, outTok := 0, 0
	if err != nil {
		status = string(errkind.KindOf(err))
	}
	if resp != nil {
		in, outTok = resp.InputTokens, resp.OutputTokens
		if resp.Model != "" {
			model = resp.Model
		}
	}
	c.observer.ObserveLLMRequest(model, c.provider.Name(), status, dur, in, outTok)
}

// classifyStatus maps an HTTP status from a provider onto the error taxonomy.
func classifyStatus(op string, status int, err error) error {
	return httpx.ClassifyStatus(op, status, err)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
