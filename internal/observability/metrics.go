package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/paperlens-backend/internal/data/repos"
	"github.com/yungbote/paperlens-backend/internal/domain/jobs"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/platform/envutil"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
)

// Metrics is nil when METRICS_ENABLED is off; every method is nil-safe.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *GaugeVec

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	literatureRequests *CounterVec
	literatureLatency  *HistogramVec

	jobRuns     *CounterVec
	jobDuration *HistogramVec
	queueDepth  *GaugeVec

	analysisOutcomes *CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		log.Info("metrics enabled")
	})
	return instance
}

// NewMetrics returns an instance that ignores METRICS_ENABLED and is not
// installed as Current.
func NewMetrics() *Metrics { return newMetrics() }

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("pl_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec("pl_api_request_duration_seconds", "API request latency in seconds.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}),
		apiInflight: NewGaugeVec("pl_api_inflight_requests", "In-flight API requests.", nil),

		llmRequests: NewCounterVec("pl_llm_requests_total", "LLM requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency: NewHistogramVec("pl_llm_request_duration_seconds", "LLM request latency in seconds.",
			[]string{"model", "endpoint", "status"},
			[]float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}),
		llmTokens: NewCounterVec("pl_llm_tokens_total", "LLM tokens by model/direction.", []string{"model", "direction"}),

		literatureRequests: NewCounterVec("pl_literature_requests_total", "Literature searches by source/status.", []string{"source", "status"}),
		literatureLatency: NewHistogramVec("pl_literature_request_duration_seconds", "Literature search latency in seconds.",
			[]string{"source", "status"},
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30}),

		jobRuns: NewCounterVec("pl_job_runs_total", "Finished job runs by type/status.", []string{"job_type", "status"}),
		jobDuration: NewHistogramVec("pl_job_duration_seconds", "Job run duration in seconds.",
			[]string{"job_type", "status"},
			[]float64{1, 5, 10, 30, 60, 120, 300, 600}),
		queueDepth: NewGaugeVec("pl_job_queue_depth", "Job runs by status.", []string{"status"}),

		analysisOutcomes: NewCounterVec("pl_analysis_outcomes_total", "Analyses reaching a terminal status, by status/error kind.", []string{"status", "kind"}),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil || strings.TrimSpace(addr) == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.literatureRequests, m.literatureLatency,
		m.jobRuns, m.jobDuration, m.queueDepth,
		m.analysisOutcomes,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Add(1)
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Add(-1)
	}
}

// ObserveLLMRequest satisfies llm.Observer.
func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// ObserveLiteratureRequest satisfies literature.Observer.
func (m *Metrics) ObserveLiteratureRequest(source, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.literatureRequests.Inc(source, status)
	m.literatureLatency.Observe(dur.Seconds(), source, status)
}

// ObserveJob satisfies runtime.Observer.
func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.Inc(jobType, status)
	m.jobDuration.Observe(dur.Seconds(), jobType, status)
}

func (m *Metrics) ObserveAnalysisOutcome(status, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	m.analysisOutcomes.Inc(status, kind)
}

// StartJobQueueCollector refreshes pl_job_queue_depth every
// METRICS_SCRAPE_INTERVAL.
func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, repo repos.JobRunRepo) {
	if m == nil || repo == nil {
		return
	}
	interval := envutil.Duration("METRICS_SCRAPE_INTERVAL", 10*time.Second)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collectQueueDepth(ctx, log, repo)
			}
		}
	}()
}

func (m *Metrics) collectQueueDepth(ctx context.Context, log *logger.Logger, repo repos.JobRunRepo) {
	counts, err := repo.CountByStatus(dbctx.Context{Ctx: ctx})
	if err != nil {
		log.Warn("metrics: job queue depth query failed", "error", err)
		return
	}
	for _, s := range []string{jobs.StatusQueued, jobs.StatusRunning, jobs.StatusSucceeded, jobs.StatusFailed, jobs.StatusDead, jobs.StatusCanceled} {
		m.queueDepth.Set(float64(counts[s]), s)
	}
}
