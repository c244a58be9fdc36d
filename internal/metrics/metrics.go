package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the analytics service.
// It satisfies cache.Observer so every Memo can report into it.
type Metrics struct {
	reg *prometheus.Registry

	// Cache metrics (labels: cache)
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	ComputeDur  *prometheus.HistogramVec
	ComputeErrs *prometheus.CounterVec

	// Provider metrics
	ProviderErrors      *prometheus.CounterVec // labels: op
	ProviderDur         *prometheus.HistogramVec
	CircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	CircuitBreakerTrips prometheus.Counter

	// Aggregation
	ReportsTotal     prometheus.Counter
	DegradedSections *prometheus.CounterVec // labels: view
	ReportsPublished prometheus.Counter

	// Gateway
	WSClients prometheus.Gauge
}

// NewMetrics registers and returns all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_cache_hits_total",
			Help: "Cache lookups served by a live or in-flight entry",
		}, []string{"cache"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_cache_misses_total",
			Help: "Cache lookups that started a new computation",
		}, []string{"cache"}),
		ComputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analytics_compute_duration_seconds",
			Help:    "Duration of cached computations (fetch + indicators + metrics)",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"cache"}),
		ComputeErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_compute_errors_total",
			Help: "Cached computations that settled with an error",
		}, []string{"cache"}),

		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_provider_errors_total",
			Help: "Market data provider call failures",
		}, []string{"op"}),
		ProviderDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analytics_provider_duration_seconds",
			Help:    "Market data provider call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		CircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analytics_provider_circuit_breaker_state",
			Help: "Provider circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		CircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analytics_provider_circuit_breaker_trips_total",
			Help: "Times the provider circuit breaker tripped open",
		}),

		ReportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analytics_reports_total",
			Help: "Composite reports generated",
		}),
		DegradedSections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_degraded_sections_total",
			Help: "Report sections rendered without data because the view failed",
		}, []string{"view"}),
		ReportsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analytics_reports_published_total",
			Help: "Reports pushed to subscribers (Redis PubSub and websocket)",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analytics_ws_clients",
			Help: "Connected websocket clients",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CacheHits,
		m.CacheMisses,
		m.ComputeDur,
		m.ComputeErrs,
		m.ProviderErrors,
		m.ProviderDur,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
		m.ReportsTotal,
		m.DegradedSections,
		m.ReportsPublished,
		m.WSClients,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry returns the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Hit implements cache.Observer.
func (m *Metrics) Hit(cache string) { m.CacheHits.WithLabelValues(cache).Inc() }

// Miss implements cache.Observer.
func (m *Metrics) Miss(cache string) { m.CacheMisses.WithLabelValues(cache).Inc() }

// Computed implements cache.Observer.
func (m *Metrics) Computed(cache string, d time.Duration, err error) {
	m.ComputeDur.WithLabelValues(cache).Observe(d.Seconds())
	if err != nil {
		m.ComputeErrs.WithLabelValues(cache).Inc()
	}
}

// ProviderCall implements marketdata.Recorder.
func (m *Metrics) ProviderCall(op string, d time.Duration, err error) {
	m.ProviderDur.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		m.ProviderErrors.WithLabelValues(op).Inc()
	}
}

// BreakerState implements marketdata.Recorder.
func (m *Metrics) BreakerState(state int) {
	m.CircuitBreakerState.Set(float64(state))
	if state == 1 {
		m.CircuitBreakerTrips.Inc()
	}
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	Provider       string `json:"provider"`
	ProviderOK     bool   `json:"provider_ok"`
	RedisConnected bool   `json:"redis_connected"`
	SQLiteOK       bool   `json:"sqlite_ok"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`

	rdb   *goredis.Client
	sqlDB *sql.DB
}

// NewHealthStatus returns a default health status for the named provider.
func NewHealthStatus(provider string) *HealthStatus {
	return &HealthStatus{
		Provider:   provider,
		ProviderOK: true,
		StartedAt:  time.Now(),
	}
}

// SetProviderOK records the outcome of the most recent provider call.
func (h *HealthStatus) SetProviderOK(v bool) {
	h.mu.Lock()
	h.ProviderOK = v
	h.mu.Unlock()
}

// WatchRedis enables Redis probing in the liveness checker.
func (h *HealthStatus) WatchRedis(rdb *goredis.Client) {
	h.mu.Lock()
	h.rdb = rdb
	h.mu.Unlock()
}

// WatchSQLite enables SQLite probing in the liveness checker.
func (h *HealthStatus) WatchSQLite(db *sql.DB) {
	h.mu.Lock()
	h.sqlDB = db
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a ping and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.mu.RLock()
				rdb, sqlDB := h.rdb, h.sqlDB
				h.mu.RUnlock()

				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.ProviderOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if (h.rdb != nil && !h.RedisConnected && !h.LastCheckAt.IsZero()) ||
		(h.sqlDB != nil && !h.SQLiteOK && !h.LastCheckAt.IsZero()) {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		Provider        string  `json:"provider"`
		ProviderOK      bool    `json:"provider_ok"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		Provider:        h.Provider,
		ProviderOK:      h.ProviderOK,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// ReportGenerated implements report.Recorder.
func (m *Metrics) ReportGenerated() { m.ReportsTotal.Inc() }

// SectionDegraded implements report.Recorder.
func (m *Metrics) SectionDegraded(view string) { m.DegradedSections.WithLabelValues(view).Inc() }

// Published counts a report pushed to subscribers.
func (m *Metrics) Published() { m.ReportsPublished.Inc() }

// SetWSClients records the connected websocket client count.
func (m *Metrics) SetWSClients(n int) { m.WSClients.Set(float64(n)) }
