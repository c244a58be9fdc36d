// Package gateway exposes reports over HTTP and streams them to websocket
// clients.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"

	"trading-analyticsv1/internal/logger"
	"trading-analyticsv1/internal/report"
	"trading-analyticsv1/internal/views"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Reports is the composite report surface. *report.Aggregator implements it.
type Reports interface {
	ReportSource
	GetAnalyses(ctx context.Context, symbol string) report.Snapshot
}

// Views renders a single view. *views.Service implements it.
type Views interface {
	Report(ctx context.Context, view, symbol string) (string, error)
}

// Deps wires the router.
type Deps struct {
	Reports    Reports
	Views      Views
	Hub        *Hub
	Metrics    http.Handler // served at /metrics when set
	Health     http.Handler // served at /healthz when set
	TOTPSecret string       // when set, data routes require a valid X-TOTP code
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-TOTP")
}

// NewRouter registers every route and wraps them in trace-id middleware.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	guard := func(h http.HandlerFunc) http.Handler { return requireTOTP(d.TOTPSecret, h) }

	mux.Handle("GET /report/{symbol}", guard(func(w http.ResponseWriter, r *http.Request) {
		sym, ok := symbolParam(w, r)
		if !ok {
			return
		}
		writeMarkdown(w, d.Reports.GetReport(r.Context(), sym))
	}))

	mux.Handle("GET /analysis/{symbol}", guard(func(w http.ResponseWriter, r *http.Request) {
		sym, ok := symbolParam(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, d.Reports.GetAnalyses(r.Context(), sym))
	}))

	mux.Handle("GET /view/{view}/{symbol}", guard(func(w http.ResponseWriter, r *http.Request) {
		sym, ok := symbolParam(w, r)
		if !ok {
			return
		}
		section, err := d.Views.Report(r.Context(), r.PathValue("view"), sym)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeMarkdown(w, section)
	}))

	mux.Handle("GET /ws", guard(func(w http.ResponseWriter, r *http.Request) {
		sym, ok := normalizeSymbol(r.URL.Query().Get("symbol"))
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol query parameter required"})
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("ws upgrade failed", "component", "gateway", "error", err)
			return
		}
		d.Hub.Register(context.WithoutCancel(r.Context()), conn, sym)
	}))

	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}
	if d.Health != nil {
		mux.Handle("GET /healthz", d.Health)
	}

	return withTrace(mux)
}

// withTrace tags every request with a trace id (X-Trace-ID, or a new one)
// carried in the context and echoed in the response.
func withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Trace-ID")
		if id == "" {
			id = logger.GenerateTraceID("http", time.Now())
		}
		w.Header().Set("X-Trace-ID", id)
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(logger.WithTraceID(r.Context(), id)))
		slog.Debug("http request",
			"component", "gateway",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
			"trace_id", id,
		)
	})
}

// requireTOTP rejects requests without a current code for secret. An empty
// secret disables the check.
func requireTOTP(secret string, next http.Handler) http.Handler {
	if secret == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.Header.Get("X-TOTP")
		if code == "" {
			code = r.URL.Query().Get("totp")
		}
		if code == "" || !totp.Validate(code, secret) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or missing TOTP code"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func symbolParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	sym, ok := normalizeSymbol(r.PathValue("symbol"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid symbol"})
	}
	return sym, ok
}

// writeError maps view errors: unknown view → 404, anything else is an
// upstream failure → 502.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, views.ErrUnknownView) {
		status = http.StatusNotFound
	}
	slog.Warn("request failed",
		append([]any{"component", "gateway", "path", r.URL.Path, "status", status, "error", err},
			logger.LogWithTrace(r.Context())...)...)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeMarkdown(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
