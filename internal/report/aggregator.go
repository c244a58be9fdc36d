// Package report composes the per-view sections into one markdown report
// and one JSON snapshot per symbol.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"trading-analyticsv1/internal/logger"
	"trading-analyticsv1/internal/views"
)

// Views is the per-view surface the aggregator fans out to.
// *views.Service implements it.
type Views interface {
	Report(ctx context.Context, view, symbol string) (string, error)
	Analysis(ctx context.Context, view, symbol string) (any, error)
	Degraded(ctx context.Context, view, symbol string, cause error) string
}

// Recorder receives aggregation counters. *metrics.Metrics implements it.
type Recorder interface {
	ReportGenerated()
	SectionDegraded(view string)
}

type nopRecorder struct{}

func (nopRecorder) ReportGenerated()       {}
func (nopRecorder) SectionDegraded(string) {}

// Aggregator builds composite reports. It never fails: a view that errors
// contributes its degraded section instead.
type Aggregator struct {
	views Views
	rec   Recorder
	now   func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRecorder reports counters to rec.
func WithRecorder(rec Recorder) Option {
	return func(a *Aggregator) {
		if rec != nil {
			a.rec = rec
		}
	}
}

// WithClock overrides time.Now for the report header.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New returns an Aggregator over v.
func New(v Views, opts ...Option) *Aggregator {
	a := &Aggregator{views: v, rec: nopRecorder{}, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Snapshot is the structured form of a report.
type Snapshot struct {
	ID          string            `json:"id"`
	Symbol      string            `json:"symbol"`
	GeneratedAt time.Time         `json:"generated_at"`
	Views       map[string]any    `json:"views"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// GetReport renders every view for symbol concurrently and concatenates the
// sections in fixed order under a header.
func (a *Aggregator) GetReport(ctx context.Context, symbol string) string {
	now := a.now().UTC()
	ctx, id := traced(ctx, symbol, now)

	names := views.Names()
	sections := make([]string, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			section, err := a.views.Report(ctx, name, symbol)
			if err != nil {
				a.degrade(ctx, name, symbol, err)
				section = a.views.Degraded(ctx, name, symbol, err)
			}
			sections[i] = section
		}(i, name)
	}
	wg.Wait()
	a.rec.ReportGenerated()

	var b strings.Builder
	fmt.Fprintf(&b, "# Market Analysis Report: %s\n\n", symbol)
	fmt.Fprintf(&b, "_Generated at %s (report %s)_\n\n", now.Format(time.RFC3339), id)
	for _, s := range sections {
		b.WriteString(s)
		if !strings.HasSuffix(s, "\n\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// GetAnalyses collects every view's analysis for symbol. Failed views are
// absent from Views and present in Errors.
func (a *Aggregator) GetAnalyses(ctx context.Context, symbol string) Snapshot {
	now := a.now().UTC()
	ctx, id := traced(ctx, symbol, now)

	names := views.Names()
	results := make([]any, len(names))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i], errs[i] = a.views.Analysis(ctx, name, symbol)
		}(i, name)
	}
	wg.Wait()

	snap := Snapshot{
		ID:          id,
		Symbol:      symbol,
		GeneratedAt: now,
		Views:       make(map[string]any, len(names)),
	}
	for i, name := range names {
		if errs[i] != nil {
			a.degrade(ctx, name, symbol, errs[i])
			if snap.Errors == nil {
				snap.Errors = make(map[string]string)
			}
			snap.Errors[name] = errs[i].Error()
			continue
		}
		snap.Views[name] = results[i]
	}
	return snap
}

func (a *Aggregator) degrade(ctx context.Context, view, symbol string, err error) {
	a.rec.SectionDegraded(view)
	attrs := []any{
		"component", "report",
		"view", view,
		"symbol", symbol,
		"error", err,
	}
	slog.Warn("view unavailable, rendering degraded section", append(attrs, logger.LogWithTrace(ctx)...)...)
}

// traced reuses the caller's trace id or mints one for this report.
func traced(ctx context.Context, symbol string, now time.Time) (context.Context, string) {
	if id := logger.TraceID(ctx); id != "" {
		return ctx, id
	}
	id := logger.GenerateTraceID(symbol, now)
	return logger.WithTraceID(ctx, id), id
}
