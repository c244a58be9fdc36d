// Package scheduler keeps the watch list warm: on a cron schedule it renders
// each symbol's report, which refreshes every view cache, and hands the
// result to the configured sinks.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"trading-analyticsv1/internal/logger"
)

// Reporter renders the composite report. *report.Aggregator implements it.
type Reporter interface {
	GetReport(ctx context.Context, symbol string) string
}

// Sink receives rendered reports. *redisfeed.Publisher implements it.
type Sink interface {
	Publish(ctx context.Context, symbol, report string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, symbol, report string) error

func (f SinkFunc) Publish(ctx context.Context, symbol, report string) error {
	return f(ctx, symbol, report)
}

// Scheduler runs the warm-up job.
type Scheduler struct {
	Cron *cron.Cron

	ctx     context.Context
	reports Reporter
	sinks   []Sink

	mu      sync.Mutex
	symbols []string
	running bool
}

// parser accepts 5-field, 6-field (leading seconds) and @descriptor specs.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler for symbols. ctx bounds every job run.
func New(ctx context.Context, reports Reporter, symbols []string, sinks ...Sink) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithParser(parser)),
		ctx:     ctx,
		reports: reports,
		sinks:   sinks,
		symbols: append([]string(nil), symbols...),
	}
}

// Register schedules the warm-up job on spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.warm); err != nil {
		return fmt.Errorf("register warm-up %q: %w", spec, err)
	}
	return nil
}

// SetSymbols replaces the watch list for subsequent runs.
func (s *Scheduler) SetSymbols(symbols []string) {
	s.mu.Lock()
	s.symbols = append([]string(nil), symbols...)
	s.mu.Unlock()
}

// Symbols returns the current watch list.
func (s *Scheduler) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.symbols...)
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	slog.Info("scheduler started", "component", "scheduler", "symbols", s.Symbols())
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	slog.Info("scheduler stopped", "component", "scheduler")
}

// RunNow executes the warm-up job immediately.
func (s *Scheduler) RunNow() {
	s.warm()
}

func (s *Scheduler) warm() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		slog.Warn("warm-up still running, skipping tick", "component", "scheduler")
		return
	}
	s.running = true
	symbols := append([]string(nil), s.symbols...)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	for _, sym := range symbols {
		if s.ctx.Err() != nil {
			return
		}
		ctx := logger.WithTraceID(s.ctx, logger.GenerateTraceID(sym, time.Now()))
		report := s.reports.GetReport(ctx, sym)
		for _, sink := range s.sinks {
			if err := sink.Publish(ctx, sym, report); err != nil {
				slog.Error("publish report failed",
					append([]any{"component", "scheduler", "symbol", sym, "error", err},
						logger.LogWithTrace(ctx)...)...)
			}
		}
	}
	slog.Info("warm-up complete",
		"component", "scheduler",
		"symbols", len(symbols),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
