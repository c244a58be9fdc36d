package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-analyticsv1/config"
	"trading-analyticsv1/internal/marketdata"
	"trading-analyticsv1/internal/marketdata/binance"
	"trading-analyticsv1/internal/marketdata/redisfeed"
	"trading-analyticsv1/internal/marketdata/sqlitefeed"
	"trading-analyticsv1/internal/metrics"
	"trading-analyticsv1/internal/model"
	"trading-analyticsv1/internal/report"
	"trading-analyticsv1/internal/views"
)

// stack is the wired analytics service: provider → guard → views → aggregator.
type stack struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	health  *metrics.HealthStatus
	guard   *marketdata.Guard
	views   *views.Service
	agg     *report.Aggregator

	// rdb is set when the provider or publishing uses Redis.
	rdb     *goredis.Client
	closers []func() error
}

// healthRecorder forwards provider metrics and marks the provider unhealthy
// while the breaker is open.
type healthRecorder struct {
	*metrics.Metrics
	health *metrics.HealthStatus
}

func (r healthRecorder) BreakerState(state int) {
	r.Metrics.BreakerState(state)
	r.health.SetProviderOK(marketdata.State(state) != marketdata.StateOpen)
}

func buildStack(ctx context.Context, cfg *config.Config) (*stack, error) {
	st := &stack{
		cfg:     cfg,
		metrics: metrics.NewMetrics(),
		health:  metrics.NewHealthStatus(cfg.Provider),
	}

	inner, err := st.openProvider(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}

	if cfg.Publish && st.rdb == nil {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			st.Close()
			return nil, fmt.Errorf("redis publish connection: %w", err)
		}
		st.rdb = rdb
		st.closers = append(st.closers, rdb.Close)
		st.health.WatchRedis(rdb)
	}

	st.guard = marketdata.NewGuard(inner, marketdata.GuardOptions{
		Timeout:      cfg.FetchTimeout,
		MaxFailures:  cfg.BreakerFails,
		ResetTimeout: cfg.BreakerReset,
		Recorder:     healthRecorder{Metrics: st.metrics, health: st.health},
	})
	st.views = views.NewService(st.guard, views.Options{
		Size:      cfg.CacheSize,
		Observer:  st.metrics,
		BookDepth: cfg.BookDepth,
	})
	st.agg = report.New(st.views, report.WithRecorder(st.metrics))

	slog.Info("analytics stack ready",
		"component", "main",
		"provider", cfg.Provider,
		"fetch_timeout", cfg.FetchTimeout.String(),
		"cache_size", cfg.CacheSize,
	)
	return st, nil
}

func (st *stack) openProvider(ctx context.Context) (model.MarketData, error) {
	cfg := st.cfg
	switch cfg.Provider {
	case config.ProviderBinance:
		return binance.New(binance.Config{
			RootURL:   cfg.BinanceURL,
			Timeout:   cfg.FetchTimeout,
			FilterTTL: cfg.FilterTTL,
			Observer:  st.metrics,
		}), nil

	case config.ProviderRedis:
		feed, err := redisfeed.New(redisfeed.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		st.rdb = feed.Client()
		st.closers = append(st.closers, feed.Close)
		st.health.WatchRedis(feed.Client())
		st.health.CheckRedis(ctx, feed.Client())
		return feed, nil

	case config.ProviderSQLite:
		feed, err := openSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, feed.Close)
		st.health.WatchSQLite(feed.DB())
		st.health.CheckSQLite(ctx, feed.DB())
		return feed, nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

func openSQLite(path string) (*sqlitefeed.Feed, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}
	return sqlitefeed.Open(path)
}

// publisher returns the Redis report publisher, or nil when publishing is off.
func (st *stack) publisher() *redisfeed.Publisher {
	if !st.cfg.Publish || st.rdb == nil {
		return nil
	}
	return redisfeed.NewPublisher(st.rdb, 2*st.cfg.WSPushInterval+time.Minute)
}

// Close releases provider connections in reverse order.
func (st *stack) Close() {
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](); err != nil {
			slog.Warn("close failed", "component", "main", "error", err)
		}
	}
	st.closers = nil
}
