package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"trading-analyticsv1/config"
	"trading-analyticsv1/internal/marketdata"
	"trading-analyticsv1/internal/marketdata/binance"
	"trading-analyticsv1/internal/marketdata/redisfeed"
	"trading-analyticsv1/internal/marketdata/sqlitefeed"
	"trading-analyticsv1/internal/model"
	"trading-analyticsv1/internal/views"
)

// syncTarget is a local store the sync command can fill.
type syncTarget interface {
	store(ctx context.Context, symbol, interval string, candles []model.Candle) error
	storeMeta(ctx context.Context, md model.MarketData, symbol string) error
	Close() error
}

func newSyncCmd(c *cli) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "sync SYMBOL...",
		Short: "Copy candles and exchange filters from Binance into the sqlite or redis provider",
		Long: `sync fetches every candle window the views need from Binance and writes
it to the configured sqlite database or Redis streams, so the analytics can
run against the local provider.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols := config.ParseSymbols(strings.Join(args, ","))
			return runSync(cmd.Context(), c.cfg, to, symbols)
		},
	}
	cmd.Flags().StringVar(&to, "to", config.ProviderSQLite, "destination: sqlite or redis")
	return cmd
}

func runSync(ctx context.Context, cfg *config.Config, to string, symbols []string) error {
	dst, err := openTarget(cfg, to)
	if err != nil {
		return err
	}
	defer dst.Close()

	src := marketdata.NewGuard(binance.New(binance.Config{
		RootURL: cfg.BinanceURL,
		Timeout: cfg.FetchTimeout,
	}), marketdata.GuardOptions{
		Timeout:      cfg.FetchTimeout,
		MaxFailures:  cfg.BreakerFails,
		ResetTimeout: cfg.BreakerReset,
	})

	windows := views.Windows()
	intervals := make([]string, 0, len(windows))
	for iv := range windows {
		intervals = append(intervals, iv)
	}
	sort.Strings(intervals)

	for _, sym := range symbols {
		for _, iv := range intervals {
			candles, err := src.GetCandles(ctx, sym, iv, windows[iv])
			if err != nil {
				return fmt.Errorf("sync %s %s: %w", sym, iv, err)
			}
			if err := dst.store(ctx, sym, iv, candles); err != nil {
				return fmt.Errorf("sync %s %s: %w", sym, iv, err)
			}
			slog.Info("candles synced", "component", "sync", "symbol", sym, "interval", iv, "count", len(candles), "to", to)
		}
		if err := dst.storeMeta(ctx, src, sym); err != nil {
			return fmt.Errorf("sync %s: %w", sym, err)
		}
	}
	return nil
}

func openTarget(cfg *config.Config, to string) (syncTarget, error) {
	switch to {
	case config.ProviderSQLite:
		feed, err := openSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sqliteTarget{feed: feed}, nil
	case config.ProviderRedis:
		feed, err := redisfeed.New(redisfeed.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return redisTarget{feed: feed, depth: cfg.BookDepth}, nil
	}
	return nil, fmt.Errorf("sync: unsupported destination %q", to)
}

func fetchFilters(ctx context.Context, md model.MarketData, symbol string) (price, lot model.ExchangeFilter, err error) {
	if price, err = md.GetExchangeFilter(ctx, symbol, model.FilterPrice); err != nil {
		return
	}
	lot, err = md.GetExchangeFilter(ctx, symbol, model.FilterLotSize)
	return
}

type sqliteTarget struct{ feed *sqlitefeed.Feed }

func (t sqliteTarget) store(ctx context.Context, symbol, interval string, candles []model.Candle) error {
	return t.feed.InsertCandles(ctx, symbol, interval, candles)
}

func (t sqliteTarget) storeMeta(ctx context.Context, md model.MarketData, symbol string) error {
	price, lot, err := fetchFilters(ctx, md, symbol)
	if err != nil {
		return err
	}
	if err := t.feed.UpsertFilter(ctx, symbol, model.FilterPrice, price); err != nil {
		return err
	}
	return t.feed.UpsertFilter(ctx, symbol, model.FilterLotSize, lot)
}

func (t sqliteTarget) Close() error { return t.feed.Close() }

type redisTarget struct {
	feed  *redisfeed.Feed
	depth int
}

func (t redisTarget) store(ctx context.Context, symbol, interval string, candles []model.Candle) error {
	return t.feed.AppendCandles(ctx, symbol, interval, candles)
}

// storeMeta also copies a book snapshot; the sqlite archive has no book.
func (t redisTarget) storeMeta(ctx context.Context, md model.MarketData, symbol string) error {
	price, lot, err := fetchFilters(ctx, md, symbol)
	if err != nil {
		return err
	}
	if err := t.feed.SetFilters(ctx, symbol, price, lot); err != nil {
		return err
	}
	book, err := md.GetOrderBook(ctx, symbol, t.depth)
	if err != nil {
		return err
	}
	return t.feed.SetBook(ctx, symbol, book)
}

func (t redisTarget) Close() error { return t.feed.Close() }
