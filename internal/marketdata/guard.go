package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trading-analyticsv1/internal/model"
)

// Recorder receives provider call outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	ProviderCall(op string, d time.Duration, err error)
	BreakerState(state int)
}

// GuardOptions configures a Guard.
type GuardOptions struct {
	Timeout      time.Duration // per call; 0 = caller's deadline only
	MaxFailures  int           // consecutive failures before the breaker opens
	ResetTimeout time.Duration // how long the breaker stays open
	Recorder     Recorder
}

// Guard decorates a provider with a per-call timeout, a circuit breaker and
// call metrics. It is itself a model.MarketData.
type Guard struct {
	inner   model.MarketData
	timeout time.Duration
	breaker *Breaker
	rec     Recorder
}

var _ model.MarketData = (*Guard)(nil)

// NewGuard wraps inner.
func NewGuard(inner model.MarketData, opts GuardOptions) *Guard {
	reset := opts.ResetTimeout
	if reset <= 0 {
		reset = 30 * time.Second
	}
	g := &Guard{
		inner:   inner,
		timeout: opts.Timeout,
		breaker: NewBreaker(opts.MaxFailures, reset),
		rec:     opts.Recorder,
	}
	g.breaker.OnStateChange = func(from, to State) {
		slog.Warn("provider circuit breaker state change",
			"component", "marketdata",
			"from", from.String(),
			"to", to.String(),
		)
		if g.rec != nil {
			g.rec.BreakerState(int(to))
		}
	}
	return g
}

// Breaker exposes the breaker for health reporting.
func (g *Guard) Breaker() *Breaker { return g.breaker }

func guarded[T any](ctx context.Context, g *Guard, op string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	start := time.Now()
	err := g.breaker.Execute(func() error {
		cctx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		v, err := fn(cctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if g.rec != nil {
		g.rec.ProviderCall(op, time.Since(start), err)
	}
	if err != nil {
		return out, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (g *Guard) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	return guarded(ctx, g, "candles", func(ctx context.Context) ([]model.Candle, error) {
		return g.inner.GetCandles(ctx, symbol, interval, limit)
	})
}

func (g *Guard) GetExchangeFilter(ctx context.Context, symbol, filterType string) (model.ExchangeFilter, error) {
	return guarded(ctx, g, "exchange_filter", func(ctx context.Context) (model.ExchangeFilter, error) {
		return g.inner.GetExchangeFilter(ctx, symbol, filterType)
	})
}

func (g *Guard) FormatPrice(ctx context.Context, symbol string, price float64) (string, error) {
	return guarded(ctx, g, "format_price", func(ctx context.Context) (string, error) {
		return g.inner.FormatPrice(ctx, symbol, price)
	})
}

func (g *Guard) FormatQuantity(ctx context.Context, symbol string, qty float64) (string, error) {
	return guarded(ctx, g, "format_quantity", func(ctx context.Context) (string, error) {
		return g.inner.FormatQuantity(ctx, symbol, qty)
	})
}

func (g *Guard) GetOrderBook(ctx context.Context, symbol string, depth int) (model.OrderBook, error) {
	return guarded(ctx, g, "order_book", func(ctx context.Context) (model.OrderBook, error) {
		return g.inner.GetOrderBook(ctx, symbol, depth)
	})
}
