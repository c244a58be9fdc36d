package model

import "context"

// ── Market Data Port ──
// MarketData decouples the analytics core from concrete providers
// (exchange REST, Redis streams, SQLite). Every call may block on I/O.

// MarketData supplies candles, order books and exchange-legal formatting.
type MarketData interface {
	// GetCandles returns up to limit candles in ascending chronological order.
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)

	// GetExchangeFilter returns the tick/step metadata for filterType
	// (FilterPrice or FilterLotSize).
	GetExchangeFilter(ctx context.Context, symbol, filterType string) (ExchangeFilter, error)

	// FormatPrice rounds a price to the symbol's tick size.
	FormatPrice(ctx context.Context, symbol string, price float64) (string, error)

	// FormatQuantity rounds a quantity to the symbol's step size.
	FormatQuantity(ctx context.Context, symbol string, qty float64) (string, error)

	// GetOrderBook returns up to depth levels per side.
	GetOrderBook(ctx context.Context, symbol string, depth int) (OrderBook, error)
}
