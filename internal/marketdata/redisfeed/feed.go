// Package redisfeed serves market data that an upstream ingester keeps in
// Redis: candle streams, a latest order book key and a filter hash.
//
// Layout:
//
//	candle:{interval}:{symbol}  stream, field "data" = candle JSON
//	book:{symbol}               string, order book JSON
//	filters:{symbol}            hash: tick_size, step_size, min_qty
package redisfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"trading-analyticsv1/internal/marketdata"
	"trading-analyticsv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// Stream trimming: enough for the deepest view (220 x 1h) plus buffer.
const streamMaxLen = 1000

// Config configures the Redis connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Feed implements model.MarketData over Redis.
type Feed struct {
	client *goredis.Client
}

var _ model.MarketData = (*Feed)(nil)

// New connects and pings the server.
func New(cfg Config) (*Feed, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis feed connected", "component", "redisfeed", "addr", cfg.Addr)
	return &Feed{client: client}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *goredis.Client) *Feed { return &Feed{client: client} }

// Client returns the underlying Redis client for health checks.
func (f *Feed) Client() *goredis.Client { return f.client }

// Close releases the connection pool.
func (f *Feed) Close() error { return f.client.Close() }

// StreamKey is the candle stream for symbol on interval.
func StreamKey(interval, symbol string) string { return "candle:" + interval + ":" + symbol }

// BookKey holds the latest order book for symbol.
func BookKey(symbol string) string { return "book:" + symbol }

// FiltersKey holds the exchange filters for symbol.
func FiltersKey(symbol string) string { return "filters:" + symbol }

// GetCandles reads the newest limit entries and returns them oldest first.
func (f *Feed) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	msgs, err := f.client.XRevRangeN(ctx, StreamKey(interval, symbol), "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis xrevrange %s: %w", StreamKey(interval, symbol), err)
	}
	return decodeCandles(msgs), nil
}

// decodeCandles turns newest-first stream entries into ascending candles.
// Entries without a decodable "data" field are skipped.
func decodeCandles(msgs []goredis.XMessage) []model.Candle {
	out := make([]model.Candle, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		data, ok := msgs[i].Values["data"].(string)
		if !ok {
			continue
		}
		var c model.Candle
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			slog.Warn("skipping bad candle entry", "component", "redisfeed", "id", msgs[i].ID, "error", err)
			continue
		}
		out = append(out, c)
	}
	return out
}

// GetExchangeFilter reads the filters hash.
func (f *Feed) GetExchangeFilter(ctx context.Context, symbol, filterType string) (model.ExchangeFilter, error) {
	vals, err := f.client.HGetAll(ctx, FiltersKey(symbol)).Result()
	if err != nil {
		return model.ExchangeFilter{}, fmt.Errorf("redis hgetall %s: %w", FiltersKey(symbol), err)
	}
	if len(vals) == 0 {
		return model.ExchangeFilter{}, fmt.Errorf("redis %s: %w", FiltersKey(symbol), marketdata.ErrNoData)
	}
	return parseFilter(vals, filterType)
}

func parseFilter(vals map[string]string, filterType string) (model.ExchangeFilter, error) {
	num := func(k string) float64 {
		v, _ := strconv.ParseFloat(vals[k], 64)
		return v
	}
	switch filterType {
	case model.FilterPrice:
		return model.ExchangeFilter{TickSize: num("tick_size")}, nil
	case model.FilterLotSize:
		return model.ExchangeFilter{StepSize: num("step_size"), MinQty: num("min_qty")}, nil
	default:
		return model.ExchangeFilter{}, fmt.Errorf("redis filter %s: %w", filterType, marketdata.ErrUnsupported)
	}
}

func (f *Feed) FormatPrice(ctx context.Context, symbol string, price float64) (string, error) {
	return marketdata.FormatPrice(ctx, f, symbol, price)
}

func (f *Feed) FormatQuantity(ctx context.Context, symbol string, qty float64) (string, error) {
	return marketdata.FormatQuantity(ctx, f, symbol, qty)
}

// GetOrderBook reads the latest book snapshot and trims each side to depth.
func (f *Feed) GetOrderBook(ctx context.Context, symbol string, depth int) (model.OrderBook, error) {
	data, err := f.client.Get(ctx, BookKey(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return model.OrderBook{}, fmt.Errorf("redis %s: %w", BookKey(symbol), marketdata.ErrNoData)
		}
		return model.OrderBook{}, fmt.Errorf("redis get %s: %w", BookKey(symbol), err)
	}
	var book model.OrderBook
	if err := json.Unmarshal(data, &book); err != nil {
		return model.OrderBook{}, fmt.Errorf("redis %s: decode: %w", BookKey(symbol), err)
	}
	if depth > 0 {
		book.Bids = book.Bids[:min(depth, len(book.Bids))]
		book.Asks = book.Asks[:min(depth, len(book.Asks))]
	}
	return book, nil
}

// AppendCandles pipelines candles onto the symbol's stream, trimming it.
// Used by seeders and tests; the live ingester writes the same layout.
func (f *Feed) AppendCandles(ctx context.Context, symbol, interval string, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	pipe := f.client.Pipeline()
	for i := range candles {
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: StreamKey(interval, symbol),
			MaxLen: streamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": string(candles[i].JSON())},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append %d candles: %w", len(candles), err)
	}
	return nil
}

// SetBook stores the latest book snapshot.
func (f *Feed) SetBook(ctx context.Context, symbol string, book model.OrderBook) error {
	data, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return f.client.Set(ctx, BookKey(symbol), data, 0).Err()
}

// SetFilters stores the exchange filters hash.
func (f *Feed) SetFilters(ctx context.Context, symbol string, price, lot model.ExchangeFilter) error {
	return f.client.HSet(ctx, FiltersKey(symbol),
		"tick_size", strconv.FormatFloat(price.TickSize, 'f', -1, 64),
		"step_size", strconv.FormatFloat(lot.StepSize, 'f', -1, 64),
		"min_qty", strconv.FormatFloat(lot.MinQty, 'f', -1, 64),
	).Err()
}
