// Package binance is a model.MarketData backed by the Binance futures REST
// API: klines, exchangeInfo filters and depth snapshots.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trading-analyticsv1/internal/cache"
	"trading-analyticsv1/internal/marketdata"
	"trading-analyticsv1/internal/model"
)

const defaultRoot = "https://fapi.binance.com"

var routes = map[string]string{
	"klines":       "/fapi/v1/klines",
	"exchangeInfo": "/fapi/v1/exchangeInfo",
	"depth":        "/fapi/v1/depth",
}

// Depth limits accepted by the depth endpoint.
var depthLimits = []int{5, 10, 20, 50, 100, 500, 1000}

// Config configures the client.
type Config struct {
	RootURL   string        // default: https://fapi.binance.com
	Timeout   time.Duration // HTTP client timeout; default 10s
	FilterTTL time.Duration // exchangeInfo cache lifetime; default 1h
	Observer  cache.Observer
}

// Client implements model.MarketData.
type Client struct {
	rootURL    string
	httpClient *http.Client
	filters    *cache.Memo[map[string]symbolFilters]
}

var _ model.MarketData = (*Client)(nil)

// symbolFilters keeps the two filter kinds the analytics layer needs.
type symbolFilters struct {
	price model.ExchangeFilter
	lot   model.ExchangeFilter
}

// APIError is a non-2xx response from the exchange.
type APIError struct {
	Status int
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance: http %d code=%d: %s", e.Status, e.Code, e.Msg)
}

// New creates a client.
func New(cfg Config) *Client {
	root := strings.TrimRight(cfg.RootURL, "/")
	if root == "" {
		root = defaultRoot
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.FilterTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &Client{
		rootURL:    root,
		httpClient: &http.Client{Timeout: timeout},
	}
	c.filters = cache.New("binance_exchange_info", c.fetchExchangeInfo, cache.Options{
		TTL:      ttl,
		Size:     1,
		Observer: cfg.Observer,
	})
	return c
}

func (c *Client) get(ctx context.Context, route string, params url.Values, out any) error {
	uri, ok := routes[route]
	if !ok {
		return fmt.Errorf("unknown route: %s", route)
	}
	reqURL := c.rootURL + uri
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("binance %s: %w", route, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("binance %s: read body: %w", route, err)
	}
	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		if apiErr.Msg == "" {
			apiErr.Msg = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("binance %s: decode: %w", route, err)
	}
	return nil
}

// GetCandles fetches klines. Rows are [openTime, open, high, low, close,
// volume, closeTime, ...] with prices as strings.
func (c *Client) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var rows [][]json.RawMessage
	if err := c.get(ctx, "klines", params, &rows); err != nil {
		return nil, err
	}

	out := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		cndl, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s row %d: %w", symbol, i, err)
		}
		out = append(out, cndl)
	}
	return out, nil
}

func parseKline(row []json.RawMessage) (model.Candle, error) {
	if len(row) < 7 {
		return model.Candle{}, fmt.Errorf("short row (%d fields)", len(row))
	}
	var openMs, closeMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return model.Candle{}, fmt.Errorf("open time: %w", err)
	}
	if err := json.Unmarshal(row[6], &closeMs); err != nil {
		return model.Candle{}, fmt.Errorf("close time: %w", err)
	}
	var f [5]float64
	for i := range f {
		v, err := rawFloat(row[i+1])
		if err != nil {
			return model.Candle{}, err
		}
		f[i] = v
	}
	return model.Candle{
		OpenTime:  time.UnixMilli(openMs).UTC(),
		CloseTime: time.UnixMilli(closeMs).UTC(),
		Open:      f[0],
		High:      f[1],
		Low:       f[2],
		Close:     f[3],
		Volume:    f[4],
	}, nil
}

// rawFloat accepts both "1.23" and 1.23.
func rawFloat(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	return f, nil
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol  string `json:"symbol"`
		Filters []struct {
			FilterType string `json:"filterType"`
			TickSize   string `json:"tickSize"`
			StepSize   string `json:"stepSize"`
			MinQty     string `json:"minQty"`
		} `json:"filters"`
	} `json:"symbols"`
}

func (c *Client) fetchExchangeInfo(ctx context.Context, _ string) (map[string]symbolFilters, error) {
	var info exchangeInfo
	if err := c.get(ctx, "exchangeInfo", nil, &info); err != nil {
		return nil, err
	}
	out := make(map[string]symbolFilters, len(info.Symbols))
	for _, s := range info.Symbols {
		var sf symbolFilters
		for _, f := range s.Filters {
			switch f.FilterType {
			case model.FilterPrice:
				sf.price.TickSize, _ = strconv.ParseFloat(f.TickSize, 64)
			case model.FilterLotSize:
				sf.lot.StepSize, _ = strconv.ParseFloat(f.StepSize, 64)
				sf.lot.MinQty, _ = strconv.ParseFloat(f.MinQty, 64)
			}
		}
		out[s.Symbol] = sf
	}
	slog.Info("exchange info loaded", "component", "binance", "symbols", len(out))
	return out, nil
}

// GetExchangeFilter looks symbol up in the cached exchangeInfo.
func (c *Client) GetExchangeFilter(ctx context.Context, symbol, filterType string) (model.ExchangeFilter, error) {
	all, err := c.filters.Get(ctx, "exchangeInfo")
	if err != nil {
		// Failed loads are not worth keeping for a whole TTL.
		c.filters.Invalidate("exchangeInfo")
		return model.ExchangeFilter{}, err
	}
	sf, ok := all[symbol]
	if !ok {
		return model.ExchangeFilter{}, fmt.Errorf("binance: symbol %s: %w", symbol, marketdata.ErrNoData)
	}
	switch filterType {
	case model.FilterPrice:
		return sf.price, nil
	case model.FilterLotSize:
		return sf.lot, nil
	default:
		return model.ExchangeFilter{}, fmt.Errorf("binance: filter %s: %w", filterType, marketdata.ErrUnsupported)
	}
}

func (c *Client) FormatPrice(ctx context.Context, symbol string, price float64) (string, error) {
	return marketdata.FormatPrice(ctx, c, symbol, price)
}

func (c *Client) FormatQuantity(ctx context.Context, symbol string, qty float64) (string, error) {
	return marketdata.FormatQuantity(ctx, c, symbol, qty)
}

type depthResponse struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

// GetOrderBook fetches a depth snapshot, requesting the smallest accepted
// limit that covers depth and trimming to depth.
func (c *Client) GetOrderBook(ctx context.Context, symbol string, depth int) (model.OrderBook, error) {
	if depth <= 0 {
		depth = 20
	}
	limit := depthLimits[len(depthLimits)-1]
	for _, l := range depthLimits {
		if l >= depth {
			limit = l
			break
		}
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var resp depthResponse
	if err := c.get(ctx, "depth", params, &resp); err != nil {
		return model.OrderBook{}, err
	}
	bids, err := parseLevels(resp.Bids, depth)
	if err != nil {
		return model.OrderBook{}, fmt.Errorf("binance depth %s bids: %w", symbol, err)
	}
	asks, err := parseLevels(resp.Asks, depth)
	if err != nil {
		return model.OrderBook{}, fmt.Errorf("binance depth %s asks: %w", symbol, err)
	}
	return model.OrderBook{Bids: bids, Asks: asks}, nil
}

func parseLevels(raw [][2]string, depth int) ([]model.BookLevel, error) {
	n := min(len(raw), depth)
	out := make([]model.BookLevel, 0, n)
	for _, lv := range raw[:n] {
		p, err1 := strconv.ParseFloat(lv[0], 64)
		q, err2 := strconv.ParseFloat(lv[1], 64)
		if err := errors.Join(err1, err2); err != nil {
			return nil, err
		}
		out = append(out, model.BookLevel{Price: p, Quantity: q})
	}
	return out, nil
}
