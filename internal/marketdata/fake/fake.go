// Package fake is an in-memory model.MarketData for tests.
package fake

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"trading-analyticsv1/internal/model"
)

// Provider serves canned candles and books and counts calls.
type Provider struct {
	mu      sync.Mutex
	candles map[string][]model.Candle // key: symbol|interval
	books   map[string]model.OrderBook
	filters map[string]model.ExchangeFilter // key: symbol|filterType
	errs    map[string]error                // key: op or op|symbol
	calls   map[string]int
	delay   time.Duration
}

var _ model.MarketData = (*Provider)(nil)

// New returns an empty provider.
func New() *Provider {
	return &Provider{
		candles: make(map[string][]model.Candle),
		books:   make(map[string]model.OrderBook),
		filters: make(map[string]model.ExchangeFilter),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

// SetCandles stores the series returned for symbol/interval.
func (p *Provider) SetCandles(symbol, interval string, candles []model.Candle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candles[symbol+"|"+interval] = candles
}

// SetBook stores the order book for symbol.
func (p *Provider) SetBook(symbol string, book model.OrderBook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.books[symbol] = book
}

// SetFilter stores an exchange filter.
func (p *Provider) SetFilter(symbol, filterType string, f model.ExchangeFilter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filters[symbol+"|"+filterType] = f
}

// FailOn makes op fail with err. op is one of "candles", "filter",
// "book", "format"; appending "|"+interval to "candles" narrows it.
func (p *Provider) FailOn(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.errs, op)
		return
	}
	p.errs[op] = err
}

// SetDelay makes every call sleep d (honouring ctx) before answering.
func (p *Provider) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// Calls returns how many times op was invoked.
func (p *Provider) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

func (p *Provider) enter(ctx context.Context, ops ...string) error {
	p.mu.Lock()
	for _, op := range ops {
		p.calls[op]++
	}
	var err error
	for _, op := range ops {
		if e, ok := p.errs[op]; ok {
			err = e
			break
		}
	}
	delay := p.delay
	p.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

func (p *Provider) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	if err := p.enter(ctx, "candles", "candles|"+interval); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.candles[symbol+"|"+interval]
	c = model.Tail(c, limit)
	out := make([]model.Candle, len(c))
	copy(out, c)
	return out, nil
}

func (p *Provider) GetExchangeFilter(ctx context.Context, symbol, filterType string) (model.ExchangeFilter, error) {
	if err := p.enter(ctx, "filter"); err != nil {
		return model.ExchangeFilter{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.filters[symbol+"|"+filterType]
	if !ok {
		return model.ExchangeFilter{}, fmt.Errorf("fake: no %s filter for %s", filterType, symbol)
	}
	return f, nil
}

// FormatPrice renders with the stored tick decimals, or two decimals.
func (p *Provider) FormatPrice(ctx context.Context, symbol string, price float64) (string, error) {
	if err := p.enter(ctx, "format"); err != nil {
		return "", err
	}
	return strconv.FormatFloat(price, 'f', p.decimals(symbol, model.FilterPrice, 2), 64), nil
}

// FormatQuantity renders with the stored step decimals, or three decimals.
func (p *Provider) FormatQuantity(ctx context.Context, symbol string, qty float64) (string, error) {
	if err := p.enter(ctx, "format"); err != nil {
		return "", err
	}
	return strconv.FormatFloat(qty, 'f', p.decimals(symbol, model.FilterLotSize, 3), 64), nil
}

func (p *Provider) decimals(symbol, filterType string, def int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.filters[symbol+"|"+filterType]
	if !ok {
		return def
	}
	step := f.TickSize
	if filterType == model.FilterLotSize {
		step = f.StepSize
	}
	if step <= 0 {
		return def
	}
	str := strconv.FormatFloat(step, 'f', -1, 64)
	if i := strings.IndexByte(str, '.'); i >= 0 {
		return len(str) - i - 1
	}
	return 0
}

func (p *Provider) GetOrderBook(ctx context.Context, symbol string, depth int) (model.OrderBook, error) {
	if err := p.enter(ctx, "book"); err != nil {
		return model.OrderBook{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	b := p.books[symbol]
	out := model.OrderBook{
		Bids: append([]model.BookLevel(nil), b.Bids[:min(depth, len(b.Bids))]...),
		Asks: append([]model.BookLevel(nil), b.Asks[:min(depth, len(b.Asks))]...),
	}
	return out, nil
}

// Series builds n candles on interval ending now, closing along a gentle
// sawtooth around base with volumes that swell every few bars.
func Series(n int, interval time.Duration, base float64) []model.Candle {
	out := make([]model.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := base
	for i := 0; i < n; i++ {
		step := float64(i%7) - 3
		cl := base + step*base*0.002 + float64(i)*base*0.0005
		hi := max(prev, cl) * 1.001
		lo := min(prev, cl) * 0.999
		out[i] = model.Candle{
			OpenTime:  start.Add(time.Duration(i) * interval),
			CloseTime: start.Add(time.Duration(i+1)*interval - time.Millisecond),
			Open:      prev,
			High:      hi,
			Low:       lo,
			Close:     cl,
			Volume:    100 + float64(i%5)*20,
		}
		prev = cl
	}
	return out
}
