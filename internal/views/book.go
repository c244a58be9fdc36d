package views

import (
	"context"
	"fmt"
	"time"

	"trading-analyticsv1/internal/numeric"
)

// bookRows caps the levels printed per side.
const bookRows = 10

// OrderBookAnalysis is the depth snapshot view.
type OrderBookAnalysis struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Depth     int       `json:"depth"`
	BookDepth
}

func (s *Service) analyzeBook(ctx context.Context, symbol string) (*OrderBookAnalysis, error) {
	depth := s.book.cfg.Candles
	book, err := s.md.GetOrderBook(ctx, symbol, depth)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", Book, symbol, err)
	}
	return &OrderBookAnalysis{
		Symbol:    symbol,
		Timestamp: s.now(),
		Depth:     depth,
		BookDepth: DepthOf(book),
	}, nil
}

func renderBook(r *renderer, a *OrderBookAnalysis) {
	r.row("Best Bid", r.price(a.BestBid))
	r.row("Best Ask", r.price(a.BestAsk))
	r.row("Mid Price", r.price(a.MidPrice))
	r.row("Spread", r.price(a.Spread))
	r.row("Spread %", r.num(a.SpreadPercent, 4)+pctSuffix(a.SpreadPercent))
	r.row("Bid Volume", r.qty(a.BidTotal))
	r.row("Ask Volume", r.qty(a.AskTotal))
	r.row("Imbalance", r.num(a.Imbalance, 4))
	r.row("Largest Bid Wall", wall(r, a.LargestBid))
	r.row("Largest Ask Wall", wall(r, a.LargestAsk))

	side := func(title string, entries []BookEntry) {
		r.subheading(title)
		if len(entries) == 0 {
			r.notef("%s", numeric.NA)
			return
		}
		r.table("Price", "Quantity", "Share")
		for _, e := range entries[:min(len(entries), bookRows)] {
			r.line(r.priceOf(e.Price), r.qtyOf(e.Quantity), r.pct(e.Percent))
		}
		r.endTable()
	}
	side("Bids", a.Bids)
	side("Asks", a.Asks)
}

func wall(r *renderer, e *BookEntry) string {
	if e == nil {
		return numeric.NA
	}
	return r.qtyOf(e.Quantity) + " @ " + r.priceOf(e.Price)
}

func pctSuffix(v *float64) string {
	if v == nil {
		return ""
	}
	return "%"
}
