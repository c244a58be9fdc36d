package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"trading-analyticsv1/internal/marketdata"
	"trading-analyticsv1/internal/marketdata/fake"
	"trading-analyticsv1/internal/model"
	"trading-analyticsv1/internal/views"
)

const sym = "ETHUSDT"

var headings = []string{
	"## Long-Term Analysis",
	"## Swing-Term Analysis",
	"## Short-Term Analysis",
	"## Micro-Term Analysis",
	"## Volume & Pivot Analysis",
	"## Slope & Momentum Analysis",
	"## Book Data",
}

type countingRecorder struct {
	mu       sync.Mutex
	reports  int
	degraded map[string]int
}

func (c *countingRecorder) ReportGenerated() {
	c.mu.Lock()
	c.reports++
	c.mu.Unlock()
}

func (c *countingRecorder) SectionDegraded(view string) {
	c.mu.Lock()
	if c.degraded == nil {
		c.degraded = make(map[string]int)
	}
	c.degraded[view]++
	c.mu.Unlock()
}

func provider() *fake.Provider {
	p := fake.New()
	p.SetCandles(sym, "1h", fake.Series(220, time.Hour, 3500))
	p.SetCandles(sym, "30m", fake.Series(96, 30*time.Minute, 3500))
	p.SetCandles(sym, "15m", fake.Series(144, 15*time.Minute, 3500))
	p.SetCandles(sym, "1m", fake.Series(120, time.Minute, 3500))
	p.SetBook(sym, model.OrderBook{
		Bids: []model.BookLevel{{Price: 3499.5, Quantity: 10}},
		Asks: []model.BookLevel{{Price: 3500.5, Quantity: 4}},
	})
	return p
}

func fixedClock() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

func assertOrdered(t *testing.T, report string) {
	t.Helper()
	last := -1
	for _, h := range headings {
		i := strings.Index(report, h)
		if i < 0 {
			t.Fatalf("report missing %q", h)
		}
		if i <= last {
			t.Errorf("%q out of order", h)
		}
		last = i
	}
}

func TestGetReport_AllSections(t *testing.T) {
	rec := &countingRecorder{}
	agg := New(views.NewService(provider(), views.Options{}), WithRecorder(rec), WithClock(fixedClock))

	out := agg.GetReport(context.Background(), sym)
	if !strings.HasPrefix(out, "# Market Analysis Report: ETHUSDT\n") {
		t.Errorf("header: %q", out[:min(len(out), 60)])
	}
	if !strings.Contains(out, "2024-06-01T12:00:00Z") {
		t.Error("generation time missing from header")
	}
	assertOrdered(t, out)
	for _, sub := range []string{"### Pivot Points", "### Significant Volumes"} {
		if !strings.Contains(out, sub) {
			t.Errorf("volume section missing %q", sub)
		}
	}
	if strings.Contains(out, "Data unavailable") {
		t.Error("no view should be degraded")
	}
	if rec.reports != 1 || len(rec.degraded) != 0 {
		t.Errorf("recorder = %d reports, %v degraded", rec.reports, rec.degraded)
	}
}

func TestGetReport_BookFailureDegradesOneSection(t *testing.T) {
	p := provider()
	p.FailOn("book", marketdata.ErrUnsupported)
	rec := &countingRecorder{}
	agg := New(views.NewService(p, views.Options{}), WithRecorder(rec))

	out := agg.GetReport(context.Background(), sym)
	assertOrdered(t, out)

	book := out[strings.Index(out, "## Book Data"):]
	if !strings.Contains(book, "Data unavailable") || !strings.Contains(book, "| Best Bid | N/A |") {
		t.Errorf("book section not degraded:\n%s", book)
	}
	before := out[:strings.Index(out, "## Book Data")]
	if strings.Contains(before, "Data unavailable") {
		t.Error("healthy sections were degraded")
	}
	if rec.degraded[views.Book] != 1 || len(rec.degraded) != 1 {
		t.Errorf("degraded = %v, want only order_book", rec.degraded)
	}
}

func TestGetReport_ProviderDown(t *testing.T) {
	p := provider()
	down := errors.New("connection refused")
	p.FailOn("candles", down)
	p.FailOn("book", down)
	agg := New(views.NewService(p, views.Options{}))

	out := agg.GetReport(context.Background(), sym)
	assertOrdered(t, out)
	if n := strings.Count(out, "Data unavailable"); n != len(headings) {
		t.Errorf("degraded sections = %d, want %d", n, len(headings))
	}
}

func TestGetAnalyses_PartialFailure(t *testing.T) {
	p := provider()
	p.FailOn("book", marketdata.ErrUnsupported)
	agg := New(views.NewService(p, views.Options{}), WithClock(fixedClock))

	snap := agg.GetAnalyses(context.Background(), sym)
	if snap.Symbol != sym || !snap.GeneratedAt.Equal(fixedClock()) || snap.ID == "" {
		t.Errorf("snapshot header = %+v", snap)
	}
	if len(snap.Views) != 6 {
		t.Errorf("views = %d, want 6", len(snap.Views))
	}
	if _, ok := snap.Views[views.Book]; ok {
		t.Error("failed view should be absent")
	}
	if !strings.Contains(snap.Errors[views.Book], "not supported") {
		t.Errorf("errors = %v", snap.Errors)
	}
	if _, ok := snap.Views[views.LongTerm].(*views.LongTermAnalysis); !ok {
		t.Errorf("long_term has type %T", snap.Views[views.LongTerm])
	}
	if _, err := json.Marshal(snap); err != nil {
		t.Fatalf("snapshot not encodable: %v", err)
	}
}
