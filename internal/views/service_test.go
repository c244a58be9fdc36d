package views

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"trading-analyticsv1/internal/marketdata"
	"trading-analyticsv1/internal/marketdata/fake"
	"trading-analyticsv1/internal/model"
)

const sym = "BTCUSDT"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func seeded() *fake.Provider {
	p := fake.New()
	p.SetCandles(sym, "1h", fake.Series(220, time.Hour, 65000))
	p.SetCandles(sym, "30m", fake.Series(96, 30*time.Minute, 65000))
	p.SetCandles(sym, "15m", fake.Series(144, 15*time.Minute, 65000))
	p.SetCandles(sym, "1m", fake.Series(120, time.Minute, 65000))
	p.SetBook(sym, model.OrderBook{
		Bids: []model.BookLevel{{Price: 64999.9, Quantity: 2}, {Price: 64999.5, Quantity: 5}},
		Asks: []model.BookLevel{{Price: 65000.1, Quantity: 1}, {Price: 65001, Quantity: 3}},
	})
	p.SetFilter(sym, model.FilterPrice, model.ExchangeFilter{TickSize: 0.1})
	p.SetFilter(sym, model.FilterLotSize, model.ExchangeFilter{StepSize: 0.001})
	return p
}

func newTestService(p *fake.Provider) (*Service, *testClock) {
	clk := &testClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewService(p, Options{Now: clk.Now}), clk
}

func TestService_ConcurrentCallsFetchOnce(t *testing.T) {
	p := seeded()
	p.SetDelay(20 * time.Millisecond)
	s, _ := newTestService(p)

	const n = 16
	results := make([]*LongTermAnalysis, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := s.GetLongTermAnalysis(context.Background(), sym)
			if err != nil {
				t.Errorf("call %d: %v", i, err)
			}
			results[i] = a
		}(i)
	}
	wg.Wait()

	if got := p.Calls("candles|1h"); got != 1 {
		t.Errorf("provider fetched %d times, want 1", got)
	}
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("call %d got a different analysis", i)
		}
	}
}

func TestService_ExpiryRefetchesOnce(t *testing.T) {
	p := seeded()
	s, clk := newTestService(p)
	ctx := context.Background()

	first, err := s.GetMicroTermAnalysis(ctx, sym)
	if err != nil {
		t.Fatal(err)
	}
	clk.Advance(59 * time.Second)
	again, _ := s.GetMicroTermAnalysis(ctx, sym)
	if again != first || p.Calls("candles|1m") != 1 {
		t.Fatalf("within TTL: same=%v calls=%d", again == first, p.Calls("candles|1m"))
	}

	clk.Advance(time.Second) // now exactly one TTL old
	fresh, err := s.GetMicroTermAnalysis(ctx, sym)
	if err != nil {
		t.Fatal(err)
	}
	if fresh == first {
		t.Error("expired entry was reused")
	}
	_, _ = s.GetMicroTermAnalysis(ctx, sym)
	if got := p.Calls("candles|1m"); got != 2 {
		t.Errorf("calls after expiry = %d, want 2", got)
	}
}

func TestService_ReportReusesAnalysis(t *testing.T) {
	p := seeded()
	s, _ := newTestService(p)
	ctx := context.Background()

	r1, err := s.GenerateLongTermReport(ctx, sym)
	if err != nil {
		t.Fatal(err)
	}
	r2, _ := s.GenerateLongTermReport(ctx, sym)
	if _, err := s.GetLongTermAnalysis(ctx, sym); err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Error("report changed within TTL")
	}
	if got := p.Calls("candles|1h"); got != 1 {
		t.Errorf("candles fetched %d times, want 1", got)
	}
	for _, want := range []string{"## Long-Term Analysis (1h × 48)", "| RSI |", "### Fibonacci Levels", "261.8%"} {
		if !strings.Contains(r1, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestService_ErrorCachedForTTL(t *testing.T) {
	p := seeded()
	boom := errors.New("exchange down")
	p.FailOn("candles|30m", boom)
	s, clk := newTestService(p)
	ctx := context.Background()

	if _, err := s.GetSwingTermAnalysis(ctx, sym); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	p.FailOn("candles|30m", nil)
	if _, err := s.GetSwingTermAnalysis(ctx, sym); !errors.Is(err, boom) {
		t.Errorf("rejection should be reused within TTL, got %v", err)
	}
	if got := p.Calls("candles|30m"); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}

	clk.Advance(15 * time.Minute)
	if _, err := s.GetSwingTermAnalysis(ctx, sym); err != nil {
		t.Errorf("after TTL: %v", err)
	}
}

func TestShortTerm_InsufficientData(t *testing.T) {
	p := seeded()
	p.SetCandles(sym, "15m", fake.Series(30, 15*time.Minute, 65000))
	s, _ := newTestService(p)

	a, err := s.GetShortTermAnalysis(context.Background(), sym)
	if err != nil {
		t.Fatalf("insufficient data must not be an error: %v", err)
	}
	dq := a.DataQuality
	if dq.SufficientData || dq.CandleCount != 30 || dq.RequiredCandles != 144 {
		t.Errorf("data quality = %+v", dq)
	}
	if a.SMA50 != nil {
		t.Errorf("SMA50 with 30 candles = %v, want nil", *a.SMA50)
	}
	if a.EMA21 == nil || a.RSI == nil {
		t.Error("short-window fields should still be computed")
	}
	if a.Fibonacci == nil {
		t.Error("fibonacci should use the shorter window")
	}

	report, err := s.GenerateShortTermReport(context.Background(), sym)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(report, "| SMA 50 | N/A |") || !strings.Contains(report, "Only 30 of 144 candles") {
		t.Errorf("report does not flag missing history:\n%s", report)
	}
}

func TestLongTerm_NumericSafety(t *testing.T) {
	p := seeded()
	series := fake.Series(48, time.Hour, 65000)
	series[len(series)-1].Close = math.NaN()
	p.SetCandles(sym, "1h", series)
	s, _ := newTestService(p)

	a, err := s.GetLongTermAnalysis(context.Background(), sym)
	if err != nil {
		t.Fatal(err)
	}
	if a.CurrentPrice != nil || a.RSI != nil || a.EMA12 != nil || a.SMA20 != nil || a.PriceChangePct != nil {
		t.Errorf("NaN close leaked: price=%v rsi=%v ema12=%v sma20=%v chg=%v",
			a.CurrentPrice, a.RSI, a.EMA12, a.SMA20, a.PriceChangePct)
	}
	if a.Bollinger.Middle != nil || a.Volatility != nil {
		t.Error("derived fields from a NaN close must be nil")
	}

	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("analysis not encodable: %v", err)
	}
	for _, field := range []string{`"rsi":null`, `"current_price":null`, `"sma20":null`} {
		if !strings.Contains(string(b), field) {
			t.Errorf("JSON missing %s", field)
		}
	}

	report, _ := s.GenerateLongTermReport(context.Background(), sym)
	if strings.Contains(report, "NaN") || !strings.Contains(report, "| RSI | N/A |") {
		t.Errorf("report should render N/A, not NaN:\n%s", report)
	}
}

func TestVolume_SideChannel(t *testing.T) {
	p := seeded()
	s, _ := newTestService(p)

	a, err := s.GetVolumeAnalysis(context.Background(), sym)
	if err != nil {
		t.Fatal(err)
	}
	if a.SMA200 == nil || a.PriceVsSMA200 == "" {
		t.Error("SMA200 should come from the 220-candle side channel")
	}
	if got := p.Calls("candles|1h"); got != 2 {
		t.Errorf("1h fetches = %d, want 2 (window + side channel)", got)
	}
	if a.DataQuality.CandleCount != 96 || len(a.PivotPoints) != 10 {
		t.Errorf("candles=%d pivots=%d", a.DataQuality.CandleCount, len(a.PivotPoints))
	}
	if a.VolumeSMA20 == nil || a.OBV == nil || a.VWAP == nil {
		t.Error("volume indicators missing")
	}

	short := seeded()
	short.SetCandles(sym, "1h", fake.Series(120, time.Hour, 65000))
	s2, _ := newTestService(short)
	a2, _ := s2.GetVolumeAnalysis(context.Background(), sym)
	if a2.SMA200 != nil {
		t.Error("SMA200 with 120 candles should be nil")
	}

	report, _ := s.GenerateVolumeReport(context.Background(), sym)
	for _, want := range []string{"### Fibonacci Levels", "### Pivot Points", "### Significant Volumes"} {
		if !strings.Contains(report, want) {
			t.Errorf("volume report missing %q", want)
		}
	}
}

func TestSlope_Metrics(t *testing.T) {
	p := seeded()
	rising := make([]model.Candle, 120)
	for i := range rising {
		c := 100 + float64(i)
		rising[i] = model.Candle{
			OpenTime: time.Unix(int64(i)*60, 0).UTC(),
			Open:     c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 10,
		}
	}
	p.SetCandles(sym, "1m", rising)
	s, _ := newTestService(p)

	a, err := s.GetSlopeAnalysis(context.Background(), sym)
	if err != nil {
		t.Fatal(err)
	}
	if a.SlopePerMinute == nil || math.Abs(*a.SlopePerMinute-1) > 1e-9 {
		t.Errorf("slope/min = %v, want 1", a.SlopePerMinute)
	}
	if a.Direction != "up" || a.Crossover != "bullish" {
		t.Errorf("direction=%q crossover=%q", a.Direction, a.Crossover)
	}
	if a.Momentum == nil || *a.Momentum != 10 {
		t.Errorf("momentum = %v, want 10", a.Momentum)
	}
	if a.PVStrength == nil || *a.PVStrength != 0 {
		t.Errorf("flat volume strength = %v, want 0", a.PVStrength)
	}
}

func TestMicro_VWAPAndSqueeze(t *testing.T) {
	p := seeded()
	flat := make([]model.Candle, 60)
	for i := range flat {
		flat[i] = model.Candle{OpenTime: time.Unix(int64(i)*60, 0).UTC(), Open: 50, High: 50.01, Low: 49.99, Close: 50, Volume: 0}
	}
	p.SetCandles(sym, "1m", flat)
	s, _ := newTestService(p)

	a, err := s.GetMicroTermAnalysis(context.Background(), sym)
	if err != nil {
		t.Fatal(err)
	}
	if a.VWAP == nil || *a.VWAP != 50 {
		t.Errorf("zero-volume VWAP = %v, want last close 50", a.VWAP)
	}
	if a.Squeeze == nil || !*a.Squeeze {
		t.Errorf("flat bands should be squeezed, bandwidth = %v", a.Bollinger.Bandwidth)
	}
}

func TestMicro_SqueezeUnknownWithoutBands(t *testing.T) {
	p := seeded()
	p.SetCandles(sym, "1m", fake.Series(5, time.Minute, 65000))
	s, _ := newTestService(p)
	ctx := context.Background()

	a, err := s.GetMicroTermAnalysis(ctx, sym)
	if err != nil {
		t.Fatal(err)
	}
	if a.Bollinger.Bandwidth != nil || a.Squeeze != nil {
		t.Errorf("5 candles: bandwidth=%v squeeze=%v, want nil", a.Bollinger.Bandwidth, a.Squeeze)
	}
	b, _ := json.Marshal(a)
	if !strings.Contains(string(b), `"squeeze":null`) {
		t.Errorf("JSON should carry a null squeeze: %s", b)
	}
	report, _ := s.GenerateMicroTermReport(ctx, sym)
	if !strings.Contains(report, "| Bollinger Squeeze | N/A |") {
		t.Errorf("report:\n%s", report)
	}
}

func TestDegraded_UnknownFieldsAreNA(t *testing.T) {
	s, _ := newTestService(seeded())
	deg := s.Degraded(context.Background(), MicroTerm, sym, errors.New("exchange down"))
	for _, want := range []string{"| Bollinger Squeeze | N/A |", "| Candles | N/A |", "| Sufficient Data | N/A |"} {
		if !strings.Contains(deg, want) {
			t.Errorf("degraded section missing %q:\n%s", want, deg)
		}
	}
	for _, bad := range []string{"| no |", "0 / 0", "| false |"} {
		if strings.Contains(deg, bad) {
			t.Errorf("degraded section shows %q as a value:\n%s", bad, deg)
		}
	}
}

func TestBook_AnalysisAndFailure(t *testing.T) {
	p := seeded()
	s, _ := newTestService(p)
	ctx := context.Background()

	a, err := s.GetOrderBookAnalysis(ctx, sym)
	if err != nil {
		t.Fatal(err)
	}
	if a.Depth != 20 || *a.BestBid != 64999.9 || *a.BestAsk != 65000.1 {
		t.Errorf("book = %+v", a)
	}
	report, _ := s.GenerateOrderBookReport(ctx, sym)
	if !strings.HasPrefix(report, "## Book Data\n") {
		t.Errorf("unexpected heading:\n%s", report)
	}

	p2 := seeded()
	p2.FailOn("book", marketdata.ErrUnsupported)
	s2, _ := newTestService(p2)
	_, err = s2.GetOrderBookAnalysis(ctx, sym)
	if !errors.Is(err, marketdata.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	deg := s2.Degraded(ctx, Book, sym, err)
	if !strings.Contains(deg, "Data unavailable") || !strings.Contains(deg, "| Best Bid | N/A |") {
		t.Errorf("degraded section:\n%s", deg)
	}
}

func TestReport_FormatFailureRendersRawValue(t *testing.T) {
	p := seeded()
	p.FailOn("format", errors.New("no filters"))
	s, _ := newTestService(p)

	report, err := s.GenerateOrderBookReport(context.Background(), sym)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(report, "| Best Bid | 64999.9 |") || !strings.Contains(report, "| Best Ask | 65000.1 |") {
		t.Errorf("unformatted prices should fall back to the raw value:\n%s", report)
	}
}

func TestService_ByName(t *testing.T) {
	p := seeded()
	s, _ := newTestService(p)
	ctx := context.Background()

	for _, name := range Names() {
		a, err := s.Analysis(ctx, name, sym)
		if err != nil || a == nil {
			t.Errorf("%s: analysis=%v err=%v", name, a, err)
		}
		r, err := s.Report(ctx, name, sym)
		if err != nil || !strings.HasPrefix(r, "## ") {
			t.Errorf("%s: report err=%v", name, err)
		}
		deg := s.Degraded(ctx, name, sym, errors.New("x"))
		if !strings.Contains(deg, "N/A") {
			t.Errorf("%s: degraded section has no N/A", name)
		}
	}

	if _, err := s.Report(ctx, "weekly", sym); !errors.Is(err, ErrUnknownView) {
		t.Errorf("unknown view: %v", err)
	}
	if _, err := s.Title("weekly"); !errors.Is(err, ErrUnknownView) {
		t.Errorf("unknown title: %v", err)
	}
}

func TestWindows(t *testing.T) {
	want := map[string]int{"1h": 220, "30m": 96, "15m": 144, "1m": 120}
	got := Windows()
	if len(got) != len(want) {
		t.Fatalf("windows = %v", got)
	}
	for iv, n := range want {
		if got[iv] != n {
			t.Errorf("%s = %d, want %d", iv, got[iv], n)
		}
	}
}
