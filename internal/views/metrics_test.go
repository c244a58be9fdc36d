package views

import (
	"math"
	"testing"
	"time"

	"trading-analyticsv1/internal/model"
)

func bar(i int, o, h, l, c, v float64) model.Candle {
	t := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
	return model.Candle{OpenTime: t, CloseTime: t.Add(time.Hour - time.Millisecond), Open: o, High: h, Low: l, Close: c, Volume: v}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// ──────────────────────────────────────────────
// Fibonacci
// ──────────────────────────────────────────────

func TestFibonacci_Invariant(t *testing.T) {
	candles := []model.Candle{
		bar(0, 0.2, 0.3, 0.1, 0.25, 1),
		bar(1, 0.25, 0.27, 0.12, 0.2, 1),
		bar(2, 0.2, 0.22, 0.15, 0.18, 1),
	}
	fib := Fibonacci(candles, 48, fibExtensionsLong)
	if fib == nil {
		t.Fatal("nil fib")
	}
	if p, _ := fib.Level("0.0%"); p != fib.High {
		t.Errorf("0.0%% = %v, want high %v", p, fib.High)
	}
	if p, _ := fib.Level("100.0%"); p != fib.Low {
		t.Errorf("100.0%% = %v, want low %v", p, fib.Low)
	}
	for _, l := range fib.Levels {
		if l.Ratio <= 1 && (l.Price < fib.Low || l.Price > fib.High) {
			t.Errorf("%s = %v outside [%v, %v]", l.Label, l.Price, fib.Low, fib.High)
		}
		if l.Ratio > 1 && l.Price >= fib.Low {
			t.Errorf("extension %s = %v not below low", l.Label, l.Price)
		}
	}
	if _, ok := fib.Level("261.8%"); !ok {
		t.Error("long-term extension 261.8% missing")
	}
	if fib.Trend != "down" {
		t.Errorf("trend = %q, want down (high and low share bar 0)", fib.Trend)
	}
}

func TestFibonacci_LabelsAndNearest(t *testing.T) {
	candles := []model.Candle{
		bar(0, 100, 100, 90, 95, 1),
		bar(1, 95, 110, 94, 104, 1), // high after low → up
	}
	fib := Fibonacci(candles, 96, fibExtensions)
	want := []string{"0.0%", "23.6%", "38.2%", "50.0%", "61.8%", "78.6%", "100.0%", "127.2%", "161.8%"}
	if len(fib.Levels) != len(want) {
		t.Fatalf("levels = %d, want %d", len(fib.Levels), len(want))
	}
	for i, l := range fib.Levels {
		if l.Label != want[i] {
			t.Errorf("label %d = %q, want %q", i, l.Label, want[i])
		}
	}
	if fib.Trend != "up" {
		t.Errorf("trend = %q, want up", fib.Trend)
	}
	// 110 - 20*0.236 = 105.28 is the closest level to 104.
	if fib.Nearest == nil || fib.Nearest.Label != "23.6%" {
		t.Errorf("nearest = %+v, want 23.6%%", fib.Nearest)
	}
	if p, _ := fib.Level("50.0%"); !approx(p, 100) {
		t.Errorf("50%% = %v, want 100", p)
	}
}

func TestFibonacci_TooFewCandles(t *testing.T) {
	if Fibonacci(nil, 48, fibExtensions) != nil {
		t.Error("empty window should be nil")
	}
	if Fibonacci([]model.Candle{bar(0, 1, 2, 0.5, 1.5, 1)}, 48, fibExtensions) != nil {
		t.Error("single candle should be nil")
	}
	nan := bar(1, 1, math.NaN(), math.NaN(), 1, 1)
	if Fibonacci([]model.Candle{bar(0, 1, 2, 0.5, 1.5, 1), nan}, 48, fibExtensions) != nil {
		t.Error("one usable candle should be nil")
	}
}

func TestFibonacci_UsesLookbackOnly(t *testing.T) {
	candles := []model.Candle{bar(0, 1, 1000, 1, 1, 1)}
	for i := 1; i <= 30; i++ {
		candles = append(candles, bar(i, 10, 12, 8, 10, 1))
	}
	fib := Fibonacci(candles, 30, fibExtensions)
	if fib.High != 12 || fib.Low != 8 {
		t.Errorf("extrema = %v/%v, want 12/8", fib.High, fib.Low)
	}
}

// ──────────────────────────────────────────────
// Support / resistance
// ──────────────────────────────────────────────

func TestPivotSR(t *testing.T) {
	candles := []model.Candle{
		bar(0, 1, 500, 1, 1, 1), // outside K
		bar(1, 10, 12, 9, 11, 1),
		bar(2, 11, 13, math.NaN(), 12, 1),
		bar(3, 12, 14, 10, 13, 1),
	}
	price := 13.0
	sr := PivotSR(candles, 3, &price)
	if *sr.Support != 9 || *sr.Resistance != 14 {
		t.Errorf("sr = %v/%v, want 9/14", *sr.Support, *sr.Resistance)
	}
}

func TestPivotSR_FallsBackToPrice(t *testing.T) {
	candles := []model.Candle{bar(0, 1, math.NaN(), math.Inf(-1), 1, 1)}
	price := 42.0
	sr := PivotSR(candles, 4, &price)
	if sr.Support == nil || *sr.Support != 42 || sr.Resistance == nil || *sr.Resistance != 42 {
		t.Errorf("sr = %+v, want price fallback", sr)
	}
	if sr.Support == &price {
		t.Error("fallback must not alias the caller's pointer")
	}
}

func TestSignificantSR(t *testing.T) {
	price := 100.0
	candles := []model.Candle{
		bar(0, 100, 100.2, 99.9, 100, 1), // within 0.3% on both sides
		bar(1, 100, 101, 99, 100, 1),     // qualifies: 1% away
		bar(2, 100, 103, 97, 100, 1),     // qualifies but farther
	}
	sr := SignificantSR(candles, 48, &price, 0.003)
	if *sr.Resistance != 101 {
		t.Errorf("resistance = %v, want 101 (nearest qualifying high)", *sr.Resistance)
	}
	if *sr.Support != 99 {
		t.Errorf("support = %v, want 99 (nearest qualifying low)", *sr.Support)
	}
}

func TestSignificantSR_FallsBackToExtrema(t *testing.T) {
	price := 100.0
	candles := []model.Candle{
		bar(0, 100, 100.1, 99.95, 100, 1),
		bar(1, 100, 100.2, 99.9, 100, 1),
	}
	sr := SignificantSR(candles, 30, &price, 0.003)
	if *sr.Resistance != 100.2 || *sr.Support != 99.9 {
		t.Errorf("sr = %v/%v, want window extrema 99.9/100.2", *sr.Support, *sr.Resistance)
	}
}

// ──────────────────────────────────────────────
// Volume trend
// ──────────────────────────────────────────────

func volumes(prev, recent float64, w int) []float64 {
	out := make([]float64, 0, 2*w)
	for i := 0; i < w; i++ {
		out = append(out, prev)
	}
	for i := 0; i < w; i++ {
		out = append(out, recent)
	}
	return out
}

func TestVolumeTrend_Boundaries(t *testing.T) {
	tests := []struct {
		name      string
		prev, rec float64
		w         int
		up, down  float64
		want      string
	}{
		{"exactly 1.1x is stable", 100, 110, 10, 1.1, 0.9, "stable"},
		{"above 1.1x increases", 100, 111, 10, 1.1, 0.9, "increasing"},
		{"exactly 1.2x is stable", 100, 120, 6, 1.2, 0.8, "stable"},
		{"above 1.2x increases", 100, 121, 6, 1.2, 0.8, "increasing"},
		{"exactly 0.9x is stable", 100, 90, 5, 1.1, 0.9, "stable"},
		{"exactly 0.8x is stable", 100, 80, 24, 1.2, 0.8, "stable"},
		{"below 0.8x decreases", 100, 79, 24, 1.2, 0.8, "decreasing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vt := ClassifyVolumeTrend(volumes(tt.prev, tt.rec, tt.w), tt.w, tt.up, tt.down)
			if vt.Trend != tt.want {
				t.Errorf("trend = %q (ratio %v), want %q", vt.Trend, *vt.Ratio, tt.want)
			}
		})
	}
}

func TestVolumeTrend_InsufficientAndZero(t *testing.T) {
	vt := ClassifyVolumeTrend([]float64{1, 2, 3}, 2, 1.1, 0.9)
	if vt.Trend != "stable" || vt.Ratio != nil {
		t.Errorf("short window = %+v, want stable/nil", vt)
	}
	vt = ClassifyVolumeTrend(volumes(0, 50, 3), 3, 1.1, 0.9)
	if vt.Trend != "stable" || vt.Ratio != nil {
		t.Errorf("zero previous mean = %+v, want stable/nil", vt)
	}
}

// ──────────────────────────────────────────────
// VWAP, slope, price-volume strength
// ──────────────────────────────────────────────

func TestVWAP(t *testing.T) {
	candles := []model.Candle{
		bar(0, 10, 12, 9, 9, 1),   // typical 10
		bar(1, 10, 22, 18, 20, 3), // typical 20
	}
	v := VWAP(candles)
	if v == nil || !approx(*v, 17.5) {
		t.Errorf("VWAP = %v, want 17.5", v)
	}
}

func TestVWAP_ZeroVolumeFallsBackToLastClose(t *testing.T) {
	candles := []model.Candle{
		bar(0, 10, 12, 9, 11, 0),
		bar(1, 11, 13, 10, 12.5, 0),
	}
	v := VWAP(candles)
	if v == nil || *v != 12.5 {
		t.Errorf("VWAP = %v, want last close 12.5", v)
	}
	if VWAP(nil) != nil {
		t.Error("empty window should be nil")
	}
}

func TestPriceSlope(t *testing.T) {
	s := PriceSlope([]float64{1, 3, 5, 7, 9})
	if s == nil || !approx(*s, 2) {
		t.Errorf("slope = %v, want 2", s)
	}
	flat := PriceSlope([]float64{4, 4, 4})
	if flat == nil || *flat != 0 {
		t.Errorf("flat slope = %v, want 0", flat)
	}
	if PriceSlope([]float64{1}) != nil {
		t.Error("single point should be nil")
	}
}

func TestPriceVolumeStrength(t *testing.T) {
	candles := []model.Candle{
		bar(0, 0, 0, 0, 100, 10),
		bar(1, 0, 0, 0, 102, 20), // +2 * 2 = 4
		bar(2, 0, 0, 0, 101, 10), // volume fell, skipped
		bar(3, 0, 0, 0, 99, 15),  // -2 * 1.5 = -3
		bar(4, 0, 0, 0, 98, 0),   // volume fell, skipped
		bar(5, 0, 0, 0, 97, 5),   // base volume zero, skipped
	}
	s := PriceVolumeStrength(candles, 30)
	if s == nil || !approx(*s, 1) {
		t.Errorf("strength = %v, want 1", s)
	}
	if PriceVolumeStrength(candles[:1], 30) != nil {
		t.Error("single candle should be nil")
	}
}

// ──────────────────────────────────────────────
// Pivot points and volume spikes
// ──────────────────────────────────────────────

func TestPivotPoints(t *testing.T) {
	candles := []model.Candle{
		bar(0, 0, 110, 90, 100, 1),
		bar(1, 0, 0, 0, 0, 1),
	}
	pp := PivotPoints(candles, 10)
	if len(pp) != 1 {
		t.Fatalf("len = %d, want 1", len(pp))
	}
	p := pp[0]
	if p.Pivot != 100 || p.R1 != 110 || p.S1 != 90 || p.R2 != 120 || p.S2 != 80 || p.R3 != 130 || p.S3 != 70 {
		t.Errorf("pivot = %+v", p)
	}
	if !p.Time.Equal(candles[1].OpenTime) {
		t.Error("pivot should be stamped with the candle it applies to")
	}
}

func TestPivotPoints_KeepsNewest(t *testing.T) {
	var candles []model.Candle
	for i := 0; i < 15; i++ {
		candles = append(candles, bar(i, 10, 11, 9, 10, 1))
	}
	pp := PivotPoints(candles, 10)
	if len(pp) != 10 || !pp[9].Time.Equal(candles[14].OpenTime) {
		t.Errorf("kept %d, last at %v", len(pp), pp[len(pp)-1].Time)
	}
}

func TestVolumeSpikes(t *testing.T) {
	var candles []model.Candle
	for i := 0; i < 20; i++ {
		candles = append(candles, bar(i, 10, 11, 9, 10, 100))
	}
	candles = append(candles, bar(20, 10, 11, 9, 10, 150)) // exactly 1.5x: not a spike
	candles = append(candles, bar(21, 10, 11, 9, 10, 400))

	spikes := VolumeSpikes(candles, 20, 1.5, 10)
	if len(spikes) != 1 {
		t.Fatalf("spikes = %d, want 1", len(spikes))
	}
	// Trailing average for bar 21 is (19*100 + 150)/20 = 102.5.
	if !approx(spikes[0].Average, 102.5) || !approx(spikes[0].Ratio, 400/102.5) {
		t.Errorf("spike = %+v", spikes[0])
	}
}

func TestVolumeSpikes_UnsafeVolumeSkipped(t *testing.T) {
	var candles []model.Candle
	for i := 0; i < 96; i++ {
		candles = append(candles, bar(i, 10, 11, 9, 10, 100))
	}
	candles[5].Volume = math.NaN()
	candles[90].Volume = 1000

	spikes := VolumeSpikes(candles, 20, 1.5, 10)
	if len(spikes) != 1 {
		t.Fatalf("spikes = %d, want 1 (an early NaN must not hide later spikes)", len(spikes))
	}
	if !approx(spikes[0].Average, 100) || !approx(spikes[0].Ratio, 10) {
		t.Errorf("spike = %+v", spikes[0])
	}

	// Inside the window the NaN is left out of the mean.
	candles[85].Volume = math.Inf(1)
	spikes = VolumeSpikes(candles, 20, 1.5, 10)
	if len(spikes) != 1 || !approx(spikes[0].Average, 100) {
		t.Errorf("spikes with Inf in window = %+v", spikes)
	}
}

// ──────────────────────────────────────────────
// Order book depth
// ──────────────────────────────────────────────

func TestDepthOf(t *testing.T) {
	book := model.OrderBook{
		Bids: []model.BookLevel{{Price: 99, Quantity: 3}, {Price: 98, Quantity: 1}},
		Asks: []model.BookLevel{{Price: 101, Quantity: 1}, {Price: 102, Quantity: 1}, {Price: math.NaN(), Quantity: 9}},
	}
	d := DepthOf(book)
	if *d.BestBid != 99 || *d.BestAsk != 101 || *d.MidPrice != 100 || *d.Spread != 2 {
		t.Errorf("top of book = %v %v %v %v", *d.BestBid, *d.BestAsk, *d.MidPrice, *d.Spread)
	}
	if !approx(*d.SpreadPercent, 2) {
		t.Errorf("spread %% = %v, want 2", *d.SpreadPercent)
	}
	if *d.BidTotal != 4 || *d.AskTotal != 2 {
		t.Errorf("totals = %v/%v", *d.BidTotal, *d.AskTotal)
	}
	if !approx(*d.Imbalance, 2.0/6.0) {
		t.Errorf("imbalance = %v, want 1/3", *d.Imbalance)
	}
	if !approx(*d.Bids[0].Percent, 75) {
		t.Errorf("bid share = %v, want 75", *d.Bids[0].Percent)
	}
	if d.LargestBid.Price != 99 || len(d.Asks) != 2 {
		t.Errorf("largest bid = %+v, asks = %d", d.LargestBid, len(d.Asks))
	}
}

func TestDepthOf_UnsortedBook(t *testing.T) {
	book := model.OrderBook{
		Bids: []model.BookLevel{{Price: 97, Quantity: 1}, {Price: 99, Quantity: 2}, {Price: 98, Quantity: 1}},
		Asks: []model.BookLevel{{Price: 103, Quantity: 1}, {Price: 101, Quantity: 1}, {Price: 102, Quantity: 1}},
	}
	d := DepthOf(book)
	if *d.BestBid != 99 || *d.BestAsk != 101 || *d.Spread != 2 {
		t.Errorf("best bid/ask = %v/%v spread %v, want 99/101 spread 2", *d.BestBid, *d.BestAsk, *d.Spread)
	}
	if d.Bids[0].Price != 99 || d.Bids[2].Price != 97 || d.Asks[0].Price != 101 || d.Asks[2].Price != 103 {
		t.Errorf("levels not ordered from the top of book: bids=%+v asks=%+v", d.Bids, d.Asks)
	}
}

func TestDepthOf_EmptyBook(t *testing.T) {
	d := DepthOf(model.OrderBook{})
	if d.BestBid != nil || d.MidPrice != nil || d.Imbalance != nil || d.LargestAsk != nil {
		t.Errorf("empty book should be all nil: %+v", d)
	}
}
