package views

import (
	"time"

	"trading-analyticsv1/internal/indicator"
	"trading-analyticsv1/internal/model"
	"trading-analyticsv1/internal/numeric"
)

// recentWindow is how many of the newest candles an analysis carries.
const recentWindow = 10

// Base is embedded in every candle-driven analysis.
type Base struct {
	Symbol        string         `json:"symbol"`
	Interval      string         `json:"interval"`
	Timestamp     time.Time      `json:"timestamp"`
	CurrentPrice  *float64       `json:"current_price"`
	DataQuality   DataQuality    `json:"data_quality"`
	RecentCandles []model.Candle `json:"recent_candles"`
}

// DataQuality records whether the provider returned the full window.
type DataQuality struct {
	CandleCount     int  `json:"candle_count"`
	RequiredCandles int  `json:"required_candles"`
	SufficientData  bool `json:"sufficient_data"`
}

func newBase(cfg viewConfig, symbol string, now time.Time, candles []model.Candle) Base {
	b := Base{
		Symbol:    symbol,
		Interval:  cfg.Interval,
		Timestamp: now,
		DataQuality: DataQuality{
			CandleCount:     len(candles),
			RequiredCandles: cfg.Candles,
			SufficientData:  len(candles) >= cfg.Candles,
		},
		RecentCandles: normalized(model.Tail(candles, recentWindow)),
	}
	if n := len(candles); n > 0 {
		b.CurrentPrice = numeric.Float(candles[n-1].Close)
	}
	return b
}

// normalized copies the candles whose every number is safe.
func normalized(candles []model.Candle) []model.Candle {
	out := make([]model.Candle, 0, len(candles))
	for _, c := range candles {
		if numeric.IsUnsafe(c.Open) || numeric.IsUnsafe(c.High) || numeric.IsUnsafe(c.Low) ||
			numeric.IsUnsafe(c.Close) || numeric.IsUnsafe(c.Volume) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// MACDValues is the guarded MACD output.
type MACDValues struct {
	MACD      *float64 `json:"macd"`
	Signal    *float64 `json:"signal"`
	Histogram *float64 `json:"histogram"`
}

func macdValues(m *indicator.MACD) MACDValues {
	if !m.Ready() {
		return MACDValues{}
	}
	r := m.Result()
	return MACDValues{
		MACD:      numeric.Float(r.MACD),
		Signal:    numeric.Float(r.Signal),
		Histogram: numeric.Float(r.Histogram),
	}
}

// BandValues is the guarded Bollinger output. Bandwidth is in percent.
type BandValues struct {
	Upper     *float64 `json:"upper"`
	Middle    *float64 `json:"middle"`
	Lower     *float64 `json:"lower"`
	Bandwidth *float64 `json:"bandwidth"`
	PercentB  *float64 `json:"percent_b"`
}

func bandValues(b *indicator.Bollinger) BandValues {
	if !b.Ready() {
		return BandValues{}
	}
	r := b.Result()
	return BandValues{
		Upper:     numeric.Float(r.Upper),
		Middle:    numeric.Float(r.Middle),
		Lower:     numeric.Float(r.Lower),
		Bandwidth: numeric.Float(r.Bandwidth),
		PercentB:  numeric.Float(r.PercentB),
	}
}

// StochValues is the guarded stochastic output.
type StochValues struct {
	K *float64 `json:"k"`
	D *float64 `json:"d"`
}

func stochValues(s *indicator.Stochastic) StochValues {
	if !s.Ready() {
		return StochValues{}
	}
	r := s.Result()
	return StochValues{K: numeric.Float(r.K), D: numeric.Float(r.D)}
}

// ADXValues is the guarded ADX output.
type ADXValues struct {
	ADX     *float64 `json:"adx"`
	PlusDI  *float64 `json:"plus_di"`
	MinusDI *float64 `json:"minus_di"`
}

func adxValues(a *indicator.ADX) ADXValues {
	if !a.Ready() {
		return ADXValues{}
	}
	r := a.Result()
	return ADXValues{
		ADX:     numeric.Float(r.ADX),
		PlusDI:  numeric.Float(r.PlusDI),
		MinusDI: numeric.Float(r.MinusDI),
	}
}

// ready reads a single-value accumulator through the guard.
func ready(ind indicator.Indicator) *float64 {
	return numeric.Ready(indicator.Result(ind))
}

// FibLevel is one retracement or extension level.
type FibLevel struct {
	Ratio float64 `json:"ratio"`
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

// FibonacciLevels is derived from the extrema of a lookback window.
type FibonacciLevels struct {
	High    float64    `json:"high"`
	Low     float64    `json:"low"`
	Levels  []FibLevel `json:"levels"`
	Nearest *FibLevel  `json:"nearest_level"`
	Trend   string     `json:"trend"` // "up" when the high came after the low
}

// Level returns the price for label (e.g. "61.8%").
func (f *FibonacciLevels) Level(label string) (float64, bool) {
	if f == nil {
		return 0, false
	}
	for _, l := range f.Levels {
		if l.Label == label {
			return l.Price, true
		}
	}
	return 0, false
}

// SupportResistance is a pair of levels and how they were found.
type SupportResistance struct {
	Support    *float64 `json:"support"`
	Resistance *float64 `json:"resistance"`
	Method     string   `json:"method"`
}

// VolumeTrend classifies recent volume against the window before it.
type VolumeTrend struct {
	Trend string   `json:"trend"` // increasing | decreasing | stable
	Ratio *float64 `json:"ratio"`
}

// PivotLevel is the classic floor pivot computed from the previous candle,
// stamped with the open time of the candle it applies to.
type PivotLevel struct {
	Time  time.Time `json:"time"`
	Pivot float64   `json:"pivot"`
	R1    float64   `json:"r1"`
	R2    float64   `json:"r2"`
	R3    float64   `json:"r3"`
	S1    float64   `json:"s1"`
	S2    float64   `json:"s2"`
	S3    float64   `json:"s3"`
}

// VolumeSpike is a candle whose volume beat its trailing average.
type VolumeSpike struct {
	Time    time.Time `json:"time"`
	Close   float64   `json:"close"`
	Volume  float64   `json:"volume"`
	Average float64   `json:"average"`
	Ratio   float64   `json:"ratio"`
}

// BookEntry is one book level annotated with its share of its side.
type BookEntry struct {
	Price    float64  `json:"price"`
	Quantity float64  `json:"quantity"`
	Percent  *float64 `json:"percent"`
}

// BookDepth is the derived view of one order book snapshot.
type BookDepth struct {
	Bids          []BookEntry `json:"bids"`
	Asks          []BookEntry `json:"asks"`
	BestBid       *float64    `json:"best_bid"`
	BestAsk       *float64    `json:"best_ask"`
	MidPrice      *float64    `json:"mid_price"`
	Spread        *float64    `json:"spread"`
	SpreadPercent *float64    `json:"spread_percent"`
	BidTotal      *float64    `json:"bid_total"`
	AskTotal      *float64    `json:"ask_total"`
	Imbalance     *float64    `json:"imbalance"`
	LargestBid    *BookEntry  `json:"largest_bid_wall"`
	LargestAsk    *BookEntry  `json:"largest_ask_wall"`
}
