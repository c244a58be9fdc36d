package views

import (
	"context"

	"trading-analyticsv1/internal/indicator"
	"trading-analyticsv1/internal/model"
	"trading-analyticsv1/internal/numeric"
)

const (
	longFibLookback = 48
	longPivotK      = 24
	longVolWindow   = 6
	longVolUp       = 1.2
	longVolDown     = 0.8
)

// LongTermAnalysis is the 1h x 48 view.
type LongTermAnalysis struct {
	Base
	PriceChangePct    *float64          `json:"price_change_pct"`
	RSI               *float64          `json:"rsi"`
	MACD              MACDValues        `json:"macd"`
	Bollinger         BandValues        `json:"bollinger"`
	Stochastic        StochValues       `json:"stochastic"`
	ADX               ADXValues         `json:"adx"`
	ATR               *float64          `json:"atr"`
	CCI               *float64          `json:"cci"`
	SMA20             *float64          `json:"sma20"`
	EMA12             *float64          `json:"ema12"`
	EMA26             *float64          `json:"ema26"`
	Volatility        *float64          `json:"volatility"` // ATR as % of price
	Trend             string            `json:"trend"`
	Fibonacci         *FibonacciLevels  `json:"fibonacci"`
	SupportResistance SupportResistance `json:"support_resistance"`
	VolumeTrend       VolumeTrend       `json:"volume_trend"`
}

func (s *Service) analyzeLong(ctx context.Context, symbol string) (*LongTermAnalysis, error) {
	cfg := longCfg
	candles, err := s.fetch(ctx, cfg, symbol, cfg.Candles)
	if err != nil {
		return nil, err
	}

	rsi := indicator.NewRSI(14)
	macd := indicator.NewMACD(12, 26, 9)
	bb := indicator.NewBollinger(20, 2)
	stoch := indicator.NewStochastic(14, 3, 3)
	adx := indicator.NewADX(14)
	atr := indicator.NewATR(14)
	cci := indicator.NewCCI(20)
	sma20 := indicator.NewSMA(20)
	ema12 := indicator.NewEMA(12)
	ema26 := indicator.NewEMA(26)
	indicator.Feed(candles, rsi, macd, bb, stoch, adx, atr, cci, sma20, ema12, ema26)

	a := &LongTermAnalysis{
		Base:       newBase(cfg, symbol, s.now(), candles),
		RSI:        ready(rsi),
		MACD:       macdValues(macd),
		Bollinger:  bandValues(bb),
		Stochastic: stochValues(stoch),
		ADX:        adxValues(adx),
		ATR:        ready(atr),
		CCI:        ready(cci),
		SMA20:      ready(sma20),
		EMA12:      ready(ema12),
		EMA26:      ready(ema26),
	}
	if len(candles) > 1 {
		a.PriceChangePct = PercentChange(candles[0].Close, candles[len(candles)-1].Close)
	}
	a.Volatility = volatility(a.ATR, a.CurrentPrice)
	a.Trend = trendSignal(a.EMA12, a.EMA26, a.CurrentPrice, a.SMA20)
	a.Fibonacci = Fibonacci(candles, longFibLookback, fibExtensionsLong)
	a.SupportResistance = PivotSR(candles, longPivotK, a.CurrentPrice)
	a.VolumeTrend = ClassifyVolumeTrend(model.Volumes(candles), longVolWindow, longVolUp, longVolDown)
	return a, nil
}

func renderLong(r *renderer, a *LongTermAnalysis) {
	r.row("Current Price", r.price(a.CurrentPrice))
	r.row("Price Change", r.pct(a.PriceChangePct))
	r.row("Trend", text(a.Trend))
	r.oscillators(a.RSI, a.MACD, a.Bollinger, a.Stochastic)
	r.adx(a.ADX)
	r.row("ATR", r.price(a.ATR))
	r.row("Volatility", r.pct(a.Volatility))
	r.row("CCI", r.num(a.CCI, 2))
	r.row("SMA 20", r.price(a.SMA20))
	r.row("EMA 12", r.price(a.EMA12))
	r.row("EMA 26", r.price(a.EMA26))
	r.supportResistance(a.SupportResistance)
	r.volumeTrend(a.VolumeTrend)
	r.dataQuality(a.DataQuality)
	r.fibonacci(a.Fibonacci)
}

// volatility is ATR as a percentage of price.
func volatility(atr, price *float64) *float64 {
	if atr == nil || price == nil {
		return nil
	}
	v, ok := numeric.Div(*atr, *price)
	if !ok {
		return nil
	}
	return numeric.Float(v * 100)
}

// trendSignal agrees a fast/slow average cross with price against a longer
// average: both bullish → "bullish", both bearish → "bearish".
func trendSignal(fast, slow, price, ma *float64) string {
	if fast == nil || slow == nil || price == nil || ma == nil {
		return ""
	}
	switch {
	case *fast > *slow && *price > *ma:
		return "bullish"
	case *fast < *slow && *price < *ma:
		return "bearish"
	default:
		return "neutral"
	}
}

// crossState reports whether fast sits above or below slow.
func crossState(fast, slow *float64) string {
	if fast == nil || slow == nil {
		return ""
	}
	switch {
	case *fast > *slow:
		return "bullish"
	case *fast < *slow:
		return "bearish"
	default:
		return "neutral"
	}
}
