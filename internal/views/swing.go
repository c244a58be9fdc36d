package views

import (
	"context"

	"trading-analyticsv1/internal/indicator"
	"trading-analyticsv1/internal/model"
)

const (
	swingFibLookback = 96
	swingPivotK      = 48
	swingVolWindow   = 12
	swingVolUp       = 1.2
	swingVolDown     = 0.8
)

// SwingTermAnalysis is the 30m x 96 view.
type SwingTermAnalysis struct {
	Base
	RSI               *float64          `json:"rsi"`
	MACD              MACDValues        `json:"macd"`
	Bollinger         BandValues        `json:"bollinger"`
	Stochastic        StochValues       `json:"stochastic"`
	ADX               ADXValues         `json:"adx"`
	ATR               *float64          `json:"atr"`
	CCI               *float64          `json:"cci"`
	EMA21             *float64          `json:"ema21"`
	SMA50             *float64          `json:"sma50"`
	Volatility        *float64          `json:"volatility"`
	Trend             string            `json:"trend"`
	Fibonacci         *FibonacciLevels  `json:"fibonacci"`
	SupportResistance SupportResistance `json:"support_resistance"`
	VolumeTrend       VolumeTrend       `json:"volume_trend"`
}

func (s *Service) analyzeSwing(ctx context.Context, symbol string) (*SwingTermAnalysis, error) {
	cfg := swingCfg
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
	ema21 := indicator.NewEMA(21)
	sma50 := indicator.NewSMA(50)
	indicator.Feed(candles, rsi, macd, bb, stoch, adx, atr, cci, ema21, sma50)

	a := &SwingTermAnalysis{
		Base:       newBase(cfg, symbol, s.now(), candles),
		RSI:        ready(rsi),
		MACD:       macdValues(macd),
		Bollinger:  bandValues(bb),
		Stochastic: stochValues(stoch),
		ADX:        adxValues(adx),
		ATR:        ready(atr),
		CCI:        ready(cci),
		EMA21:      ready(ema21),
		SMA50:      ready(sma50),
	}
	a.Volatility = volatility(a.ATR, a.CurrentPrice)
	a.Trend = trendSignal(a.CurrentPrice, a.EMA21, a.EMA21, a.SMA50)
	a.Fibonacci = Fibonacci(candles, swingFibLookback, fibExtensions)
	a.SupportResistance = PivotSR(candles, swingPivotK, a.CurrentPrice)
	a.VolumeTrend = ClassifyVolumeTrend(model.Volumes(candles), swingVolWindow, swingVolUp, swingVolDown)
	return a, nil
}

func renderSwing(r *renderer, a *SwingTermAnalysis) {
	r.row("Current Price", r.price(a.CurrentPrice))
	r.row("Trend", text(a.Trend))
	r.oscillators(a.RSI, a.MACD, a.Bollinger, a.Stochastic)
	r.adx(a.ADX)
	r.row("ATR", r.price(a.ATR))
	r.row("Volatility", r.pct(a.Volatility))
	r.row("CCI", r.num(a.CCI, 2))
	r.row("EMA 21", r.price(a.EMA21))
	r.row("SMA 50", r.price(a.SMA50))
	r.supportResistance(a.SupportResistance)
	r.volumeTrend(a.VolumeTrend)
	r.dataQuality(a.DataQuality)
	r.fibonacci(a.Fibonacci)
}
