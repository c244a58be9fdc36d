package views

import (
	"context"

	"trading-analyticsv1/internal/indicator"
	"trading-analyticsv1/internal/model"
)

const (
	shortFibLookback = 144
	shortSRWindow    = 48
	shortSRMinDist   = 0.003
	shortVolWindow   = 10
	shortVolUp       = 1.1
	shortVolDown     = 0.9
)

// ShortTermAnalysis is the 15m x 144 view.
type ShortTermAnalysis struct {
	Base
	RSI               *float64          `json:"rsi"`
	MACD              MACDValues        `json:"macd"`
	Bollinger         BandValues        `json:"bollinger"`
	Stochastic        StochValues       `json:"stochastic"`
	ADX               ADXValues         `json:"adx"`
	ATR               *float64          `json:"atr"`
	CCI               *float64          `json:"cci"`
	EMA8              *float64          `json:"ema8"`
	EMA21             *float64          `json:"ema21"`
	SMA50             *float64          `json:"sma50"`
	Volatility        *float64          `json:"volatility"`
	Crossover         string            `json:"crossover"` // EMA8 vs EMA21
	Fibonacci         *FibonacciLevels  `json:"fibonacci"`
	SupportResistance SupportResistance `json:"support_resistance"`
	VolumeTrend       VolumeTrend       `json:"volume_trend"`
}

func (s *Service) analyzeShort(ctx context.Context, symbol string) (*ShortTermAnalysis, error) {
	cfg := shortCfg
	candles, err := s.fetch(ctx, cfg, symbol, cfg.Candles)
	if err != nil {
		return nil, err
	}

	rsi := indicator.NewRSI(9)
	macd := indicator.NewMACD(8, 21, 5)
	bb := indicator.NewBollinger(10, 2)
	stoch := indicator.NewStochastic(5, 3, 3)
	adx := indicator.NewADX(14)
	atr := indicator.NewATR(9)
	cci := indicator.NewCCI(14)
	ema8 := indicator.NewEMA(8)
	ema21 := indicator.NewEMA(21)
	sma50 := indicator.NewSMA(50)
	indicator.Feed(candles, rsi, macd, bb, stoch, adx, atr, cci, ema8, ema21, sma50)

	a := &ShortTermAnalysis{
		Base:       newBase(cfg, symbol, s.now(), candles),
		RSI:        ready(rsi),
		MACD:       macdValues(macd),
		Bollinger:  bandValues(bb),
		Stochastic: stochValues(stoch),
		ADX:        adxValues(adx),
		ATR:        ready(atr),
		CCI:        ready(cci),
		EMA8:       ready(ema8),
		EMA21:      ready(ema21),
		SMA50:      ready(sma50),
	}
	a.Volatility = volatility(a.ATR, a.CurrentPrice)
	a.Crossover = crossState(a.EMA8, a.EMA21)
	a.Fibonacci = Fibonacci(candles, shortFibLookback, fibExtensions)
	a.SupportResistance = SignificantSR(candles, shortSRWindow, a.CurrentPrice, shortSRMinDist)
	a.VolumeTrend = ClassifyVolumeTrend(model.Volumes(candles), shortVolWindow, shortVolUp, shortVolDown)
	return a, nil
}

func renderShort(r *renderer, a *ShortTermAnalysis) {
	r.row("Current Price", r.price(a.CurrentPrice))
	r.row("EMA 8/21 Crossover", text(a.Crossover))
	r.oscillators(a.RSI, a.MACD, a.Bollinger, a.Stochastic)
	r.adx(a.ADX)
	r.row("ATR", r.price(a.ATR))
	r.row("Volatility", r.pct(a.Volatility))
	r.row("CCI", r.num(a.CCI, 2))
	r.row("EMA 8", r.price(a.EMA8))
	r.row("EMA 21", r.price(a.EMA21))
	r.row("SMA 50", r.price(a.SMA50))
	r.supportResistance(a.SupportResistance)
	r.volumeTrend(a.VolumeTrend)
	r.dataQuality(a.DataQuality)
	if !a.DataQuality.SufficientData && a.DataQuality.RequiredCandles > 0 {
		r.notef("Only %d of %d candles available; longer-window fields may be N/A.",
			a.DataQuality.CandleCount, a.DataQuality.RequiredCandles)
	}
	r.fibonacci(a.Fibonacci)
}
