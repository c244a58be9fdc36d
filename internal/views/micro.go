package views

import (
	"context"

	"trading-analyticsv1/internal/indicator"
	"trading-analyticsv1/internal/model"
)

const (
	microFibLookback = 30
	microSRWindow    = 30
	microSRMinDist   = 0.003
	microVolWindow   = 5
	microVolUp       = 1.1
	microVolDown     = 0.9
	microSqueezePct  = 1.0 // bandwidth % below which bands count as squeezed
)

// MicroTermAnalysis is the 1m x 60 view.
type MicroTermAnalysis struct {
	Base
	RSI               *float64          `json:"rsi"`
	MACD              MACDValues        `json:"macd"`
	Bollinger         BandValues        `json:"bollinger"`
	Stochastic        StochValues       `json:"stochastic"`
	ATR               *float64          `json:"atr"`
	EMA5              *float64          `json:"ema5"`
	EMA13             *float64          `json:"ema13"`
	SMA10             *float64          `json:"sma10"`
	VWAP              *float64          `json:"vwap"`
	Squeeze           *bool             `json:"squeeze"` // nil when bandwidth is unknown
	Crossover         string            `json:"crossover"` // EMA5 vs EMA13
	Fibonacci         *FibonacciLevels  `json:"fibonacci"`
	SupportResistance SupportResistance `json:"support_resistance"`
	VolumeTrend       VolumeTrend       `json:"volume_trend"`
}

func (s *Service) analyzeMicro(ctx context.Context, symbol string) (*MicroTermAnalysis, error) {
	cfg := microCfg
	candles, err := s.fetch(ctx, cfg, symbol, cfg.Candles)
	if err != nil {
		return nil, err
	}

	rsi := indicator.NewRSI(9)
	macd := indicator.NewMACD(8, 21, 5)
	bb := indicator.NewBollinger(10, 2)
	stoch := indicator.NewStochastic(5, 3, 3)
	atr := indicator.NewATR(9)
	ema5 := indicator.NewEMA(5)
	ema13 := indicator.NewEMA(13)
	sma10 := indicator.NewSMA(10)
	indicator.Feed(candles, rsi, macd, bb, stoch, atr, ema5, ema13, sma10)

	a := &MicroTermAnalysis{
		Base:       newBase(cfg, symbol, s.now(), candles),
		RSI:        ready(rsi),
		MACD:       macdValues(macd),
		Bollinger:  bandValues(bb),
		Stochastic: stochValues(stoch),
		ATR:        ready(atr),
		EMA5:       ready(ema5),
		EMA13:      ready(ema13),
		SMA10:      ready(sma10),
		VWAP:       VWAP(candles),
	}
	if bw := a.Bollinger.Bandwidth; bw != nil {
		squeezed := *bw < microSqueezePct
		a.Squeeze = &squeezed
	}
	a.Crossover = crossState(a.EMA5, a.EMA13)
	a.Fibonacci = Fibonacci(candles, microFibLookback, fibExtensions)
	a.SupportResistance = SignificantSR(candles, microSRWindow, a.CurrentPrice, microSRMinDist)
	a.VolumeTrend = ClassifyVolumeTrend(model.Volumes(candles), microVolWindow, microVolUp, microVolDown)
	return a, nil
}

func renderMicro(r *renderer, a *MicroTermAnalysis) {
	r.row("Current Price", r.price(a.CurrentPrice))
	r.row("VWAP", r.price(a.VWAP))
	r.row("EMA 5/13 Crossover", text(a.Crossover))
	r.oscillators(a.RSI, a.MACD, a.Bollinger, a.Stochastic)
	r.row("Bollinger Squeeze", yesNo(a.Squeeze))
	r.row("ATR", r.price(a.ATR))
	r.row("EMA 5", r.price(a.EMA5))
	r.row("EMA 13", r.price(a.EMA13))
	r.row("SMA 10", r.price(a.SMA10))
	r.supportResistance(a.SupportResistance)
	r.volumeTrend(a.VolumeTrend)
	r.dataQuality(a.DataQuality)
	r.fibonacci(a.Fibonacci)
}
