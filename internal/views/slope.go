package views

import (
	"context"

	"trading-analyticsv1/internal/indicator"
	"trading-analyticsv1/internal/model"
	"trading-analyticsv1/internal/numeric"
)

const (
	slopeFibLookback = 120
	slopePivotK      = 20
	slopeVolWindow   = 20
	slopeVolUp       = 1.1
	slopeVolDown     = 0.9
	slopePVWindow    = 30
	slopeFlatPct     = 0.01 // |slope %/min| below this is "flat"
)

// SlopeAnalysis is the 1m x 120 slope and momentum view.
type SlopeAnalysis struct {
	Base
	RSI               *float64          `json:"rsi"`
	EMA9              *float64          `json:"ema9"`
	EMA21             *float64          `json:"ema21"`
	Crossover         string            `json:"crossover"` // EMA9 vs EMA21
	ROC               *float64          `json:"roc"`
	Momentum          *float64          `json:"momentum"`
	SlopePerMinute    *float64          `json:"slope_per_minute"`
	SlopePercent      *float64          `json:"slope_percent"` // per minute, relative to price
	Direction         string            `json:"direction"`     // up | down | flat
	VWAP              *float64          `json:"vwap"`
	PVStrength        *float64          `json:"price_volume_strength"`
	Fibonacci         *FibonacciLevels  `json:"fibonacci"`
	SupportResistance SupportResistance `json:"support_resistance"`
	VolumeTrend       VolumeTrend       `json:"volume_trend"`
}

func (s *Service) analyzeSlope(ctx context.Context, symbol string) (*SlopeAnalysis, error) {
	cfg := slopeCfg
	candles, err := s.fetch(ctx, cfg, symbol, cfg.Candles)
	if err != nil {
		return nil, err
	}

	rsi := indicator.NewRSI(14)
	ema9 := indicator.NewEMA(9)
	ema21 := indicator.NewEMA(21)
	roc := indicator.NewROC(10)
	indicator.Feed(candles, rsi, ema9, ema21, roc)

	a := &SlopeAnalysis{
		Base:       newBase(cfg, symbol, s.now(), candles),
		RSI:        ready(rsi),
		EMA9:       ready(ema9),
		EMA21:      ready(ema21),
		ROC:        ready(roc),
		Momentum:   numeric.Ready(roc.Momentum(), roc.Ready()),
		VWAP:       VWAP(candles),
		PVStrength: PriceVolumeStrength(candles, slopePVWindow),
	}
	a.Crossover = crossState(a.EMA9, a.EMA21)

	if perIndex := PriceSlope(model.Closes(candles)); perIndex != nil {
		if v, ok := numeric.Div(*perIndex, cfg.Minutes); ok {
			a.SlopePerMinute = numeric.Float(v)
		}
	}
	if a.SlopePerMinute != nil && a.CurrentPrice != nil {
		if v, ok := numeric.Div(*a.SlopePerMinute, *a.CurrentPrice); ok {
			a.SlopePercent = numeric.Float(v * 100)
		}
	}
	if a.SlopePercent != nil {
		switch {
		case *a.SlopePercent > slopeFlatPct:
			a.Direction = "up"
		case *a.SlopePercent < -slopeFlatPct:
			a.Direction = "down"
		default:
			a.Direction = "flat"
		}
	}

	a.Fibonacci = Fibonacci(candles, slopeFibLookback, fibExtensions)
	a.SupportResistance = PivotSR(candles, slopePivotK, a.CurrentPrice)
	a.VolumeTrend = ClassifyVolumeTrend(model.Volumes(candles), slopeVolWindow, slopeVolUp, slopeVolDown)
	return a, nil
}

func renderSlope(r *renderer, a *SlopeAnalysis) {
	r.row("Current Price", r.price(a.CurrentPrice))
	r.row("Slope / min", r.num(a.SlopePerMinute, 6))
	r.row("Slope % / min", r.num(a.SlopePercent, 4))
	r.row("Direction", text(a.Direction))
	r.row("RSI", r.num(a.RSI, 2))
	r.row("EMA 9", r.price(a.EMA9))
	r.row("EMA 21", r.price(a.EMA21))
	r.row("EMA 9/21 Crossover", text(a.Crossover))
	r.row("ROC 10", r.pct(a.ROC))
	r.row("Momentum 10", r.num(a.Momentum, 4))
	r.row("VWAP", r.price(a.VWAP))
	r.row("Price-Volume Strength", r.num(a.PVStrength, 4))
	r.supportResistance(a.SupportResistance)
	r.volumeTrend(a.VolumeTrend)
	r.dataQuality(a.DataQuality)
	r.fibonacci(a.Fibonacci)
}
