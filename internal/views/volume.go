package views

import (
	"context"
	"log/slog"

	"trading-analyticsv1/internal/indicator"
	"trading-analyticsv1/internal/model"
	"trading-analyticsv1/internal/numeric"
)

const (
	volumeFibLookback = 96
	volumePivotK      = 4
	volumeVolWindow   = 24
	volumeVolUp       = 1.2
	volumeVolDown     = 0.8
	volumeSMAPeriod   = 20
	volumeSpikeMult   = 1.5
	volumeKeep        = 10  // pivot points and spikes reported
	longMAPeriod      = 200 // SMA over the side channel
	longMACandles     = 220
)

// VolumeAnalysis is the 1h x 96 volume and pivot view. SMA200 comes from a
// separate 220-candle fetch.
type VolumeAnalysis struct {
	Base
	CurrentVolume      *float64          `json:"current_volume"`
	VolumeSMA20        *float64          `json:"volume_sma20"`
	VolumeRatio        *float64          `json:"volume_ratio"`
	OBV                *float64          `json:"obv"`
	RSI                *float64          `json:"rsi"`
	VWAP               *float64          `json:"vwap"`
	SMA200             *float64          `json:"sma200"`
	PriceVsSMA200      string            `json:"price_vs_sma200"`
	PivotPoints        []PivotLevel      `json:"pivot_points"`
	SignificantVolumes []VolumeSpike     `json:"significant_volumes"`
	Fibonacci          *FibonacciLevels  `json:"fibonacci"`
	SupportResistance  SupportResistance `json:"support_resistance"`
	VolumeTrend        VolumeTrend       `json:"volume_trend"`
}

func (s *Service) analyzeVolume(ctx context.Context, symbol string) (*VolumeAnalysis, error) {
	cfg := volumeCfg
	candles, err := s.fetch(ctx, cfg, symbol, cfg.Candles)
	if err != nil {
		return nil, err
	}

	volSMA := indicator.NewSMAOf(volumeSMAPeriod, indicator.Volume)
	obv := indicator.NewOBV()
	rsi := indicator.NewRSI(14)
	indicator.Feed(candles, volSMA, obv, rsi)

	a := &VolumeAnalysis{
		Base:        newBase(cfg, symbol, s.now(), candles),
		VolumeSMA20: ready(volSMA),
		OBV:         ready(obv),
		RSI:         ready(rsi),
		VWAP:        VWAP(candles),
	}
	if n := len(candles); n > 0 {
		a.CurrentVolume = numeric.Float(candles[n-1].Volume)
	}
	if a.CurrentVolume != nil && a.VolumeSMA20 != nil {
		if r, ok := numeric.Div(*a.CurrentVolume, *a.VolumeSMA20); ok {
			a.VolumeRatio = numeric.Float(r)
		}
	}

	a.SMA200 = s.sideChannelSMA(ctx, symbol)
	if a.SMA200 != nil && a.CurrentPrice != nil {
		a.PriceVsSMA200 = "below"
		if *a.CurrentPrice >= *a.SMA200 {
			a.PriceVsSMA200 = "above"
		}
	}

	a.PivotPoints = PivotPoints(candles, volumeKeep)
	a.SignificantVolumes = VolumeSpikes(candles, volumeSMAPeriod, volumeSpikeMult, volumeKeep)
	a.Fibonacci = Fibonacci(candles, volumeFibLookback, fibExtensions)
	a.SupportResistance = PivotSR(candles, volumePivotK, a.CurrentPrice)
	a.VolumeTrend = ClassifyVolumeTrend(model.Volumes(candles), volumeVolWindow, volumeVolUp, volumeVolDown)
	return a, nil
}

// sideChannelSMA fetches the long window for SMA200. A failed fetch only
// costs this field.
func (s *Service) sideChannelSMA(ctx context.Context, symbol string) *float64 {
	long, err := s.md.GetCandles(ctx, symbol, volumeCfg.Interval, longMACandles)
	if err != nil {
		slog.Warn("sma200 side channel failed",
			"component", "views",
			"view", volumeCfg.Name,
			"symbol", symbol,
			"error", err,
		)
		return nil
	}
	sma := indicator.NewSMA(longMAPeriod)
	indicator.Feed(long, sma)
	return ready(sma)
}

func renderVolume(r *renderer, a *VolumeAnalysis) {
	r.row("Current Price", r.price(a.CurrentPrice))
	r.row("Current Volume", r.qty(a.CurrentVolume))
	r.row("Volume SMA 20", r.qty(a.VolumeSMA20))
	r.row("Volume Ratio", r.num(a.VolumeRatio, 2))
	r.row("OBV", r.num(a.OBV, 2))
	r.row("RSI", r.num(a.RSI, 2))
	r.row("VWAP", r.price(a.VWAP))
	r.row("SMA 200", r.price(a.SMA200))
	r.row("Price vs SMA 200", text(a.PriceVsSMA200))
	r.supportResistance(a.SupportResistance)
	r.row("Volume Trend", text(a.VolumeTrend.Trend))
	r.row("Volume Trend Ratio", r.num(a.VolumeTrend.Ratio, 2))
	r.dataQuality(a.DataQuality)

	r.fibonacci(a.Fibonacci)

	r.subheading("Pivot Points")
	if len(a.PivotPoints) == 0 {
		r.notef("%s", numeric.NA)
	} else {
		r.table("Time", "Pivot", "S1", "S2", "S3", "R1", "R2", "R3")
		for _, p := range a.PivotPoints {
			r.line(p.Time.UTC().Format("2006-01-02 15:04"),
				r.priceOf(p.Pivot),
				r.priceOf(p.S1), r.priceOf(p.S2), r.priceOf(p.S3),
				r.priceOf(p.R1), r.priceOf(p.R2), r.priceOf(p.R3))
		}
		r.endTable()
	}

	r.subheading("Significant Volumes")
	if len(a.SignificantVolumes) == 0 {
		r.notef("No volume above %.1fx its %d-candle average.", volumeSpikeMult, volumeSMAPeriod)
		return
	}
	r.table("Time", "Close", "Volume", "Average", "Ratio")
	for _, v := range a.SignificantVolumes {
		ratio := v.Ratio
		r.line(v.Time.UTC().Format("2006-01-02 15:04"),
			r.priceOf(v.Close), r.qtyOf(v.Volume), r.qtyOf(v.Average), r.num(&ratio, 2)+"x")
	}
	r.endTable()
}
