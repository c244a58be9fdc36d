package indicator

import (
	"math"

	"trading-analyticsv1/internal/model"
)

// BandsResult is the Bollinger Bands output.
type BandsResult struct {
	Upper     float64
	Middle    float64
	Lower     float64
	Bandwidth float64 // (upper-lower)/middle*100; NaN when middle is zero
	PercentB  float64 // (close-lower)/(upper-lower); NaN when the bands collapse
}

// Bollinger computes Bollinger Bands with a population standard deviation.
type Bollinger struct {
	period int
	k      float64
	sma    *SMA
	last   float64
}

// NewBollinger creates Bollinger Bands, typically (20, 2).
func NewBollinger(period int, k float64) *Bollinger {
	return &Bollinger{period: period, k: k, sma: NewSMA(period)}
}

func (b *Bollinger) Name() string { return "BB_" + itoaInd(b.period) }

func (b *Bollinger) Update(candle model.Candle) {
	b.sma.Update(candle)
	b.last = candle.Close
}

// Value returns the middle band.
func (b *Bollinger) Value() float64 { return b.sma.Value() }
func (b *Bollinger) Ready() bool    { return b.sma.Ready() }

// Result returns the bands. Callers must pass each field through the
// numeric guard; degenerate windows produce NaN ratios.
func (b *Bollinger) Result() BandsResult {
	mean := b.sma.Value()
	var ss float64
	for _, v := range b.sma.window() {
		d := v - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(b.period))
	r := BandsResult{
		Upper:  mean + b.k*sd,
		Middle: mean,
		Lower:  mean - b.k*sd,
	}
	r.Bandwidth = math.NaN()
	if mean != 0 {
		r.Bandwidth = (r.Upper - r.Lower) / mean * 100
	}
	r.PercentB = math.NaN()
	if r.Upper != r.Lower {
		r.PercentB = (b.last - r.Lower) / (r.Upper - r.Lower)
	}
	return r
}
