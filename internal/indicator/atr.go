package indicator

import (
	"math"

	"trading-analyticsv1/internal/model"
)

func trueRange(c model.Candle, prevClose float64) float64 {
	return math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}

// ATR is a streaming Average True Range with Wilder smoothing.
// The first candle only records the close; it needs period+1 candles.
type ATR struct {
	period    int
	prevClose float64
	seen      bool
	tr        *smma
}

// NewATR creates a new Average True Range indicator with the given period.
func NewATR(period int) *ATR {
	return &ATR{period: period, tr: newSMMA(period)}
}

func (a *ATR) Name() string { return "ATR_" + itoaInd(a.period) }

func (a *ATR) Update(candle model.Candle) {
	if !a.seen {
		a.prevClose = candle.Close
		a.seen = true
		return
	}
	a.tr.add(trueRange(candle, a.prevClose))
	a.prevClose = candle.Close
}

func (a *ATR) Value() float64 { return a.tr.current }
func (a *ATR) Ready() bool    { return a.tr.ready() }
