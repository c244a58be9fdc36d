package indicator

import (
	"math"

	"trading-analyticsv1/internal/model"
)

// ROC is the rate of change in percent over period candles. It also exposes
// the raw momentum (close - close[period]).
type ROC struct {
	period int
	buf    []float64 // period+1 most recent closes, oldest first
}

// NewROC creates a ROC(period) indicator.
func NewROC(period int) *ROC {
	if period < 1 {
		period = 1
	}
	return &ROC{period: period, buf: make([]float64, 0, period+1)}
}

func (r *ROC) Name() string { return "ROC_" + itoaInd(r.period) }

func (r *ROC) Update(candle model.Candle) {
	r.buf = append(r.buf, candle.Close)
	if len(r.buf) > r.period+1 {
		r.buf = r.buf[1:]
	}
}

func (r *ROC) Ready() bool { return len(r.buf) == r.period+1 }

// Value returns ROC in percent. It is NaN when the reference close is zero.
func (r *ROC) Value() float64 {
	if !r.Ready() {
		return 0
	}
	base := r.buf[0]
	if base == 0 {
		return math.NaN()
	}
	return (r.buf[len(r.buf)-1] - base) / base * 100
}

// Momentum returns close - close[period].
func (r *ROC) Momentum() float64 {
	if !r.Ready() {
		return 0
	}
	return r.buf[len(r.buf)-1] - r.buf[0]
}
