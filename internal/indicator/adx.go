package indicator

import (
	"math"

	"trading-analyticsv1/internal/model"
)

// ADXResult carries the trend strength and the directional indicators.
type ADXResult struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// ADX is Wilder's Average Directional Index.
//
// TR, +DM and -DM are Wilder-summed over period; DX values are then
// averaged (SMA seed, Wilder smoothing) into ADX. Ready after 2*period candles.
type ADX struct {
	period int
	prev   model.Candle
	seen   bool

	count              int
	trSum, pdmSum, mdm float64

	plusDI, minusDI float64
	adx             *smma
}

// NewADX creates a new ADX indicator, typically period 14.
func NewADX(period int) *ADX {
	if period < 1 {
		period = 1
	}
	return &ADX{period: period, adx: newSMMA(period)}
}

func (a *ADX) Name() string { return "ADX_" + itoaInd(a.period) }

func (a *ADX) Update(candle model.Candle) {
	if !a.seen {
		a.prev = candle
		a.seen = true
		return
	}

	up := candle.High - a.prev.High
	down := a.prev.Low - candle.Low
	pdm, mdm := 0.0, 0.0
	if up > down && up > 0 {
		pdm = up
	}
	if down > up && down > 0 {
		mdm = down
	}
	tr := trueRange(candle, a.prev.Close)
	a.prev = candle
	a.count++

	p := float64(a.period)
	if a.count <= a.period {
		a.trSum += tr
		a.pdmSum += pdm
		a.mdm += mdm
		if a.count < a.period {
			return
		}
	} else {
		a.trSum = a.trSum - a.trSum/p + tr
		a.pdmSum = a.pdmSum - a.pdmSum/p + pdm
		a.mdm = a.mdm - a.mdm/p + mdm
	}

	if a.trSum == 0 {
		a.plusDI, a.minusDI = 0, 0
	} else {
		a.plusDI = 100 * a.pdmSum / a.trSum
		a.minusDI = 100 * a.mdm / a.trSum
	}
	dx := 0.0
	if sum := a.plusDI + a.minusDI; sum != 0 {
		dx = 100 * math.Abs(a.plusDI-a.minusDI) / sum
	}
	a.adx.add(dx)
}

// Value returns ADX.
func (a *ADX) Value() float64 { return a.adx.current }
func (a *ADX) Ready() bool    { return a.adx.ready() }

// Result returns ADX with +DI and -DI.
func (a *ADX) Result() ADXResult {
	return ADXResult{ADX: a.adx.current, PlusDI: a.plusDI, MinusDI: a.minusDI}
}
