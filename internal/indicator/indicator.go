// Package indicator provides streaming technical indicator accumulators.
//
// Every indicator implements the Indicator interface: candles are fed once,
// oldest first, through Update, and the result is read afterwards. Instances
// are single-use; analyzers construct a fresh set per run and never share
// them across symbols.
package indicator

import "trading-analyticsv1/internal/model"

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_20", "EMA_9").
	Name() string

	// Update feeds the next candle. Candles must arrive in chronological order.
	Update(candle model.Candle)

	// Value returns the primary output. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}

// Source selects the sample an indicator consumes from a candle.
type Source func(c model.Candle) float64

// Close is the default source.
func Close(c model.Candle) float64 { return c.Close }

// Volume selects the traded volume.
func Volume(c model.Candle) float64 { return c.Volume }

// Typical selects (high+low+close)/3.
func Typical(c model.Candle) float64 { return c.Typical() }

// Feed walks candles oldest → newest through every indicator.
func Feed(candles []model.Candle, inds ...Indicator) {
	for _, c := range candles {
		for _, ind := range inds {
			ind.Update(c)
		}
	}
}

// Result returns (Value, Ready) so callers can pass it straight to numeric.Ready.
func Result(ind Indicator) (float64, bool) {
	return ind.Value(), ind.Ready()
}

// itoaInd converts int to string without importing strconv.
func itoaInd(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
