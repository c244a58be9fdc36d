package indicator

import "trading-analyticsv1/internal/model"

// MACDResult is the composite MACD output.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD is the moving average convergence/divergence oscillator.
// The signal EMA is fed only once the slow EMA is ready.
type MACD struct {
	fast, slow, signal int
	fastEMA, slowEMA   *EMA
	signalEMA          *EMA
	line               float64
}

// NewMACD creates a MACD(fast, slow, signal), typically (12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:      fast,
		slow:      slow,
		signal:    signal,
		fastEMA:   NewEMA(fast),
		slowEMA:   NewEMA(slow),
		signalEMA: NewEMA(signal),
	}
}

func (m *MACD) Name() string {
	return "MACD_" + itoaInd(m.fast) + "_" + itoaInd(m.slow) + "_" + itoaInd(m.signal)
}

func (m *MACD) Update(candle model.Candle) {
	m.fastEMA.add(candle.Close)
	m.slowEMA.add(candle.Close)
	if !m.slowEMA.Ready() || !m.fastEMA.Ready() {
		return
	}
	m.line = m.fastEMA.Value() - m.slowEMA.Value()
	m.signalEMA.add(m.line)
}

// Value returns the MACD line.
func (m *MACD) Value() float64 { return m.line }

// Ready is true once the signal line has been seeded.
func (m *MACD) Ready() bool { return m.signalEMA.Ready() }

// Result returns all three MACD components.
func (m *MACD) Result() MACDResult {
	sig := m.signalEMA.Value()
	return MACDResult{MACD: m.line, Signal: sig, Histogram: m.line - sig}
}
