package indicator

import "trading-analyticsv1/internal/model"

// StochResult is the slow stochastic output.
type StochResult struct {
	K float64
	D float64
}

// Stochastic is the slow stochastic oscillator: raw %K over kPeriod
// highs/lows, smoothed by an SMA(kSmooth), with %D = SMA(dPeriod) of %K.
type Stochastic struct {
	kPeriod int
	highs   []float64
	lows    []float64
	smoothK *SMA
	d       *SMA
}

// NewStochastic creates a Stochastic(kPeriod, kSmooth, dPeriod), typically (14, 3, 3).
func NewStochastic(kPeriod, kSmooth, dPeriod int) *Stochastic {
	return &Stochastic{
		kPeriod: kPeriod,
		highs:   make([]float64, 0, kPeriod),
		lows:    make([]float64, 0, kPeriod),
		smoothK: NewSMAOf(kSmooth, Close),
		d:       NewSMAOf(dPeriod, Close),
	}
}

func (s *Stochastic) Name() string { return "STOCH_" + itoaInd(s.kPeriod) }

func (s *Stochastic) Update(candle model.Candle) {
	s.highs = append(s.highs, candle.High)
	s.lows = append(s.lows, candle.Low)
	if len(s.highs) > s.kPeriod {
		s.highs = s.highs[1:]
		s.lows = s.lows[1:]
	}
	if len(s.highs) < s.kPeriod {
		return
	}

	hh, ll := s.highs[0], s.lows[0]
	for i := 1; i < len(s.highs); i++ {
		if s.highs[i] > hh {
			hh = s.highs[i]
		}
		if s.lows[i] < ll {
			ll = s.lows[i]
		}
	}

	// A flat window has no range; treat it as mid-scale.
	raw := 50.0
	if hh != ll {
		raw = (candle.Close - ll) / (hh - ll) * 100
	}
	s.smoothK.add(raw)
	if s.smoothK.Ready() {
		s.d.add(s.smoothK.Value())
	}
}

// Value returns %K.
func (s *Stochastic) Value() float64 { return s.smoothK.Value() }
func (s *Stochastic) Ready() bool    { return s.d.Ready() }

// Result returns %K and %D.
func (s *Stochastic) Result() StochResult {
	return StochResult{K: s.smoothK.Value(), D: s.d.Value()}
}
