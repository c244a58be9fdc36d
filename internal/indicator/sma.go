package indicator

import "trading-analyticsv1/internal/model"

// SMA calculates Simple Moving Average over a rolling window.
// Uses a preallocated circular buffer for zero-allocation hot path.
type SMA struct {
	period  int
	src     Source
	buf     []float64 // preallocated circular buffer
	idx     int       // current write position
	count   int       // total values received
	sum     float64
	current float64
}

// NewSMA creates a new SMA of close prices with the given period.
func NewSMA(period int) *SMA {
	return NewSMAOf(period, Close)
}

// NewSMAOf creates an SMA over an arbitrary candle source (e.g. Volume).
func NewSMAOf(period int, src Source) *SMA {
	if period < 1 {
		period = 1
	}
	return &SMA{
		period: period,
		src:    src,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Name() string { return "SMA_" + itoaInd(s.period) }

func (s *SMA) Update(candle model.Candle) {
	s.add(s.src(candle))
}

func (s *SMA) add(v float64) {
	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = v
	s.sum += v
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.count >= s.period }

// window returns the buffered values oldest first. Only valid when Ready.
func (s *SMA) window() []float64 {
	out := make([]float64, 0, s.period)
	for i := 0; i < s.period; i++ {
		out = append(out, s.buf[(s.idx+i)%s.period])
	}
	return out
}
