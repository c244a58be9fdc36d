package indicator

// smma is Wilder-style smoothing over an arbitrary sample stream.
// First value is the SMA of period samples, then
// smma = (prev*(period-1) + v) / period.
type smma struct {
	period  int
	count   int
	sum     float64
	current float64
}

func newSMMA(period int) *smma {
	if period < 1 {
		period = 1
	}
	return &smma{period: period}
}

func (s *smma) add(v float64) {
	s.count++

	if s.count <= s.period {
		s.sum += v
		if s.count == s.period {
			s.current = s.sum / float64(s.period)
		}
		return
	}

	s.current = (s.current*float64(s.period-1) + v) / float64(s.period)
}

func (s *smma) ready() bool { return s.count >= s.period }
