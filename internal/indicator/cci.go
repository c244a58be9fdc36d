package indicator

import (
	"math"

	"trading-analyticsv1/internal/model"
)

// CCI is the Commodity Channel Index over the typical price.
type CCI struct {
	period  int
	tp      *SMA
	current float64
}

// NewCCI creates a new CCI indicator, typically period 20.
func NewCCI(period int) *CCI {
	return &CCI{period: period, tp: NewSMAOf(period, Typical)}
}

func (c *CCI) Name() string { return "CCI_" + itoaInd(c.period) }

func (c *CCI) Update(candle model.Candle) {
	c.tp.Update(candle)
	if !c.tp.Ready() {
		return
	}
	mean := c.tp.Value()
	var dev float64
	for _, v := range c.tp.window() {
		dev += math.Abs(v - mean)
	}
	dev /= float64(c.period)
	if dev == 0 {
		c.current = 0
		return
	}
	c.current = (candle.Typical() - mean) / (0.015 * dev)
}

func (c *CCI) Value() float64 { return c.current }
func (c *CCI) Ready() bool    { return c.tp.Ready() }
