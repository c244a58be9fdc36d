package indicator

import "trading-analyticsv1/internal/model"

// OBV is On-Balance Volume: volume added on up closes, subtracted on down closes.
type OBV struct {
	count     int
	prevClose float64
	current   float64
}

// NewOBV creates an OBV accumulator.
func NewOBV() *OBV { return &OBV{} }

func (o *OBV) Name() string { return "OBV" }

func (o *OBV) Update(candle model.Candle) {
	o.count++
	if o.count > 1 {
		switch {
		case candle.Close > o.prevClose:
			o.current += candle.Volume
		case candle.Close < o.prevClose:
			o.current -= candle.Volume
		}
	}
	o.prevClose = candle.Close
}

func (o *OBV) Value() float64 { return o.current }
func (o *OBV) Ready() bool    { return o.count > 1 }
