package views

import (
	"fmt"
	"math"
	"sort"

	"trading-analyticsv1/internal/model"
	"trading-analyticsv1/internal/numeric"
)

// Retracement ratios shared by every view; extensions are per view.
var fibRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1}

var (
	fibExtensions     = []float64{1.272, 1.618}
	fibExtensionsLong = []float64{1.272, 1.618, 2.618}
)

// Fibonacci builds levels from the last lookback candles. Level price is
// high - (high-low)*ratio, so 0% is the high, 100% the low and extensions
// fall below the low. Returns nil with fewer than two usable candles.
func Fibonacci(candles []model.Candle, lookback int, extensions []float64) *FibonacciLevels {
	window := model.Tail(candles, lookback)
	if len(window) < 2 {
		return nil
	}

	hi, lo := math.Inf(-1), math.Inf(1)
	hiIdx, loIdx, usable := -1, -1, 0
	for i, c := range window {
		if numeric.IsUnsafe(c.High) || numeric.IsUnsafe(c.Low) {
			continue
		}
		usable++
		if c.High > hi {
			hi, hiIdx = c.High, i
		}
		if c.Low < lo {
			lo, loIdx = c.Low, i
		}
	}
	if usable < 2 {
		return nil
	}

	diff := hi - lo
	ratios := append(append([]float64(nil), fibRatios...), extensions...)
	fib := &FibonacciLevels{High: hi, Low: lo, Levels: make([]FibLevel, 0, len(ratios)), Trend: "down"}
	if hiIdx > loIdx {
		fib.Trend = "up"
	}
	for _, r := range ratios {
		p := hi - diff*r
		switch {
		case r == 0:
			p = hi
		case r == 1:
			p = lo
		case r < 1:
			p = math.Min(math.Max(p, lo), hi)
		}
		fib.Levels = append(fib.Levels, FibLevel{Ratio: r, Label: fmt.Sprintf("%.1f%%", r*100), Price: p})
	}

	last := window[len(window)-1].Close
	if !numeric.IsUnsafe(last) {
		best := math.Inf(1)
		for i := range fib.Levels {
			if d := math.Abs(fib.Levels[i].Price - last); d < best {
				best = d
				lv := fib.Levels[i]
				fib.Nearest = &lv
			}
		}
	}
	return fib
}

// PivotSR takes the last k candles: support is the lowest safe low,
// resistance the highest safe high. Either side falls back to price.
func PivotSR(candles []model.Candle, k int, price *float64) SupportResistance {
	sr := SupportResistance{Method: fmt.Sprintf("pivot-%d", k)}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range model.Tail(candles, k) {
		if !numeric.IsUnsafe(c.Low) && c.Low < lo {
			lo = c.Low
		}
		if !numeric.IsUnsafe(c.High) && c.High > hi {
			hi = c.High
		}
	}
	sr.Support, sr.Resistance = numeric.Float(lo), numeric.Float(hi)
	if sr.Support == nil {
		sr.Support = copyPtr(price)
	}
	if sr.Resistance == nil {
		sr.Resistance = copyPtr(price)
	}
	return sr
}

// SignificantSR looks at the last window candles for levels at least
// minDist (a fraction, e.g. 0.003) away from price: the nearest high above
// is resistance, the nearest low below is support. A side with no
// qualifying level falls back to the window extreme.
func SignificantSR(candles []model.Candle, window int, price *float64, minDist float64) SupportResistance {
	sr := SupportResistance{Method: fmt.Sprintf("significant-%.1f%%", minDist*100)}
	w := model.Tail(candles, window)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range w {
		if !numeric.IsUnsafe(c.Low) && c.Low < lo {
			lo = c.Low
		}
		if !numeric.IsUnsafe(c.High) && c.High > hi {
			hi = c.High
		}
	}

	if price != nil && *price > 0 {
		p := *price
		bestRes, bestSup := math.Inf(1), math.Inf(-1)
		for _, c := range w {
			if !numeric.IsUnsafe(c.High) && c.High > p && (c.High-p)/p >= minDist && c.High < bestRes {
				bestRes = c.High
			}
			if !numeric.IsUnsafe(c.Low) && c.Low < p && (p-c.Low)/p >= minDist && c.Low > bestSup {
				bestSup = c.Low
			}
		}
		sr.Resistance = numeric.Float(bestRes)
		sr.Support = numeric.Float(bestSup)
	}
	if sr.Resistance == nil {
		sr.Resistance = numeric.Float(hi)
	}
	if sr.Support == nil {
		sr.Support = numeric.Float(lo)
	}
	return sr
}

// ClassifyVolumeTrend compares the mean of the last w volumes to the mean of
// the w before them. Both thresholds are strict.
func ClassifyVolumeTrend(volumes []float64, w int, up, down float64) VolumeTrend {
	vt := VolumeTrend{Trend: "stable"}
	if w <= 0 || len(volumes) < 2*w {
		return vt
	}
	recent := mean(volumes[len(volumes)-w:])
	prev := mean(volumes[len(volumes)-2*w : len(volumes)-w])
	ratio, ok := numeric.Div(recent, prev)
	if !ok {
		return vt
	}
	vt.Ratio = numeric.Float(ratio)
	switch {
	case ratio > up:
		vt.Trend = "increasing"
	case ratio < down:
		vt.Trend = "decreasing"
	}
	return vt
}

// VWAP is Σ(typical·volume)/Σvolume over candles. With no volume it is the
// last close. Nil for an empty window.
func VWAP(candles []model.Candle) *float64 {
	if len(candles) == 0 {
		return nil
	}
	var pv, vol float64
	for i := range candles {
		c := &candles[i]
		if numeric.IsUnsafe(c.Volume) || numeric.IsUnsafe(c.Typical()) {
			continue
		}
		pv += c.Typical() * c.Volume
		vol += c.Volume
	}
	if v, ok := numeric.Div(pv, vol); ok {
		return numeric.Float(v)
	}
	return numeric.Float(candles[len(candles)-1].Close)
}

// PriceSlope is the OLS slope of values against their index (units per
// sample). Nil with fewer than two points.
func PriceSlope(values []float64) *float64 {
	n := float64(len(values))
	if len(values) < 2 {
		return nil
	}
	var sx, sy, sxy, sxx float64
	for i, y := range values {
		x := float64(i)
		sx += x
		sy += y
		sxy += x * y
		sxx += x * x
	}
	slope, ok := numeric.Div(n*sxy-sx*sy, n*sxx-sx*sx)
	if !ok {
		return nil
	}
	return numeric.Float(slope)
}

// PriceVolumeStrength sums close deltas weighted by the volume ratio over
// the last n candles, counting only steps where volume rose from a
// positive base. Nil with fewer than two candles.
func PriceVolumeStrength(candles []model.Candle, n int) *float64 {
	w := model.Tail(candles, n)
	if len(w) < 2 {
		return nil
	}
	var s float64
	for i := 0; i+1 < len(w); i++ {
		v0, v1 := w[i].Volume, w[i+1].Volume
		if v0 <= 0 || v1 <= v0 {
			continue
		}
		s += (w[i+1].Close - w[i].Close) * (v1 / v0)
	}
	return numeric.Float(s)
}

// PivotPoints computes one floor pivot per consecutive candle pair from the
// earlier candle and keeps the newest keep entries.
func PivotPoints(candles []model.Candle, keep int) []PivotLevel {
	if len(candles) < 2 || keep <= 0 {
		return nil
	}
	out := make([]PivotLevel, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1]
		h, l := prev.High, prev.Low
		p := prev.Typical()
		lv := PivotLevel{
			Time:  candles[i].OpenTime,
			Pivot: p,
			R1:    2*p - l,
			S1:    2*p - h,
			R2:    p + (h - l),
			S2:    p - (h - l),
			R3:    h + 2*(p-l),
			S3:    l - 2*(h-p),
		}
		if numeric.IsUnsafe(lv.R3) || numeric.IsUnsafe(lv.S3) {
			continue
		}
		out = append(out, lv)
	}
	if len(out) > keep {
		out = out[len(out)-keep:]
	}
	return out
}

// VolumeSpikes flags candles whose volume exceeds mult times the mean of
// the period volumes before it, keeping the newest keep spikes. Unsafe
// volumes are left out of the trailing mean rather than poisoning it.
func VolumeSpikes(candles []model.Candle, period int, mult float64, keep int) []VolumeSpike {
	if period <= 0 || len(candles) <= period {
		return nil
	}
	var (
		sum  float64
		safe int
	)
	add := func(v float64, sign int) {
		if numeric.IsUnsafe(v) {
			return
		}
		sum += float64(sign) * v
		safe += sign
	}
	for i := 0; i < period; i++ {
		add(candles[i].Volume, 1)
	}
	var out []VolumeSpike
	for i := period; i < len(candles); i++ {
		c := candles[i]
		if avg, ok := numeric.Div(sum, float64(safe)); ok && avg > 0 && !numeric.IsUnsafe(c.Volume) && !numeric.IsUnsafe(c.Close) && c.Volume > mult*avg {
			if ratio, ok := numeric.Div(c.Volume, avg); ok {
				out = append(out, VolumeSpike{Time: c.OpenTime, Close: c.Close, Volume: c.Volume, Average: avg, Ratio: ratio})
			}
		}
		add(c.Volume, 1)
		add(candles[i-period].Volume, -1)
	}
	if len(out) > keep {
		out = out[len(out)-keep:]
	}
	return out
}

// DepthOf derives spread, totals, shares and imbalance from a book.
func DepthOf(book model.OrderBook) BookDepth {
	var d BookDepth
	bids, asks := safeLevels(book.Bids), safeLevels(book.Asks)
	// Providers may hand over unsorted levels: best bid first, best ask first.
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.SliceStable(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })
	var bidTotal, askTotal float64
	for _, l := range bids {
		bidTotal += l.Quantity
	}
	for _, l := range asks {
		askTotal += l.Quantity
	}
	d.Bids, d.LargestBid = annotate(bids, bidTotal)
	d.Asks, d.LargestAsk = annotate(asks, askTotal)
	d.BidTotal = numeric.Float(bidTotal)
	d.AskTotal = numeric.Float(askTotal)

	if len(bids) > 0 {
		d.BestBid = numeric.Float(bids[0].Price)
	}
	if len(asks) > 0 {
		d.BestAsk = numeric.Float(asks[0].Price)
	}
	if d.BestBid != nil && d.BestAsk != nil {
		d.MidPrice = numeric.Float((*d.BestBid + *d.BestAsk) / 2)
		d.Spread = numeric.Float(*d.BestAsk - *d.BestBid)
		if d.MidPrice != nil && d.Spread != nil {
			if pct, ok := numeric.Div(*d.Spread, *d.MidPrice); ok {
				d.SpreadPercent = numeric.Float(pct * 100)
			}
		}
	}
	if imb, ok := numeric.Div(bidTotal-askTotal, bidTotal+askTotal); ok {
		d.Imbalance = numeric.Float(imb)
	}
	return d
}

func safeLevels(levels []model.BookLevel) []model.BookLevel {
	out := make([]model.BookLevel, 0, len(levels))
	for _, l := range levels {
		if numeric.IsUnsafe(l.Price) || numeric.IsUnsafe(l.Quantity) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func annotate(levels []model.BookLevel, total float64) ([]BookEntry, *BookEntry) {
	out := make([]BookEntry, len(levels))
	var largest *BookEntry
	for i, l := range levels {
		out[i] = BookEntry{Price: l.Price, Quantity: l.Quantity}
		if pct, ok := numeric.Div(l.Quantity, total); ok {
			out[i].Percent = numeric.Float(pct * 100)
		}
		if largest == nil || l.Quantity > largest.Quantity {
			e := out[i]
			largest = &e
		}
	}
	return out, largest
}

// PercentChange is (to-from)/from*100, nil when from is zero.
func PercentChange(from, to float64) *float64 {
	v, ok := numeric.Div(to-from, from)
	if !ok {
		return nil
	}
	return numeric.Float(v * 100)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func copyPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
