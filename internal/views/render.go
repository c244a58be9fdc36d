package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"trading-analyticsv1/internal/model"
	"trading-analyticsv1/internal/numeric"
)

// renderer accumulates one markdown section. Prices and quantities go
// through the provider's exchange rounding; a formatting failure falls back
// to the raw value.
type renderer struct {
	ctx    context.Context
	md     model.MarketData
	symbol string
	p      *message.Printer
	b      strings.Builder
	inTbl  bool
}

func newRenderer(ctx context.Context, md model.MarketData, symbol string) *renderer {
	return &renderer{ctx: ctx, md: md, symbol: symbol, p: message.NewPrinter(language.English)}
}

func (r *renderer) String() string {
	r.endTable()
	return r.b.String()
}

func (r *renderer) heading(cfg viewConfig) {
	if cfg.Interval != "" {
		fmt.Fprintf(&r.b, "## %s (%s × %d)\n\n", cfg.Title, cfg.Interval, cfg.Candles)
		return
	}
	fmt.Fprintf(&r.b, "## %s\n\n", cfg.Title)
}

func (r *renderer) subheading(title string) {
	r.endTable()
	fmt.Fprintf(&r.b, "### %s\n\n", title)
}

func (r *renderer) notef(format string, args ...any) {
	r.endTable()
	r.b.WriteString("_")
	fmt.Fprintf(&r.b, format, args...)
	r.b.WriteString("_\n\n")
}

// row writes a two-column "| Metric | Value |" row, opening the table first.
func (r *renderer) row(label, value string) {
	if !r.inTbl {
		r.b.WriteString("| Metric | Value |\n|---|---|\n")
		r.inTbl = true
	}
	fmt.Fprintf(&r.b, "| %s | %s |\n", label, value)
}

// table writes a header for a multi-column table; rows follow via line.
func (r *renderer) table(cols ...string) {
	r.endTable()
	r.b.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	r.b.WriteString("|" + strings.Repeat("---|", len(cols)) + "\n")
	r.inTbl = true
}

func (r *renderer) line(cells ...string) {
	r.b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
}

func (r *renderer) endTable() {
	if r.inTbl {
		r.b.WriteString("\n")
		r.inTbl = false
	}
}

func (r *renderer) price(v *float64) string {
	if numeric.IsUnsafe(v) {
		return numeric.NA
	}
	s, err := r.md.FormatPrice(r.ctx, r.symbol, *v)
	if err != nil {
		return numeric.Format(v, -1)
	}
	return s
}

func (r *renderer) priceOf(v float64) string { return r.price(&v) }

func (r *renderer) qty(v *float64) string {
	if numeric.IsUnsafe(v) {
		return numeric.NA
	}
	s, err := r.md.FormatQuantity(r.ctx, r.symbol, *v)
	if err != nil {
		return numeric.Format(v, -1)
	}
	return s
}

func (r *renderer) qtyOf(v float64) string { return r.qty(&v) }

// num renders an indicator value with grouping separators.
func (r *renderer) num(v *float64, digits int) string {
	if numeric.IsUnsafe(v) {
		return numeric.NA
	}
	return r.p.Sprintf("%."+strconv.Itoa(digits)+"f", *v)
}

func (r *renderer) pct(v *float64) string {
	s := r.num(v, 2)
	if s == numeric.NA {
		return s
	}
	return s + "%"
}

func text(s string) string {
	if s == "" {
		return numeric.NA
	}
	return s
}

// Shared blocks.

func (r *renderer) oscillators(rsi *float64, macd MACDValues, bb BandValues, st StochValues) {
	r.row("RSI", r.num(rsi, 2))
	r.row("MACD", r.num(macd.MACD, 4))
	r.row("MACD Signal", r.num(macd.Signal, 4))
	r.row("MACD Histogram", r.num(macd.Histogram, 4))
	r.row("Bollinger Upper", r.price(bb.Upper))
	r.row("Bollinger Middle", r.price(bb.Middle))
	r.row("Bollinger Lower", r.price(bb.Lower))
	r.row("Bollinger Bandwidth", r.pct(bb.Bandwidth))
	r.row("Bollinger %B", r.num(bb.PercentB, 3))
	r.row("Stochastic %K", r.num(st.K, 2))
	r.row("Stochastic %D", r.num(st.D, 2))
}

func (r *renderer) adx(a ADXValues) {
	r.row("ADX", r.num(a.ADX, 2))
	r.row("+DI", r.num(a.PlusDI, 2))
	r.row("-DI", r.num(a.MinusDI, 2))
}

func (r *renderer) supportResistance(sr SupportResistance) {
	r.row("Support", r.price(sr.Support))
	r.row("Resistance", r.price(sr.Resistance))
}

func (r *renderer) volumeTrend(vt VolumeTrend) {
	r.row("Volume Trend", text(vt.Trend))
	r.row("Volume Ratio", r.num(vt.Ratio, 2))
}

// yesNo renders a nullable flag.
func yesNo(b *bool) string {
	switch {
	case b == nil:
		return numeric.NA
	case *b:
		return "yes"
	default:
		return "no"
	}
}

// dataQuality renders N/A for a zero DataQuality, which only a degraded
// section carries; every computed analysis has a required count.
func (r *renderer) dataQuality(dq DataQuality) {
	if dq.RequiredCandles == 0 {
		r.row("Candles", numeric.NA)
		r.row("Sufficient Data", numeric.NA)
		return
	}
	r.row("Candles", fmt.Sprintf("%d / %d", dq.CandleCount, dq.RequiredCandles))
	r.row("Sufficient Data", strconv.FormatBool(dq.SufficientData))
}

func (r *renderer) fibonacci(f *FibonacciLevels) {
	r.subheading("Fibonacci Levels")
	if f == nil {
		r.notef("%s", numeric.NA)
		return
	}
	r.table("Level", "Price")
	for _, l := range f.Levels {
		r.line(l.Label, r.priceOf(l.Price))
	}
	r.endTable()
	nearest := numeric.NA
	if f.Nearest != nil {
		nearest = f.Nearest.Label + " @ " + r.priceOf(f.Nearest.Price)
	}
	fmt.Fprintf(&r.b, "Swing high %s, swing low %s, trend %s, nearest level %s.\n\n",
		r.priceOf(f.High), r.priceOf(f.Low), text(f.Trend), nearest)
}
