package marketdata

import (
	"context"
	"fmt"
	"math"

	"trading-analyticsv1/internal/model"

	"github.com/shopspring/decimal"
)

// FilterSource is the part of a provider that knows exchange filters.
type FilterSource interface {
	GetExchangeFilter(ctx context.Context, symbol, filterType string) (model.ExchangeFilter, error)
}

// RoundPrice rounds price to the nearest multiple of tick and renders it
// with exactly as many decimals as tick carries. tick <= 0 leaves the value
// unrounded.
func RoundPrice(price, tick float64) (string, error) {
	return roundStep(price, tick, func(d decimal.Decimal) decimal.Decimal { return d.Round(0) })
}

// RoundQuantity truncates qty down to a multiple of step, the way exchanges
// accept lot sizes.
func RoundQuantity(qty, step float64) (string, error) {
	return roundStep(qty, step, func(d decimal.Decimal) decimal.Decimal { return d.Floor() })
}

func roundStep(v, step float64, round func(decimal.Decimal) decimal.Decimal) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("format: non-finite value %v", v)
	}
	d := decimal.NewFromFloat(v)
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return d.String(), nil
	}
	s := decimal.NewFromFloat(step)
	places := int32(0)
	if e := s.Exponent(); e < 0 {
		places = -e
	}
	return round(d.Div(s)).Mul(s).StringFixed(places), nil
}

// FormatPrice resolves the symbol's PRICE_FILTER through src and rounds.
func FormatPrice(ctx context.Context, src FilterSource, symbol string, price float64) (string, error) {
	f, err := src.GetExchangeFilter(ctx, symbol, model.FilterPrice)
	if err != nil {
		return "", fmt.Errorf("format price %s: %w", symbol, err)
	}
	return RoundPrice(price, f.TickSize)
}

// FormatQuantity resolves the symbol's LOT_SIZE through src and rounds.
func FormatQuantity(ctx context.Context, src FilterSource, symbol string, qty float64) (string, error) {
	f, err := src.GetExchangeFilter(ctx, symbol, model.FilterLotSize)
	if err != nil {
		return "", fmt.Errorf("format quantity %s: %w", symbol, err)
	}
	return RoundQuantity(qty, f.StepSize)
}
