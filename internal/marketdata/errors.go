// Package marketdata holds the provider-side plumbing shared by every
// market data adapter: the sentinel errors, exchange-filter rounding, and
// Guard, the decorator that bounds and meters calls into a provider.
package marketdata

import (
	"context"
	"errors"
)

var (
	// ErrUnsupported is returned by providers that cannot serve an operation
	// (for example an order book from a candle archive).
	ErrUnsupported = errors.New("marketdata: operation not supported by provider")

	// ErrCircuitOpen is returned when the provider breaker is open.
	ErrCircuitOpen = errors.New("marketdata: circuit breaker is open")

	// ErrNoData is returned when a provider has nothing stored for a symbol.
	ErrNoData = errors.New("marketdata: no data")
)

// isCallerError reports errors that say nothing about provider health.
func isCallerError(err error) bool {
	return errors.Is(err, ErrUnsupported) ||
		errors.Is(err, ErrNoData) ||
		errors.Is(err, context.Canceled)
}
