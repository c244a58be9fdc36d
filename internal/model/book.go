package model

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// OrderBook is a raw depth snapshot as returned by a provider.
// Bids are sorted best (highest) first, asks best (lowest) first.
type OrderBook struct {
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
}

// ExchangeFilter carries the exchange's legal increments for a symbol.
type ExchangeFilter struct {
	TickSize float64 `json:"tick_size"`
	StepSize float64 `json:"step_size"`
	MinQty   float64 `json:"min_qty"`
}

// Filter types understood by GetExchangeFilter.
const (
	FilterPrice   = "PRICE_FILTER"
	FilterLotSize = "LOT_SIZE"
)
