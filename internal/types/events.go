package types

import "time"

// PriceLevel is one aggregated price bucket of a book side.
type PriceLevel struct {
	Price float64
	Size  float64
}

// MarketSnapshot is the published top-of-book view, at most the best five
// levels per side.
type MarketSnapshot struct {
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// TradePrint is a normalized trade. Side is inferred from the book, not
// given by the venue; historical backfill prints are never reclassified.
type TradePrint struct {
	Price        float64
	Size         float64
	Timestamp    time.Time
	IsHistorical bool
	Side         Side
}

// OrderStatusEvent is a normalized order lifecycle update. Events published
// on command transmission carry only the order id and timestamp for latency
// bookkeeping; venue truth arrives later via execution reports.
type OrderStatusEvent struct {
	OrderID         string
	ExchangeOrderID string
	Status          OrderStatus
	RejectMessage   string
	LastFillQty     float64
	LastFillPrice   float64
	LeavesQty       float64
	CumQty          float64
	AvgPrice        float64
	IsCancelReject  bool
	Timestamp       time.Time
}

// CurrencyPosition is one balance record mapped to the internal currency set.
type CurrencyPosition struct {
	Currency Currency
	Cash     float64
	Reserved float64
}
