// Package gateway defines the venue-agnostic contract the trading engine
// consumes. A venue adapter implements these interfaces; the engine never
// sees venue message shapes.
package gateway

import (
	"context"

	"github.com/souravmenon1999/hitbtc-gateway/internal/types"
)

// MarketDataFeed publishes normalized book and trade events for one symbol.
type MarketDataFeed interface {
	// Snapshots publishes the top-of-book view after every accepted update.
	Snapshots() <-chan types.MarketSnapshot

	// Trades publishes live and backfilled trade prints.
	Trades() <-chan types.TradePrint

	// Connectivity publishes the derived session status on every underlying
	// transport state event.
	Connectivity() <-chan types.ConnectivityStatus
}

// OrderEntry sends commands to the venue and publishes lifecycle events.
// Commands are only defined once the session has authenticated; the engine
// is expected to queue until Connectivity reports Connected.
type OrderEntry interface {
	SendOrder(order *types.Order) error
	CancelOrder(order *types.Order) error

	// ReplaceOrder is cancel-then-send-new; the venue has no atomic replace.
	ReplaceOrder(order *types.Order) error

	// CancelAllOpenOrders is a no-op success when SupportsCancelAll is false.
	CancelAllOpenOrders() error
	SupportsCancelAll() bool

	OrderEvents() <-chan types.OrderStatusEvent
	Connectivity() <-chan types.ConnectivityStatus
}

// PositionFeed publishes per-currency balance updates.
type PositionFeed interface {
	Positions() <-chan types.CurrencyPosition
}

// Session is one supervised unit of connectivity. Run blocks until the
// context is cancelled or the session hits a fatal fault; the caller owns
// restart policy.
type Session interface {
	Run(ctx context.Context) error
}

// ExchangeInfo is static metadata resolved once at startup.
type ExchangeInfo struct {
	Symbol       string
	TickSize     float64
	MakerFeeRate float64
	TakerFeeRate float64
}

// Gateway bundles the per-venue surfaces behind one contract.
type Gateway interface {
	MarketData() MarketDataFeed
	OrderEntry() OrderEntry
	Positions() PositionFeed
	Info() ExchangeInfo
}
