package types

import (
	"errors"
	"fmt"
)

// --- Enums ---

type Side uint8

const (
	SideUnknown Side = iota
	Bid
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "Bid"
	case Ask:
		return "Ask"
	default:
		return "Unknown"
	}
}

type OrderType uint8

const (
	OrderTypeLimit OrderType = iota
	OrderTypeMarket
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "Limit"
	case OrderTypeMarket:
		return "Market"
	default:
		return fmt.Sprintf("UnknownOrderType(%d)", t)
	}
}

type TimeInForce uint8

const (
	TimeInForceGTC TimeInForce = iota
	TimeInForceIOC
	TimeInForceFOK
)

func (t TimeInForce) String() string {
	switch t {
	case TimeInForceGTC:
		return "GTC"
	case TimeInForceIOC:
		return "IOC"
	case TimeInForceFOK:
		return "FOK"
	default:
		return fmt.Sprintf("UnknownTimeInForce(%d)", t)
	}
}

// OrderStatus is the normalized order lifecycle state. The zero value is
// StatusOther so an event carrying only bookkeeping fields maps to no
// particular lifecycle transition.
type OrderStatus uint8

const (
	StatusOther OrderStatus = iota
	StatusWorking
	StatusCancelled
	StatusRejected
	StatusComplete
)

func (s OrderStatus) String() string {
	switch s {
	case StatusWorking:
		return "Working"
	case StatusCancelled:
		return "Cancelled"
	case StatusRejected:
		return "Rejected"
	case StatusComplete:
		return "Complete"
	default:
		return "Other"
	}
}

// ConnectivityStatus is derived from the state of one or more transports,
// never read off a single connection directly.
type ConnectivityStatus uint8

const (
	Disconnected ConnectivityStatus = iota
	Connected
)

func (c ConnectivityStatus) String() string {
	if c == Connected {
		return "Connected"
	}
	return "Disconnected"
}

type Currency string

const (
	CurrencyUSD  Currency = "USD"
	CurrencyEUR  Currency = "EUR"
	CurrencyBTC  Currency = "BTC"
	CurrencyETH  Currency = "ETH"
	CurrencyLTC  Currency = "LTC"
	CurrencyDOGE Currency = "DOGE"
	CurrencyXMR  Currency = "XMR"
	CurrencyUSDT Currency = "USDT"
)

// --- Standardized errors ---

// ErrorCode defines standard error reasons.
type ErrorCode int

const (
	ErrUnknown ErrorCode = iota
	ErrConfigLoading
	ErrConnectionFailed
	ErrParseFailed
	ErrOrderRejected
	ErrUnsupportedValue
	ErrSymbolResolution
)

// ErrSessionClosed is returned by a session Run loop when its transport goes
// away; the supervisor owns the restart decision.
var ErrSessionClosed = errors.New("session transport closed")

// TradingError standardizes application errors.
type TradingError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

func (e TradingError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap provides compatibility with errors.Unwrap.
func (e TradingError) Unwrap() error {
	return e.Wrapped
}
