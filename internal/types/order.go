package types

import (
	"fmt"
	"time"
)

// Order is the engine-owned order referenced by the gateway. Quantity and
// price are in engine units; scaling to venue units happens at the wire.
type Order struct {
	OrderID     string
	Side        Side
	Quantity    float64
	Type        OrderType
	Price       float64
	TimeInForce TimeInForce
	SubmitTime  time.Time
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s %g@%g %s [%s]",
		o.OrderID, o.Side, o.Quantity, o.Price, o.Type, o.TimeInForce)
}
