package hitbtc

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/souravmenon1999/hitbtc-gateway/internal/logging"
	"github.com/souravmenon1999/hitbtc-gateway/internal/types"
)

type sessionState uint8

const (
	stateDisconnected sessionState = iota
	stateAuthenticating
	stateReady
)

// Fixed enumeration tables onto the venue vocabulary. A side outside the
// table is a programming error, not a venue rejection.
var (
	sideNames = map[types.Side]string{
		types.Bid: "buy",
		types.Ask: "sell",
	}
	orderTypeNames = map[types.OrderType]string{
		types.OrderTypeLimit:  "limit",
		types.OrderTypeMarket: "market",
	}
	timeInForceNames = map[types.TimeInForce]string{
		types.TimeInForceGTC: "GTC",
		types.TimeInForceIOC: "IOC",
		types.TimeInForceFOK: "FOK",
	}
)

// OrderEntrySession owns the private streaming channel: it signs and sends
// login/new-order/cancel commands and maps execution reports back onto
// normalized order status events. Inbound handling runs on the single Run
// loop; command methods are called from the engine's goroutine, so the
// session state is mutex-guarded.
type OrderEntrySession struct {
	symbol   string
	tickSize decimal.Decimal
	dial     DialFunc
	signer   *RequestSigner
	logger   zerolog.Logger

	mu    sync.Mutex
	ws    Transport
	state sessionState

	events       chan types.OrderStatusEvent
	connectivity chan types.ConnectivityStatus

	rng *rand.Rand
	now func() time.Time
}

func NewOrderEntrySession(symbol string, tickSize decimal.Decimal, dial DialFunc, signer *RequestSigner) *OrderEntrySession {
	return &OrderEntrySession{
		symbol:       symbol,
		tickSize:     tickSize,
		dial:         dial,
		signer:       signer,
		logger:       logging.Component("orderentry").With().Str("symbol", symbol).Logger(),
		events:       make(chan types.OrderStatusEvent, 128),
		connectivity: make(chan types.ConnectivityStatus, 16),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
	}
}

func (s *OrderEntrySession) OrderEvents() <-chan types.OrderStatusEvent {
	return s.events
}

func (s *OrderEntrySession) Connectivity() <-chan types.ConnectivityStatus {
	return s.connectivity
}

// NewClientOrderID returns an 8-digit numeric client order id. The venue
// scopes ids per session, so randomness alone carries the uniqueness burden.
func (s *OrderEntrySession) NewClientOrderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%08d", s.rng.Intn(100000000))
}

// SendOrder signs and transmits a venue order built from the internal
// order. On successful transmission it publishes a bookkeeping event with
// only the order id and send time; venue truth arrives later via execution
// reports.
func (s *OrderEntrySession) SendOrder(order *types.Order) error {
	payload, err := s.buildNewOrder(order)
	if err != nil {
		return err
	}
	if err := s.send(newOrderEnvelope{NewOrder: *payload}); err != nil {
		return err
	}
	s.logger.Info().Str("client_order_id", order.OrderID).Stringer("side", order.Side).
		Float64("quantity", order.Quantity).Float64("price", order.Price).Msg("order sent")
	s.publishEvent(types.OrderStatusEvent{OrderID: order.OrderID, Timestamp: s.now()})
	return nil
}

// CancelOrder transmits a cancel referencing the original client order id.
// The cancel request gets its own derived id.
func (s *OrderEntrySession) CancelOrder(order *types.Order) error {
	side, err := venueSide(order.Side)
	if err != nil {
		return err
	}
	payload := orderCancelPayload{
		ClientOrderID:              order.OrderID,
		CancelRequestClientOrderID: order.OrderID + "C",
		Symbol:                     s.symbol,
		Side:                       side,
	}
	if err := s.send(orderCancelEnvelope{OrderCancel: payload}); err != nil {
		return err
	}
	s.logger.Info().Str("client_order_id", order.OrderID).Msg("cancel sent")
	s.publishEvent(types.OrderStatusEvent{OrderID: order.OrderID, Timestamp: s.now()})
	return nil
}

// ReplaceOrder is cancel-then-send-new; the venue has no atomic replace.
func (s *OrderEntrySession) ReplaceOrder(order *types.Order) error {
	if err := s.CancelOrder(order); err != nil {
		return err
	}
	return s.SendOrder(order)
}

// CancelAllOpenOrders is unsupported by the venue: a no-op success.
func (s *OrderEntrySession) CancelAllOpenOrders() error {
	s.logger.Debug().Msg("cancel-all requested but unsupported by venue, ignoring")
	return nil
}

func (s *OrderEntrySession) SupportsCancelAll() bool {
	return false
}

// Run connects the transport and serializes all inbound handling until the
// context is cancelled or the session hits a fatal fault.
func (s *OrderEntrySession) Run(ctx context.Context) error {
	ws := s.dial()
	s.mu.Lock()
	s.ws = ws
	s.state = stateDisconnected
	s.mu.Unlock()

	if err := ws.Connect(ctx); err != nil {
		return err
	}
	defer ws.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-ws.Messages():
			if !ok {
				s.setState(stateDisconnected)
				s.publishConnectivity(types.Disconnected)
				return types.TradingError{
					Code:    types.ErrConnectionFailed,
					Message: "order entry channel closed",
					Wrapped: types.ErrSessionClosed,
				}
			}
			if err := s.handleMessage(raw); err != nil {
				return err
			}

		case st := <-ws.States():
			if err := s.handleTransportState(st); err != nil {
				return err
			}
		}
	}
}

func (s *OrderEntrySession) handleTransportState(st ConnState) error {
	if st != StateConnected {
		s.setState(stateDisconnected)
		s.publishConnectivity(types.Disconnected)
		return nil
	}

	s.setState(stateAuthenticating)
	if err := s.signAndSend(loginEnvelope{}); err != nil {
		return err
	}
	// The venue does not acknowledge logins; an auth failure surfaces as a
	// transport close. Ready once the login frame is on the wire.
	s.setState(stateReady)
	s.publishConnectivity(types.Connected)
	s.logger.Info().Msg("login sent, session ready")
	return nil
}

func (s *OrderEntrySession) handleMessage(raw []byte) error {
	var env tradingEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Error().Err(err).Str("payload", string(raw)).Msg("unparsable order entry message")
		return types.TradingError{
			Code:    types.ErrParseFailed,
			Message: "unparsable order entry message",
			Wrapped: err,
		}
	}

	switch {
	case env.ExecutionReport != nil:
		return s.handleExecutionReport(env.ExecutionReport)
	case env.CancelReject != nil:
		s.handleCancelReject(env.CancelReject)
		return nil
	default:
		s.logger.Warn().Str("payload", string(raw)).Msg("unrecognized order entry message, dropping")
		return nil
	}
}

func (s *OrderEntrySession) handleExecutionReport(r *executionReport) error {
	status := normalizeStatus(r.ExecReportType, r.OrderStatus)

	avgPrice, err := parseOptionalPrice(r.AveragePrice)
	if err != nil {
		return err
	}

	ev := types.OrderStatusEvent{
		OrderID:         r.ClientOrderID,
		ExchangeOrderID: r.OrderID,
		Status:          status,
		RejectMessage:   r.OrderRejectReason,
		CumQty:          r.CumQuantity / lotMultiplier,
		AvgPrice:        avgPrice,
		Timestamp:       time.UnixMilli(r.Timestamp),
	}
	if status == types.StatusWorking {
		ev.LeavesQty = r.LeavesQuantity / lotMultiplier
	}
	if r.LastQuantity > 0 {
		lastPrice, err := parseOptionalPrice(r.LastPrice)
		if err != nil {
			return err
		}
		ev.LastFillQty = r.LastQuantity / lotMultiplier
		ev.LastFillPrice = lastPrice
	}

	s.logger.Debug().Str("client_order_id", r.ClientOrderID).
		Str("report_type", r.ExecReportType).Str("order_status", r.OrderStatus).
		Stringer("status", status).Msg("execution report")
	s.publishEvent(ev)
	return nil
}

func (s *OrderEntrySession) handleCancelReject(r *cancelReject) {
	s.logger.Warn().Str("client_order_id", r.ClientOrderID).
		Str("reason", r.RejectReasonText).Msg("cancel rejected")
	s.publishEvent(types.OrderStatusEvent{
		OrderID:        r.ClientOrderID,
		Status:         types.StatusRejected,
		RejectMessage:  r.RejectReasonText,
		IsCancelReject: true,
		Timestamp:      time.UnixMilli(r.Timestamp),
	})
}

func (s *OrderEntrySession) buildNewOrder(order *types.Order) (*newOrderPayload, error) {
	side, err := venueSide(order.Side)
	if err != nil {
		return nil, err
	}
	orderType, ok := orderTypeNames[order.Type]
	if !ok {
		return nil, types.TradingError{
			Code:    types.ErrUnsupportedValue,
			Message: fmt.Sprintf("unsupported order type %v", order.Type),
		}
	}
	tif, ok := timeInForceNames[order.TimeInForce]
	if !ok {
		return nil, types.TradingError{
			Code:    types.ErrUnsupportedValue,
			Message: fmt.Sprintf("unsupported time in force %v", order.TimeInForce),
		}
	}
	return &newOrderPayload{
		ClientOrderID: order.OrderID,
		Symbol:        s.symbol,
		Side:          side,
		Quantity:      int64(math.Round(order.Quantity * lotMultiplier)),
		Type:          orderType,
		Price:         s.formatPrice(order.Price),
		TimeInForce:   tif,
	}, nil
}

// formatPrice rounds the price onto the venue's tick grid and renders it
// without float representation noise.
func (s *OrderEntrySession) formatPrice(price float64) string {
	d := decimal.NewFromFloat(price)
	if !s.tickSize.IsZero() {
		d = d.Div(s.tickSize).Round(0).Mul(s.tickSize)
	}
	return d.String()
}

func (s *OrderEntrySession) send(payload interface{}) error {
	if s.currentState() != stateReady {
		s.logger.Warn().Msg("command sent before session ready")
	}
	return s.signAndSend(payload)
}

func (s *OrderEntrySession) signAndSend(payload interface{}) error {
	s.mu.Lock()
	ws := s.ws
	s.mu.Unlock()
	if ws == nil {
		return types.TradingError{
			Code:    types.ErrConnectionFailed,
			Message: "order entry session not started",
		}
	}
	signed, err := s.signer.SignStreaming(payload)
	if err != nil {
		return err
	}
	return ws.Send(signed)
}

func (s *OrderEntrySession) setState(st sessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *OrderEntrySession) currentState() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *OrderEntrySession) publishEvent(ev types.OrderStatusEvent) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn().Str("client_order_id", ev.OrderID).Msg("event channel full, dropping order event")
	}
}

func (s *OrderEntrySession) publishConnectivity(status types.ConnectivityStatus) {
	select {
	case s.connectivity <- status:
	default:
		s.logger.Warn().Msg("connectivity channel full, dropping status")
	}
}

func venueSide(side types.Side) (string, error) {
	v, ok := sideNames[side]
	if !ok {
		return "", types.TradingError{
			Code:    types.ErrUnsupportedValue,
			Message: fmt.Sprintf("unsupported order side %v", side),
		}
	}
	return v, nil
}

// normalizeStatus maps the venue's report-type/order-status pair onto the
// normalized lifecycle. Matching is exact and case-sensitive.
func normalizeStatus(reportType, orderStatus string) types.OrderStatus {
	switch reportType {
	case "new", "status":
		return types.StatusWorking
	case "canceled", "expired":
		return types.StatusCancelled
	case "rejected":
		return types.StatusRejected
	case "trade":
		if orderStatus == "filled" {
			return types.StatusComplete
		}
		return types.StatusWorking
	default:
		return types.StatusOther
	}
}

func parseOptionalPrice(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return parseWireFloat(v)
}
