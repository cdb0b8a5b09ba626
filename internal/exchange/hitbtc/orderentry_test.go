package hitbtc

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/souravmenon1999/hitbtc-gateway/internal/types"
)

func startOrderSession(t *testing.T, ws *fakeTransport) (*OrderEntrySession, <-chan error) {
	t.Helper()
	tick, err := decimal.NewFromString("0.01")
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	s := NewOrderEntrySession("BTCUSD", tick, dialFake(ws), NewRequestSigner("api-key", "api-secret"))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	// Connected is published only after the login frame went out.
	if st := recv(t, s.Connectivity()); st != types.Connected {
		t.Fatalf("status = %v, want connected", st)
	}
	return s, errCh
}

func limitOrder(id string) *types.Order {
	return &types.Order{
		OrderID:     id,
		Side:        types.Bid,
		Quantity:    0.5,
		Type:        types.OrderTypeLimit,
		Price:       100.126,
		TimeInForce: types.TimeInForceGTC,
	}
}

func TestLoginSentOnConnect(t *testing.T) {
	ws := newFakeTransport()
	startOrderSession(t, ws)

	frames := ws.sentFrames()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want the login", len(frames))
	}
	if _, ok := frames[0].Message.Payload.(loginEnvelope); !ok {
		t.Fatalf("first frame is %T, want login", frames[0].Message.Payload)
	}
	if frames[0].APIKey != "api-key" || frames[0].Signature == "" {
		t.Fatalf("login frame not signed: %+v", frames[0])
	}
}

func TestSendOrderBuildsVenueOrder(t *testing.T) {
	ws := newFakeTransport()
	s, _ := startOrderSession(t, ws)

	if err := s.SendOrder(limitOrder("12345678")); err != nil {
		t.Fatalf("SendOrder: %v", err)
	}

	frames := ws.sentFrames()
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want login + order", len(frames))
	}
	env, ok := frames[1].Message.Payload.(newOrderEnvelope)
	if !ok {
		t.Fatalf("order frame is %T", frames[1].Message.Payload)
	}
	o := env.NewOrder
	if o.ClientOrderID != "12345678" || o.Symbol != "BTCUSD" {
		t.Fatalf("identity fields: %+v", o)
	}
	if o.Side != "buy" || o.Type != "limit" || o.TimeInForce != "GTC" {
		t.Fatalf("enum mapping: %+v", o)
	}
	if o.Quantity != 50 {
		t.Fatalf("quantity = %d lots, want 50", o.Quantity)
	}
	if o.Price != "100.13" {
		t.Fatalf("price = %q, want tick-rounded 100.13", o.Price)
	}

	// Transmission publishes a send-time bookkeeping event.
	ev := recv(t, s.OrderEvents())
	if ev.OrderID != "12345678" || ev.Status != types.StatusOther {
		t.Fatalf("bookkeeping event: %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Fatalf("bookkeeping event has no send time")
	}
}

func TestSendOrderUnsupportedSide(t *testing.T) {
	ws := newFakeTransport()
	s, _ := startOrderSession(t, ws)

	order := limitOrder("12345678")
	order.Side = types.SideUnknown
	err := s.SendOrder(order)

	var terr types.TradingError
	if !errors.As(err, &terr) || terr.Code != types.ErrUnsupportedValue {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ws.sentFrames()) != 1 {
		t.Fatalf("rejected order still transmitted")
	}
}

func TestCancelOrderDerivesRequestID(t *testing.T) {
	ws := newFakeTransport()
	s, _ := startOrderSession(t, ws)

	if err := s.CancelOrder(limitOrder("12345678")); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}

	frames := ws.sentFrames()
	env, ok := frames[len(frames)-1].Message.Payload.(orderCancelEnvelope)
	if !ok {
		t.Fatalf("cancel frame is %T", frames[len(frames)-1].Message.Payload)
	}
	c := env.OrderCancel
	if c.ClientOrderID != "12345678" || c.CancelRequestClientOrderID != "12345678C" {
		t.Fatalf("cancel ids: %+v", c)
	}
	if c.Symbol != "BTCUSD" || c.Side != "buy" {
		t.Fatalf("cancel fields: %+v", c)
	}
}

func TestReplaceOrderCancelsThenSends(t *testing.T) {
	ws := newFakeTransport()
	s, _ := startOrderSession(t, ws)

	if err := s.ReplaceOrder(limitOrder("12345678")); err != nil {
		t.Fatalf("ReplaceOrder: %v", err)
	}

	frames := ws.sentFrames()
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want login + cancel + order", len(frames))
	}
	if _, ok := frames[1].Message.Payload.(orderCancelEnvelope); !ok {
		t.Fatalf("second frame is %T, want cancel", frames[1].Message.Payload)
	}
	if _, ok := frames[2].Message.Payload.(newOrderEnvelope); !ok {
		t.Fatalf("third frame is %T, want new order", frames[2].Message.Payload)
	}
}

func TestCancelAllUnsupported(t *testing.T) {
	ws := newFakeTransport()
	s, _ := startOrderSession(t, ws)

	if s.SupportsCancelAll() {
		t.Fatalf("venue has no cancel-all")
	}
	if err := s.CancelAllOpenOrders(); err != nil {
		t.Fatalf("cancel-all must be a no-op success: %v", err)
	}
	if len(ws.sentFrames()) != 1 {
		t.Fatalf("cancel-all transmitted a frame")
	}
}

func TestNormalizeStatusTable(t *testing.T) {
	cases := []struct {
		reportType  string
		orderStatus string
		want        types.OrderStatus
	}{
		{"new", "new", types.StatusWorking},
		{"status", "partiallyFilled", types.StatusWorking},
		{"canceled", "canceled", types.StatusCancelled},
		{"expired", "expired", types.StatusCancelled},
		{"rejected", "rejected", types.StatusRejected},
		{"trade", "filled", types.StatusComplete},
		{"trade", "partiallyFilled", types.StatusWorking},
		{"Trade", "filled", types.StatusOther},
		{"replaced", "new", types.StatusOther},
	}
	for _, tc := range cases {
		if got := normalizeStatus(tc.reportType, tc.orderStatus); got != tc.want {
			t.Fatalf("normalizeStatus(%q, %q) = %v, want %v",
				tc.reportType, tc.orderStatus, got, tc.want)
		}
	}
}

func TestExecutionReportFill(t *testing.T) {
	ws := newFakeTransport()
	s, _ := startOrderSession(t, ws)

	ws.push(`{"ExecutionReport":{"orderId":"58521038","clientOrderId":"12345678","execReportType":"trade","orderStatus":"filled","symbol":"BTCUSD","side":"buy","timestamp":1640995200000,"lastQuantity":50,"lastPrice":"100.1","leavesQuantity":0,"cumQuantity":50,"averagePrice":"100.1"}}`)

	ev := recv(t, s.OrderEvents())
	if ev.Status != types.StatusComplete {
		t.Fatalf("status = %v, want complete", ev.Status)
	}
	if ev.OrderID != "12345678" || ev.ExchangeOrderID != "58521038" {
		t.Fatalf("ids: %+v", ev)
	}
	if ev.CumQty != 0.5 || ev.LastFillQty != 0.5 {
		t.Fatalf("quantities not normalized from lots: %+v", ev)
	}
	if ev.LastFillPrice != 100.1 || ev.AvgPrice != 100.1 {
		t.Fatalf("prices: %+v", ev)
	}
	if ev.LeavesQty != 0 {
		t.Fatalf("leaves set on a terminal event: %+v", ev)
	}
	if ev.Timestamp.UnixMilli() != 1640995200000 {
		t.Fatalf("timestamp: %v", ev.Timestamp)
	}
}

func TestExecutionReportPartialFill(t *testing.T) {
	ws := newFakeTransport()
	s, _ := startOrderSession(t, ws)

	ws.push(`{"ExecutionReport":{"orderId":"58521038","clientOrderId":"12345678","execReportType":"trade","orderStatus":"partiallyFilled","symbol":"BTCUSD","side":"buy","timestamp":1640995200000,"lastQuantity":20,"lastPrice":"100.1","leavesQuantity":30,"cumQuantity":20,"averagePrice":"100.1"}}`)

	ev := recv(t, s.OrderEvents())
	if ev.Status != types.StatusWorking {
		t.Fatalf("status = %v, want working", ev.Status)
	}
	if ev.LeavesQty != 0.3 {
		t.Fatalf("leaves = %v, want 0.3", ev.LeavesQty)
	}
	if ev.LastFillQty != 0.2 || ev.CumQty != 0.2 {
		t.Fatalf("fill quantities: %+v", ev)
	}
}

func TestExecutionReportAckHasNoFill(t *testing.T) {
	ws := newFakeTransport()
	s, _ := startOrderSession(t, ws)

	ws.push(`{"ExecutionReport":{"orderId":"58521038","clientOrderId":"12345678","execReportType":"new","orderStatus":"new","symbol":"BTCUSD","side":"buy","timestamp":1640995200000,"lastQuantity":0,"leavesQuantity":50,"cumQuantity":0}}`)

	ev := recv(t, s.OrderEvents())
	if ev.Status != types.StatusWorking {
		t.Fatalf("status = %v, want working", ev.Status)
	}
	if ev.LastFillQty != 0 || ev.LastFillPrice != 0 {
		t.Fatalf("fill fields set without a fill: %+v", ev)
	}
	if ev.LeavesQty != 0.5 {
		t.Fatalf("leaves = %v, want 0.5", ev.LeavesQty)
	}
}

func TestCancelRejectPublishesRejection(t *testing.T) {
	ws := newFakeTransport()
	s, _ := startOrderSession(t, ws)

	ws.push(`{"CancelReject":{"clientOrderId":"12345678","cancelRequestClientOrderId":"12345678C","rejectReasonCode":"orderNotFound","rejectReasonText":"Order not found","timestamp":1640995200000}}`)

	ev := recv(t, s.OrderEvents())
	if ev.Status != types.StatusRejected || !ev.IsCancelReject {
		t.Fatalf("cancel reject not flagged: %+v", ev)
	}
	if ev.OrderID != "12345678" || ev.RejectMessage != "Order not found" {
		t.Fatalf("cancel reject fields: %+v", ev)
	}
}

func TestUnrecognizedTradingFrameDropped(t *testing.T) {
	ws := newFakeTransport()
	s, _ := startOrderSession(t, ws)

	ws.push(`{"Balance":[{"currency_code":"USD"}]}`)
	ws.push(`{"CancelReject":{"clientOrderId":"42","rejectReasonText":"x","timestamp":1}}`)

	// The unrecognized frame is dropped without an event or a fault; the
	// next frame still flows.
	ev := recv(t, s.OrderEvents())
	if ev.OrderID != "42" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestMalformedTradingFrameFatal(t *testing.T) {
	ws := newFakeTransport()
	_, errCh := startOrderSession(t, ws)

	ws.push(`{not json`)

	err := recv(t, errCh)
	var terr types.TradingError
	if !errors.As(err, &terr) || terr.Code != types.ErrParseFailed {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChannelCloseFatal(t *testing.T) {
	ws := newFakeTransport()
	s, errCh := startOrderSession(t, ws)

	close(ws.msgs)

	err := recv(t, errCh)
	if !errors.Is(err, types.ErrSessionClosed) {
		t.Fatalf("unexpected error: %v", err)
	}
	if st := recv(t, s.Connectivity()); st != types.Disconnected {
		t.Fatalf("status = %v, want disconnected", st)
	}
}

func TestClientOrderIDFormat(t *testing.T) {
	ws := newFakeTransport()
	s, _ := startOrderSession(t, ws)

	for i := 0; i < 20; i++ {
		id := s.NewClientOrderID()
		if len(id) != 8 {
			t.Fatalf("id %q is not 8 characters", id)
		}
		for _, r := range id {
			if r < '0' || r > '9' {
				t.Fatalf("id %q is not numeric", id)
			}
		}
	}
}
