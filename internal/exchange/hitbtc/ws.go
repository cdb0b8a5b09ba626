package hitbtc

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/souravmenon1999/hitbtc-gateway/internal/logging"
	"github.com/souravmenon1999/hitbtc-gateway/internal/types"
)

// ConnState is a transport-level connection state event.
type ConnState uint8

const (
	StateDisconnected ConnState = iota
	StateConnected
)

// Transport is the session-facing surface of one streaming connection.
// Implementations deliver raw frames on Messages and open/close events on
// States; Messages closes when the connection is done. A Transport is good
// for one connection lifetime; sessions dial a fresh one per run.
type Transport interface {
	Connect(ctx context.Context) error
	Send(v interface{}) error
	Messages() <-chan []byte
	States() <-chan ConnState
	Close() error
}

// DialFunc produces a fresh Transport for one session run.
type DialFunc func() Transport

const (
	handshakeTimeout = 10 * time.Second
	readTimeout      = 75 * time.Second
	pingPeriod       = 30 * time.Second
	writeWait        = 5 * time.Second
)

// WSConn manages one websocket connection: serialized writes, a read loop
// feeding the message channel, and keepalive pings.
type WSConn struct {
	name   string
	url    string
	logger zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	msgChan   chan []byte
	stateChan chan ConnState
}

var _ Transport = (*WSConn)(nil)

func NewWSConn(name, url string) *WSConn {
	return &WSConn{
		name:      name,
		url:       url,
		logger:    logging.Component("ws").With().Str("channel", name).Logger(),
		msgChan:   make(chan []byte, 256),
		stateChan: make(chan ConnState, 8),
	}
}

// Connect dials the endpoint and starts the read loop.
func (w *WSConn) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return nil
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		w.logger.Error().Err(err).Str("url", w.url).Msg("websocket dial failed")
		return types.TradingError{
			Code:    types.ErrConnectionFailed,
			Message: "websocket dial failed",
			Wrapped: err,
		}
	}
	w.conn = conn
	w.logger.Info().Str("url", w.url).Msg("websocket connected")
	w.pushState(StateConnected)

	go w.readLoop(ctx, conn)
	return nil
}

// Send marshals v and writes it as a text frame. Writes are serialized.
func (w *WSConn) Send(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return types.TradingError{
			Code:    types.ErrConnectionFailed,
			Message: "websocket not connected",
		}
	}
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := w.conn.WriteJSON(v); err != nil {
		w.logger.Error().Err(err).Msg("websocket write failed")
		return types.TradingError{
			Code:    types.ErrConnectionFailed,
			Message: "websocket write failed",
			Wrapped: err,
		}
	}
	return nil
}

func (w *WSConn) Messages() <-chan []byte {
	return w.msgChan
}

func (w *WSConn) States() <-chan ConnState {
	return w.stateChan
}

// Close tears the connection down. The read loop notices and publishes the
// disconnect.
func (w *WSConn) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

func (w *WSConn) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		w.pushState(StateDisconnected)
		close(w.msgChan)
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	stop := make(chan struct{})
	defer close(stop)
	go w.pingLoop(ctx, conn, stop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			w.logger.Warn().Err(err).Msg("websocket read failed")
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		select {
		case w.msgChan <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (w *WSConn) pingLoop(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *WSConn) pushState(s ConnState) {
	select {
	case w.stateChan <- s:
	default:
		w.logger.Warn().Msg("state channel full, dropping transport event")
	}
}
