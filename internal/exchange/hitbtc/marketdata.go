package hitbtc

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/souravmenon1999/hitbtc-gateway/internal/logging"
	"github.com/souravmenon1999/hitbtc-gateway/internal/types"
)

// MarketDataSession owns the book streaming channel and the independent
// trade-print channel for one symbol, drives the BookEngine and publishes
// normalized market events. All handlers run on the single Run loop, so the
// book needs no locking; no other component touches it.
type MarketDataSession struct {
	symbol        string
	bookDial      DialFunc
	tradeDial     DialFunc
	rest          *RestClient
	backfillCount int

	bookWS  Transport
	tradeWS Transport

	book   *BookEngine
	logger zerolog.Logger

	snapshots    chan types.MarketSnapshot
	trades       chan types.TradePrint
	connectivity chan types.ConnectivityStatus

	bookUp  bool
	tradeUp bool

	now func() time.Time
}

func NewMarketDataSession(symbol string, bookDial, tradeDial DialFunc, rest *RestClient, backfillCount int) *MarketDataSession {
	return &MarketDataSession{
		symbol:        symbol,
		bookDial:      bookDial,
		tradeDial:     tradeDial,
		rest:          rest,
		backfillCount: backfillCount,
		book:          NewBookEngine(),
		logger:        logging.Component("marketdata").With().Str("symbol", symbol).Logger(),
		snapshots:     make(chan types.MarketSnapshot, 128),
		trades:        make(chan types.TradePrint, 256),
		connectivity:  make(chan types.ConnectivityStatus, 16),
		now:           time.Now,
	}
}

func (s *MarketDataSession) Snapshots() <-chan types.MarketSnapshot {
	return s.snapshots
}

func (s *MarketDataSession) Trades() <-chan types.TradePrint {
	return s.trades
}

func (s *MarketDataSession) Connectivity() <-chan types.ConnectivityStatus {
	return s.connectivity
}

// Run connects both transports, seeds the book and backfills recent trades,
// then serializes all message and state handling until the context is
// cancelled or the session hits a fatal fault. Parse and transport faults
// are fatal by design: continuing on a possibly corrupt book is worse than
// a supervised restart.
func (s *MarketDataSession) Run(ctx context.Context) error {
	s.book.Reset()
	s.bookUp = false
	s.tradeUp = false
	s.bookWS = s.bookDial()
	s.tradeWS = s.tradeDial()

	if err := s.bookWS.Connect(ctx); err != nil {
		return err
	}
	if err := s.tradeWS.Connect(ctx); err != nil {
		return err
	}
	defer s.bookWS.Close()
	defer s.tradeWS.Close()

	if s.rest != nil {
		if err := s.seedBook(ctx); err != nil {
			return err
		}
		if err := s.backfillTrades(ctx); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-s.bookWS.Messages():
			if !ok {
				s.bookUp = false
				s.publishConnectivity()
				return types.TradingError{
					Code:    types.ErrConnectionFailed,
					Message: "book channel closed",
					Wrapped: types.ErrSessionClosed,
				}
			}
			if err := s.handleBookMessage(raw); err != nil {
				return err
			}

		case st := <-s.bookWS.States():
			s.bookUp = st == StateConnected
			if !s.bookUp {
				// The book is only trustworthy while the feed is
				// continuous; a fresh snapshot is required after reconnect.
				s.book.Reset()
			}
			s.publishConnectivity()

		case raw, ok := <-s.tradeWS.Messages():
			if !ok {
				s.tradeUp = false
				s.publishConnectivity()
				return types.TradingError{
					Code:    types.ErrConnectionFailed,
					Message: "trade channel closed",
					Wrapped: types.ErrSessionClosed,
				}
			}
			if err := s.handleTradeMessage(raw); err != nil {
				return err
			}

		case st := <-s.tradeWS.States():
			s.tradeUp = st == StateConnected
			s.publishConnectivity()
		}
	}
}

// seedBook fetches the one-time REST snapshot and applies it, setting the
// snapshot-processed gate before any incremental is trusted.
func (s *MarketDataSession) seedBook(ctx context.Context) error {
	ob, err := s.rest.OrderBook(ctx, s.symbol)
	if err != nil {
		return err
	}
	bids, err := parseRestSide(ob.Bids)
	if err != nil {
		return err
	}
	asks, err := parseRestSide(ob.Asks)
	if err != nil {
		return err
	}
	if err := s.book.ApplySnapshot(bids, asks); err != nil {
		return err
	}
	s.publishSnapshot()
	return nil
}

// backfillTrades publishes the one-time historical trade backfill. Backfill
// prints are never reclassified against the book.
func (s *MarketDataSession) backfillTrades(ctx context.Context) error {
	recent, err := s.rest.RecentTrades(ctx, s.symbol, s.backfillCount)
	if err != nil {
		return err
	}
	for _, t := range recent {
		price, err := parseWireFloat(t.Price)
		if err != nil {
			return err
		}
		amount, err := parseWireFloat(t.Amount)
		if err != nil {
			return err
		}
		s.publishTrade(types.TradePrint{
			Price:        price,
			Size:         amount / lotMultiplier,
			Timestamp:    time.UnixMilli(t.Date),
			IsHistorical: true,
			Side:         types.SideUnknown,
		})
	}
	s.logger.Info().Int("count", len(recent)).Msg("historical trade backfill published")
	return nil
}

func (s *MarketDataSession) handleBookMessage(raw []byte) error {
	var env marketEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Error().Err(err).Str("payload", string(raw)).Msg("unparsable market data message")
		return types.TradingError{
			Code:    types.ErrParseFailed,
			Message: "unparsable market data message",
			Wrapped: err,
		}
	}

	switch {
	case env.Snapshot != nil:
		return s.handleSnapshot(env.Snapshot)
	case env.Incremental != nil:
		return s.handleIncremental(env.Incremental)
	default:
		s.logger.Warn().Str("payload", string(raw)).Msg("unrecognized market data message, dropping")
		return nil
	}
}

func (s *MarketDataSession) handleSnapshot(m *marketDataRefresh) error {
	if m.Symbol != s.symbol {
		s.logger.Debug().Str("symbol", m.Symbol).Msg("snapshot for other symbol, dropping")
		return nil
	}
	bids, err := parseBookEntries(m.Bids)
	if err != nil {
		return err
	}
	asks, err := parseBookEntries(m.Asks)
	if err != nil {
		return err
	}
	if err := s.book.ApplySnapshot(bids, asks); err != nil {
		return err
	}
	s.publishSnapshot()
	return nil
}

func (s *MarketDataSession) handleIncremental(m *marketDataRefresh) error {
	if m.Symbol != s.symbol {
		s.logger.Debug().Str("symbol", m.Symbol).Msg("incremental for other symbol, dropping")
		return nil
	}
	if !s.book.HasSnapshot() {
		s.logger.Debug().Int64("seq", m.SeqNo).Msg("incremental before snapshot, discarding")
		return nil
	}
	bids, err := parseBookEntries(m.Bids)
	if err != nil {
		return err
	}
	asks, err := parseBookEntries(m.Asks)
	if err != nil {
		return err
	}
	applied, err := s.book.ApplyIncremental(bids, asks)
	if err != nil {
		return err
	}
	if applied {
		s.publishSnapshot()
	}
	return nil
}

func (s *MarketDataSession) handleTradeMessage(raw []byte) error {
	var ev tradeChannelEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		s.logger.Error().Err(err).Str("payload", string(raw)).Msg("unparsable trade message")
		return types.TradingError{
			Code:    types.ErrParseFailed,
			Message: "unparsable trade message",
			Wrapped: err,
		}
	}
	s.publishTrade(types.TradePrint{
		Price:        ev.Price,
		Size:         ev.Amount / lotMultiplier,
		Timestamp:    s.now(),
		IsHistorical: false,
		Side:         s.classifyTradeSide(ev.Price),
	})
	return nil
}

// classifyTradeSide infers the aggressor side from the trade price's
// distance to the current best bid and ask. Unknown on a tie or when either
// side of the book is empty.
func (s *MarketDataSession) classifyTradeSide(price float64) types.Side {
	bestBid, hasBid := s.book.BestBid()
	bestAsk, hasAsk := s.book.BestAsk()
	if !hasBid || !hasAsk {
		return types.SideUnknown
	}
	bidDist := math.Abs(price - bestBid)
	askDist := math.Abs(price - bestAsk)
	switch {
	case bidDist < askDist:
		return types.Bid
	case askDist < bidDist:
		return types.Ask
	default:
		return types.SideUnknown
	}
}

func (s *MarketDataSession) publishSnapshot() {
	bids, asks := s.book.TopLevels()
	snap := types.MarketSnapshot{Bids: bids, Asks: asks, Timestamp: s.now()}
	select {
	case s.snapshots <- snap:
	default:
		s.logger.Warn().Msg("snapshot channel full, dropping market snapshot")
	}
}

func (s *MarketDataSession) publishTrade(t types.TradePrint) {
	select {
	case s.trades <- t:
	default:
		s.logger.Warn().Msg("trade channel full, dropping trade print")
	}
}

// publishConnectivity derives the session status: Connected only while both
// the book transport and the trade channel are up.
func (s *MarketDataSession) publishConnectivity() {
	status := types.Disconnected
	if s.bookUp && s.tradeUp {
		status = types.Connected
	}
	select {
	case s.connectivity <- status:
	default:
		s.logger.Warn().Msg("connectivity channel full, dropping status")
	}
}

func parseWireFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, types.TradingError{
			Code:    types.ErrParseFailed,
			Message: "malformed numeric field: " + v,
			Wrapped: err,
		}
	}
	return f, nil
}

func parseBookEntries(entries []bookEntry) ([]types.PriceLevel, error) {
	out := make([]types.PriceLevel, 0, len(entries))
	for _, e := range entries {
		price, err := parseWireFloat(e.Price)
		if err != nil {
			return nil, err
		}
		out = append(out, types.PriceLevel{Price: price, Size: e.Size / lotMultiplier})
	}
	return out, nil
}

func parseRestSide(rows [][]string) ([]types.PriceLevel, error) {
	out := make([]types.PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) != 2 {
			return nil, types.TradingError{
				Code:    types.ErrParseFailed,
				Message: "malformed orderbook row",
			}
		}
		price, err := parseWireFloat(row[0])
		if err != nil {
			return nil, err
		}
		size, err := parseWireFloat(row[1])
		if err != nil {
			return nil, err
		}
		out = append(out, types.PriceLevel{Price: price, Size: size / lotMultiplier})
	}
	return out, nil
}
