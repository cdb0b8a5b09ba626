package hitbtc

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/souravmenon1999/hitbtc-gateway/internal/config"
	"github.com/souravmenon1999/hitbtc-gateway/internal/gateway"
	"github.com/souravmenon1999/hitbtc-gateway/internal/logging"
	"github.com/souravmenon1999/hitbtc-gateway/internal/types"
)

// Gateway wires the venue sessions into the venue-agnostic contract. The
// symbol spelling and tick size are resolved once at construction; sessions
// are supervised by the caller through Sessions().
type Gateway struct {
	info   gateway.ExchangeInfo
	md     *MarketDataSession
	oe     *OrderEntrySession
	pp     *PositionPoller
	logger zerolog.Logger
}

var _ gateway.Gateway = (*Gateway)(nil)

// New resolves the configured pair against the venue's symbol table and
// assembles the sessions. The order entry channel and the REST poller each
// get their own signer so nonce state is never shared between connections.
func New(ctx context.Context, cfg *config.HitBTCConfig) (*Gateway, error) {
	restSigner := NewRequestSigner(cfg.APIKey, cfg.APISecret)
	streamSigner := NewRequestSigner(cfg.APIKey, cfg.APISecret)
	rest := NewRestClient(cfg.RestURL, restSigner)

	symbols, err := rest.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	info, tickSize, err := resolveSymbol(symbols, cfg.BaseCurrency, cfg.QuoteCurrency)
	if err != nil {
		return nil, err
	}

	logger := logging.Component("gateway")
	logger.Info().Str("symbol", info.Symbol).Float64("tick_size", info.TickSize).
		Msg("resolved venue symbol")

	bookDial := func() Transport { return NewWSConn("book", cfg.MarketWSURL) }
	tradeDial := func() Transport { return NewWSConn("trades", cfg.TradeWSURL) }
	tradingDial := func() Transport { return NewWSConn("trading", cfg.TradingWSURL) }

	return &Gateway{
		info:   info,
		md:     NewMarketDataSession(info.Symbol, bookDial, tradeDial, rest, cfg.TradeBackfillCount),
		oe:     NewOrderEntrySession(info.Symbol, tickSize, tradingDial, streamSigner),
		pp:     NewPositionPoller(rest, cfg.BalancePollInterval),
		logger: logger,
	}, nil
}

func (g *Gateway) MarketData() gateway.MarketDataFeed {
	return g.md
}

func (g *Gateway) OrderEntry() gateway.OrderEntry {
	return g.oe
}

func (g *Gateway) Positions() gateway.PositionFeed {
	return g.pp
}

func (g *Gateway) Info() gateway.ExchangeInfo {
	return g.info
}

// Sessions exposes the supervised units for the owning process.
func (g *Gateway) Sessions() map[string]gateway.Session {
	return map[string]gateway.Session{
		"marketdata": g.md,
		"orderentry": g.oe,
		"positions":  g.pp,
	}
}

// resolveSymbol finds the venue's spelling of the configured pair and its
// tick size. A pair the venue does not list is a startup failure.
func resolveSymbol(symbols []symbolInfo, base, quote string) (gateway.ExchangeInfo, decimal.Decimal, error) {
	for _, sym := range symbols {
		if sym.Commodity != base || sym.Currency != quote {
			continue
		}
		step, err := decimal.NewFromString(sym.Step)
		if err != nil {
			return gateway.ExchangeInfo{}, decimal.Decimal{}, types.TradingError{
				Code:    types.ErrParseFailed,
				Message: fmt.Sprintf("malformed step for symbol %s", sym.Symbol),
				Wrapped: err,
			}
		}
		maker, err := parseOptionalPrice(sym.ProvideLiquidityRate)
		if err != nil {
			return gateway.ExchangeInfo{}, decimal.Decimal{}, err
		}
		taker, err := parseOptionalPrice(sym.TakeLiquidityRate)
		if err != nil {
			return gateway.ExchangeInfo{}, decimal.Decimal{}, err
		}
		tick, _ := step.Float64()
		return gateway.ExchangeInfo{
			Symbol:       sym.Symbol,
			TickSize:     tick,
			MakerFeeRate: maker,
			TakerFeeRate: taker,
		}, step, nil
	}
	return gateway.ExchangeInfo{}, decimal.Decimal{}, types.TradingError{
		Code:    types.ErrSymbolResolution,
		Message: fmt.Sprintf("venue lists no symbol for %s/%s", base, quote),
	}
}
