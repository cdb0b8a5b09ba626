package hitbtc

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/souravmenon1999/hitbtc-gateway/internal/logging"
	"github.com/souravmenon1999/hitbtc-gateway/internal/types"
)

const defaultPollInterval = 15 * time.Second

// PositionPoller polls account balances on a fixed interval through a
// signed REST call and maps venue currency codes onto the internal set.
// A failed poll is retried on the next tick; the poller never terminates
// on venue faults.
type PositionPoller struct {
	rest     *RestClient
	interval time.Duration
	logger   zerolog.Logger

	positions chan types.CurrencyPosition
}

func NewPositionPoller(rest *RestClient, interval time.Duration) *PositionPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &PositionPoller{
		rest:      rest,
		interval:  interval,
		logger:    logging.Component("positions"),
		positions: make(chan types.CurrencyPosition, 64),
	}
}

func (p *PositionPoller) Positions() <-chan types.CurrencyPosition {
	return p.positions
}

// Run polls once immediately, then on every tick until the context is
// cancelled.
func (p *PositionPoller) Run(ctx context.Context) error {
	p.pollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *PositionPoller) pollOnce(ctx context.Context) {
	records, err := p.rest.TradingBalance(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("balance poll failed, retrying next tick")
		return
	}

	for _, rec := range records {
		currency, ok := currencyFromVenue(rec.CurrencyCode)
		if !ok {
			// Venues list currencies the engine does not trade.
			p.logger.Debug().Str("currency_code", rec.CurrencyCode).Msg("skipping unmapped currency")
			continue
		}
		pos := types.CurrencyPosition{
			Currency: currency,
			Cash:     rec.Cash,
			Reserved: rec.Reserved,
		}
		select {
		case p.positions <- pos:
		default:
			p.logger.Warn().Str("currency", string(currency)).Msg("position channel full, dropping update")
		}
	}
}
