package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/souravmenon1999/hitbtc-gateway/internal/config"
	"github.com/souravmenon1999/hitbtc-gateway/internal/exchange/hitbtc"
	"github.com/souravmenon1999/hitbtc-gateway/internal/gateway"
	"github.com/souravmenon1999/hitbtc-gateway/internal/logging"
)

const (
	restartBaseDelay = time.Second
	restartMaxDelay  = 60 * time.Second

	// A session that stayed up this long before dying gets a fresh backoff.
	healthyRunPeriod = 5 * time.Minute
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(cfg.Log.Level, cfg.Log.Pretty)
	logger := logging.Component("main").With().Str("instance", uuid.NewString()).Logger()
	logger.Info().Msg("hitbtc gateway starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw, err := hitbtc.New(ctx, &cfg.HitBTC)
	if err != nil {
		logger.Error().Err(err).Msg("failed to assemble gateway")
		os.Exit(1)
	}

	// The gateway's sessions fail fast on transport and parse faults; this
	// process is the supervisor that restarts them with fresh state.
	var wg sync.WaitGroup
	for name, sess := range gw.Sessions() {
		wg.Add(1)
		go func(name string, sess gateway.Session) {
			defer wg.Done()
			supervise(ctx, name, sess)
		}(name, sess)
	}

	// Demo consumer: drain the event streams so the buffers never fill.
	// A real deployment hands these channels to the trading engine.
	go drainEvents(ctx, gw)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()
	wg.Wait()
	logger.Info().Msg("hitbtc gateway stopped")
}

// supervise reruns a session with backoff and jitter until the context is
// cancelled.
func supervise(ctx context.Context, name string, sess gateway.Session) {
	logger := logging.Component("supervisor").With().Str("session", name).Logger()
	var delay time.Duration
	attempt := 0
	for {
		started := time.Now()
		err := sess.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		uptime := time.Since(started)
		if uptime >= healthyRunPeriod {
			attempt = 0
		}
		attempt++
		delay = nextRestartDelay(delay, uptime)
		wait := delay + time.Duration(rand.Float64()*float64(time.Second))
		logger.Error().Err(err).Int("attempt", attempt).Dur("delay", wait).
			Msg("session terminated, restarting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// nextRestartDelay is the supervisor backoff policy: start at the base,
// double up to the cap, and start over once a session has stayed up long
// enough to count as healthy. Doubling a capped value keeps the result
// bounded, so an outage of any length never wraps the delay.
func nextRestartDelay(prev, uptime time.Duration) time.Duration {
	if prev == 0 || uptime >= healthyRunPeriod {
		return restartBaseDelay
	}
	next := prev * 2
	if next > restartMaxDelay {
		next = restartMaxDelay
	}
	return next
}

func drainEvents(ctx context.Context, gw *hitbtc.Gateway) {
	logger := logging.Component("events")
	md := gw.MarketData()
	oe := gw.OrderEntry()
	pp := gw.Positions()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-md.Snapshots():
			logger.Debug().Int("bids", len(snap.Bids)).Int("asks", len(snap.Asks)).
				Msg("market snapshot")
		case trade := <-md.Trades():
			logger.Debug().Float64("price", trade.Price).Float64("size", trade.Size).
				Stringer("side", trade.Side).Bool("historical", trade.IsHistorical).
				Msg("trade print")
		case status := <-md.Connectivity():
			logger.Info().Stringer("status", status).Msg("market data connectivity")
		case ev := <-oe.OrderEvents():
			logger.Info().Str("order_id", ev.OrderID).Stringer("status", ev.Status).
				Msg("order status")
		case status := <-oe.Connectivity():
			logger.Info().Stringer("status", status).Msg("order entry connectivity")
		case pos := <-pp.Positions():
			logger.Info().Str("currency", string(pos.Currency)).
				Float64("cash", pos.Cash).Float64("reserved", pos.Reserved).
				Msg("position update")
		}
	}
}
