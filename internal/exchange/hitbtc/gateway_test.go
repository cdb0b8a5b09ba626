package hitbtc

import (
	"errors"
	"testing"

	"github.com/souravmenon1999/hitbtc-gateway/internal/types"
)

var venueSymbols = []symbolInfo{
	{Symbol: "ETHBTC", Step: "0.00001", Lot: "0.001", Currency: "BTC", Commodity: "ETH"},
	{Symbol: "BTCUSD", Step: "0.05", Lot: "0.01", Currency: "USD", Commodity: "BTC",
		TakeLiquidityRate: "0.001", ProvideLiquidityRate: "-0.0001"},
}

func TestResolveSymbol(t *testing.T) {
	info, step, err := resolveSymbol(venueSymbols, "BTC", "USD")
	if err != nil {
		t.Fatalf("resolveSymbol: %v", err)
	}
	if info.Symbol != "BTCUSD" {
		t.Fatalf("symbol = %q", info.Symbol)
	}
	if info.TickSize != 0.05 || step.String() != "0.05" {
		t.Fatalf("tick size: %v / %v", info.TickSize, step)
	}
	if info.TakerFeeRate != 0.001 || info.MakerFeeRate != -0.0001 {
		t.Fatalf("fee rates: %+v", info)
	}
}

func TestResolveSymbolUnlistedPair(t *testing.T) {
	_, _, err := resolveSymbol(venueSymbols, "DOGE", "USD")
	var terr types.TradingError
	if !errors.As(err, &terr) || terr.Code != types.ErrSymbolResolution {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveSymbolMalformedStep(t *testing.T) {
	bad := []symbolInfo{{Symbol: "BTCUSD", Step: "five", Currency: "USD", Commodity: "BTC"}}
	_, _, err := resolveSymbol(bad, "BTC", "USD")
	var terr types.TradingError
	if !errors.As(err, &terr) || terr.Code != types.ErrParseFailed {
		t.Fatalf("unexpected error: %v", err)
	}
}
