package hitbtc

import "github.com/souravmenon1999/hitbtc-gateway/internal/types"

// lotMultiplier is the fixed scale between engine quantity units and venue
// lots: venue = engine * 100. All outbound sizes multiply, all inbound sizes
// divide, before crossing the wire.
const lotMultiplier = 100.0

// venueCurrencies maps the venue's currency codes onto the internal
// enumeration. Codes the engine does not trade are absent on purpose;
// balance records carrying them are skipped, not errors.
var venueCurrencies = map[string]types.Currency{
	"USD":  types.CurrencyUSD,
	"EUR":  types.CurrencyEUR,
	"BTC":  types.CurrencyBTC,
	"ETH":  types.CurrencyETH,
	"LTC":  types.CurrencyLTC,
	"DOGE": types.CurrencyDOGE,
	"XMR":  types.CurrencyXMR,
	"USDT": types.CurrencyUSDT,
}

func currencyFromVenue(code string) (types.Currency, bool) {
	c, ok := venueCurrencies[code]
	return c, ok
}
