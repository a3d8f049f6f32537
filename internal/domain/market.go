package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Coin is the default increment (1e-8) used when the exchange does not
// report one for an instrument.
var Coin = decimal.New(1, -8)

// MarketInfo describes a trading pair as reported by the exchange.
type MarketInfo struct {
	ID             int
	Market         string // canonical "MARKET_BASE" identifier
	MarketCurrency string
	BaseCurrency   string
	PriceIncrement decimal.Decimal
	SizeIncrement  decimal.Decimal
	TakerFee       decimal.Decimal
	CanTrade       bool
}

// SplitMarket splits a canonical "MARKET_BASE" pair string into its
// market and base currency codes.
func SplitMarket(market string) (marketCurrency, baseCurrency string, err error) {
	parts := strings.Split(market, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("domain.SplitMarket: malformed market %q", market)
	}
	return parts[0], parts[1], nil
}

// QuantizeDown truncates v down to a multiple of the given increment.
// Truncation (never rounding up) is what keeps order sizes from committing
// more funds than were allocated.
func QuantizeDown(v, increment decimal.Decimal) decimal.Decimal {
	if increment.IsZero() {
		increment = Coin
	}
	return v.Div(increment).Floor().Mul(increment)
}

// QuantizeUp rounds v up to the next multiple of the given increment.
func QuantizeUp(v, increment decimal.Decimal) decimal.Decimal {
	if increment.IsZero() {
		increment = Coin
	}
	return v.Div(increment).Ceil().Mul(increment)
}
