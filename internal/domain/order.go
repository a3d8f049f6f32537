package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Side tags an order as buying or selling the market currency. Buy and
// sell orders are the same record; the tag decides which currency the
// size is denominated in.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Order is a priced commitment at one price level of one market.
//
// Size is denominated in base currency for buys (what will be spent) and
// in market currency for sells (what will be sold).
type Order struct {
	Market   string
	Side     Side
	Slippage decimal.Decimal // configured distance from the reference price
	Price    decimal.Decimal
	Size     decimal.Decimal
	ID       string // exchange order id, empty until placed
	ClientID string // local tracking id
	Active   bool
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s %s@%s", o.Side, o.Market, o.Size, o.Price)
}

// MarketAmount returns the order size expressed in market currency:
// sell sizes as-is, buy spend converted at the order price and truncated
// to the instrument's size increment.
func (o Order) MarketAmount(sizeIncrement decimal.Decimal) decimal.Decimal {
	if o.Side == SideSell {
		return o.Size
	}
	if o.Price.IsZero() {
		return decimal.Zero
	}
	return QuantizeDown(o.Size.Div(o.Price), sizeIncrement)
}
