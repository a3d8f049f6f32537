package domain

import "github.com/shopspring/decimal"

// Ticker is a point-in-time price snapshot for one market.
type Ticker struct {
	Bid  decimal.Decimal
	Ask  decimal.Decimal
	Last decimal.Decimal
}

// Midpoint returns (bid + last) / 2, the simple price reference used to
// anchor resting orders. Returns zero when either value is missing.
func (t Ticker) Midpoint() decimal.Decimal {
	if t.Bid.IsZero() || t.Last.IsZero() {
		return decimal.Zero
	}
	return t.Bid.Add(t.Last).Div(decimal.NewFromInt(2))
}

// Valid reports whether the snapshot carries a usable bid and ask.
func (t Ticker) Valid() bool {
	return t.Bid.IsPositive() && t.Ask.IsPositive()
}
