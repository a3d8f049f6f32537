package domain

import "github.com/shopspring/decimal"

// Balances maps a currency code to its total amount: funds available plus
// funds currently locked in open orders, merged by currency. A missing
// currency means zero; amounts are never negative by construction.
type Balances map[string]decimal.Decimal

// Get returns the balance for a currency, or zero if absent.
func (b Balances) Get(currency string) decimal.Decimal {
	if v, ok := b[currency]; ok {
		return v
	}
	return decimal.Zero
}

// Add merges amount into the balance for a currency, creating the entry
// when it does not exist yet.
func (b Balances) Add(currency string, amount decimal.Decimal) {
	b[currency] = b.Get(currency).Add(amount)
}

// AccountBalances separates spendable funds from the full account view.
//
// Total (available + locked in open orders) is what allocation works
// from: cancelling the resting set releases the locked part. Available is
// what the reserve-drift check compares against the reserve floors —
// placing orders locks funds, so an over-reserve available balance means
// money sitting idle instead of resting as liquidity.
type AccountBalances struct {
	Available Balances
	Total     Balances
}
