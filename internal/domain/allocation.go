package domain

import "github.com/shopspring/decimal"

// Allocation is the currency a market may commit to orders this cycle:
// market currency for the sell side, base currency for the buy side.
// Both amounts are always >= 0; the reserve clamp floors them at zero.
type Allocation struct {
	MarketAmount decimal.Decimal
	BaseAmount   decimal.Decimal
}

// AllocationConfig is the validated allocation surface: per market, the
// fraction of each side currency's post-reserve balance to commit, plus
// the per-currency reserve floors that must stay untouched.
type AllocationConfig struct {
	// Markets maps "MARKET_BASE" -> currency code -> percent (0-1].
	Markets map[string]map[string]decimal.Decimal
	// Reserves maps currency code -> amount that must remain unallocated.
	Reserves map[string]decimal.Decimal
}

// IntervalLevel is one configured order level: a slippage fraction away
// from the reference price and the ratio (0-1) of the side's allocation
// committed there.
type IntervalLevel struct {
	Slippage decimal.Decimal
	Ratio    decimal.Decimal
}

// Intervals holds the configured levels per side, sorted by slippage
// ascending. The sort keeps level indexes stable across cycles, which the
// rebalance decider relies on for positional pairing.
type Intervals struct {
	Buy  []IntervalLevel
	Sell []IntervalLevel
}

// Tolerances bound how far live state may drift from the applied profile
// before a rebalance is worth the churn.
type Tolerances struct {
	// Price and Amount are fractional per-order tolerances; a relative
	// diff at or above the tolerance triggers.
	Price  decimal.Decimal
	Amount decimal.Decimal
	// Reserve is a fractional tolerance on each reserve currency balance.
	// Zero disables the relative check.
	Reserve decimal.Decimal
	// ReserveThreshold is an absolute drift threshold denominated in
	// ReferenceCurrency. Zero disables the absolute check.
	ReserveThreshold  decimal.Decimal
	ReferenceCurrency string
}
