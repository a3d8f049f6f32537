package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/qtrade-exchange/lpbot/internal/domain"
)

// ComputeAllocations turns current balances and the configured allocation
// percentages into the currency each market may commit to orders this
// cycle. Pure function: no I/O, no side effects.
//
// Per side: allocated = max((balance - reserve) * percent, 0). The clamp
// at zero is load-bearing — a balance below its reserve must never
// propagate a negative allocation into order sizing.
func ComputeAllocations(balances domain.Balances, cfg domain.AllocationConfig) (map[string]domain.Allocation, error) {
	allocs := make(map[string]domain.Allocation, len(cfg.Markets))
	for market, percents := range cfg.Markets {
		marketCur, baseCur, err := domain.SplitMarket(market)
		if err != nil {
			return nil, fmt.Errorf("engine.ComputeAllocations: %w", err)
		}
		allocs[market] = domain.Allocation{
			MarketAmount: sideAllocation(balances.Get(marketCur), cfg.Reserves[marketCur], percents[marketCur]),
			BaseAmount:   sideAllocation(balances.Get(baseCur), cfg.Reserves[baseCur], percents[baseCur]),
		}
	}
	return allocs, nil
}

func sideAllocation(balance, reserve, percent decimal.Decimal) decimal.Decimal {
	amount := balance.Sub(reserve).Mul(percent)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
