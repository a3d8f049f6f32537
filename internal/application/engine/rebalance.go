package engine

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/qtrade-exchange/lpbot/internal/domain"
)

// Valuer converts a currency amount to the reference currency. The second
// return is false when no conversion path is known.
type Valuer func(currency string, amount decimal.Decimal) (decimal.Decimal, bool)

// CheckForRebalance decides whether the freshly computed profile differs
// enough from the applied baseline to act. Deterministic and side-effect
// free; the reason string exists purely for observability.
//
// Trigger classes, evaluated in order, short-circuiting on the first hit:
//  1. no baseline: prev is nil, or a market's level count changed
//  2. per-order drift: positional pairs whose relative price or size
//     delta reaches the tolerance (comparison is >=, so a diff exactly
//     at the boundary is actionable)
//  3. reserve drift: a reserve currency's available balance moved too
//     far from its floor, in either direction — over-reserve means
//     under-allocation, funds idle instead of resting as orders
func CheckForRebalance(newP, prev domain.Profile, balances domain.AccountBalances, cfg domain.AllocationConfig, tol domain.Tolerances, value Valuer) (bool, string) {
	if prev == nil {
		return true, "no baseline profile"
	}

	for _, market := range newP.Markets() {
		newSides := newP[market]
		prevSides, ok := prev[market]
		if !ok {
			return true, fmt.Sprintf("%s: no baseline for market", market)
		}
		if len(newSides.Buy) != len(prevSides.Buy) || len(newSides.Sell) != len(prevSides.Sell) {
			return true, fmt.Sprintf("%s: interval level count changed", market)
		}
		if trigger, reason := sideDrift(market, domain.SideBuy, newSides.Buy, prevSides.Buy, tol); trigger {
			return true, reason
		}
		if trigger, reason := sideDrift(market, domain.SideSell, newSides.Sell, prevSides.Sell, tol); trigger {
			return true, reason
		}
	}

	if trigger, reason := reserveDrift(balances.Available, cfg.Reserves, tol, value); trigger {
		return true, reason
	}
	return false, "within tolerances"
}

// sideDrift pairs new and previous orders positionally. The level count is
// stable across cycles because the interval configuration is stable; a
// count change was already handled as "no baseline".
func sideDrift(market string, side domain.Side, newOrders, prevOrders []domain.Order, tol domain.Tolerances) (bool, string) {
	for i := range newOrders {
		n, p := newOrders[i], prevOrders[i]

		if n.Price.IsPositive() {
			diff := n.Price.Sub(p.Price).Abs().Div(n.Price)
			if diff.IsPositive() && diff.GreaterThanOrEqual(tol.Price) {
				return true, fmt.Sprintf("%s %s level %d: price drift %s (was %s, now %s)",
					market, side, i, diff.StringFixed(4), p.Price, n.Price)
			}
		}

		switch {
		case n.Size.IsPositive():
			diff := n.Size.Sub(p.Size).Abs().Div(n.Size)
			if diff.IsPositive() && diff.GreaterThanOrEqual(tol.Amount) {
				return true, fmt.Sprintf("%s %s level %d: size drift %s (was %s, now %s)",
					market, side, i, diff.StringFixed(4), p.Size, n.Size)
			}
		case !p.Size.IsZero():
			// reduced to zero: relative drift is unbounded
			return true, fmt.Sprintf("%s %s level %d: size dropped to zero (was %s)",
				market, side, i, p.Size)
		}
	}
	return false, ""
}

func reserveDrift(balances domain.Balances, reserves map[string]decimal.Decimal, tol domain.Tolerances, value Valuer) (bool, string) {
	currencies := make([]string, 0, len(reserves))
	for cur := range reserves {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)

	for _, cur := range currencies {
		reserve := reserves[cur]
		if !reserve.IsPositive() {
			continue
		}
		drift := balances.Get(cur).Sub(reserve).Abs()

		if tol.Reserve.IsPositive() {
			rel := drift.Div(reserve)
			if rel.IsPositive() && rel.GreaterThanOrEqual(tol.Reserve) {
				return true, fmt.Sprintf("%s: reserve drift %s (balance %s, reserve %s)",
					cur, rel.StringFixed(4), balances.Get(cur), reserve)
			}
		}

		if tol.ReserveThreshold.IsPositive() && value != nil {
			if v, ok := value(cur, drift); ok && v.GreaterThanOrEqual(tol.ReserveThreshold) {
				return true, fmt.Sprintf("%s: reserve drift worth %s %s (threshold %s)",
					cur, v.StringFixed(8), tol.ReferenceCurrency, tol.ReserveThreshold)
			}
		}
	}
	return false, ""
}
