package domain

import "sort"

// SideOrders holds the target orders of one market, one ordered list per
// side. Order within a list follows the configured interval levels, so the
// same index on consecutive cycles refers to the same slippage level.
type SideOrders struct {
	Buy  []Order
	Sell []Order
}

// Profile is the full target order book the controller wants resting at a
// point in time, keyed by market. A profile is computed from scratch every
// cycle and is immutable once produced: it is either discarded (no
// rebalance) or becomes the baseline after a fully successful execution.
type Profile map[string]SideOrders

// OrderCount returns the total number of levels across all markets and
// sides, zero-size levels included.
func (p Profile) OrderCount() int {
	n := 0
	for _, so := range p {
		n += len(so.Buy) + len(so.Sell)
	}
	return n
}

// NonZeroOrders returns the orders that would actually be placed: zero-size
// levels are carried through the profile for diffing but filtered out here,
// immediately before placement.
func (p Profile) NonZeroOrders() []Order {
	var out []Order
	for _, market := range p.Markets() {
		so := p[market]
		for _, o := range so.Buy {
			if o.Size.IsPositive() {
				out = append(out, o)
			}
		}
		for _, o := range so.Sell {
			if o.Size.IsPositive() {
				out = append(out, o)
			}
		}
	}
	return out
}

// Markets returns the profile's market keys in sorted order, so iteration
// and placement order are deterministic.
func (p Profile) Markets() []string {
	keys := make([]string, 0, len(p))
	for m := range p {
		keys = append(keys, m)
	}
	sort.Strings(keys)
	return keys
}
