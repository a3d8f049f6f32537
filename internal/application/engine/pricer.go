package engine

import (
	"github.com/shopspring/decimal"

	"github.com/qtrade-exchange/lpbot/internal/domain"
)

// LevelSize is an order level before pricing: the configured slippage and
// the currency amount committed at that level.
type LevelSize struct {
	Slippage decimal.Decimal
	Size     decimal.Decimal
}

// AllocatedOrders holds per-level sizes for both sides of one market.
type AllocatedOrders struct {
	Buy  []LevelSize
	Sell []LevelSize
}

// AllocateOrders splits a market's allocation across the configured
// interval levels. Buy sizes are denominated in base currency (what will
// be spent), sell sizes in market currency (what will be sold). Sizes are
// truncated to the relevant increment, never rounded up, so the per-side
// sum can never exceed the side's allocation.
//
// Zero-size levels are kept: "reduced to zero" must stay visible to the
// rebalance diff. They are filtered out just before placement.
func AllocateOrders(alloc domain.Allocation, intervals domain.Intervals, sizeIncrement decimal.Decimal) AllocatedOrders {
	out := AllocatedOrders{
		Buy:  make([]LevelSize, 0, len(intervals.Buy)),
		Sell: make([]LevelSize, 0, len(intervals.Sell)),
	}
	for _, lvl := range intervals.Buy {
		size := domain.QuantizeDown(alloc.BaseAmount.Mul(lvl.Ratio), domain.Coin)
		out.Buy = append(out.Buy, LevelSize{Slippage: lvl.Slippage, Size: size})
	}
	for _, lvl := range intervals.Sell {
		size := domain.QuantizeDown(alloc.MarketAmount.Mul(lvl.Ratio), sizeIncrement)
		out.Sell = append(out.Sell, LevelSize{Slippage: lvl.Slippage, Size: size})
	}
	return out
}

// PriceOrders anchors allocated levels to the current bid/ask:
// buy price = bid - bid*slippage, sell price = ask + ask*slippage.
// Slippage only ever moves prices away from the spread (buys cheaper,
// sells dearer); config validation already rejected slippage <= 0.
// Buy prices quantize down and sell prices up, keeping the placed price
// strictly outside the touch after rounding.
func PriceOrders(market string, alloc AllocatedOrders, tk domain.Ticker, info domain.MarketInfo) domain.SideOrders {
	var so domain.SideOrders
	for _, lvl := range alloc.Buy {
		price := domain.QuantizeDown(tk.Bid.Sub(tk.Bid.Mul(lvl.Slippage)), info.PriceIncrement)
		so.Buy = append(so.Buy, domain.Order{
			Market:   market,
			Side:     domain.SideBuy,
			Slippage: lvl.Slippage,
			Price:    price,
			Size:     lvl.Size,
		})
	}
	for _, lvl := range alloc.Sell {
		price := domain.QuantizeUp(tk.Ask.Add(tk.Ask.Mul(lvl.Slippage)), info.PriceIncrement)
		so.Sell = append(so.Sell, domain.Order{
			Market:   market,
			Side:     domain.SideSell,
			Slippage: lvl.Slippage,
			Price:    price,
			Size:     lvl.Size,
		})
	}
	return so
}
