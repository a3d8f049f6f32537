package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtrade-exchange/lpbot/internal/domain"
)

func singleLevelIntervals() domain.Intervals {
	return domain.Intervals{
		Buy:  []domain.IntervalLevel{{Slippage: d("0.01"), Ratio: d("1.0")}},
		Sell: []domain.IntervalLevel{{Slippage: d("0.01"), Ratio: d("1.0")}},
	}
}

func TestAllocateOrders_WorkedExample(t *testing.T) {
	// alloc (market=450, base=0.45), single level {0.01: 1.0} per side
	alloc := domain.Allocation{MarketAmount: d("450"), BaseAmount: d("0.45")}
	out := AllocateOrders(alloc, singleLevelIntervals(), d("0.01"))

	require.Len(t, out.Buy, 1)
	require.Len(t, out.Sell, 1)
	// buy size in base currency: 0.45 BTC spend
	assert.True(t, out.Buy[0].Size.Equal(d("0.45")), "buy %s", out.Buy[0].Size)
	// sell size in market currency: 450 DOGE
	assert.True(t, out.Sell[0].Size.Equal(d("450")), "sell %s", out.Sell[0].Size)
}

func TestAllocateOrders_SumNeverExceedsAllocation(t *testing.T) {
	intervals := domain.Intervals{
		Sell: []domain.IntervalLevel{
			{Slippage: d("0.01"), Ratio: d("0.333333")},
			{Slippage: d("0.02"), Ratio: d("0.333333")},
			{Slippage: d("0.05"), Ratio: d("0.333333")},
		},
	}
	alloc := domain.Allocation{MarketAmount: d("100.0007")}
	out := AllocateOrders(alloc, intervals, d("0.01"))

	sum := decimal.Zero
	for _, lvl := range out.Sell {
		sum = sum.Add(lvl.Size)
	}
	// truncation only: the quantized level sizes can lose dust but can
	// never add up past the allocation
	assert.True(t, sum.LessThanOrEqual(alloc.MarketAmount), "sum %s", sum)
}

func TestAllocateOrders_ZeroAllocationKeepsLevels(t *testing.T) {
	// zero-size levels stay in the result so the diff can see
	// "reduced to zero" as a state change
	out := AllocateOrders(domain.Allocation{}, singleLevelIntervals(), d("0.01"))
	require.Len(t, out.Buy, 1)
	require.Len(t, out.Sell, 1)
	assert.True(t, out.Buy[0].Size.IsZero())
	assert.True(t, out.Sell[0].Size.IsZero())
}

func TestPriceOrders_WorkedExample(t *testing.T) {
	// bid=0.00001, ask=0.000011, slippage 0.01:
	//   buy  = 0.00001  - 0.00001*0.01  = 0.0000099
	//   sell = 0.000011 + 0.000011*0.01 = 0.00001111
	tk := domain.Ticker{Bid: d("0.00001"), Ask: d("0.000011"), Last: d("0.0000105")}
	info := domain.MarketInfo{Market: "DOGE_BTC", PriceIncrement: d("0.00000001"), SizeIncrement: d("0.01")}
	alloc := AllocateOrders(domain.Allocation{MarketAmount: d("450"), BaseAmount: d("0.45")}, singleLevelIntervals(), info.SizeIncrement)

	so := PriceOrders("DOGE_BTC", alloc, tk, info)
	require.Len(t, so.Buy, 1)
	require.Len(t, so.Sell, 1)

	assert.True(t, so.Buy[0].Price.Equal(d("0.0000099")), "buy price %s", so.Buy[0].Price)
	assert.True(t, so.Sell[0].Price.Equal(d("0.00001111")), "sell price %s", so.Sell[0].Price)

	// buy spend 0.45 BTC resolves to 45454.54 DOGE at the order price
	assert.True(t, so.Buy[0].MarketAmount(info.SizeIncrement).Equal(d("45454.54")),
		"market amount %s", so.Buy[0].MarketAmount(info.SizeIncrement))
	assert.True(t, so.Sell[0].Size.Equal(d("450")))
}

func TestPriceOrders_AwayFromSpread(t *testing.T) {
	// for any positive slippage: buy < bid, sell > ask, rounding included
	tk := domain.Ticker{Bid: d("0.00001"), Ask: d("0.000011"), Last: d("0.0000105")}
	info := domain.MarketInfo{PriceIncrement: d("0.00000001")}

	for _, slip := range []string{"0.001", "0.01", "0.05", "0.2"} {
		intervals := domain.Intervals{
			Buy:  []domain.IntervalLevel{{Slippage: d(slip), Ratio: d("1")}},
			Sell: []domain.IntervalLevel{{Slippage: d(slip), Ratio: d("1")}},
		}
		alloc := AllocateOrders(domain.Allocation{MarketAmount: d("450"), BaseAmount: d("0.45")}, intervals, d("0.01"))
		so := PriceOrders("DOGE_BTC", alloc, tk, info)

		assert.True(t, so.Buy[0].Price.LessThan(tk.Bid), "slip %s: buy %s", slip, so.Buy[0].Price)
		assert.True(t, so.Sell[0].Price.GreaterThan(tk.Ask), "slip %s: sell %s", slip, so.Sell[0].Price)
	}
}

func TestPriceOrders_QuantizedToPriceIncrement(t *testing.T) {
	tk := domain.Ticker{Bid: d("0.00001003"), Ask: d("0.00001107"), Last: d("0.0000105")}
	info := domain.MarketInfo{PriceIncrement: d("0.0000001")}
	alloc := AllocateOrders(domain.Allocation{MarketAmount: d("450"), BaseAmount: d("0.45")}, singleLevelIntervals(), d("0.01"))

	so := PriceOrders("DOGE_BTC", alloc, tk, info)
	// raw buy 0.0000099297 → down to 0.0000099; raw sell 0.0000111807 → up to 0.0000112
	assert.True(t, so.Buy[0].Price.Equal(d("0.0000099")), "buy %s", so.Buy[0].Price)
	assert.True(t, so.Sell[0].Price.Equal(d("0.0000112")), "sell %s", so.Sell[0].Price)
}
