package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtrade-exchange/lpbot/internal/domain"
)

// fakeExchange records calls and lets tests script rejections.
type fakeExchange struct {
	balances   domain.AccountBalances
	markets    map[string]domain.MarketInfo
	open       []domain.Order
	cancelAll  int
	cancelled  []string
	placed     []domain.Order
	rejectWith map[string]error // keyed by order price string
}

func (f *fakeExchange) Balances(ctx context.Context) (domain.AccountBalances, error) {
	return f.balances, nil
}

func (f *fakeExchange) Markets(ctx context.Context) (map[string]domain.MarketInfo, error) {
	return f.markets, nil
}

func (f *fakeExchange) OpenOrders(ctx context.Context) ([]domain.Order, error) {
	return f.open, nil
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	if err, ok := f.rejectWith[o.Price.String()]; ok {
		return domain.Order{}, err
	}
	o.ID = "ex-" + o.ClientID
	f.placed = append(f.placed, o)
	return o, nil
}

func (f *fakeExchange) CancelOrder(ctx context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeExchange) CancelAll(ctx context.Context) error {
	f.cancelAll++
	return nil
}

func targetProfile() domain.Profile {
	return domain.Profile{
		"DOGE_BTC": {
			Buy: []domain.Order{
				{Market: "DOGE_BTC", Side: domain.SideBuy, Price: d("0.0000099"), Size: d("0.45")},
				{Market: "DOGE_BTC", Side: domain.SideBuy, Price: d("0.0000098"), Size: d("0")},
			},
			Sell: []domain.Order{
				{Market: "DOGE_BTC", Side: domain.SideSell, Price: d("0.00001111"), Size: d("450")},
			},
		},
	}
}

func liveOrders() []domain.Order {
	return []domain.Order{
		{Market: "DOGE_BTC", Side: domain.SideBuy, ID: "old-1", Price: d("0.0000097"), Size: d("0.4")},
		{Market: "DOGE_BTC", Side: domain.SideSell, ID: "old-2", Price: d("0.0000112"), Size: d("400")},
	}
}

func TestApply_DryRunIssuesZeroExchangeCalls(t *testing.T) {
	fx := &fakeExchange{}
	ex := NewExecutor(fx, true, ReplaceAll)

	result, err := ex.Apply(context.Background(), targetProfile(), liveOrders())
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.False(t, result.Applied)
	assert.Zero(t, fx.cancelAll)
	assert.Empty(t, fx.cancelled)
	assert.Empty(t, fx.placed)
}

func TestApply_ReplaceAll(t *testing.T) {
	fx := &fakeExchange{}
	ex := NewExecutor(fx, false, ReplaceAll)

	result, err := ex.Apply(context.Background(), targetProfile(), liveOrders())
	require.NoError(t, err)

	assert.True(t, result.Applied)
	assert.Equal(t, 1, fx.cancelAll)
	assert.Equal(t, 2, result.Cancelled)
	// the zero-size buy level is filtered just before placement
	assert.Equal(t, 2, result.Placed)
	require.Len(t, fx.placed, 2)
	for _, o := range fx.placed {
		assert.NotEmpty(t, o.ClientID)
		assert.NotEmpty(t, o.ID)
	}
}

func TestApply_NoLiveOrdersSkipsCancellation(t *testing.T) {
	fx := &fakeExchange{}
	ex := NewExecutor(fx, false, ReplaceAll)

	result, err := ex.Apply(context.Background(), targetProfile(), nil)
	require.NoError(t, err)
	assert.Zero(t, fx.cancelAll)
	assert.Equal(t, 2, result.Placed)
}

func TestApply_BenignRejectionSkipsSingleOrder(t *testing.T) {
	fx := &fakeExchange{rejectWith: map[string]error{
		"0.0000099": &domain.OrderRejectedError{Reason: domain.RejectTakerPrevention, Code: "taker_denied"},
	}}
	ex := NewExecutor(fx, false, ReplaceAll)

	result, err := ex.Apply(context.Background(), targetProfile(), nil)
	require.NoError(t, err)

	assert.True(t, result.Applied)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Placed)
}

func TestApply_FatalRejectionAbortsBatch(t *testing.T) {
	// the buy at 0.0000099 is placed first; the sell then fails hard
	fx := &fakeExchange{rejectWith: map[string]error{
		"0.00001111": &domain.OrderRejectedError{Reason: domain.RejectOther, Code: "insufficient_funds"},
	}}
	ex := NewExecutor(fx, false, ReplaceAll)

	result, err := ex.Apply(context.Background(), targetProfile(), nil)
	require.Error(t, err)

	assert.False(t, result.Applied, "partial execution must not advance the baseline")
	assert.Equal(t, 1, result.Placed)
}

func TestApply_ReplaceMarketCancelsPerMarket(t *testing.T) {
	fx := &fakeExchange{}
	ex := NewExecutor(fx, false, ReplaceMarket)

	result, err := ex.Apply(context.Background(), targetProfile(), liveOrders())
	require.NoError(t, err)

	assert.True(t, result.Applied)
	assert.Zero(t, fx.cancelAll)
	assert.ElementsMatch(t, []string{"old-1", "old-2"}, fx.cancelled)
	assert.Equal(t, 2, result.Placed)
}

func TestApply_ReplaceMarketCancelsStaleMarkets(t *testing.T) {
	stale := domain.Order{Market: "LTC_BTC", Side: domain.SideSell, ID: "stale-1", Price: d("0.002"), Size: d("3")}
	fx := &fakeExchange{}
	ex := NewExecutor(fx, false, ReplaceMarket)

	result, err := ex.Apply(context.Background(), targetProfile(), append(liveOrders(), stale))
	require.NoError(t, err)
	assert.Contains(t, fx.cancelled, "stale-1")
	assert.Equal(t, 3, result.Cancelled)
}

func TestApply_ShutdownBeforeCancellationDoesNotStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fx := &fakeExchange{}
	ex := NewExecutor(fx, false, ReplaceAll)

	_, err := ex.Apply(ctx, targetProfile(), liveOrders())
	require.Error(t, err)
	assert.Zero(t, fx.cancelAll)
	assert.Empty(t, fx.placed)
}
