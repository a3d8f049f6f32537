package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtrade-exchange/lpbot/internal/adapters/storage"
	"github.com/qtrade-exchange/lpbot/internal/domain"
	"github.com/qtrade-exchange/lpbot/internal/ports"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func openStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.ApplySchema(context.Background()))
	return db
}

func makeProfile() domain.Profile {
	return domain.Profile{
		"DOGE_BTC": {
			Buy: []domain.Order{
				{Market: "DOGE_BTC", Side: domain.SideBuy, Slippage: d("0.01"), Price: d("0.00000099"), Size: d("0.2")},
				{Market: "DOGE_BTC", Side: domain.SideBuy, Slippage: d("0.02"), Price: d("0.00000098"), Size: d("0.15")},
			},
			Sell: []domain.Order{
				{Market: "DOGE_BTC", Side: domain.SideSell, Slippage: d("0.01"), Price: d("0.00000112"), Size: d("300")},
				// zero-size levels survive the round trip
				{Market: "DOGE_BTC", Side: domain.SideSell, Slippage: d("0.05"), Price: d("0.00000118"), Size: d("0")},
			},
		},
	}
}

func TestLoadProfile_EmptyStoreReturnsNil(t *testing.T) {
	db := openStore(t)

	p, err := db.LoadProfile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSaveProfile_RoundTrip(t *testing.T) {
	db := openStore(t)
	saved := makeProfile()

	require.NoError(t, db.SaveProfile(context.Background(), saved))
	loaded, err := db.LoadProfile(context.Background())
	require.NoError(t, err)

	require.Len(t, loaded, 1)
	so := loaded["DOGE_BTC"]
	require.Len(t, so.Buy, 2)
	require.Len(t, so.Sell, 2)

	// level order preserved, prices exact
	assert.True(t, so.Buy[0].Price.Equal(d("0.00000099")))
	assert.True(t, so.Buy[1].Slippage.Equal(d("0.02")))
	assert.True(t, so.Sell[0].Size.Equal(d("300")))
	assert.True(t, so.Sell[1].Size.IsZero())
	assert.Equal(t, domain.SideSell, so.Sell[1].Side)
}

func TestSaveProfile_ReplacesPrevious(t *testing.T) {
	db := openStore(t)
	require.NoError(t, db.SaveProfile(context.Background(), makeProfile()))

	next := domain.Profile{
		"LTC_BTC": {
			Buy: []domain.Order{
				{Market: "LTC_BTC", Side: domain.SideBuy, Slippage: d("0.01"), Price: d("0.0015"), Size: d("0.1")},
			},
		},
	}
	require.NoError(t, db.SaveProfile(context.Background(), next))

	loaded, err := db.LoadProfile(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	_, hasOld := loaded["DOGE_BTC"]
	assert.False(t, hasOld)
}

func TestAppendCycle_RecentCyclesNewestFirst(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()
	base := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.AppendCycle(ctx, ports.CycleRecord{
			At:     base.Add(time.Duration(i) * time.Minute),
			Acted:  i == 2,
			Reason: "test",
			Placed: i,
		}))
	}

	got, err := db.RecentCycles(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Acted)
	assert.Equal(t, 2, got[0].Placed)
	assert.Equal(t, 1, got[1].Placed)
}
