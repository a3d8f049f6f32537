package ports

import (
	"context"

	"github.com/qtrade-exchange/lpbot/internal/domain"
)

// Exchange is the trading capability consumed from the exchange API
// client. Order rejections surface as *domain.OrderRejectedError so the
// engine can branch on the rejection kind instead of error text.
type Exchange interface {
	// Balances returns the account's funds, both the spendable part and
	// the total including amounts locked in open orders.
	Balances(ctx context.Context) (domain.AccountBalances, error)

	// Markets returns the exchange's market map keyed by the canonical
	// "MARKET_BASE" pair string.
	Markets(ctx context.Context) (map[string]domain.MarketInfo, error)

	// OpenOrders returns every order of this account currently resting
	// on the exchange.
	OpenOrders(ctx context.Context) ([]domain.Order, error)

	// PlaceOrder submits a limit order and returns it with the exchange
	// order id filled in.
	PlaceOrder(ctx context.Context, order domain.Order) (domain.Order, error)

	// CancelOrder cancels one order by exchange id. Cancellation is
	// acknowledged by the exchange before the call returns.
	CancelOrder(ctx context.Context, id string) error

	// CancelAll cancels every open order of this account.
	CancelAll(ctx context.Context) error
}
