package qtrade

// exchange.go — ports.Exchange implementation on top of the qtrade REST
// API. The market map is fetched once and cached; order placement and
// open-order listing resolve market ids through the cache.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/qtrade-exchange/lpbot/internal/domain"
	"github.com/qtrade-exchange/lpbot/internal/ports"
)

// Rejection codes that mean the order would have crossed the spread and
// taken liquidity. The bot only rests maker orders, so these are
// expected whenever the reference price moved between pricing and
// placement.
var takerPreventionCodes = map[string]bool{
	"taker_denied":    true,
	"max_above_taker": true,
}

// Exchange talks to qtrade and implements ports.Exchange.
type Exchange struct {
	client *Client

	mu       sync.RWMutex
	byMarket map[string]domain.MarketInfo
	byID     map[int]domain.MarketInfo
}

var _ ports.Exchange = (*Exchange)(nil)

// NewExchange wraps client as a ports.Exchange.
func NewExchange(client *Client) *Exchange {
	return &Exchange{client: client}
}

// Balances returns available funds and the total including amounts
// locked in open orders, merged per currency.
func (e *Exchange) Balances(ctx context.Context) (domain.AccountBalances, error) {
	var data balancesData
	if err := e.client.get(ctx, "/v1/user/balances_all", true, &data); err != nil {
		return domain.AccountBalances{}, fmt.Errorf("qtrade.Balances: %w", err)
	}

	out := domain.AccountBalances{
		Available: domain.Balances{},
		Total:     domain.Balances{},
	}
	for _, b := range data.Balances {
		amount, err := decimal.NewFromString(b.Balance)
		if err != nil {
			return domain.AccountBalances{}, fmt.Errorf("qtrade.Balances: parse %s balance %q: %w", b.Currency, b.Balance, err)
		}
		out.Available.Add(b.Currency, amount)
		out.Total.Add(b.Currency, amount)
	}
	for _, b := range data.OrderBalances {
		amount, err := decimal.NewFromString(b.Balance)
		if err != nil {
			return domain.AccountBalances{}, fmt.Errorf("qtrade.Balances: parse %s order balance %q: %w", b.Currency, b.Balance, err)
		}
		out.Total.Add(b.Currency, amount)
	}
	return out, nil
}

// Markets fetches the exchange's market list and returns it keyed by
// the canonical "MARKET_BASE" string. The result is also cached for id
// resolution in OpenOrders and PlaceOrder.
func (e *Exchange) Markets(ctx context.Context) (map[string]domain.MarketInfo, error) {
	var data marketsData
	if err := e.client.get(ctx, "/v1/markets", false, &data); err != nil {
		return nil, fmt.Errorf("qtrade.Markets: %w", err)
	}

	byMarket := make(map[string]domain.MarketInfo, len(data.Markets))
	byID := make(map[int]domain.MarketInfo, len(data.Markets))
	for _, m := range data.Markets {
		info, err := m.toDomain()
		if err != nil {
			return nil, fmt.Errorf("qtrade.Markets: %w", err)
		}
		byMarket[info.Market] = info
		byID[info.ID] = info
	}

	e.mu.Lock()
	e.byMarket = byMarket
	e.byID = byID
	e.mu.Unlock()

	return byMarket, nil
}

func (m wireMarket) toDomain() (domain.MarketInfo, error) {
	market := m.MarketCurrency + "_" + m.BaseCurrency
	priceInc, err := parseOptionalDecimal(m.PriceInterval)
	if err != nil {
		return domain.MarketInfo{}, fmt.Errorf("market %s price_interval: %w", market, err)
	}
	sizeInc, err := parseOptionalDecimal(m.MarketInterval)
	if err != nil {
		return domain.MarketInfo{}, fmt.Errorf("market %s market_interval: %w", market, err)
	}
	takerFee, err := parseOptionalDecimal(m.TakerFee)
	if err != nil {
		return domain.MarketInfo{}, fmt.Errorf("market %s taker_fee: %w", market, err)
	}
	return domain.MarketInfo{
		ID:             m.ID,
		Market:         market,
		MarketCurrency: m.MarketCurrency,
		BaseCurrency:   m.BaseCurrency,
		PriceIncrement: priceInc,
		SizeIncrement:  sizeInc,
		TakerFee:       takerFee,
		CanTrade:       m.CanTrade,
	}, nil
}

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// OpenOrders returns the account's resting orders. Sizes come back in
// market currency for both sides; buy sizes are converted to base spend
// so they compare against profile orders directly.
func (e *Exchange) OpenOrders(ctx context.Context) ([]domain.Order, error) {
	var data ordersData
	if err := e.client.get(ctx, "/v1/user/orders", true, &data); err != nil {
		return nil, fmt.Errorf("qtrade.OpenOrders: %w", err)
	}

	var orders []domain.Order
	for _, o := range data.Orders {
		if !o.Open {
			continue
		}
		order, err := e.toDomainOrder(ctx, o)
		if err != nil {
			return nil, fmt.Errorf("qtrade.OpenOrders: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (e *Exchange) toDomainOrder(ctx context.Context, o wireOrder) (domain.Order, error) {
	info, err := e.marketByID(ctx, o.MarketID)
	if err != nil {
		return domain.Order{}, err
	}
	price, err := decimal.NewFromString(o.Price)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %d price %q: %w", o.ID, o.Price, err)
	}
	remaining, err := decimal.NewFromString(o.MarketAmountRemaining)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %d remaining %q: %w", o.ID, o.MarketAmountRemaining, err)
	}

	order := domain.Order{
		Market: info.Market,
		Price:  price,
		ID:     strconv.Itoa(o.ID),
		Active: true,
	}
	switch o.OrderType {
	case "buy_limit":
		order.Side = domain.SideBuy
		order.Size = price.Mul(remaining) // base spend still committed
	case "sell_limit":
		order.Side = domain.SideSell
		order.Size = remaining
	default:
		return domain.Order{}, fmt.Errorf("order %d: unknown order_type %q", o.ID, o.OrderType)
	}
	return order, nil
}

// PlaceOrder submits a limit order. A 400 rejection is translated to
// *domain.OrderRejectedError so callers can branch on the kind.
func (e *Exchange) PlaceOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	info, err := e.marketByName(ctx, order.Market)
	if err != nil {
		return domain.Order{}, fmt.Errorf("qtrade.PlaceOrder: %w", err)
	}

	path := "/v1/user/sell_limit"
	if order.Side == domain.SideBuy {
		path = "/v1/user/buy_limit"
	}
	req := placeOrderRequest{
		MarketID: info.ID,
		Price:    order.Price.String(),
		Amount:   order.MarketAmount(info.SizeIncrement).String(),
	}

	var data placeOrderData
	if err := e.client.post(ctx, path, req, &data); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == 400 {
			return domain.Order{}, &domain.OrderRejectedError{
				Reason:  classifyRejection(apiErr.Code),
				Code:    apiErr.Code,
				Message: apiErr.Title,
			}
		}
		return domain.Order{}, fmt.Errorf("qtrade.PlaceOrder: %w", err)
	}

	order.ID = strconv.Itoa(data.Order.ID)
	order.Active = true
	slog.Debug("order placed", "id", order.ID, "order", order.String())
	return order, nil
}

func classifyRejection(code string) domain.RejectReason {
	if takerPreventionCodes[code] {
		return domain.RejectTakerPrevention
	}
	return domain.RejectOther
}

// CancelOrder cancels one order by its exchange id.
func (e *Exchange) CancelOrder(ctx context.Context, id string) error {
	numeric, err := strconv.Atoi(id)
	if err != nil {
		return fmt.Errorf("qtrade.CancelOrder: non-numeric order id %q", id)
	}
	if err := e.client.post(ctx, "/v1/user/cancel_order", cancelOrderRequest{ID: numeric}, nil); err != nil {
		return fmt.Errorf("qtrade.CancelOrder: id %s: %w", id, err)
	}
	return nil
}

// CancelAll cancels every open order of the account in one call.
func (e *Exchange) CancelAll(ctx context.Context) error {
	if err := e.client.post(ctx, "/v1/user/cancel_all_orders", struct{}{}, nil); err != nil {
		return fmt.Errorf("qtrade.CancelAll: %w", err)
	}
	return nil
}

func (e *Exchange) marketByID(ctx context.Context, id int) (domain.MarketInfo, error) {
	e.mu.RLock()
	info, ok := e.byID[id]
	e.mu.RUnlock()
	if ok {
		return info, nil
	}
	if _, err := e.Markets(ctx); err != nil {
		return domain.MarketInfo{}, err
	}
	e.mu.RLock()
	info, ok = e.byID[id]
	e.mu.RUnlock()
	if !ok {
		return domain.MarketInfo{}, fmt.Errorf("unknown market id %d", id)
	}
	return info, nil
}

func (e *Exchange) marketByName(ctx context.Context, market string) (domain.MarketInfo, error) {
	e.mu.RLock()
	info, ok := e.byMarket[market]
	e.mu.RUnlock()
	if ok {
		return info, nil
	}
	if _, err := e.Markets(ctx); err != nil {
		return domain.MarketInfo{}, err
	}
	e.mu.RLock()
	info, ok = e.byMarket[market]
	e.mu.RUnlock()
	if !ok {
		return domain.MarketInfo{}, fmt.Errorf("unknown market %s", market)
	}
	return info, nil
}
