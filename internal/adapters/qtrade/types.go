package qtrade

// types.go — wire types for the qtrade REST API.

// wireBalance is one entry of /v1/user/balances_all.
type wireBalance struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

// balancesData is the data payload of GET /v1/user/balances_all.
// order_balances holds the amounts currently locked in open orders.
type balancesData struct {
	Balances      []wireBalance `json:"balances"`
	OrderBalances []wireBalance `json:"order_balances"`
}

// wireMarket is one entry of GET /v1/markets.
type wireMarket struct {
	ID             int    `json:"id"`
	MarketCurrency string `json:"market_currency"`
	BaseCurrency   string `json:"base_currency"`
	PriceInterval  string `json:"price_interval"`
	MarketInterval string `json:"market_interval"`
	TakerFee       string `json:"taker_fee"`
	CanTrade       bool   `json:"can_trade"`
	CanCancel      bool   `json:"can_cancel"`
}

type marketsData struct {
	Markets []wireMarket `json:"markets"`
}

// wireOrder is one entry of GET /v1/user/orders.
type wireOrder struct {
	ID                    int    `json:"id"`
	MarketID              int    `json:"market_id"`
	OrderType             string `json:"order_type"` // buy_limit | sell_limit
	Open                  bool   `json:"open"`
	Price                 string `json:"price"`
	MarketAmount          string `json:"market_amount"`
	MarketAmountRemaining string `json:"market_amount_remaining"`
	CreatedAt             string `json:"created_at"`
}

type ordersData struct {
	Orders []wireOrder `json:"orders"`
}

// placeOrderRequest is the body of POST /v1/user/{buy,sell}_limit.
// amount is always denominated in market currency.
type placeOrderRequest struct {
	MarketID int    `json:"market_id"`
	Price    string `json:"price"`
	Amount   string `json:"amount"`
}

type placeOrderData struct {
	Order wireOrder `json:"order"`
}

// cancelOrderRequest is the body of POST /v1/user/cancel_order.
type cancelOrderRequest struct {
	ID int `json:"id"`
}
