package qtrade

import (
	"context"
	"fmt"

	"github.com/qtrade-exchange/lpbot/internal/domain"
)

// wireTicker is the data payload of GET /v1/ticker/{market}.
type wireTicker struct {
	Bid  string `json:"bid"`
	Ask  string `json:"ask"`
	Last string `json:"last"`
}

// Ticker fetches the public ticker for a canonical "MARKET_BASE" pair.
// Sides with no resting orders come back as zero.
func (c *Client) Ticker(ctx context.Context, market string) (domain.Ticker, error) {
	var data wireTicker
	if err := c.get(ctx, "/v1/ticker/"+market, false, &data); err != nil {
		return domain.Ticker{}, fmt.Errorf("qtrade.Ticker: %s: %w", market, err)
	}

	bid, err := parseOptionalDecimal(data.Bid)
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("qtrade.Ticker: %s bid %q: %w", market, data.Bid, err)
	}
	ask, err := parseOptionalDecimal(data.Ask)
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("qtrade.Ticker: %s ask %q: %w", market, data.Ask, err)
	}
	last, err := parseOptionalDecimal(data.Last)
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("qtrade.Ticker: %s last %q: %w", market, data.Last, err)
	}
	return domain.Ticker{Bid: bid, Ask: ask, Last: last}, nil
}
