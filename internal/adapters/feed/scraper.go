// Package feed collects reference prices from one or more public ticker
// sources and serves averaged snapshots to the pricing engine.
package feed

import (
	"context"

	"github.com/qtrade-exchange/lpbot/internal/domain"
)

// Scraper pulls tickers for a set of markets from one price source.
// Market keys are canonical "MARKET_BASE" strings regardless of the
// source's own pair notation.
type Scraper interface {
	Name() string
	ScrapeTickers(ctx context.Context, markets []string) (map[string]domain.Ticker, error)
}
