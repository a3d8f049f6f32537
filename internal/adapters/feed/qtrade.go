package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qtrade-exchange/lpbot/internal/adapters/qtrade"
	"github.com/qtrade-exchange/lpbot/internal/domain"
)

// QTradeScraper reads tickers from qtrade's public API.
type QTradeScraper struct {
	client *qtrade.Client
}

// NewQTradeScraper wraps a qtrade client as a price source.
func NewQTradeScraper(client *qtrade.Client) *QTradeScraper {
	return &QTradeScraper{client: client}
}

func (s *QTradeScraper) Name() string { return "qtrade" }

// ScrapeTickers pulls one ticker per market. A single failing market
// fails the whole scrape; the collector keeps serving the last snapshot.
func (s *QTradeScraper) ScrapeTickers(ctx context.Context, markets []string) (map[string]domain.Ticker, error) {
	tickers := make(map[string]domain.Ticker, len(markets))
	for _, market := range markets {
		tk, err := s.client.Ticker(ctx, market)
		if err != nil {
			return nil, fmt.Errorf("feed.QTradeScraper: %w", err)
		}
		slog.Debug("scraped ticker", "source", s.Name(), "market", market,
			"bid", tk.Bid, "ask", tk.Ask, "last", tk.Last)
		tickers[market] = tk
	}
	return tickers, nil
}
