package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qtrade-exchange/lpbot/internal/domain"
	"github.com/qtrade-exchange/lpbot/internal/ports"
)

// Collector polls every configured scraper on a fixed period and keeps
// the latest snapshot per source. Served tickers are the per-field
// average across the sources that currently quote the market, which
// smooths a thin book on any single source.
type Collector struct {
	scrapers []Scraper
	markets  []string
	period   time.Duration

	mu        sync.RWMutex
	snapshots map[string]map[string]domain.Ticker // source → market → ticker
	warm      bool
}

var _ ports.PriceFeed = (*Collector)(nil)

// NewCollector builds a collector over the given sources for a fixed
// market list.
func NewCollector(scrapers []Scraper, markets []string, period time.Duration) *Collector {
	return &Collector{
		scrapers:  scrapers,
		markets:   markets,
		period:    period,
		snapshots: make(map[string]map[string]domain.Ticker),
	}
}

// Run polls until the context is cancelled. The first refresh happens
// immediately so warm-up does not wait a full period.
func (c *Collector) Run(ctx context.Context) {
	c.Refresh(ctx)
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Refresh scrapes every source once. A failing source keeps its previous
// snapshot; the collector becomes warm once any source has delivered.
func (c *Collector) Refresh(ctx context.Context) {
	for _, s := range c.scrapers {
		tickers, err := s.ScrapeTickers(ctx, c.markets)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("price source scrape failed", "source", s.Name(), "error", err)
			continue
		}
		c.mu.Lock()
		c.snapshots[s.Name()] = tickers
		c.warm = true
		c.mu.Unlock()
	}
}

// Warm reports whether at least one source has delivered a snapshot.
func (c *Collector) Warm() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warm
}

// Ticker returns the averaged ticker for a market. The second return is
// false until some source quotes the market with a usable spread.
func (c *Collector) Ticker(market string) (domain.Ticker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var bid, ask, last decimal.Decimal
	n := 0
	for _, tickers := range c.snapshots {
		tk, ok := tickers[market]
		if !ok || !tk.Valid() {
			continue
		}
		bid = bid.Add(tk.Bid)
		ask = ask.Add(tk.Ask)
		last = last.Add(tk.Last)
		n++
	}
	if n == 0 {
		return domain.Ticker{}, false
	}
	count := decimal.NewFromInt(int64(n))
	return domain.Ticker{
		Bid:  bid.Div(count),
		Ask:  ask.Div(count),
		Last: last.Div(count),
	}, true
}
