package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/qtrade-exchange/lpbot/internal/domain"
)

const defaultBittrexBase = "https://api.bittrex.com/v3"

// BittrexScraper reads tickers from Bittrex's public v3 API as a second
// reference price, hedging against a thin qtrade book.
type BittrexScraper struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewBittrexScraper creates the scraper. An empty baseURL selects
// production.
func NewBittrexScraper(baseURL string) *BittrexScraper {
	if baseURL == "" {
		baseURL = defaultBittrexBase
	}
	return &BittrexScraper{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		limiter: rate.NewLimiter(5, 5),
	}
}

func (s *BittrexScraper) Name() string { return "bittrex" }

// bittrexTicker is GET /markets/{symbol}/ticker.
type bittrexTicker struct {
	Symbol        string `json:"symbol"`
	LastTradeRate string `json:"lastTradeRate"`
	BidRate       string `json:"bidRate"`
	AskRate       string `json:"askRate"`
}

// ScrapeTickers pulls one ticker per market. Markets not listed on
// Bittrex are skipped rather than failing the scrape, so a qtrade-only
// pair can still be priced from the other source.
func (s *BittrexScraper) ScrapeTickers(ctx context.Context, markets []string) (map[string]domain.Ticker, error) {
	tickers := make(map[string]domain.Ticker, len(markets))
	for _, market := range markets {
		// canonical DOGE_BTC is DOGE-BTC on Bittrex
		symbol := strings.ReplaceAll(market, "_", "-")
		tk, ok, err := s.ticker(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("feed.BittrexScraper: %s: %w", market, err)
		}
		if !ok {
			slog.Debug("market not listed on bittrex", "market", market)
			continue
		}
		tickers[market] = tk
	}
	return tickers, nil
}

func (s *BittrexScraper) ticker(ctx context.Context, symbol string) (domain.Ticker, bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return domain.Ticker{}, false, err
	}

	url := fmt.Sprintf("%s/markets/%s/ticker", s.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Ticker{}, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return domain.Ticker{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Ticker{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Ticker{}, false, fmt.Errorf("status %d", resp.StatusCode)
	}

	var wire bittrexTicker
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return domain.Ticker{}, false, fmt.Errorf("decode ticker: %w", err)
	}

	bid, err := decimal.NewFromString(wire.BidRate)
	if err != nil {
		return domain.Ticker{}, false, fmt.Errorf("bid %q: %w", wire.BidRate, err)
	}
	ask, err := decimal.NewFromString(wire.AskRate)
	if err != nil {
		return domain.Ticker{}, false, fmt.Errorf("ask %q: %w", wire.AskRate, err)
	}
	last, err := decimal.NewFromString(wire.LastTradeRate)
	if err != nil {
		return domain.Ticker{}, false, fmt.Errorf("last %q: %w", wire.LastTradeRate, err)
	}
	return domain.Ticker{Bid: bid, Ask: ask, Last: last}, true, nil
}
