package feed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtrade-exchange/lpbot/internal/adapters/feed"
	"github.com/qtrade-exchange/lpbot/internal/adapters/qtrade"
	"github.com/qtrade-exchange/lpbot/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeScraper struct {
	name    string
	tickers map[string]domain.Ticker
	err     error
	calls   int
}

func (f *fakeScraper) Name() string { return f.name }

func (f *fakeScraper) ScrapeTickers(ctx context.Context, markets []string) (map[string]domain.Ticker, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tickers, nil
}

func TestCollector_AveragesAcrossSources(t *testing.T) {
	a := &fakeScraper{name: "qtrade", tickers: map[string]domain.Ticker{
		"DOGE_BTC": {Bid: d("0.00000100"), Ask: d("0.00000110"), Last: d("0.00000105")},
	}}
	b := &fakeScraper{name: "bittrex", tickers: map[string]domain.Ticker{
		"DOGE_BTC": {Bid: d("0.00000102"), Ask: d("0.00000112"), Last: d("0.00000107")},
	}}

	c := feed.NewCollector([]feed.Scraper{a, b}, []string{"DOGE_BTC"}, time.Second)
	assert.False(t, c.Warm())

	c.Refresh(context.Background())
	require.True(t, c.Warm())

	tk, ok := c.Ticker("DOGE_BTC")
	require.True(t, ok)
	assert.True(t, tk.Bid.Equal(d("0.00000101")), "bid %s", tk.Bid)
	assert.True(t, tk.Ask.Equal(d("0.00000111")), "ask %s", tk.Ask)
	assert.True(t, tk.Last.Equal(d("0.00000106")), "last %s", tk.Last)
}

func TestCollector_SingleSourcePassesThrough(t *testing.T) {
	a := &fakeScraper{name: "qtrade", tickers: map[string]domain.Ticker{
		"DOGE_BTC": {Bid: d("0.00000100"), Ask: d("0.00000110"), Last: d("0.00000105")},
	}}

	c := feed.NewCollector([]feed.Scraper{a}, []string{"DOGE_BTC"}, time.Second)
	c.Refresh(context.Background())

	tk, ok := c.Ticker("DOGE_BTC")
	require.True(t, ok)
	assert.True(t, tk.Bid.Equal(d("0.00000100")))
}

func TestCollector_FailingSourceKeepsLastSnapshot(t *testing.T) {
	a := &fakeScraper{name: "qtrade", tickers: map[string]domain.Ticker{
		"DOGE_BTC": {Bid: d("0.00000100"), Ask: d("0.00000110"), Last: d("0.00000105")},
	}}

	c := feed.NewCollector([]feed.Scraper{a}, []string{"DOGE_BTC"}, time.Second)
	c.Refresh(context.Background())
	require.True(t, c.Warm())

	a.err = errors.New("connection refused")
	c.Refresh(context.Background())

	tk, ok := c.Ticker("DOGE_BTC")
	require.True(t, ok)
	assert.True(t, tk.Bid.Equal(d("0.00000100")))
	assert.True(t, c.Warm())
}

func TestCollector_UnknownMarket(t *testing.T) {
	c := feed.NewCollector(nil, nil, time.Second)
	_, ok := c.Ticker("LTC_BTC")
	assert.False(t, ok)
}

func TestCollector_SkipsInvalidTickers(t *testing.T) {
	// one-sided book: no ask, so the ticker is unusable for pricing
	a := &fakeScraper{name: "qtrade", tickers: map[string]domain.Ticker{
		"DOGE_BTC": {Bid: d("0.00000100"), Last: d("0.00000105")},
	}}

	c := feed.NewCollector([]feed.Scraper{a}, []string{"DOGE_BTC"}, time.Second)
	c.Refresh(context.Background())

	_, ok := c.Ticker("DOGE_BTC")
	assert.False(t, ok)
}

func TestQTradeScraper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/ticker/DOGE_BTC", r.URL.Path)
		w.Write([]byte(`{"data": {"bid": "0.00000100", "ask": "0.00000110", "last": "0.00000105"}}`))
	}))
	defer srv.Close()

	s := feed.NewQTradeScraper(qtrade.NewClient(srv.URL, nil))
	tickers, err := s.ScrapeTickers(context.Background(), []string{"DOGE_BTC"})

	require.NoError(t, err)
	require.Len(t, tickers, 1)
	assert.True(t, tickers["DOGE_BTC"].Bid.Equal(d("0.00000100")))
	assert.True(t, tickers["DOGE_BTC"].Ask.Equal(d("0.00000110")))
}

func TestBittrexScraper_TranslatesSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets/DOGE-BTC/ticker":
			w.Write([]byte(`{"symbol": "DOGE-BTC", "lastTradeRate": "0.00000107", "bidRate": "0.00000102", "askRate": "0.00000112"}`))
		case "/markets/OBSCURE-BTC/ticker":
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	s := feed.NewBittrexScraper(srv.URL)
	tickers, err := s.ScrapeTickers(context.Background(), []string{"DOGE_BTC", "OBSCURE_BTC"})

	require.NoError(t, err)
	// unlisted market skipped, not fatal
	require.Len(t, tickers, 1)
	assert.True(t, tickers["DOGE_BTC"].Last.Equal(d("0.00000107")))
}
