package ports

import "github.com/qtrade-exchange/lpbot/internal/domain"

// PriceFeed exposes the most recent known price snapshot per market,
// produced by an independently scheduled collector. There is no freshness
// guarantee beyond "updated at least once since warm-up completed": the
// consumer must tolerate stale-but-present data and never block on it.
type PriceFeed interface {
	// Ticker returns the latest snapshot for a market and whether one
	// exists yet.
	Ticker(market string) (domain.Ticker, bool)

	// Warm reports whether at least one configured source has reported.
	Warm() bool
}
