package ports

import (
	"context"
	"time"

	"github.com/qtrade-exchange/lpbot/internal/domain"
)

// ProfileStore persists the last successfully applied profile and a
// per-cycle decision log. Keeping the baseline on disk means a restart
// does not force a gratuitous first-cycle rebalance.
type ProfileStore interface {
	ApplySchema(ctx context.Context) error

	// SaveProfile replaces the stored baseline with the given profile.
	SaveProfile(ctx context.Context, p domain.Profile) error

	// LoadProfile returns the stored baseline, or nil when none exists.
	LoadProfile(ctx context.Context) (domain.Profile, error)

	// AppendCycle records one control-loop decision.
	AppendCycle(ctx context.Context, c CycleRecord) error

	// RecentCycles returns up to limit records, newest first.
	RecentCycles(ctx context.Context, limit int) ([]CycleRecord, error)

	Close() error
}

// CycleRecord is one row of the cycle decision log.
type CycleRecord struct {
	At        time.Time
	Acted     bool
	DryRun    bool
	Reason    string
	Cancelled int
	Placed    int
	Skipped   int
	// Valuation is the account's total holdings converted to the
	// reference currency, zero when no valuation was possible.
	Valuation float64
}
