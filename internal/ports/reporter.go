package ports

import (
	"context"

	"github.com/qtrade-exchange/lpbot/internal/domain"
	"github.com/shopspring/decimal"
)

// Reporter presents per-cycle outcomes to the operator. This is an
// observability side channel, not part of the control contract.
type Reporter interface {
	// Cycle reports one control-loop decision and its execution outcome.
	Cycle(ctx context.Context, r CycleReport) error

	// Valuation prints the periodic holdings summary.
	Valuation(ctx context.Context, rows []ValuationRow, total decimal.Decimal, currency string) error
}

// CycleReport is everything one cycle produced.
type CycleReport struct {
	Acted     bool
	DryRun    bool
	Reason    string
	Profile   domain.Profile
	Cancelled int
	Placed    int
	Skipped   int
}

// ValuationRow is one currency's holdings converted to the reference
// currency.
type ValuationRow struct {
	Currency string
	Amount   decimal.Decimal
	Value    decimal.Decimal
}
