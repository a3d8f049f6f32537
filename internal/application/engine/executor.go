package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/qtrade-exchange/lpbot/internal/domain"
	"github.com/qtrade-exchange/lpbot/internal/ports"
)

// Replace modes. "all" cancels every resting order before placing
// anything, which is the widest window where no liquidity rests.
// "market" narrows that window by cancelling and replacing one market at
// a time.
const (
	ReplaceAll    = "all"
	ReplaceMarket = "market"
)

// Executor transitions the live order set to an approved target profile.
type Executor struct {
	exchange    ports.Exchange
	dryRun      bool
	replaceMode string
}

// NewExecutor builds an Executor. An unknown replaceMode falls back to
// ReplaceAll; config validation rejects it earlier in normal operation.
func NewExecutor(exchange ports.Exchange, dryRun bool, replaceMode string) *Executor {
	if replaceMode != ReplaceMarket {
		replaceMode = ReplaceAll
	}
	return &Executor{exchange: exchange, dryRun: dryRun, replaceMode: replaceMode}
}

// ApplyResult summarizes one execution pass.
type ApplyResult struct {
	DryRun    bool
	Applied   bool // full success: the profile may become the new baseline
	Cancelled int
	Placed    int
	Skipped   int // benign rejections
}

// Apply cancels the currently-resting orders and places the target set.
//
// Cancellation fully completes (by exchange acknowledgement) before
// placement begins within each replace scope, so old and new orders never
// rest at once and allocated funds are never exceeded. Between full
// cancellation and full placement no liquidity rests — an accepted risk
// of the design, bounded by replaceMode.
//
// A benign taker-prevention rejection skips that single order; any other
// rejection aborts the remaining placements, leaving the book partially
// rebalanced until the next cycle re-evaluates from the old baseline.
//
// In dry-run mode this is a terminal branch: intended actions are logged
// and zero exchange calls are made.
func (ex *Executor) Apply(ctx context.Context, profile domain.Profile, live []domain.Order) (ApplyResult, error) {
	result := ApplyResult{DryRun: ex.dryRun}

	if ex.dryRun {
		slog.Info("executor: dry run, no exchange mutation",
			"would_cancel", len(live), "would_place", len(profile.NonZeroOrders()))
		for _, o := range live {
			slog.Info("executor: would cancel", "order", o.String(), "id", o.ID)
		}
		for _, o := range profile.NonZeroOrders() {
			slog.Info("executor: would place", "order", o.String(), "slippage", o.Slippage)
		}
		return result, nil
	}

	// A shutdown requested before cancellation starts means we simply do
	// not start: never leave the book cancelled but not replaced.
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("engine.Apply: not starting: %w", err)
	}

	if ex.replaceMode == ReplaceMarket {
		return ex.applyPerMarket(ctx, profile, live, result)
	}

	if len(live) > 0 {
		if err := ex.exchange.CancelAll(ctx); err != nil {
			return result, fmt.Errorf("engine.Apply: cancel all: %w", err)
		}
		result.Cancelled = len(live)
	}

	if err := ex.place(ctx, profile.NonZeroOrders(), &result); err != nil {
		return result, err
	}
	result.Applied = true
	return result, nil
}

func (ex *Executor) applyPerMarket(ctx context.Context, profile domain.Profile, live []domain.Order, result ApplyResult) (ApplyResult, error) {
	liveByMarket := make(map[string][]domain.Order)
	for _, o := range live {
		liveByMarket[o.Market] = append(liveByMarket[o.Market], o)
	}

	for _, market := range profile.Markets() {
		for _, o := range liveByMarket[market] {
			if err := ex.exchange.CancelOrder(ctx, o.ID); err != nil {
				return result, fmt.Errorf("engine.Apply: cancel %s on %s: %w", o.ID, market, err)
			}
			result.Cancelled++
		}
		delete(liveByMarket, market)

		so := profile[market]
		var batch []domain.Order
		for _, o := range append(append([]domain.Order{}, so.Buy...), so.Sell...) {
			if o.Size.IsPositive() {
				batch = append(batch, o)
			}
		}
		if err := ex.place(ctx, batch, &result); err != nil {
			return result, err
		}
	}

	// orders resting on markets no longer in the profile are stale
	for market, orders := range liveByMarket {
		for _, o := range orders {
			if err := ex.exchange.CancelOrder(ctx, o.ID); err != nil {
				return result, fmt.Errorf("engine.Apply: cancel stale %s on %s: %w", o.ID, market, err)
			}
			result.Cancelled++
		}
	}

	result.Applied = true
	return result, nil
}

func (ex *Executor) place(ctx context.Context, orders []domain.Order, result *ApplyResult) error {
	for _, o := range orders {
		o.ClientID = uuid.New().String()
		placed, err := ex.exchange.PlaceOrder(ctx, o)
		if err != nil {
			var rej *domain.OrderRejectedError
			if errors.As(err, &rej) && rej.Benign() {
				slog.Info("executor: skipping taker-prevented order",
					"order", o.String(), "code", rej.Code)
				result.Skipped++
				continue
			}
			return fmt.Errorf("engine.Apply: place %s: %w", o.String(), err)
		}
		slog.Debug("executor: placed", "order", placed.String(), "id", placed.ID)
		result.Placed++
	}
	return nil
}
