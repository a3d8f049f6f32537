package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qtrade-exchange/lpbot/internal/domain"
	"github.com/qtrade-exchange/lpbot/internal/ports"
)

// valuationEvery controls how often the holdings summary is reported.
const valuationEvery = 10

// warmupPoll is how often the warm-up wait re-checks the feed.
const warmupPoll = 500 * time.Millisecond

// Config drives the control loop.
type Config struct {
	MonitorPeriod time.Duration
	Warmup        time.Duration
	DryRun        bool
	ReplaceMode   string
	Allocations   domain.AllocationConfig
	Intervals     domain.Intervals
	Tolerances    domain.Tolerances
}

// Engine is the top-level periodic driver: fetch state, compute the
// target profile, decide, execute, sleep. A single iteration's failure is
// contained and never terminates the loop.
type Engine struct {
	cfg      Config
	exchange ports.Exchange
	feed     ports.PriceFeed
	store    ports.ProfileStore
	reporter ports.Reporter
	executor *Executor

	// prev is the last successfully applied profile, the diff baseline.
	// Owned exclusively by this loop: written once per successful cycle,
	// read by the next cycle's rebalance check.
	prev   domain.Profile
	cycles int
}

// New wires an Engine. store and reporter may be nil (tests, -once runs).
func New(cfg Config, exchange ports.Exchange, feed ports.PriceFeed, store ports.ProfileStore, reporter ports.Reporter) *Engine {
	return &Engine{
		cfg:      cfg,
		exchange: exchange,
		feed:     feed,
		store:    store,
		reporter: reporter,
		executor: NewExecutor(exchange, cfg.DryRun, cfg.ReplaceMode),
	}
}

// CycleResult is everything one control-loop iteration produced.
type CycleResult struct {
	Acted     bool
	Reason    string
	Profile   domain.Profile
	Execution ApplyResult
	Valuation decimal.Decimal
}

// Run executes the control loop until the context is cancelled. The
// cancellation signal is checked at the top of each iteration; a cycle
// already past its decision point finishes rather than stopping with
// orders cancelled but not replaced.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine: starting",
		"period", e.cfg.MonitorPeriod,
		"warmup", e.cfg.Warmup,
		"dry_run", e.cfg.DryRun,
		"replace_mode", e.cfg.ReplaceMode,
		"markets", len(e.cfg.Allocations.Markets),
	)

	if e.store != nil {
		prev, err := e.store.LoadProfile(ctx)
		if err != nil {
			slog.Warn("engine: could not load baseline profile", "err", err)
		} else if prev != nil {
			e.prev = prev
			slog.Info("engine: baseline profile restored", "orders", prev.OrderCount())
		}
	}

	if !e.waitWarm(ctx) {
		slog.Info("engine: stopped during warm-up")
		return nil
	}

	e.cycle(ctx)

	ticker := time.NewTicker(e.cfg.MonitorPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine: stopped")
			return nil
		case <-ticker.C:
			e.cycle(ctx)
		}
	}
}

// waitWarm blocks until the price feed has warmed up or the warm-up
// budget elapses. Returns false only on shutdown.
func (e *Engine) waitWarm(ctx context.Context) bool {
	if e.cfg.Warmup <= 0 || e.feed.Warm() {
		return true
	}
	deadline := time.Now().Add(e.cfg.Warmup)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(warmupPoll):
			if e.feed.Warm() {
				return true
			}
		}
	}
	slog.Warn("engine: warm-up budget elapsed before feed warmed up")
	return true
}

// cycle runs one iteration with failure containment: errors and panics
// are logged and the iteration becomes a no-op, baseline untouched.
func (e *Engine) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("engine: cycle panic contained", "panic", r)
		}
	}()

	e.cycles++
	result, err := e.RunOnce(ctx)
	if err != nil {
		slog.Error("engine: cycle failed", "cycle", e.cycles, "err", err)
		return
	}

	slog.Info("engine: cycle complete",
		"cycle", e.cycles,
		"acted", result.Acted,
		"reason", result.Reason,
		"cancelled", result.Execution.Cancelled,
		"placed", result.Execution.Placed,
		"skipped", result.Execution.Skipped,
	)
}

// RunOnce executes exactly one iteration: fetch, compute, decide and —
// when the decision says so — execute. The baseline advances only after
// a fully successful, non-dry-run execution.
func (e *Engine) RunOnce(ctx context.Context) (*CycleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	balances, err := e.exchange.Balances(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.RunOnce: balances: %w", err)
	}
	markets, err := e.exchange.Markets(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.RunOnce: markets: %w", err)
	}

	profile, ok := e.buildProfile(balances.Total, markets)
	if !ok {
		// during warm-up missing prices are expected and a quiet no-op;
		// afterwards they are worth a warning
		if e.feed.Warm() {
			slog.Warn("engine: insufficient price data, skipping cycle")
		} else {
			slog.Debug("engine: price feed not warm yet, skipping cycle")
		}
		return &CycleResult{Reason: "insufficient price data"}, nil
	}

	result := &CycleResult{Profile: profile}
	result.Acted, result.Reason = CheckForRebalance(
		profile, e.prev, balances, e.cfg.Allocations, e.cfg.Tolerances, e.valuer())

	if result.Acted {
		live, err := e.exchange.OpenOrders(ctx)
		if err != nil {
			return nil, fmt.Errorf("engine.RunOnce: open orders: %w", err)
		}
		result.Execution, err = e.executor.Apply(ctx, profile, live)
		if err != nil {
			// partially rebalanced: keep the old baseline so the next
			// cycle re-evaluates from the pre-cycle state
			e.record(ctx, result, balances.Total)
			return result, fmt.Errorf("engine.RunOnce: %w", err)
		}
		if result.Execution.Applied {
			e.prev = profile
			if e.store != nil {
				if err := e.store.SaveProfile(ctx, profile); err != nil {
					slog.Warn("engine: could not persist baseline", "err", err)
				}
			}
		}
	}

	result.Valuation = e.record(ctx, result, balances.Total)
	return result, nil
}

// buildProfile computes the full target order book from balances and the
// latest price snapshots. Returns false when any configured market still
// lacks a price.
func (e *Engine) buildProfile(balances domain.Balances, markets map[string]domain.MarketInfo) (domain.Profile, bool) {
	allocs, err := ComputeAllocations(balances, e.cfg.Allocations)
	if err != nil {
		// market strings were validated at startup
		slog.Error("engine: allocation failed", "err", err)
		return nil, false
	}

	profile := make(domain.Profile, len(allocs))
	for market, alloc := range allocs {
		info, ok := markets[market]
		if !ok {
			slog.Warn("engine: configured market unknown to exchange", "market", market)
			return nil, false
		}
		tk, ok := e.feed.Ticker(market)
		if !ok || !tk.Valid() {
			return nil, false
		}
		profile[market] = PriceOrders(market, AllocateOrders(alloc, e.cfg.Intervals, info.SizeIncrement), tk, info)
	}
	return profile, true
}

// valuer converts currency amounts to the reference currency using the
// feed's midpoints. Conversion goes through the CUR_REF market when one
// exists; the reference currency itself converts 1:1.
func (e *Engine) valuer() Valuer {
	ref := e.cfg.Tolerances.ReferenceCurrency
	return func(currency string, amount decimal.Decimal) (decimal.Decimal, bool) {
		if currency == ref {
			return amount, true
		}
		tk, ok := e.feed.Ticker(currency + "_" + ref)
		if !ok {
			return decimal.Zero, false
		}
		mid := tk.Midpoint()
		if !mid.IsPositive() {
			return decimal.Zero, false
		}
		return amount.Mul(mid), true
	}
}

// record reports the cycle and appends it to the decision log, returning
// the account valuation when one could be computed.
func (e *Engine) record(ctx context.Context, result *CycleResult, balances domain.Balances) decimal.Decimal {
	valuation := e.reportValuation(ctx, balances)

	if e.reporter != nil {
		err := e.reporter.Cycle(ctx, ports.CycleReport{
			Acted:     result.Acted,
			DryRun:    result.Execution.DryRun,
			Reason:    result.Reason,
			Profile:   result.Profile,
			Cancelled: result.Execution.Cancelled,
			Placed:    result.Execution.Placed,
			Skipped:   result.Execution.Skipped,
		})
		if err != nil {
			slog.Warn("engine: reporter error", "err", err)
		}
	}

	if e.store != nil {
		val, _ := valuation.Float64()
		err := e.store.AppendCycle(ctx, ports.CycleRecord{
			At:        time.Now().UTC(),
			Acted:     result.Acted,
			DryRun:    result.Execution.DryRun,
			Reason:    result.Reason,
			Cancelled: result.Execution.Cancelled,
			Placed:    result.Execution.Placed,
			Skipped:   result.Execution.Skipped,
			Valuation: val,
		})
		if err != nil {
			slog.Warn("engine: could not append cycle record", "err", err)
		}
	}
	return valuation
}

// reportValuation sums holdings in the reference currency and prints the
// periodic summary table.
func (e *Engine) reportValuation(ctx context.Context, balances domain.Balances) decimal.Decimal {
	value := e.valuer()
	total := decimal.Zero
	var rows []ports.ValuationRow
	for _, cur := range sortedCurrencies(balances) {
		v, ok := value(cur, balances[cur])
		if !ok {
			continue
		}
		total = total.Add(v)
		rows = append(rows, ports.ValuationRow{Currency: cur, Amount: balances[cur], Value: v})
	}

	if e.reporter != nil && len(rows) > 0 && e.cycles%valuationEvery == 1 {
		if err := e.reporter.Valuation(ctx, rows, total, e.cfg.Tolerances.ReferenceCurrency); err != nil {
			slog.Warn("engine: valuation report error", "err", err)
		}
	}
	return total
}

func sortedCurrencies(balances domain.Balances) []string {
	out := make([]string, 0, len(balances))
	for cur := range balances {
		out = append(out, cur)
	}
	sort.Strings(out)
	return out
}
