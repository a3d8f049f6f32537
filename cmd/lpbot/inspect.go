package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/qtrade-exchange/lpbot/config"
	"github.com/qtrade-exchange/lpbot/internal/application/engine"
	"github.com/qtrade-exchange/lpbot/internal/ports"
)

// printAllocations fetches live balances and prints what each market
// would be given to work with, without touching any orders.
func printAllocations(ctx context.Context, exchange ports.Exchange, cfg *config.Config) error {
	balances, err := exchange.Balances(ctx)
	if err != nil {
		return fmt.Errorf("fetch balances: %w", err)
	}

	allocs, err := engine.ComputeAllocations(balances.Total, cfg.AllocationConfig())
	if err != nil {
		return err
	}

	markets := make([]string, 0, len(allocs))
	for m := range allocs {
		markets = append(markets, m)
	}
	sort.Strings(markets)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Market", "Sell side (market cur)", "Buy side (base cur)")
	for _, m := range markets {
		a := allocs[m]
		table.Append(m, a.MarketAmount.String(), a.BaseAmount.String())
	}
	table.Render()
	return nil
}
