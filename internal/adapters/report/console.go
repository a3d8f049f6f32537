// Package report prints per-cycle outcomes and holdings summaries to the
// console.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/qtrade-exchange/lpbot/internal/domain"
	"github.com/qtrade-exchange/lpbot/internal/ports"
)

// Console implements ports.Reporter.
type Console struct {
	out   io.Writer
	table bool
}

var _ ports.Reporter = (*Console)(nil)

// NewConsole creates a reporter that writes to stdout. table selects the
// full order table per acted cycle instead of the compact line.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a reporter for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Cycle prints one control-loop decision.
func (c *Console) Cycle(_ context.Context, r ports.CycleReport) error {
	now := time.Now().Format("15:04:05")

	if !r.Acted {
		fmt.Fprintf(c.out, "[%s] hold: %s\n", now, r.Reason)
		return nil
	}

	mode := ""
	if r.DryRun {
		mode = " (dry-run)"
	}
	fmt.Fprintf(c.out, "[%s] rebalance%s: %s — cancelled:%d placed:%d skipped:%d\n",
		now, mode, r.Reason, r.Cancelled, r.Placed, r.Skipped)

	if c.table && r.Profile != nil {
		c.printProfile(r.Profile)
	}
	return nil
}

// printProfile prints the target order book, zero-size levels included so
// the operator sees which levels were priced out.
func (c *Console) printProfile(p domain.Profile) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Side", "Slip", "Price", "Size")

	for _, market := range p.Markets() {
		so := p[market]
		for _, o := range so.Buy {
			appendOrder(table, o)
		}
		for _, o := range so.Sell {
			appendOrder(table, o)
		}
	}
	table.Render()
}

func appendOrder(table *tablewriter.Table, o domain.Order) {
	table.Append(
		o.Market,
		string(o.Side),
		o.Slippage.String(),
		o.Price.StringFixed(8),
		o.Size.String(),
	)
}

// Valuation prints the holdings summary converted to the reference
// currency.
func (c *Console) Valuation(_ context.Context, rows []ports.ValuationRow, total decimal.Decimal, currency string) error {
	fmt.Fprintf(c.out, "\n[%s] holdings — %s %s\n",
		time.Now().Format("15:04:05"), total.StringFixed(8), currency)

	table := tablewriter.NewWriter(c.out)
	table.Header("Currency", "Amount", "Value "+currency)
	for _, row := range rows {
		table.Append(row.Currency, row.Amount.String(), row.Value.StringFixed(8))
	}
	table.Render()
	return nil
}
