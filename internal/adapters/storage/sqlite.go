// Package storage persists the applied-profile baseline and the cycle
// decision log in SQLite.
package storage

// Decimal columns are stored as TEXT: order prices on small markets run
// to eight fractional digits and must round-trip exactly.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/qtrade-exchange/lpbot/internal/domain"
	"github.com/qtrade-exchange/lpbot/internal/ports"
)

const schema = `
-- Target orders of the last successfully applied profile. Replaced
-- wholesale on every successful cycle; level preserves interval order.
CREATE TABLE IF NOT EXISTS profile_orders (
    market   TEXT    NOT NULL,
    side     TEXT    NOT NULL,
    level    INTEGER NOT NULL,
    slippage TEXT    NOT NULL,
    price    TEXT    NOT NULL,
    size     TEXT    NOT NULL,
    PRIMARY KEY (market, side, level)
);

-- One row per control-loop cycle.
CREATE TABLE IF NOT EXISTS cycles (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    at        DATETIME NOT NULL,
    acted     INTEGER  NOT NULL,
    dry_run   INTEGER  NOT NULL,
    reason    TEXT     NOT NULL,
    cancelled INTEGER  NOT NULL DEFAULT 0,
    placed    INTEGER  NOT NULL DEFAULT 0,
    skipped   INTEGER  NOT NULL DEFAULT 0,
    valuation REAL     NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_cycles_at ON cycles(at DESC);
`

// cycles older than this are pruned at startup
const cycleRetention = 30 * 24 * time.Hour

// SQLiteStore implements ports.ProfileStore on a single SQLite file
// (pure Go driver, no CGo).
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.ProfileStore = (*SQLiteStore)(nil)

// Open opens (or creates) the database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.Open: %q: %w", path, err)
	}
	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &SQLiteStore{db: db}, nil
}

// ApplySchema creates the tables and prunes old cycle rows.
func (s *SQLiteStore) ApplySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("storage.ApplySchema: %w", err)
	}
	cutoff := time.Now().UTC().Add(-cycleRetention)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cycles WHERE at < ?`, cutoff); err != nil {
		return fmt.Errorf("storage.ApplySchema: prune cycles: %w", err)
	}
	return nil
}

// SaveProfile replaces the stored baseline wholesale in one transaction.
func (s *SQLiteStore) SaveProfile(ctx context.Context, p domain.Profile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveProfile: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM profile_orders`); err != nil {
		return fmt.Errorf("storage.SaveProfile: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profile_orders (market, side, level, slippage, price, size)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveProfile: prepare: %w", err)
	}
	defer stmt.Close()

	for _, market := range p.Markets() {
		so := p[market]
		for level, o := range so.Buy {
			if _, err := stmt.ExecContext(ctx, market, string(domain.SideBuy), level,
				o.Slippage.String(), o.Price.String(), o.Size.String()); err != nil {
				return fmt.Errorf("storage.SaveProfile: insert %s buy %d: %w", market, level, err)
			}
		}
		for level, o := range so.Sell {
			if _, err := stmt.ExecContext(ctx, market, string(domain.SideSell), level,
				o.Slippage.String(), o.Price.String(), o.Size.String()); err != nil {
				return fmt.Errorf("storage.SaveProfile: insert %s sell %d: %w", market, level, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveProfile: commit: %w", err)
	}
	return nil
}

// LoadProfile rebuilds the stored baseline, or returns nil when the
// store is empty.
func (s *SQLiteStore) LoadProfile(ctx context.Context) (domain.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market, side, level, slippage, price, size
		FROM profile_orders
		ORDER BY market, side, level`)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadProfile: %w", err)
	}
	defer rows.Close()

	profile := domain.Profile{}
	for rows.Next() {
		var market, side, slippage, price, size string
		var level int
		if err := rows.Scan(&market, &side, &level, &slippage, &price, &size); err != nil {
			return nil, fmt.Errorf("storage.LoadProfile: scan: %w", err)
		}
		order, err := parseOrder(market, side, slippage, price, size)
		if err != nil {
			return nil, fmt.Errorf("storage.LoadProfile: %w", err)
		}
		so := profile[market]
		if order.Side == domain.SideBuy {
			so.Buy = append(so.Buy, order)
		} else {
			so.Sell = append(so.Sell, order)
		}
		profile[market] = so
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.LoadProfile: %w", err)
	}
	if len(profile) == 0 {
		return nil, nil
	}
	return profile, nil
}

func parseOrder(market, side, slippage, price, size string) (domain.Order, error) {
	if side != string(domain.SideBuy) && side != string(domain.SideSell) {
		return domain.Order{}, fmt.Errorf("row %s: unknown side %q", market, side)
	}
	slip, err := decimal.NewFromString(slippage)
	if err != nil {
		return domain.Order{}, fmt.Errorf("row %s: slippage %q: %w", market, slippage, err)
	}
	pr, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Order{}, fmt.Errorf("row %s: price %q: %w", market, price, err)
	}
	sz, err := decimal.NewFromString(size)
	if err != nil {
		return domain.Order{}, fmt.Errorf("row %s: size %q: %w", market, size, err)
	}
	return domain.Order{
		Market:   market,
		Side:     domain.Side(side),
		Slippage: slip,
		Price:    pr,
		Size:     sz,
	}, nil
}

// AppendCycle records one control-loop decision.
func (s *SQLiteStore) AppendCycle(ctx context.Context, c ports.CycleRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (at, acted, dry_run, reason, cancelled, placed, skipped, valuation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.At.UTC(), c.Acted, c.DryRun, c.Reason, c.Cancelled, c.Placed, c.Skipped, c.Valuation)
	if err != nil {
		return fmt.Errorf("storage.AppendCycle: %w", err)
	}
	return nil
}

// RecentCycles returns up to limit records, newest first.
func (s *SQLiteStore) RecentCycles(ctx context.Context, limit int) ([]ports.CycleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT at, acted, dry_run, reason, cancelled, placed, skipped, valuation
		FROM cycles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentCycles: %w", err)
	}
	defer rows.Close()

	var out []ports.CycleRecord
	for rows.Next() {
		var c ports.CycleRecord
		if err := rows.Scan(&c.At, &c.Acted, &c.DryRun, &c.Reason,
			&c.Cancelled, &c.Placed, &c.Skipped, &c.Valuation); err != nil {
			return nil, fmt.Errorf("storage.RecentCycles: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.RecentCycles: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
