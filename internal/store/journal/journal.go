// Package journal records every tick's prices in sqlite so the market table
// can be warmed after a restart.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"papertrade/internal/market"
)

const schema = `
CREATE TABLE IF NOT EXISTS prices (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT    NOT NULL,
	ts     INTEGER NOT NULL,
	price  REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prices_symbol_ts ON prices(symbol, ts);`

// Journal is an append-only price log, pruned to Retain rows per symbol.
type Journal struct {
	db     *sql.DB
	retain int
}

var _ market.HistorySource = (*Journal)(nil)

// Open creates the database file if needed. retain <= 0 keeps everything.
func Open(path string, retain int) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db, retain: retain}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append writes one row per symbol at the same timestamp, then prunes.
func (j *Journal) Append(ctx context.Context, at time.Time, prices map[string]float64) error {
	if len(prices) == 0 {
		return nil
	}
	symbols := make([]string, 0, len(prices))
	for sym := range prices {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO prices (symbol, ts, price) VALUES (?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	ts := at.UnixMilli()
	for _, sym := range symbols {
		if _, err := stmt.ExecContext(ctx, sym, ts, prices[sym]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("journal: insert %s: %w", sym, err)
		}
	}
	if j.retain > 0 {
		prune, err := tx.PrepareContext(ctx, `
			DELETE FROM prices WHERE id IN (
				SELECT id FROM prices WHERE symbol = ? ORDER BY ts DESC, id DESC LIMIT -1 OFFSET ?)`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer prune.Close()
		for _, sym := range symbols {
			if _, err := prune.ExecContext(ctx, sym, j.retain); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("journal: prune %s: %w", sym, err)
			}
		}
	}
	return tx.Commit()
}

// Recent returns up to n latest points for symbol, oldest first.
func (j *Journal) Recent(ctx context.Context, symbol string, n int) ([]market.PricePoint, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT ts, price FROM prices WHERE symbol = ? ORDER BY ts DESC, id DESC LIMIT ?`,
		market.NormalizeSymbol(symbol), n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []market.PricePoint
	for rows.Next() {
		var ts int64
		var price float64
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, err
		}
		out = append(out, market.PricePoint{Time: time.UnixMilli(ts), Price: price})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}

// Count returns the number of rows stored for symbol.
func (j *Journal) Count(ctx context.Context, symbol string) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prices WHERE symbol = ?`, market.NormalizeSymbol(symbol)).Scan(&n)
	return n, err
}
