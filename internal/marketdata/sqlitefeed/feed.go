// Package sqlitefeed serves candles and exchange filters from a local
// SQLite archive. It has no order book; GetOrderBook reports
// marketdata.ErrUnsupported and the Book Data section degrades.
package sqlitefeed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trading-analyticsv1/internal/marketdata"
	"trading-analyticsv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Feed implements model.MarketData over SQLite.
type Feed struct {
	db *sql.DB
}

var _ model.MarketData = (*Feed)(nil)

// Open opens (creating if needed) the database at path with WAL enabled.
func Open(path string) (*Feed, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite feed opened", "component", "sqlitefeed", "path", path)
	return &Feed{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (f *Feed) DB() *sql.DB { return f.db }

// Close closes the database.
func (f *Feed) Close() error { return f.db.Close() }

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol     TEXT    NOT NULL,
			interval   TEXT    NOT NULL,
			open_time  INTEGER NOT NULL,
			close_time INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL    NOT NULL,
			PRIMARY KEY (symbol, interval, open_time)
		);

		CREATE TABLE IF NOT EXISTS exchange_filters (
			symbol      TEXT NOT NULL,
			filter_type TEXT NOT NULL,
			tick_size   REAL NOT NULL DEFAULT 0,
			step_size   REAL NOT NULL DEFAULT 0,
			min_qty     REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, filter_type)
		);
	`)
	return err
}

// GetCandles returns the newest limit candles in ascending order.
func (f *Feed) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT open_time, close_time, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND interval = ?
		ORDER BY open_time DESC
		LIMIT ?
	`, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var openMs, closeMs int64
		if err := rows.Scan(&openMs, &closeMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candles: %w", err)
		}
		c.OpenTime = time.UnixMilli(openMs).UTC()
		c.CloseTime = time.UnixMilli(closeMs).UTC()
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

// GetExchangeFilter reads one row of exchange_filters.
func (f *Feed) GetExchangeFilter(ctx context.Context, symbol, filterType string) (model.ExchangeFilter, error) {
	var ef model.ExchangeFilter
	err := f.db.QueryRowContext(ctx, `
		SELECT tick_size, step_size, min_qty
		FROM exchange_filters
		WHERE symbol = ? AND filter_type = ?
	`, symbol, filterType).Scan(&ef.TickSize, &ef.StepSize, &ef.MinQty)
	if errors.Is(err, sql.ErrNoRows) {
		return ef, fmt.Errorf("sqlite %s %s: %w", symbol, filterType, marketdata.ErrNoData)
	}
	if err != nil {
		return ef, fmt.Errorf("sqlite query exchange_filters: %w", err)
	}
	return ef, nil
}

func (f *Feed) FormatPrice(ctx context.Context, symbol string, price float64) (string, error) {
	return marketdata.FormatPrice(ctx, f, symbol, price)
}

func (f *Feed) FormatQuantity(ctx context.Context, symbol string, qty float64) (string, error) {
	return marketdata.FormatQuantity(ctx, f, symbol, qty)
}

// GetOrderBook is not available from an archive.
func (f *Feed) GetOrderBook(context.Context, string, int) (model.OrderBook, error) {
	return model.OrderBook{}, marketdata.ErrUnsupported
}

// InsertCandles upserts candles in a single transaction.
func (f *Feed) InsertCandles(ctx context.Context, symbol, interval string, candles []model.Candle) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, interval, open_time, close_time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, symbol, interval, c.OpenTime.UnixMilli(), c.CloseTime.UnixMilli(),
			c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert candle: %w", err)
		}
	}
	return tx.Commit()
}

// UpsertFilter stores one exchange filter row.
func (f *Feed) UpsertFilter(ctx context.Context, symbol, filterType string, ef model.ExchangeFilter) error {
	_, err := f.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO exchange_filters (symbol, filter_type, tick_size, step_size, min_qty)
		VALUES (?, ?, ?, ?, ?)
	`, symbol, filterType, ef.TickSize, ef.StepSize, ef.MinQty)
	if err != nil {
		return fmt.Errorf("sqlite upsert filter: %w", err)
	}
	return nil
}
