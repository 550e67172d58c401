package loader

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/marketreplay/backtester/pkg/constant"
	"github.com/marketreplay/backtester/pkg/object"
)

// SQLiteLoader reads OHLCV bars out of a `dbbardata` table, the same
// shape original_source's SqliteDatabase queries (database.rs), using
// the pure-Go modernc.org/sqlite driver rather than cgo-sqlite3.
type SQLiteLoader struct {
	db *sql.DB
}

// OpenSQLiteLoader opens (creating if absent) the sqlite file at path.
func OpenSQLiteLoader(path string) (*SQLiteLoader, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("loader: open sqlite %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("loader: ping sqlite %q: %w", path, err)
	}
	return &SQLiteLoader{db: db}, nil
}

// Close releases the underlying database handle.
func (l *SQLiteLoader) Close() error {
	return l.db.Close()
}

const barQuery = `
SELECT symbol, exchange, datetime, interval, volume, turnover,
       open_interest, open_price, high_price, low_price, close_price
FROM dbbardata
WHERE symbol = ? AND exchange = ? AND interval = ? AND datetime >= ? AND datetime <= ?
ORDER BY datetime`

// LoadBarData implements BarLoader against the dbbardata table.
func (l *SQLiteLoader) LoadBarData(ctx context.Context, symbol string, exchange constant.Exchange, interval constant.Interval, start, end time.Time) ([]object.Bar, error) {
	code, err := interval.StorageCode()
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, barQuery, symbol, string(exchange), code,
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("loader: query bars for %s.%s: %w", symbol, exchange, err)
	}
	defer rows.Close()

	var bars []object.Bar
	for rows.Next() {
		var (
			rowSymbol, rowExchange, rowDatetime, rowInterval string
			volume, turnover, openInterest                   float64
			open, high, low, close                            float64
		)
		if err := rows.Scan(&rowSymbol, &rowExchange, &rowDatetime, &rowInterval,
			&volume, &turnover, &openInterest, &open, &high, &low, &close); err != nil {
			return nil, fmt.Errorf("loader: scan bar row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, rowDatetime)
		if err != nil {
			return nil, fmt.Errorf("loader: parse bar datetime %q: %w", rowDatetime, err)
		}
		bars = append(bars, object.Bar{
			Symbol:       rowSymbol,
			Exchange:     constant.Exchange(rowExchange),
			Timestamp:    ts,
			Interval:     interval,
			Open:         open,
			High:         high,
			Low:          low,
			Close:        close,
			Volume:       volume,
			Turnover:     turnover,
			OpenInterest: openInterest,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loader: iterate bar rows: %w", err)
	}
	return bars, nil
}
