// Package loader provides the BarLoader/TickLoader boundary the
// replay driver pulls historical data through, plus a SQLite-backed
// and an in-memory implementation.
package loader

import (
	"context"
	"time"

	"github.com/marketreplay/backtester/pkg/constant"
	"github.com/marketreplay/backtester/pkg/object"
)

// BarLoader loads OHLCV bars for one instrument over [start, end],
// ordered ascending by timestamp. Mirrors original_source's
// BaseDatabase::load_bar_data (database.rs).
type BarLoader interface {
	LoadBarData(ctx context.Context, symbol string, exchange constant.Exchange, interval constant.Interval, start, end time.Time) ([]object.Bar, error)
}

// TickLoader loads tick snapshots for one instrument over [start, end],
// ordered ascending by timestamp.
type TickLoader interface {
	LoadTickData(ctx context.Context, symbol string, exchange constant.Exchange, start, end time.Time) ([]object.Tick, error)
}
