package loader

import (
	"context"
	"sort"
	"time"

	"github.com/marketreplay/backtester/pkg/constant"
	"github.com/marketreplay/backtester/pkg/object"
)

// MemoryLoader serves bars/ticks from in-process slices. Used by tests
// and by callers that already have data in memory (e.g. a CSV import).
type MemoryLoader struct {
	bars  []object.Bar
	ticks []object.Tick
}

// NewMemoryLoader builds a loader over pre-sorted or unsorted bars/ticks;
// both slices are sorted ascending by timestamp on construction.
func NewMemoryLoader(bars []object.Bar, ticks []object.Tick) *MemoryLoader {
	sortedBars := append([]object.Bar(nil), bars...)
	sort.Slice(sortedBars, func(i, j int) bool { return sortedBars[i].Timestamp.Before(sortedBars[j].Timestamp) })

	sortedTicks := append([]object.Tick(nil), ticks...)
	sort.Slice(sortedTicks, func(i, j int) bool { return sortedTicks[i].Timestamp.Before(sortedTicks[j].Timestamp) })

	return &MemoryLoader{bars: sortedBars, ticks: sortedTicks}
}

// LoadBarData implements BarLoader, filtering by symbol/exchange/interval/range.
func (l *MemoryLoader) LoadBarData(_ context.Context, symbol string, exchange constant.Exchange, interval constant.Interval, start, end time.Time) ([]object.Bar, error) {
	var out []object.Bar
	for _, b := range l.bars {
		if b.Symbol != symbol || b.Exchange != exchange || b.Interval != interval {
			continue
		}
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// LoadTickData implements TickLoader, filtering by symbol/exchange/range.
func (l *MemoryLoader) LoadTickData(_ context.Context, symbol string, exchange constant.Exchange, start, end time.Time) ([]object.Tick, error) {
	var out []object.Tick
	for _, t := range l.ticks {
		if t.Symbol != symbol || t.Exchange != exchange {
			continue
		}
		if t.Timestamp.Before(start) || t.Timestamp.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
