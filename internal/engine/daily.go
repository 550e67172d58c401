package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/marketreplay/backtester/pkg/object"
)

// CalculateResult builds the per-day mark-to-market table (spec §4.4
// calculate_result): every trade is filed into the DailyResult for its
// calendar date (which must already exist — a bar for that day was
// observed, spec §4.4 step 1 invariant), then days are walked in date
// order threading (pre_close, start_pos) forward.
//
// A trade whose date has no DailyResult is a programming-error
// invariant violation (spec §7 "the replay loop itself does not
// recover") and panics rather than silently dropping the trade.
func (e *Engine) CalculateResult() []object.DailyResult {
	e.output("开始计算逐日盯市盈亏")

	if len(e.tradeIDs) == 0 {
		e.output("回测成交记录为空")
	}

	for _, id := range e.tradeIDs {
		trade := e.trades[id]
		key := dateKey(trade.Timestamp).Format("2006-01-02")
		result, ok := e.dailyResults[key]
		if !ok {
			panic(fmt.Sprintf("engine: trade %s on %s has no daily result (invariant violation)", trade.TradeID, key))
		}
		result.AddTrade(trade)
	}

	dates := append([]time.Time(nil), e.dailyResultDates...)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var preClose, startPos float64
	out := make([]object.DailyResult, 0, len(dates))
	for _, d := range dates {
		key := d.Format("2006-01-02")
		result := e.dailyResults[key]
		result.CalculatePnL(preClose, startPos, e.cfg.Size, e.cfg.Rate, e.cfg.Slippage)

		preClose = result.ClosePrice
		startPos = result.EndPos
		out = append(out, *result)
	}

	e.output("逐日盯市盈亏计算完成")
	return out
}
