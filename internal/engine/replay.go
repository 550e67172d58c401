package engine

import (
	"strings"
	"time"

	"github.com/marketreplay/backtester/pkg/constant"
	"github.com/marketreplay/backtester/pkg/object"
)

// RunBacktesting is the replay driver's main entry point (spec §4.1):
// on_init, mark inited, on_start, mark trading, replay every event in
// history order through new_bar/new_tick, then on_stop. The replay
// loop itself is batched into ten groups purely for progress logging,
// mirroring backtesting.rs::run_backtesting's batch_size = total/10.
func (e *Engine) RunBacktesting() {
	e.strategy.OnInit(e)
	e.strategy.SetInited(true)
	e.output("策略初始化完成")

	e.strategy.OnStart()
	e.strategy.SetTrading(true)
	e.output("开始回放历史数据")

	switch e.cfg.Mode {
	case constant.ModeTick:
		e.replayTicks()
	default:
		e.replayBars()
	}

	e.strategy.OnStop()
	e.output("历史数据回放结束")
}

func (e *Engine) replayBars() {
	total := len(e.barHistory)
	batch := total / 10
	if batch < 1 {
		batch = 1
	}
	for i := 0; i < total; i += batch {
		end := i + batch
		if end > total {
			end = total
		}
		for _, bar := range e.barHistory[i:end] {
			e.newBar(bar)
		}
		ix := i/batch + 1
		progress := float64(ix) / 10.0
		if progress > 1 {
			progress = 1
		}
		e.debugf("回放进度：%s [%.0f%%]", strings.Repeat("=", ix), progress*100)
	}
}

func (e *Engine) replayTicks() {
	total := len(e.tickHistory)
	batch := total / 10
	if batch < 1 {
		batch = 1
	}
	for i := 0; i < total; i += batch {
		end := i + batch
		if end > total {
			end = total
		}
		for _, tick := range e.tickHistory[i:end] {
			e.newTick(tick)
		}
		ix := i/batch + 1
		progress := float64(ix) / 10.0
		if progress > 1 {
			progress = 1
		}
		e.debugf("回放进度：%s [%.0f%%]", strings.Repeat("=", ix), progress*100)
	}
}

// newBar handles one bar event in the mandatory order of spec §4.1:
// update current bar/time, cross limit orders, cross stop orders,
// invoke on_bar, then update the day's close.
func (e *Engine) newBar(bar object.Bar) {
	e.currentBar = bar
	e.currentTime = bar.Timestamp

	e.crossLimitOrders()
	e.crossStopOrders()
	e.strategy.OnBar(bar)

	e.updateDailyClose(bar.Close)
}

// newTick is the tick-mode analogue of newBar.
func (e *Engine) newTick(tick object.Tick) {
	e.currentTick = tick
	e.currentTime = tick.Timestamp

	e.crossLimitOrders()
	e.crossStopOrders()
	e.strategy.OnTick(tick)

	e.updateDailyClose(tick.LastPrice)
}

// updateDailyClose is spec §4.4's update_daily_close: the DailyResult
// for the event's calendar date is created on first sight (seeded with
// this close) or has its close overwritten (last observed close wins).
func (e *Engine) updateDailyClose(price float64) {
	date := dateKey(e.currentTime)
	key := date.Format("2006-01-02")

	if existing, ok := e.dailyResults[key]; ok {
		existing.ClosePrice = price
		return
	}
	e.dailyResults[key] = object.NewDailyResult(date, price)
	e.dailyResultDates = append(e.dailyResultDates, date)
}

func dateKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
