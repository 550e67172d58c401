package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketreplay/backtester/internal/engineio"
	"github.com/marketreplay/backtester/internal/loader"
	"github.com/marketreplay/backtester/pkg/constant"
	"github.com/marketreplay/backtester/pkg/object"
)

const testVtSymbol = "TEST.LOCAL"

func day(n int) time.Time {
	return time.Date(2024, 1, 1+n, 0, 0, 0, 0, time.UTC)
}

func bar(n int, o, h, l, c float64) object.Bar {
	return object.Bar{
		Symbol:    "TEST",
		Exchange:  constant.ExchangeLocal,
		Timestamp: day(n),
		Interval:  constant.IntervalDaily,
		Open:      o, High: h, Low: l, Close: c,
	}
}

func newTestEngine(t *testing.T, bars []object.Bar, cfg Config) *Engine {
	t.Helper()
	ml := loader.NewMemoryLoader(bars, nil)
	e, err := New(cfg, ml, nil, engineio.New(nil))
	require.NoError(t, err)
	return e
}

func baseConfig(start, end time.Time) Config {
	cfg := DefaultConfig()
	cfg.VtSymbol = testVtSymbol
	cfg.Interval = constant.IntervalDaily
	cfg.Start = start
	cfg.End = end
	cfg.Rate = 0
	cfg.Slippage = 0
	cfg.Size = 1
	cfg.PriceTick = 1
	cfg.Capital = 10000
	return cfg
}

// recordingStrategy counts callback invocations so tests can assert on
// notification ordering without hand-rolling a new type per scenario.
type recordingStrategy struct {
	BaseStrategy
	cb       EngineCallbacks
	onBar    func(EngineCallbacks, object.Bar)
	orders   []object.LimitOrder
	trades   []object.Trade
	stops    []object.StopOrder
	barCount int
}

func (s *recordingStrategy) OnInit(cb EngineCallbacks) { s.cb = cb }
func (s *recordingStrategy) OnBar(b object.Bar) {
	s.barCount++
	if s.onBar != nil {
		s.onBar(s.cb, b)
	}
}
func (s *recordingStrategy) OnOrder(o object.LimitOrder)    { s.orders = append(s.orders, o) }
func (s *recordingStrategy) OnTrade(t object.Trade)         { s.trades = append(s.trades, t) }
func (s *recordingStrategy) OnStopOrder(so object.StopOrder) { s.stops = append(s.stops, so) }

func runFull(t *testing.T, e *Engine, strat Strategy) {
	t.Helper()
	e.AddStrategy(strat)
	require.NoError(t, e.LoadData(context.Background()))
	e.RunBacktesting()
}

// S1 — empty data.
func TestEmptyData(t *testing.T) {
	cfg := baseConfig(day(0), day(10))
	e := newTestEngine(t, nil, cfg)
	strat := &recordingStrategy{}
	runFull(t, e, strat)

	assert.Empty(t, e.Trades())
	daily := e.CalculateResult()
	assert.Empty(t, daily)

	stats := e.CalculateStatistics(daily, false)
	assert.True(t, stats.StartDate.IsZero())
	assert.Zero(t, stats.TotalDays)
	assert.Zero(t, stats.SharpeRatio)
}

// S2 — single limit fill.
func TestSingleLimitFill(t *testing.T) {
	bars := []object.Bar{
		bar(0, 100, 110, 95, 105),
		bar(1, 108, 112, 106, 110),
	}
	cfg := baseConfig(day(0), day(3))
	e := newTestEngine(t, bars, cfg)

	var sent bool
	strat := &recordingStrategy{}
	strat.onBar = func(cb EngineCallbacks, b object.Bar) {
		if sent {
			return
		}
		sent = true
		cb.SendOrder(strat, constant.DirectionLong, constant.OffsetOpen, 120, 1, false, false, false)
	}
	runFull(t, e, strat)

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, 108.0, trades[0].Price)
	assert.Equal(t, 1.0, e.Position())

	daily := e.CalculateResult()
	require.Len(t, daily, 2)
	d2 := daily[1]
	assert.Equal(t, 0.0, d2.StartPos)
	assert.Equal(t, 1.0, d2.EndPos)
	assert.InDelta(t, 2.0, d2.TradingPnL, 1e-9)
	assert.InDelta(t, 0.0, d2.HoldingPnL, 1e-9)
	assert.InDelta(t, 2.0, d2.NetPnL, 1e-9)

	stats := e.CalculateStatistics(daily, false)
	assert.InDelta(t, 10002.0, stats.EndBalance, 1e-9)
}

// S3 — stop order trigger fill.
func TestStopOrderTriggerFill(t *testing.T) {
	bars := []object.Bar{
		bar(0, 100, 110, 95, 105),
		bar(1, 108, 112, 106, 110),
	}
	cfg := baseConfig(day(0), day(3))
	e := newTestEngine(t, bars, cfg)

	var sent bool
	strat := &recordingStrategy{}
	strat.onBar = func(cb EngineCallbacks, b object.Bar) {
		if sent {
			return
		}
		sent = true
		cb.SendOrder(strat, constant.DirectionLong, constant.OffsetOpen, 107, 1, true, false, false)
	}
	runFull(t, e, strat)

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, 108.0, trades[0].Price)
	assert.Equal(t, 1.0, e.Position())

	stops := e.AllStopOrders()
	require.Len(t, stops, 1)
	assert.Equal(t, constant.StopOrderStatusTriggered, stops[0].Status)
	require.Len(t, stops[0].SpawnedOrderIDs, 1)

	orders := e.AllLimitOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, constant.OrderStatusAllTraded, orders[0].Status)
	assert.Equal(t, orders[0].Volume, orders[0].Traded)
}

// S4 — cancel before fill.
func TestCancelBeforeFill(t *testing.T) {
	bars := []object.Bar{
		bar(0, 100, 110, 95, 105),
		bar(1, 108, 112, 106, 110),
	}
	cfg := baseConfig(day(0), day(3))
	e := newTestEngine(t, bars, cfg)

	var orderID string
	strat := &recordingStrategy{}
	strat.onBar = func(cb EngineCallbacks, b object.Bar) {
		if orderID == "" {
			ids := cb.SendOrder(strat, constant.DirectionLong, constant.OffsetOpen, 90, 1, false, false, false)
			orderID = ids[0]
			return
		}
		cb.CancelOrder(strat, orderID)
	}
	runFull(t, e, strat)

	assert.Empty(t, e.Trades())
	assert.Equal(t, 0.0, e.Position())

	orders := e.AllLimitOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, constant.OrderStatusCancelled, orders[0].Status)
}

// S5 — price rounding.
func TestPriceRounding(t *testing.T) {
	bars := []object.Bar{bar(0, 100, 110, 95, 105)}
	cfg := baseConfig(day(0), day(3))
	cfg.PriceTick = 0.5
	e := newTestEngine(t, bars, cfg)

	strat := &recordingStrategy{}
	var orderID string
	strat.onBar = func(cb EngineCallbacks, b object.Bar) {
		if orderID == "" {
			ids := cb.SendOrder(strat, constant.DirectionLong, constant.OffsetOpen, 100.37, 1, false, false, false)
			orderID = ids[0]
		}
	}
	runFull(t, e, strat)

	orders := e.AllLimitOrders()
	require.Len(t, orders, 1)
	assert.Equal(t, 100.5, orders[0].Price)
}

// S6 — drawdown.
func TestDrawdownStatistics(t *testing.T) {
	bars := []object.Bar{
		bar(0, 100, 100, 100, 100),
		bar(1, 80, 80, 80, 80),
		bar(2, 90, 90, 90, 90),
	}
	cfg := baseConfig(day(0), day(4))
	cfg.Capital = 1000
	e := newTestEngine(t, bars, cfg)

	var sent bool
	strat := &recordingStrategy{}
	strat.onBar = func(cb EngineCallbacks, b object.Bar) {
		if sent {
			return
		}
		sent = true
		cb.SendOrder(strat, constant.DirectionLong, constant.OffsetOpen, 100, 1, false, false, false)
	}
	runFull(t, e, strat)

	daily := e.CalculateResult()
	stats := e.CalculateStatistics(daily, false)

	assert.InDelta(t, -20.0, stats.MaxDrawdown, 1e-9)
	assert.InDelta(t, -2.0, stats.MaxDDPercent, 1e-6)
	assert.Equal(t, 1, stats.MaxDrawdownDuration)
}

// Invariant: position always equals the sum of signed trade volumes.
func TestInvariantPositionMatchesTrades(t *testing.T) {
	bars := []object.Bar{
		bar(0, 100, 110, 95, 105),
		bar(1, 108, 112, 106, 110),
		bar(2, 110, 115, 108, 112),
	}
	cfg := baseConfig(day(0), day(5))
	e := newTestEngine(t, bars, cfg)

	strat := &recordingStrategy{}
	sentLong, sentShort := false, false
	strat.onBar = func(cb EngineCallbacks, b object.Bar) {
		if !sentLong {
			sentLong = true
			cb.SendOrder(strat, constant.DirectionLong, constant.OffsetOpen, 120, 2, false, false, false)
			return
		}
		if !sentShort {
			sentShort = true
			cb.SendOrder(strat, constant.DirectionShort, constant.OffsetClose, 100, 1, false, false, false)
		}
	}
	runFull(t, e, strat)

	var want float64
	for _, tr := range e.Trades() {
		want += tr.SignedVolume()
	}
	assert.Equal(t, want, e.Position())
	assert.Equal(t, e.Position(), strat.Pos())
}

// Invariant: every trade has a matching LimitOrder whose price bounds the fill.
func TestInvariantTradeHasMatchingOrder(t *testing.T) {
	bars := []object.Bar{
		bar(0, 100, 110, 95, 105),
		bar(1, 108, 112, 106, 110),
	}
	cfg := baseConfig(day(0), day(3))
	e := newTestEngine(t, bars, cfg)

	var sent bool
	strat := &recordingStrategy{}
	strat.onBar = func(cb EngineCallbacks, b object.Bar) {
		if sent {
			return
		}
		sent = true
		cb.SendOrder(strat, constant.DirectionLong, constant.OffsetOpen, 120, 1, false, false, false)
	}
	runFull(t, e, strat)

	ordersByID := make(map[string]object.LimitOrder)
	for _, o := range e.AllLimitOrders() {
		ordersByID[o.OrderID] = o
	}
	for _, tr := range e.Trades() {
		o, ok := ordersByID[tr.OrderID]
		require.True(t, ok)
		if tr.Direction == constant.DirectionLong {
			assert.GreaterOrEqual(t, o.Price, tr.Price)
		} else {
			assert.LessOrEqual(t, o.Price, tr.Price)
		}
	}
}

// Invariant: order/trade ids are strictly increasing in creation order.
func TestInvariantMonotonicIDs(t *testing.T) {
	bars := []object.Bar{
		bar(0, 100, 110, 95, 105),
		bar(1, 108, 112, 106, 110),
		bar(2, 110, 115, 108, 120),
	}
	cfg := baseConfig(day(0), day(5))
	e := newTestEngine(t, bars, cfg)

	count := 0
	strat := &recordingStrategy{}
	strat.onBar = func(cb EngineCallbacks, b object.Bar) {
		count++
		cb.SendOrder(strat, constant.DirectionLong, constant.OffsetOpen, 200, 1, false, false, false)
	}
	runFull(t, e, strat)

	orders := e.AllLimitOrders()
	for i := 1; i < len(orders); i++ {
		assert.Greater(t, orders[i].OrderID, orders[i-1].OrderID)
	}
	trades := e.Trades()
	for i := 1; i < len(trades); i++ {
		assert.Greater(t, trades[i].TradeID, trades[i-1].TradeID)
	}
}

// Invariant: sum of daily net P&L equals the final balance minus capital.
func TestInvariantNetPnLSumsToBalance(t *testing.T) {
	bars := []object.Bar{
		bar(0, 100, 110, 95, 105),
		bar(1, 108, 112, 106, 110),
		bar(2, 110, 115, 108, 120),
	}
	cfg := baseConfig(day(0), day(5))
	e := newTestEngine(t, bars, cfg)

	var sent bool
	strat := &recordingStrategy{}
	strat.onBar = func(cb EngineCallbacks, b object.Bar) {
		if sent {
			return
		}
		sent = true
		cb.SendOrder(strat, constant.DirectionLong, constant.OffsetOpen, 120, 1, false, false, false)
	}
	runFull(t, e, strat)

	daily := e.CalculateResult()
	stats := e.CalculateStatistics(daily, false)

	var sum float64
	for _, d := range daily {
		sum += d.NetPnL
	}
	assert.InDelta(t, stats.EndBalance-cfg.Capital, sum, 1e-6*cfg.Capital)
}

// Invariant: the strategy's Pos() always reflects Engine.Position()
// after a fill — every fill's position change is pushed into the
// strategy through SetPos as well as applied to the engine's own field.
func TestInvariantStrategyPosMatchesEnginePosition(t *testing.T) {
	bars := []object.Bar{
		bar(0, 100, 110, 95, 105),
		bar(1, 108, 112, 106, 110),
		bar(2, 110, 115, 108, 112),
	}
	cfg := baseConfig(day(0), day(5))
	e := newTestEngine(t, bars, cfg)

	strat := &recordingStrategy{}
	sentLong, sentShort := false, false
	strat.onBar = func(cb EngineCallbacks, b object.Bar) {
		if !sentLong {
			sentLong = true
			cb.SendOrder(strat, constant.DirectionLong, constant.OffsetOpen, 120, 2, false, false, false)
			return
		}
		if !sentShort {
			sentShort = true
			cb.SendOrder(strat, constant.DirectionShort, constant.OffsetClose, 100, 1, false, false, false)
		}
		assert.Equal(t, e.Position(), strat.Pos())
	}
	runFull(t, e, strat)

	require.NotZero(t, e.Position())
	assert.Equal(t, e.Position(), strat.Pos())
}

func TestRunIDIsUniquePerEngine(t *testing.T) {
	cfg := baseConfig(day(0), day(3))
	e1 := newTestEngine(t, nil, cfg)
	e2 := newTestEngine(t, nil, cfg)
	assert.NotEqual(t, e1.RunID, e2.RunID)
}
