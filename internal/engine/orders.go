package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/marketreplay/backtester/internal/roundutil"
	"github.com/marketreplay/backtester/pkg/constant"
	"github.com/marketreplay/backtester/pkg/object"
)

// Engine implements EngineCallbacks: the narrow API a strategy uses to
// act back on the engine during on_bar/on_tick (spec §4.5).
var _ EngineCallbacks = (*Engine)(nil)

// LoadBar returns up to days days of bars ending one interval before
// the backtest start, for strategy warm-up (spec §4.5 load_bar;
// grounded on backtesting.rs::load_bar).
func (e *Engine) LoadBar(ctx context.Context, vtSymbol string, days int, interval constant.Interval, useDatabase bool) ([]object.Bar, error) {
	symbol, exchange, err := roundutil.ExtractVtSymbol(vtSymbol)
	if err != nil {
		return nil, fmt.Errorf("engine: load_bar: %w", err)
	}
	initEnd := e.cfg.Start.Add(-interval.Delta())
	initStart := e.cfg.Start.AddDate(0, 0, -days)
	return e.barLoader.LoadBarData(ctx, symbol, exchange, interval, initStart, initEnd)
}

// LoadTick is the tick-mode analogue of LoadBar (spec §4.5 load_tick).
func (e *Engine) LoadTick(ctx context.Context, vtSymbol string, days int) ([]object.Tick, error) {
	symbol, exchange, err := roundutil.ExtractVtSymbol(vtSymbol)
	if err != nil {
		return nil, fmt.Errorf("engine: load_tick: %w", err)
	}
	initEnd := e.cfg.Start.Add(-constant.IntervalTick.Delta())
	initStart := e.cfg.Start.AddDate(0, 0, -days)
	if e.tickLoader == nil {
		return nil, nil
	}
	return e.tickLoader.LoadTickData(ctx, symbol, exchange, initStart, initEnd)
}

// SendOrder rounds price to the configured pricetick and routes to
// send_stop_order or send_limit_order, returning a single-element id
// list (spec §4.5 send_order).
func (e *Engine) SendOrder(strategy Strategy, direction constant.Direction, offset constant.Offset, price, volume float64, stop, lock, net bool) []string {
	price = roundutil.RoundTo(price, e.cfg.PriceTick)
	if stop {
		return []string{e.sendStopOrder(direction, offset, price, volume)}
	}
	return []string{e.sendLimitOrder(direction, offset, price, volume)}
}

func (e *Engine) sendLimitOrder(direction constant.Direction, offset constant.Offset, price, volume float64) string {
	e.nextOrderID++
	order := object.LimitOrder{
		OrderID:   fmt.Sprintf("%d", e.nextOrderID),
		Symbol:    e.symbol,
		Exchange:  e.exchange,
		Direction: direction,
		Offset:    offset,
		Price:     price,
		Volume:    volume,
		Status:    constant.OrderStatusSubmitting,
		Timestamp: e.currentTime,
	}
	e.allLimitOrders[order.OrderID] = order
	e.activeLimitOrders[order.OrderID] = true
	e.limitOrderIDs = append(e.limitOrderIDs, order.OrderID)
	return order.OrderID
}

func (e *Engine) sendStopOrder(direction constant.Direction, offset constant.Offset, price, volume float64) string {
	e.nextStopOrderID++
	strategyName := ""
	if e.strategy != nil {
		strategyName = fmt.Sprintf("%T", e.strategy)
	}
	stop := object.StopOrder{
		StopOrderID:  fmt.Sprintf("%s.%d", constant.StopOrderPrefix, e.nextStopOrderID),
		Symbol:       e.symbol,
		Exchange:     e.exchange,
		Direction:    direction,
		Offset:       offset,
		Price:        price,
		Volume:       volume,
		Status:       constant.StopOrderStatusWaiting,
		Timestamp:    e.currentTime,
		StrategyName: strategyName,
	}
	e.allStopOrders[stop.StopOrderID] = stop
	e.activeStopOrders[stop.StopOrderID] = true
	e.stopOrderIDs = append(e.stopOrderIDs, stop.StopOrderID)
	return stop.StopOrderID
}

// CancelOrder dispatches by prefix: stop-order ids begin with "STOP.",
// anything else is a limit order (spec §4.5 cancel_order).
func (e *Engine) CancelOrder(strategy Strategy, vtOrderID string) {
	if strings.HasPrefix(vtOrderID, constant.StopOrderPrefix+".") {
		e.cancelStopOrder(vtOrderID)
	} else {
		e.cancelLimitOrder(vtOrderID)
	}
}

func (e *Engine) cancelLimitOrder(orderID string) {
	if !e.activeLimitOrders[orderID] {
		return
	}
	order := e.allLimitOrders[orderID]
	order.Status = constant.OrderStatusCancelled
	e.allLimitOrders[orderID] = order
	delete(e.activeLimitOrders, orderID)
	e.strategy.OnOrder(order)
}

func (e *Engine) cancelStopOrder(stopOrderID string) {
	if !e.activeStopOrders[stopOrderID] {
		return
	}
	stop := e.allStopOrders[stopOrderID]
	stop.Status = constant.StopOrderStatusCancelled
	e.allStopOrders[stopOrderID] = stop
	delete(e.activeStopOrders, stopOrderID)
	e.strategy.OnStopOrder(stop)
}

// CancelAll cancels every active limit order, then every active stop
// order (spec §4.5 cancel_all).
func (e *Engine) CancelAll(strategy Strategy) {
	for _, id := range e.snapshotActiveLimitOrderIDs() {
		e.cancelLimitOrder(id)
	}
	for _, id := range e.snapshotActiveStopOrderIDs() {
		e.cancelStopOrder(id)
	}
}
