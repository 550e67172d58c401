package engine

import (
	"fmt"

	"github.com/marketreplay/backtester/pkg/constant"
	"github.com/marketreplay/backtester/pkg/object"
)

// crossPrices is the four-number price rule of spec §4.2/§4.3: the
// price a LONG/SHORT order needs to beat to cross, and the price it
// actually fills at once it does.
type crossPrices struct {
	longCross, shortCross float64
	longBest, shortBest   float64
}

// limitCrossPrices returns the crossing rule for §4.2: bar mode uses
// low/high to cross and open as the best price; tick mode uses the
// best ask/bid on both ends.
func (e *Engine) limitCrossPrices() crossPrices {
	if e.cfg.Mode == constant.ModeTick {
		return crossPrices{
			longCross:  e.currentTick.AskPrice[0],
			shortCross: e.currentTick.BidPrice[0],
			longBest:   e.currentTick.AskPrice[0],
			shortBest:  e.currentTick.BidPrice[0],
		}
	}
	return crossPrices{
		longCross:  e.currentBar.Low,
		shortCross: e.currentBar.High,
		longBest:   e.currentBar.Open,
		shortBest:  e.currentBar.Open,
	}
}

// stopCrossPrices returns the trigger rule for §4.3: bar mode triggers
// a LONG stop off the high and a SHORT stop off the low, with open as
// the fill's best price; tick mode uses last_price on every side.
func (e *Engine) stopCrossPrices() crossPrices {
	if e.cfg.Mode == constant.ModeTick {
		p := e.currentTick.LastPrice
		return crossPrices{longCross: p, shortCross: p, longBest: p, shortBest: p}
	}
	return crossPrices{
		longCross:  e.currentBar.High,
		shortCross: e.currentBar.Low,
		longBest:   e.currentBar.Open,
		shortBest:  e.currentBar.Open,
	}
}

// crossLimitOrders matches every active limit order against the
// current event's prices (spec §4.2). It iterates a snapshot of
// activeLimitOrders ids (insertion order) since the body mutates the
// active set and the order map.
func (e *Engine) crossLimitOrders() {
	cp := e.limitCrossPrices()

	for _, id := range e.snapshotActiveLimitOrderIDs() {
		order := e.allLimitOrders[id]

		if order.Status == constant.OrderStatusSubmitting {
			order.Status = constant.OrderStatusNotTraded
			e.allLimitOrders[id] = order
			e.strategy.OnOrder(order)
		}

		longCross := order.Direction == constant.DirectionLong &&
			order.Price >= cp.longCross && cp.longCross > 0
		shortCross := order.Direction == constant.DirectionShort &&
			order.Price <= cp.shortCross && cp.shortCross > 0
		if !longCross && !shortCross {
			continue
		}

		order.Traded = order.Volume
		order.Status = constant.OrderStatusAllTraded
		e.allLimitOrders[id] = order
		e.strategy.OnOrder(order)
		delete(e.activeLimitOrders, id)

		var tradePrice, posChange float64
		if longCross {
			tradePrice = min(order.Price, cp.longBest)
			posChange = order.Volume
		} else {
			tradePrice = max(order.Price, cp.shortBest)
			posChange = -order.Volume
		}

		trade := e.recordTrade(order, tradePrice)
		e.applyPositionChange(posChange)
		e.strategy.OnTrade(trade)
	}
}

// crossStopOrders triggers every active stop order against the
// current event (spec §4.3). A triggered stop spawns a LimitOrder
// already at ALLTRADED (never added to activeLimitOrders) and fills
// in the same event, at the worse side of the stop price and the best
// price — you get the worse of your stop and the open.
func (e *Engine) crossStopOrders() {
	cp := e.stopCrossPrices()

	for _, id := range e.snapshotActiveStopOrderIDs() {
		stop := e.allStopOrders[id]

		longCross := stop.Direction == constant.DirectionLong && stop.Price <= cp.longCross
		shortCross := stop.Direction == constant.DirectionShort && stop.Price >= cp.shortCross
		if !longCross && !shortCross {
			continue
		}

		e.nextOrderID++
		spawned := object.LimitOrder{
			OrderID:   fmt.Sprintf("%d", e.nextOrderID),
			Symbol:    e.symbol,
			Exchange:  e.exchange,
			Direction: stop.Direction,
			Offset:    stop.Offset,
			Price:     stop.Price,
			Volume:    stop.Volume,
			Traded:    stop.Volume,
			Status:    constant.OrderStatusAllTraded,
			Timestamp: e.currentTime,
		}
		e.allLimitOrders[spawned.OrderID] = spawned
		e.limitOrderIDs = append(e.limitOrderIDs, spawned.OrderID)
		// Deliberately not added to activeLimitOrders: it is already terminal.

		var tradePrice, posChange float64
		if longCross {
			tradePrice = max(stop.Price, cp.longBest)
			posChange = spawned.Volume
		} else {
			tradePrice = min(stop.Price, cp.shortBest)
			posChange = -spawned.Volume
		}

		trade := e.recordTrade(spawned, tradePrice)

		stop.SpawnedOrderIDs = append(stop.SpawnedOrderIDs, spawned.OrderID)
		stop.Status = constant.StopOrderStatusTriggered
		e.allStopOrders[id] = stop
		delete(e.activeStopOrders, id)

		e.strategy.OnStopOrder(stop)
		e.strategy.OnOrder(spawned)
		e.applyPositionChange(posChange)
		e.strategy.OnTrade(trade)
	}
}

// applyPositionChange updates the engine's own position and pushes the
// same change into the strategy's pos field, matching
// backtesting.rs's `*self.strategy.get_pos_mut() += pos_change`. The
// strategy's value is a second copy, not the engine's field: a SetPos
// call from outside this function makes the two differ.
func (e *Engine) applyPositionChange(posChange float64) {
	e.position += posChange
	e.strategy.SetPos(e.strategy.Pos() + posChange)
}

// recordTrade allocates a monotonic trade id, records the fill, and
// returns it. Shared by limit-order and stop-order crossing.
func (e *Engine) recordTrade(order object.LimitOrder, price float64) object.Trade {
	e.nextTradeID++
	trade := object.Trade{
		TradeID:   fmt.Sprintf("%d", e.nextTradeID),
		OrderID:   order.OrderID,
		Symbol:    order.Symbol,
		Exchange:  order.Exchange,
		Direction: order.Direction,
		Offset:    order.Offset,
		Price:     price,
		Volume:    order.Volume,
		Timestamp: e.currentTime,
	}
	e.trades[trade.TradeID] = trade
	e.tradeIDs = append(e.tradeIDs, trade.TradeID)
	return trade
}

// snapshotActiveLimitOrderIDs copies the currently active ids in
// insertion order before matching mutates the active set (spec §5
// "Iteration safety").
func (e *Engine) snapshotActiveLimitOrderIDs() []string {
	var out []string
	for _, id := range e.limitOrderIDs {
		if e.activeLimitOrders[id] {
			out = append(out, id)
		}
	}
	return out
}

// snapshotActiveStopOrderIDs is the stop-order analogue.
func (e *Engine) snapshotActiveStopOrderIDs() []string {
	var out []string
	for _, id := range e.stopOrderIDs {
		if e.activeStopOrders[id] {
			out = append(out, id)
		}
	}
	return out
}
