// Package object defines the immutable market-data types and the
// mutable order/trade/result records the engine produces during a
// replay. Orders and trades are plain value types identified by id;
// the engine's id->record maps (not these structs) are the single
// source of truth, per spec §9 "Shared-mutable order objects".
package object

import (
	"fmt"
	"time"

	"github.com/marketreplay/backtester/pkg/constant"
)

// Bar is a single OHLCV candle. Immutable once constructed; ordered
// strictly by Timestamp within a replay.
type Bar struct {
	Symbol       string
	Exchange     constant.Exchange
	Timestamp    time.Time
	Interval     constant.Interval
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	Turnover     float64
	OpenInterest float64
}

// VtSymbol returns the "<symbol>.<exchange>" form of this bar's instrument.
func (b Bar) VtSymbol() string {
	return fmt.Sprintf("%s.%s", b.Symbol, b.Exchange)
}

// Tick is a single top-of-book + last-trade snapshot. Immutable once
// constructed. The matching rules (spec §4.2/§4.3) read only the first
// book level (index 0); levels 2-5 are carried for strategy consumption only.
type Tick struct {
	Symbol    string
	Exchange  constant.Exchange
	Timestamp time.Time

	LastPrice  float64
	LastVolume float64

	BidPrice [5]float64
	AskPrice [5]float64
	BidVol   [5]float64
	AskVol   [5]float64
}

// VtSymbol returns the "<symbol>.<exchange>" form of this tick's instrument.
func (t Tick) VtSymbol() string {
	return fmt.Sprintf("%s.%s", t.Symbol, t.Exchange)
}

// LimitOrder is a resting (or terminal) order created by send_limit_order
// or spawned already-filled by a triggered StopOrder.
type LimitOrder struct {
	OrderID   string
	Symbol    string
	Exchange  constant.Exchange
	Direction constant.Direction
	Offset    constant.Offset
	Price     float64
	Volume    float64
	Traded    float64
	Status    constant.OrderStatus
	Timestamp time.Time
}

// VtOrderID returns the order id (already globally unique; kept for
// symmetry with the gateway-qualified ids the original backs onto).
func (o LimitOrder) VtOrderID() string { return o.OrderID }

// IsActive reports whether the order still rests on the book.
func (o LimitOrder) IsActive() bool { return o.Status.IsActive() }

// StopOrder is a resting stop that, once triggered, spawns an equivalent
// LimitOrder filled in the same event (spec §4.3).
type StopOrder struct {
	StopOrderID     string
	Symbol          string
	Exchange        constant.Exchange
	Direction       constant.Direction
	Offset          constant.Offset
	Price           float64
	Volume          float64
	Status          constant.StopOrderStatus
	Timestamp       time.Time
	StrategyName    string
	SpawnedOrderIDs []string
}

// IsActive reports whether the stop order is still waiting to trigger.
func (s StopOrder) IsActive() bool { return s.Status == constant.StopOrderStatusWaiting }

// Trade is an immutable fill record. Every Trade has a matching
// LimitOrder with the same OrderID in the engine's order history.
type Trade struct {
	TradeID   string
	OrderID   string
	Symbol    string
	Exchange  constant.Exchange
	Direction constant.Direction
	Offset    constant.Offset
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// SignedVolume returns +Volume for a LONG trade, -Volume for a SHORT trade.
func (t Trade) SignedVolume() float64 {
	if t.Direction == constant.DirectionShort {
		return -t.Volume
	}
	return t.Volume
}

// DailyResult is the per-calendar-date mark-to-market record. Built
// incrementally during replay (ClosePrice is last observed close that
// day) then finalized in date order by CalculateResult.
type DailyResult struct {
	Date       time.Time // truncated to the calendar date, UTC midnight
	ClosePrice float64
	PreClose   float64

	Trades     []Trade
	TradeCount int

	StartPos float64
	EndPos   float64

	Turnover   float64
	Commission float64
	Slippage   float64

	TradingPnL float64
	HoldingPnL float64
	TotalPnL   float64
	NetPnL     float64
}

// NewDailyResult creates an in-progress result for date, seeded with the
// first observed close of that day.
func NewDailyResult(date time.Time, closePrice float64) *DailyResult {
	return &DailyResult{Date: date, ClosePrice: closePrice}
}

// AddTrade appends a trade to this day's fill list (CalculateResult step 1).
func (d *DailyResult) AddTrade(t Trade) {
	d.Trades = append(d.Trades, t)
}

// CalculatePnL computes this day's P&L given the running (pre_close,
// start_pos) carried from the previous day, per spec §4.4 step 2.
func (d *DailyResult) CalculatePnL(preClose, startPos, size, rate, slippage float64) {
	if preClose != 0 {
		d.PreClose = preClose
	} else {
		d.PreClose = 1.0
	}

	d.StartPos = startPos
	d.EndPos = startPos
	d.HoldingPnL = d.StartPos * (d.ClosePrice - d.PreClose) * size

	d.TradeCount = len(d.Trades)
	for _, t := range d.Trades {
		posChange := t.SignedVolume()
		d.EndPos += posChange

		turnover := t.Volume * size * t.Price
		d.TradingPnL += posChange * (d.ClosePrice - t.Price) * size
		d.Slippage += t.Volume * size * slippage

		d.Turnover += turnover
		d.Commission += turnover * rate
	}

	d.TotalPnL = d.TradingPnL + d.HoldingPnL
	d.NetPnL = d.TotalPnL - d.Commission - d.Slippage
}
