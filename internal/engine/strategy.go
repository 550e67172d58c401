package engine

import (
	"context"

	"github.com/marketreplay/backtester/pkg/constant"
	"github.com/marketreplay/backtester/pkg/object"
)

// Strategy is the capability a plugin implements, the Go analogue of
// original_source's CtaTemplate ABI (func_on_init/on_bar/on_order/...
// plus the three mutable accessors) collapsed from a C vtable into an
// interface, per spec §9 "Polymorphic strategy hosting".
type Strategy interface {
	OnInit(callbacks EngineCallbacks)
	OnStart()
	OnStop()
	OnTick(tick object.Tick)
	OnBar(bar object.Bar)
	OnOrder(order object.LimitOrder)
	OnTrade(trade object.Trade)
	OnStopOrder(stop object.StopOrder)

	Inited() bool
	SetInited(bool)
	Trading() bool
	SetTrading(bool)

	// Pos/SetPos expose the strategy's view of position. The field they
	// read/write belongs to the strategy (BaseStrategy.pos); the engine
	// keeps its own position and calls SetPos with every fill's change,
	// so the two agree only while nothing else calls SetPos.
	Pos() float64
	SetPos(float64)
}

// EngineCallbacks is the narrow API the engine exposes back to a
// strategy: load_bar/load_tick for warm-up and send_order/cancel_order/
// cancel_all for order management (spec §4.5). The Go analogue of the
// source's VTable of function pointers, injected as an interface
// reference instead of a raw address (spec §9 "Engine↔strategy callbacks").
type EngineCallbacks interface {
	LoadBar(ctx context.Context, vtSymbol string, days int, interval constant.Interval, useDatabase bool) ([]object.Bar, error)
	LoadTick(ctx context.Context, vtSymbol string, days int) ([]object.Tick, error)
	SendOrder(strategy Strategy, direction constant.Direction, offset constant.Offset, price, volume float64, stop, lock, net bool) []string
	CancelOrder(strategy Strategy, vtOrderID string)
	CancelAll(strategy Strategy)
}

// BaseStrategy gives a concrete Strategy a default no-op implementation
// of every callback plus the inited/trading/pos bookkeeping, mirroring
// how vn.py-style CTA strategies only override the handlers they care
// about. Embed it and override what the strategy needs.
type BaseStrategy struct {
	inited  bool
	trading bool
	pos     float64
}

func (b *BaseStrategy) OnInit(EngineCallbacks)       {}
func (b *BaseStrategy) OnStart()                     {}
func (b *BaseStrategy) OnStop()                      {}
func (b *BaseStrategy) OnTick(object.Tick)           {}
func (b *BaseStrategy) OnBar(object.Bar)             {}
func (b *BaseStrategy) OnOrder(object.LimitOrder)    {}
func (b *BaseStrategy) OnTrade(object.Trade)         {}
func (b *BaseStrategy) OnStopOrder(object.StopOrder) {}

func (b *BaseStrategy) Inited() bool     { return b.inited }
func (b *BaseStrategy) SetInited(v bool) { b.inited = v }
func (b *BaseStrategy) Trading() bool    { return b.trading }
func (b *BaseStrategy) SetTrading(v bool) { b.trading = v }
func (b *BaseStrategy) Pos() float64      { return b.pos }
func (b *BaseStrategy) SetPos(v float64)  { b.pos = v }
