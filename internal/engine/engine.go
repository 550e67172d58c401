// Package engine implements the replay-and-matching core of the
// backtesting system: the event loop that advances simulated time,
// crosses limit and stop orders against each bar/tick, maintains
// position, and drives the daily mark-to-market and statistics
// pipeline (spec §2, "The Core"). Grounded on
// original_source/src/vnrs_ctastrategy/backtesting.rs::BacktestingEngine,
// re-architected per spec §9: value-type orders/trades identified by
// id, with an id->record map as the single source of truth, instead of
// the source's Rc<RefCell<..>> shared-mutable cells.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marketreplay/backtester/internal/engineio"
	"github.com/marketreplay/backtester/internal/loader"
	"github.com/marketreplay/backtester/pkg/constant"
	"github.com/marketreplay/backtester/pkg/object"
)

// Engine owns every container the replay touches: history, active and
// historical orders/stops/trades, daily results, and the running
// position. It is the EngineState of spec §3, single-threaded per
// spec §5: no suspension point is exposed during an event.
type Engine struct {
	cfg      Config
	symbol   string
	exchange constant.Exchange

	barLoader  loader.BarLoader
	tickLoader loader.TickLoader
	log        *engineio.Logger

	strategy Strategy

	barHistory  []object.Bar
	tickHistory []object.Tick

	currentBar  object.Bar
	currentTick object.Tick
	currentTime time.Time

	position float64

	nextOrderID     int
	nextStopOrderID int
	nextTradeID     int

	// allLimitOrders is the single source of truth for order state;
	// activeLimitOrders/limitOrderIDs track membership/iteration order
	// without duplicating the record itself (spec §9 "Shared-mutable
	// order objects").
	allLimitOrders    map[string]object.LimitOrder
	activeLimitOrders map[string]bool
	limitOrderIDs     []string // insertion order, every id ever created

	allStopOrders    map[string]object.StopOrder
	activeStopOrders map[string]bool
	stopOrderIDs     []string

	trades   map[string]object.Trade
	tradeIDs []string

	dailyResults     map[string]*object.DailyResult
	dailyResultDates []time.Time

	// RunID is a per-instance identifier so multiple engines in one
	// process are distinguishable (spec §9 "Global state... multiple
	// engines may coexist in one process"). It is not included in log
	// lines or in the statistics report.
	RunID string
}

// New constructs an Engine with the given run parameters, a BarLoader
// (required) and optional TickLoader (required only in tick mode), and
// a log sink. This is the Go shape of set_parameters: configuration is
// recorded immutably up front and validated before load_data can run.
func New(cfg Config, barLoader loader.BarLoader, tickLoader loader.TickLoader, log *engineio.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	symbol, exchange, err := cfg.symbolAndExchange()
	if err != nil {
		return nil, fmt.Errorf("engine: parse vt_symbol %q: %w", cfg.VtSymbol, err)
	}
	if cfg.Mode == constant.ModeTick && tickLoader == nil {
		return nil, fmt.Errorf("engine: tick mode requires a TickLoader")
	}
	if log == nil {
		log = engineio.New(nil)
	}

	e := &Engine{
		cfg:               cfg,
		symbol:            symbol,
		exchange:          exchange,
		barLoader:         barLoader,
		tickLoader:        tickLoader,
		log:               log,
		allLimitOrders:    make(map[string]object.LimitOrder),
		activeLimitOrders: make(map[string]bool),
		allStopOrders:     make(map[string]object.StopOrder),
		activeStopOrders:  make(map[string]bool),
		trades:            make(map[string]object.Trade),
		dailyResults:      make(map[string]*object.DailyResult),
		RunID:             uuid.NewString(),
	}
	return e, nil
}

// AddStrategy instantiates the strategy plugin capability and binds it
// to this engine's EngineCallbacks. In a dynamically-loaded-plugin
// build this is where the platform ABI would construct the instance
// (spec §6); in a single-binary build the caller already holds the
// concrete Strategy value.
func (e *Engine) AddStrategy(s Strategy) {
	e.strategy = s
}

// VtSymbol returns the "<symbol>.<exchange>" identifier this engine replays.
func (e *Engine) VtSymbol() string { return fmt.Sprintf("%s.%s", e.symbol, e.exchange) }

// Position returns the engine's current position. Strategy.Pos() reads
// the strategy's own copy, which the engine updates on every fill.
func (e *Engine) Position() float64 { return e.position }

// Trades returns every trade produced so far, in creation order.
func (e *Engine) Trades() []object.Trade {
	out := make([]object.Trade, 0, len(e.tradeIDs))
	for _, id := range e.tradeIDs {
		out = append(out, e.trades[id])
	}
	return out
}

// AllLimitOrders returns every limit order ever created, in creation order.
func (e *Engine) AllLimitOrders() []object.LimitOrder {
	out := make([]object.LimitOrder, 0, len(e.limitOrderIDs))
	for _, id := range e.limitOrderIDs {
		out = append(out, e.allLimitOrders[id])
	}
	return out
}

// AllStopOrders returns every stop order ever created, in creation order.
func (e *Engine) AllStopOrders() []object.StopOrder {
	out := make([]object.StopOrder, 0, len(e.stopOrderIDs))
	for _, id := range e.stopOrderIDs {
		out = append(out, e.allStopOrders[id])
	}
	return out
}

// ActiveLimitOrders returns a deterministic (insertion-order) snapshot
// of currently resting limit orders, for callers inspecting engine state
// between events; matching itself takes its own snapshot internally.
func (e *Engine) ActiveLimitOrders() []object.LimitOrder {
	var out []object.LimitOrder
	for _, id := range e.limitOrderIDs {
		if e.activeLimitOrders[id] {
			out = append(out, e.allLimitOrders[id])
		}
	}
	return out
}

// ActiveStopOrders returns a deterministic snapshot of currently
// waiting stop orders.
func (e *Engine) ActiveStopOrders() []object.StopOrder {
	var out []object.StopOrder
	for _, id := range e.stopOrderIDs {
		if e.activeStopOrders[id] {
			out = append(out, e.allStopOrders[id])
		}
	}
	return out
}

// Logs returns every log line emitted by this run so far.
func (e *Engine) Logs() []string { return e.log.Lines() }

// SetLogLevel adjusts the engine's log sink verbosity, letting a
// caller mute load_data/run_backtesting progress chatter and only
// re-enable output around calculate_statistics's report (the CLI's
// report subcommand does exactly this).
func (e *Engine) SetLogLevel(level zerolog.Level) {
	e.log.SetLevel(level)
}

func (e *Engine) output(msg string) {
	e.log.Output(e.currentTime, msg)
}

func (e *Engine) debugf(format string, args ...any) {
	e.log.Debug(e.currentTime, fmt.Sprintf(format, args...))
}

// writeLog appends a strategy-originated message to history without
// printing it, matching original_source's write_log/output split.
func (e *Engine) writeLog(msg string) {
	e.log.WriteLog(e.currentTime, msg)
}
