package engine

import (
	"fmt"
	"time"

	"github.com/marketreplay/backtester/internal/roundutil"
	"github.com/marketreplay/backtester/pkg/constant"
)

// Config holds every parameter a backtest run needs, the Go analogue
// of BacktestingEngine::set_parameters's argument list.
type Config struct {
	VtSymbol string
	Interval constant.Interval
	Start    time.Time
	End      time.Time

	Rate      float64 // commission rate, fraction of turnover
	Slippage  float64 // per-unit-volume slippage cost
	Size      float64 // contract multiplier
	PriceTick float64 // minimum price increment

	Capital float64

	Mode constant.BacktestingMode

	RiskFree   float64 // annual risk-free rate (default: 0, i.e. unused unless set)
	AnnualDays int64   // trading days per year used to annualize returns (default: 240)

	// HalfLife is reserved for an EWM-weighted Sharpe ratio. Carried for
	// forward compatibility with the original's commented-out ewm_sharpe
	// block; unused by CalculateStatistics (spec Non-goals permit this).
	HalfLife int64
}

// DefaultConfig returns the original's implicit defaults where a field
// is otherwise zero-valued.
func DefaultConfig() Config {
	return Config{
		Mode:       constant.ModeBar,
		AnnualDays: 240,
		Capital:    1_000_000,
	}
}

// Validate checks the fields set_parameters' callers are expected to
// have filled in, returning a configuration-class error (spec §7)
// rather than panicking.
func (c Config) Validate() error {
	if c.VtSymbol == "" {
		return fmt.Errorf("engine: vt_symbol is required")
	}
	if !c.Start.Before(c.End) {
		return fmt.Errorf("engine: start %s must be before end %s", c.Start, c.End)
	}
	if c.Size <= 0 {
		return fmt.Errorf("engine: size must be positive, got %v", c.Size)
	}
	if c.PriceTick < 0 {
		return fmt.Errorf("engine: pricetick must be non-negative, got %v", c.PriceTick)
	}
	if c.AnnualDays <= 0 {
		return fmt.Errorf("engine: annual_days must be positive, got %v", c.AnnualDays)
	}
	return nil
}

// symbolAndExchange splits VtSymbol on its last dot via roundutil,
// matching set_parameters' own split of vt_symbol.
func (c Config) symbolAndExchange() (string, constant.Exchange, error) {
	return roundutil.ExtractVtSymbol(c.VtSymbol)
}
