// Package roundutil provides small helpers the engine needs:
// decimal-exact price-tick rounding (which float64 arithmetic alone
// gets wrong) and vt_symbol parsing.
package roundutil

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/marketreplay/backtester/pkg/constant"
)

// RoundTo rounds value to the nearest multiple of tick using exact
// decimal division/multiplication, matching original_source's
// utility.rs::round_to (built on rust_decimal) rather than the naive
// math.Round(value/tick)*tick float recipe, which drifts on ticks like
// 0.1 or 0.25 after repeated application.
func RoundTo(value, tick float64) float64 {
	if tick == 0 {
		return value
	}
	v := decimal.NewFromFloat(value)
	t := decimal.NewFromFloat(tick)
	rounded := v.DivRound(t, 0).Mul(t)
	f, _ := rounded.Float64()
	return f
}

// ExtractVtSymbol splits a "<symbol>.<exchange>" identifier on the
// LAST dot, so a symbol that itself contains dots (e.g. a spread code)
// still parses correctly. Mirrors utility.rs::extract_vt_symbol's
// rsplitn(2, ".") behavior.
func ExtractVtSymbol(vtSymbol string) (symbol string, exchange constant.Exchange, err error) {
	idx := strings.LastIndex(vtSymbol, ".")
	if idx < 0 {
		return "", "", constant.ErrUnknownExchange
	}
	symbol = vtSymbol[:idx]
	exchange, err = constant.ParseExchange(vtSymbol[idx+1:])
	if err != nil {
		return "", "", err
	}
	return symbol, exchange, nil
}
