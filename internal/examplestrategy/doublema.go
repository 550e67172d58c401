// Package examplestrategy provides a minimal Strategy implementation
// for exercising the engine end to end from cmd/backtester. The
// strategy boundary itself is an external-collaborator interface
// (spec §1 "Strategy plugin loading/ABI"); this is a stand-in plugin,
// not part of that boundary's contract.
package examplestrategy

import (
	"github.com/marketreplay/backtester/internal/engine"
	"github.com/marketreplay/backtester/pkg/constant"
	"github.com/marketreplay/backtester/pkg/object"
)

// DoubleMA is a textbook dual moving-average crossover: goes long when
// the fast average crosses above the slow one, flips short on the
// reverse cross, Volume units at a time, always-in-market. It exists to
// give the CLI's run command a concrete plugin to drive the engine
// with; it carries no claim to being profitable.
type DoubleMA struct {
	engine.BaseStrategy

	FastWindow int
	SlowWindow int
	Volume     float64

	cb     engine.EngineCallbacks
	closes []float64
}

// NewDoubleMA returns a DoubleMA with the given window sizes. A
// fastWindow/slowWindow of zero falls back to 5/20.
func NewDoubleMA(fastWindow, slowWindow int, volume float64) *DoubleMA {
	if fastWindow <= 0 {
		fastWindow = 5
	}
	if slowWindow <= 0 {
		slowWindow = 20
	}
	if volume <= 0 {
		volume = 1
	}
	return &DoubleMA{FastWindow: fastWindow, SlowWindow: slowWindow, Volume: volume}
}

func (s *DoubleMA) OnInit(callbacks engine.EngineCallbacks) {
	s.cb = callbacks
}

func (s *DoubleMA) OnBar(bar object.Bar) {
	s.closes = append(s.closes, bar.Close)
	if len(s.closes) < s.SlowWindow {
		return
	}

	fast := sma(s.closes, s.FastWindow)
	slow := sma(s.closes, s.SlowWindow)

	switch {
	case fast > slow && s.Pos() <= 0:
		s.cb.CancelAll(s)
		if s.Pos() < 0 {
			s.cb.SendOrder(s, constant.DirectionLong, constant.OffsetClose, bar.Close, -s.Pos(), false, false, false)
		}
		s.cb.SendOrder(s, constant.DirectionLong, constant.OffsetOpen, bar.Close, s.Volume, false, false, false)
	case fast < slow && s.Pos() >= 0:
		s.cb.CancelAll(s)
		if s.Pos() > 0 {
			s.cb.SendOrder(s, constant.DirectionShort, constant.OffsetClose, bar.Close, s.Pos(), false, false, false)
		}
		s.cb.SendOrder(s, constant.DirectionShort, constant.OffsetOpen, bar.Close, s.Volume, false, false, false)
	}
}

// sma is the mean of the last n values of xs; xs is assumed to already
// hold at least n elements (callers check len first).
func sma(xs []float64, n int) float64 {
	window := xs[len(xs)-n:]
	var sum float64
	for _, x := range window {
		sum += x
	}
	return sum / float64(n)
}
