package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/marketreplay/backtester/pkg/object"
)

// Statistics is the portfolio-level report computed from a sorted
// DailyResult table (spec §4.4 calculate_statistics). Every scalar
// besides PositiveBalance is zero-valued when the run blows up
// (balance touches zero or goes negative on any day).
type Statistics struct {
	StartDate time.Time
	EndDate   time.Time

	TotalDays  int
	ProfitDays int
	LossDays   int

	PositiveBalance bool

	EndBalance          float64
	MaxDrawdown         float64
	MaxDDPercent        float64
	MaxDrawdownDuration int // days

	TotalNetPnL     float64
	DailyNetPnL     float64
	TotalCommission float64
	DailyCommission float64
	TotalSlippage   float64
	DailySlippage   float64
	TotalTurnover   float64
	DailyTurnover   float64
	TotalTradeCount int
	DailyTradeCount float64

	TotalReturn  float64
	AnnualReturn float64
	DailyReturn  float64
	ReturnStd    float64
	SharpeRatio  float64

	ReturnDrawdownRatio float64
}

// CalculateStatistics computes the statistics summary from the sorted
// daily results produced by CalculateResult (spec §4.4). When output
// is true, a labeled text report is written to the engine's log sink.
func (e *Engine) CalculateStatistics(daily []object.DailyResult, output bool) Statistics {
	e.output("开始计算策略统计指标")

	var stats Statistics

	if len(daily) == 0 {
		if output {
			e.writeStatisticsReport(stats)
		}
		return stats
	}

	n := len(daily)
	balance := make([]float64, n)
	preBalance := make([]float64, n)
	ret := make([]float64, n)
	highlevel := make([]float64, n)
	drawdown := make([]float64, n)
	ddpercent := make([]float64, n)

	running := e.cfg.Capital
	for i, d := range daily {
		preBalance[i] = running
		running += d.NetPnL
		balance[i] = running

		if preBalance[i] > 0 && balance[i]/preBalance[i] > 0 {
			ret[i] = math.Log(balance[i] / preBalance[i])
		}
	}

	stats.PositiveBalance = true
	for _, b := range balance {
		if b <= 0 {
			stats.PositiveBalance = false
			break
		}
	}
	if !stats.PositiveBalance {
		e.output("回测中出现爆仓（资金小于等于0），无法计算策略统计指标")
		if output {
			e.writeStatisticsReport(stats)
		}
		return stats
	}

	max := balance[0]
	maxDrawdownIdx := 0
	for i, b := range balance {
		if b > max {
			max = b
		}
		highlevel[i] = max
		drawdown[i] = b - max
		ddpercent[i] = drawdown[i] / max * 100

		if drawdown[i] < drawdown[maxDrawdownIdx] {
			maxDrawdownIdx = i
		}
	}

	stats.StartDate = daily[0].Date
	stats.EndDate = daily[n-1].Date
	stats.TotalDays = n

	for _, d := range daily {
		if d.NetPnL > 0 {
			stats.ProfitDays++
		} else if d.NetPnL < 0 {
			stats.LossDays++
		}
		stats.TotalNetPnL += d.NetPnL
		stats.TotalCommission += d.Commission
		stats.TotalSlippage += d.Slippage
		stats.TotalTurnover += d.Turnover
		stats.TotalTradeCount += d.TradeCount
	}

	stats.EndBalance = balance[n-1]
	stats.MaxDrawdown = drawdown[maxDrawdownIdx]
	stats.MaxDDPercent = ddpercent[maxDrawdownIdx]

	// max_drawdown_duration: days between the peak balance preceding the
	// trough and the trough itself (spec §4.4).
	peakIdx := 0
	peakBalance := balance[0]
	for i := 0; i <= maxDrawdownIdx; i++ {
		if balance[i] > peakBalance {
			peakBalance = balance[i]
			peakIdx = i
		}
	}
	stats.MaxDrawdownDuration = int(daily[maxDrawdownIdx].Date.Sub(daily[peakIdx].Date).Hours() / 24)

	stats.DailyNetPnL = stats.TotalNetPnL / float64(stats.TotalDays)
	stats.DailyCommission = stats.TotalCommission / float64(stats.TotalDays)
	stats.DailySlippage = stats.TotalSlippage / float64(stats.TotalDays)
	stats.DailyTurnover = stats.TotalTurnover / float64(stats.TotalDays)
	stats.DailyTradeCount = float64(stats.TotalTradeCount) / float64(stats.TotalDays)

	stats.TotalReturn = (stats.EndBalance/e.cfg.Capital - 1) * 100
	stats.AnnualReturn = stats.TotalReturn / float64(stats.TotalDays) * float64(e.cfg.AnnualDays)
	stats.DailyReturn = mean(ret) * 100
	stats.ReturnStd = stddev(ret) * 100

	if stats.ReturnStd != 0 {
		dailyRiskFree := e.cfg.RiskFree / math.Sqrt(float64(e.cfg.AnnualDays))
		stats.SharpeRatio = (stats.DailyReturn - dailyRiskFree) / stats.ReturnStd * math.Sqrt(float64(e.cfg.AnnualDays))
	}

	if stats.MaxDDPercent != 0 {
		stats.ReturnDrawdownRatio = -stats.TotalReturn / stats.MaxDDPercent
	}

	if output {
		e.writeStatisticsReport(stats)
	}
	e.output("策略统计指标计算完成")
	return stats
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev computes the population standard deviation (ddof=0), matching
// the source's df["return"].std(0) call.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

func (e *Engine) writeStatisticsReport(s Statistics) {
	const dash = "------------------------------"
	e.output(dash)
	e.output(fmt.Sprintf("首个交易日：\t%s", dateOrEmpty(s.StartDate)))
	e.output(fmt.Sprintf("最后交易日：\t%s", dateOrEmpty(s.EndDate)))

	e.output(fmt.Sprintf("总交易日：\t%d", s.TotalDays))
	e.output(fmt.Sprintf("盈利交易日：\t%d", s.ProfitDays))
	e.output(fmt.Sprintf("亏损交易日：\t%d", s.LossDays))

	e.output(fmt.Sprintf("起始资金：\t%.2f", e.cfg.Capital))
	e.output(fmt.Sprintf("结束资金：\t%.2f", s.EndBalance))

	e.output(fmt.Sprintf("总收益率：\t%.2f%%", s.TotalReturn))
	e.output(fmt.Sprintf("年化收益：\t%.2f%%", s.AnnualReturn))
	e.output(fmt.Sprintf("最大回撤: \t%.2f", s.MaxDrawdown))
	e.output(fmt.Sprintf("百分比最大回撤: %.2f%%", s.MaxDDPercent))
	e.output(fmt.Sprintf("最长回撤天数: \t%d", s.MaxDrawdownDuration))

	e.output(fmt.Sprintf("总盈亏：\t%.2f", s.TotalNetPnL))
	e.output(fmt.Sprintf("总手续费：\t%.2f", s.TotalCommission))
	e.output(fmt.Sprintf("总滑点：\t%.2f", s.TotalSlippage))
	e.output(fmt.Sprintf("总成交金额：\t%.2f", s.TotalTurnover))
	e.output(fmt.Sprintf("总成交笔数：\t%d", s.TotalTradeCount))

	e.output(fmt.Sprintf("日均盈亏：\t%.2f", s.DailyNetPnL))
	e.output(fmt.Sprintf("日均手续费：\t%.2f", s.DailyCommission))
	e.output(fmt.Sprintf("日均滑点：\t%.2f", s.DailySlippage))
	e.output(fmt.Sprintf("日均成交金额：\t%.2f", s.DailyTurnover))
	e.output(fmt.Sprintf("日均成交笔数：\t%.2f", s.DailyTradeCount))

	e.output(fmt.Sprintf("日均收益率：\t%.2f%%", s.DailyReturn))
	e.output(fmt.Sprintf("收益标准差：\t%.2f%%", s.ReturnStd))
	e.output(fmt.Sprintf("Sharpe Ratio：\t%.2f", s.SharpeRatio))
	e.output(fmt.Sprintf("收益回撤比：\t%.2f", s.ReturnDrawdownRatio))
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
