package sim

import (
	"math"

	"signal-trader/internal/models"
)

// Metrics summarizes realized performance, computed from the trade log
// and the equity curve after a run completes.
type Metrics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	ProfitFactor  float64
	SharpeRatio   float64
	MaxDrawdown   float64
	TotalReturn   float64
}

func computeMetrics(trades []models.Trade, curve []models.EquityPoint, initialCapital float64) Metrics {
	var m Metrics

	var grossProfit, grossLoss float64
	for _, t := range trades {
		if t.Side != models.SideSell {
			continue
		}
		m.TotalTrades++
		if t.RealizedPnL > 0 {
			m.WinningTrades++
			grossProfit += t.RealizedPnL
		} else if t.RealizedPnL < 0 {
			m.LosingTrades++
			grossLoss += -t.RealizedPnL
		}
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		m.ProfitFactor = math.Inf(1)
	}

	m.SharpeRatio = sharpe(curve)
	m.MaxDrawdown = maxDrawdown(curve)
	if initialCapital > 0 && len(curve) > 0 {
		m.TotalReturn = (curve[len(curve)-1].Equity - initialCapital) / initialCapital * 100
	}
	return m
}

// sharpe computes the annualized Sharpe ratio of per-tick equity
// returns, assuming 252 trading periods per year and zero risk-free
// rate.
func sharpe(curve []models.EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}
	return mean / stddev * math.Sqrt(252)
}

// maxDrawdown returns the largest peak-to-trough equity decline as a
// fraction of the peak.
func maxDrawdown(curve []models.EquityPoint) float64 {
	var peak, maxDD float64
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
