package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// minDeviation 以下的波动视为零方差。
const minDeviation = 1e-12

// PeriodicReturns 返回资金曲线相邻点的简单收益率 r_i = (e_i - e_{i-1}) / e_{i-1}。
func PeriodicReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Value
		out = append(out, (curve[i].Value-prev)/prev)
	}
	return out
}

// MaxDrawdownPercent runs a single pass keeping the running peak, starting at
// the first point. A non-decreasing curve yields 0.
func MaxDrawdownPercent(curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Value
	maxDD := 0.0
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.Value) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// SharpeRatio 返回 mean(r)/stdev(r)*sqrt(factor)；样本不足或零方差时为 nil。
func SharpeRatio(returns []float64, factor float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	mean, std := stat.MeanStdDev(returns, nil)
	return ratio(mean, std, factor)
}

// SortinoRatio uses the standard deviation of the returns below target as the
// denominator and the excess of the mean over target as the numerator.
// Identical downside returns have zero deviation and yield nil, which is not
// the same as having no downside.
func SortinoRatio(returns []float64, target, factor float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	downside := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < target {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return nil
	}
	mean := stat.Mean(returns, nil)
	return ratio(mean-target, stat.StdDev(downside, nil), factor)
}

func ratio(num, den, factor float64) *float64 {
	if !finite(den) || den < minDeviation {
		return nil
	}
	v := num / den * math.Sqrt(factor)
	if !finite(v) {
		return nil
	}
	return &v
}

// AnnualizedReturnPercent 返回 ((final/initial)^(365/days) - 1) * 100，days 不低于 minDays。
func AnnualizedReturnPercent(final, initial, periodDays, minDays float64) *float64 {
	if initial <= 0 || final <= 0 {
		return nil
	}
	days := math.Max(periodDays, minDays)
	if days <= 0 {
		return nil
	}
	v := (math.Pow(final/initial, 365/days) - 1) * 100
	if !finite(v) {
		return nil
	}
	return &v
}
