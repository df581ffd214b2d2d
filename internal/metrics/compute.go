// Package metrics turns a completed backtest (closed trades plus equity curve)
// into summary performance statistics. Everything here is pure and safe for
// concurrent use.
package metrics

// Compute 计算回测汇总指标。输入不合法时返回 ErrInvalidInput，且不返回部分结果；
// 无法定义的单项指标以 nil 表示，不影响其余字段。
func Compute(trades []Trade, curve []EquityPoint, initialCapital, periodDays float64, opts Options) (Metrics, error) {
	if err := Validate(trades, curve, initialCapital, periodDays, opts); err != nil {
		return Metrics{}, err
	}
	ts := SummarizeTrades(trades)
	final := curve[len(curve)-1].Value
	returns := PeriodicReturns(curve)

	m := Metrics{
		TotalTrades:     ts.Total,
		WinningTrades:   ts.Wins,
		LosingTrades:    ts.Losses,
		BreakevenTrades: ts.Breakeven,

		WinRate:      ts.WinRate,
		GrossProfit:  ts.GrossProfit,
		GrossLoss:    ts.GrossLoss,
		ProfitFactor: ts.ProfitFactor,
		AverageWin:   ts.AverageWin,
		AverageLoss:  ts.AverageLoss,

		MaxConsecutiveWins:   ts.MaxConsecutiveWins,
		MaxConsecutiveLosses: ts.MaxConsecutiveLosses,

		FinalEquity:             final,
		TotalReturn:             final - initialCapital,
		TotalReturnPercent:      (final - initialCapital) / initialCapital * 100,
		AnnualizedReturnPercent: AnnualizedReturnPercent(final, initialCapital, periodDays, opts.MinPeriodDays),
		MaxDrawdownPercent:      MaxDrawdownPercent(curve),

		ReturnPeriods: len(returns),
		SharpeRatio:   SharpeRatio(returns, opts.AnnualizationFactor),
		SortinoRatio:  SortinoRatio(returns, opts.TargetReturn, opts.AnnualizationFactor),
	}
	return m, nil
}
