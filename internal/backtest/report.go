package backtest

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"tradedash/internal/metrics"
)

const notAvailable = "N/A"

// FormatSummary 把指标渲染成两列文本表，未定义的指标显示为 N/A。
func FormatSummary(m metrics.Metrics) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	row := func(label, value string) {
		fmt.Fprintf(tw, "%s\t%s\n", label, value)
	}

	row("Total trades", fmt.Sprintf("%d", m.TotalTrades))
	row("Winning / losing / breakeven", fmt.Sprintf("%d / %d / %d", m.WinningTrades, m.LosingTrades, m.BreakevenTrades))
	row("Win rate", fmt.Sprintf("%.2f%%", m.WinRate))
	row("Gross profit", fmt.Sprintf("%.2f", m.GrossProfit))
	row("Gross loss", fmt.Sprintf("%.2f", m.GrossLoss))
	row("Profit factor", optional(m.ProfitFactor, "%.2f"))
	row("Average win", fmt.Sprintf("%.2f", m.AverageWin))
	row("Average loss", fmt.Sprintf("%.2f", m.AverageLoss))
	row("Max consecutive wins", fmt.Sprintf("%d", m.MaxConsecutiveWins))
	row("Max consecutive losses", fmt.Sprintf("%d", m.MaxConsecutiveLosses))
	row("Final equity", fmt.Sprintf("%.2f", m.FinalEquity))
	row("Total return", fmt.Sprintf("%.2f (%.2f%%)", m.TotalReturn, m.TotalReturnPercent))
	row("Annualized return", optional(m.AnnualizedReturnPercent, "%.2f%%"))
	row("Max drawdown", fmt.Sprintf("%.2f%%", m.MaxDrawdownPercent))
	row("Return periods", fmt.Sprintf("%d", m.ReturnPeriods))
	row("Sharpe ratio", optional(m.SharpeRatio, "%.3f"))
	row("Sortino ratio", optional(m.SortinoRatio, "%.3f"))

	_ = tw.Flush()
	return b.String()
}

func optional(v *float64, format string) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf(format, *v)
}
