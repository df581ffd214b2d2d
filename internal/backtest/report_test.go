package backtest

import (
	"strings"
	"testing"

	"tradedash/internal/metrics"

	"github.com/stretchr/testify/assert"
)

func TestFormatSummary(t *testing.T) {
	pf := 2.5
	out := FormatSummary(metrics.Metrics{TotalTrades: 3, WinRate: 66.666, ProfitFactor: &pf, FinalEquity: 1200})

	assert.Contains(t, out, "Total trades")
	assert.Contains(t, out, "66.67%")
	assert.Contains(t, out, "2.50")
	assert.Contains(t, out, "1200.00")

	var naRows []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.HasSuffix(line, notAvailable) {
			naRows = append(naRows, strings.TrimSpace(strings.TrimSuffix(line, notAvailable)))
		}
	}
	assert.ElementsMatch(t, []string{"Annualized return", "Sharpe ratio", "Sortino ratio"}, naRows)
}
