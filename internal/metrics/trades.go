package metrics

import (
	"slices"

	"github.com/shopspring/decimal"
)

// TradeStats 是只依赖交易列表的统计结果。
type TradeStats struct {
	Total, Wins, Losses, Breakeven int

	WinRate      float64
	GrossProfit  float64
	GrossLoss    float64
	ProfitFactor *float64
	AverageWin   float64
	AverageLoss  float64

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
}

// SummarizeTrades counts wins, losses and breakevens and derives the averages
// and profit factor. Zero-P&L trades count toward Total only.
func SummarizeTrades(trades []Trade) TradeStats {
	st := TradeStats{Total: len(trades)}
	for _, t := range trades {
		switch sign(t.ProfitLoss) {
		case 1:
			st.Wins++
		case -1:
			st.Losses++
		default:
			st.Breakeven++
		}
	}
	if st.Total > 0 {
		st.WinRate = 100 * float64(st.Wins) / float64(st.Total)
	}
	gross, loss := sumProfitLoss(trades)
	st.GrossProfit = decToFloat(gross)
	st.GrossLoss = decToFloat(loss)
	if st.Wins > 0 {
		st.AverageWin = decToFloat(gross.Div(decimal.NewFromInt(int64(st.Wins))))
	}
	if st.Losses > 0 {
		st.AverageLoss = decToFloat(loss.Div(decimal.NewFromInt(int64(st.Losses))))
		pf := decToFloat(gross.Div(loss))
		st.ProfitFactor = &pf
	}
	st.MaxConsecutiveWins, st.MaxConsecutiveLosses = Streaks(trades)
	return st
}

// Streaks 按入场时间顺序扫描，返回最长连胜与最长连亏；零盈亏交易打断两种连续。
// 输入切片不会被修改。
func Streaks(trades []Trade) (maxWins, maxLosses int) {
	ordered := slices.Clone(trades)
	slices.SortStableFunc(ordered, func(a, b Trade) int {
		return a.EntryTime.Compare(b.EntryTime)
	})
	curWins, curLosses := 0, 0
	for _, t := range ordered {
		switch sign(t.ProfitLoss) {
		case 1:
			curWins++
			curLosses = 0
		case -1:
			curLosses++
			curWins = 0
		default:
			curWins, curLosses = 0, 0
		}
		maxWins = max(maxWins, curWins)
		maxLosses = max(maxLosses, curLosses)
	}
	return maxWins, maxLosses
}
