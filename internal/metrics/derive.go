package metrics

import (
	"math"

	"github.com/shopspring/decimal"
)

var decHundred = decimal.NewFromInt(100)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

// DeriveProfitLoss 按方向计算盈亏金额与盈亏百分比。
// long: (exit-entry)*qty；short 取反。百分比相对于入场价。
func DeriveProfitLoss(dir Direction, entry, exit, qty float64) (pnl, pnlPct float64) {
	if entry <= 0 || exit <= 0 || qty <= 0 {
		return 0, 0
	}
	move := decFromFloat(exit).Sub(decFromFloat(entry))
	if dir == DirectionShort {
		move = move.Neg()
	}
	pnl = decToFloat(move.Mul(decFromFloat(qty)))
	pnlPct = decToFloat(move.Div(decFromFloat(entry)).Mul(decHundred))
	return pnl, pnlPct
}

// Normalize 在价格齐全且盈亏缺省（为 0）时回填派生字段，返回新的 Trade。
// 调用方给出的盈亏（可能已扣手续费）保持不变。
func (t Trade) Normalize() Trade {
	if !t.HasPrices() || !t.Direction.Valid() {
		return t
	}
	pnl, pct := DeriveProfitLoss(t.Direction, t.EntryPrice, t.ExitPrice, t.Quantity)
	if t.ProfitLoss == 0 {
		t.ProfitLoss = pnl
	}
	if t.ProfitLossPercent == 0 {
		t.ProfitLossPercent = pct
	}
	return t
}

// NormalizeTrades applies Normalize to a copy of trades.
func NormalizeTrades(trades []Trade) []Trade {
	out := make([]Trade, len(trades))
	for i, t := range trades {
		out[i] = t.Normalize()
	}
	return out
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// sumProfitLoss returns gross profit and absolute gross loss with decimal accumulation.
func sumProfitLoss(trades []Trade) (gross, loss decimal.Decimal) {
	gross, loss = decimal.Zero, decimal.Zero
	for _, t := range trades {
		pl := decFromFloat(t.ProfitLoss)
		switch sign(t.ProfitLoss) {
		case 1:
			gross = gross.Add(pl)
		case -1:
			loss = loss.Add(pl.Abs())
		}
	}
	return gross, loss
}
