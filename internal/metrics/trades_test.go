package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStreaks_SortsByEntryTime(t *testing.T) {
	trades := []Trade{
		{EntryTime: t0.Add(3 * time.Hour), ProfitLoss: -1},
		{EntryTime: t0.Add(1 * time.Hour), ProfitLoss: 2},
		{EntryTime: t0.Add(4 * time.Hour), ProfitLoss: -1},
		{EntryTime: t0.Add(2 * time.Hour), ProfitLoss: 2},
	}
	wins, losses := Streaks(trades)
	assert.Equal(t, 2, wins)
	assert.Equal(t, 2, losses)
	// input order untouched
	assert.Equal(t, -1.0, trades[0].ProfitLoss)
}

func TestStreaks_BreakevenResetsBoth(t *testing.T) {
	wins, losses := Streaks(tradesOf(1, 1, 0, 1, -1, 0, -1))
	assert.Equal(t, 2, wins)
	assert.Equal(t, 1, losses)
}

func TestDeriveProfitLoss(t *testing.T) {
	cases := []struct {
		dir         Direction
		entry, exit float64
		qty         float64
		pnl, pct    float64
	}{
		{DirectionLong, 100, 110, 2, 20, 10},
		{DirectionLong, 100, 90, 1, -10, -10},
		{DirectionShort, 100, 90, 3, 30, 10},
		{DirectionShort, 0.1, 0.3, 10, -2, -200},
	}
	for _, tc := range cases {
		pnl, pct := DeriveProfitLoss(tc.dir, tc.entry, tc.exit, tc.qty)
		assert.InDelta(t, tc.pnl, pnl, 1e-9, "%s %v->%v", tc.dir, tc.entry, tc.exit)
		assert.InDelta(t, tc.pct, pct, 1e-9)
	}
	pnl, pct := DeriveProfitLoss(DirectionLong, 0, 10, 1)
	assert.Zero(t, pnl)
	assert.Zero(t, pct)
}

func TestNormalize(t *testing.T) {
	tr := Trade{Direction: DirectionShort, EntryPrice: 50, ExitPrice: 55, Quantity: 2}.Normalize()
	assert.InDelta(t, -10, tr.ProfitLoss, 1e-9)
	assert.InDelta(t, -10, tr.ProfitLossPercent, 1e-9)

	bare := Trade{ProfitLoss: 7}.Normalize()
	assert.Equal(t, 7.0, bare.ProfitLoss)
}

func TestMaxDrawdownPercent_MonotonicCurve(t *testing.T) {
	assert.Zero(t, MaxDrawdownPercent(curveOf(1, 1, 2, 3, 3, 8)))
	assert.Zero(t, MaxDrawdownPercent(nil))
}

func TestSortinoRatio_NeedsTwoDownsideReturns(t *testing.T) {
	assert.Nil(t, SortinoRatio([]float64{0.1, -0.05, 0.2}, 0, 252))
	assert.NotNil(t, SortinoRatio([]float64{0.1, -0.05, 0.2, -0.01}, 0, 252))
}

func TestNormalize_KeepsReportedProfitLoss(t *testing.T) {
	tr := Trade{Direction: DirectionLong, EntryPrice: 100, ExitPrice: 110, Quantity: 1, ProfitLoss: 9.5}.Normalize()
	assert.Equal(t, 9.5, tr.ProfitLoss)
	assert.InDelta(t, 10, tr.ProfitLossPercent, 1e-9)
}
