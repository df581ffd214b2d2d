// Package fixture builds reproducible backtest scenarios from a seed.
package fixture

import (
	"math"
	"math/rand/v2"
	"time"

	"tradedash/internal/metrics"
)

// Scenario 是一组内部一致的交易与资金曲线。
type Scenario struct {
	Seed           uint64                `json:"seed" yaml:"seed"`
	InitialCapital float64               `json:"initial_capital" yaml:"initial_capital"`
	PeriodDays     float64               `json:"period_days" yaml:"period_days"`
	Trades         []metrics.Trade       `json:"trades" yaml:"trades"`
	EquityCurve    []metrics.EquityPoint `json:"equity_curve" yaml:"equity_curve"`
}

// Config 控制生成参数，零值字段使用默认值。
type Config struct {
	Trades         int
	InitialCapital float64
	Start          time.Time
	Step           time.Duration
	BasePrice      float64
	// RiskFraction 是每笔交易投入的资金比例。
	RiskFraction float64
}

func (c Config) withDefaults() Config {
	if c.Trades <= 0 {
		c.Trades = 20
	}
	if c.InitialCapital <= 0 {
		c.InitialCapital = 10_000
	}
	if c.Start.IsZero() {
		c.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if c.Step <= 0 {
		c.Step = 24 * time.Hour
	}
	if c.BasePrice <= 0 {
		c.BasePrice = 100
	}
	if c.RiskFraction <= 0 || c.RiskFraction > 1 {
		c.RiskFraction = 0.1
	}
	return c
}

// Generator 产生确定性的回测样例；相同 seed 与 Config 得到相同结果。
type Generator struct {
	seed uint64
	cfg  Config
}

func NewGenerator(seed uint64, cfg Config) *Generator {
	return &Generator{seed: seed, cfg: cfg.withDefaults()}
}

// Scenario lays trades end to end, one per Step, and records equity after the
// opening point and after every close.
func (g *Generator) Scenario() Scenario {
	cfg := g.cfg
	rng := rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))

	equity := cfg.InitialCapital
	price := cfg.BasePrice
	trades := make([]metrics.Trade, 0, cfg.Trades)
	curve := make([]metrics.EquityPoint, 0, cfg.Trades+1)
	curve = append(curve, metrics.EquityPoint{Timestamp: cfg.Start, Value: equity})

	for i := 0; i < cfg.Trades; i++ {
		entryAt := cfg.Start.Add(time.Duration(i) * cfg.Step)
		hold := time.Duration(float64(cfg.Step) * (0.2 + 0.7*rng.Float64()))
		dir := metrics.DirectionLong
		if rng.IntN(2) == 1 {
			dir = metrics.DirectionShort
		}
		move := rng.NormFloat64() * 0.03
		exitPrice := round(price*(1+move), 4)
		if exitPrice <= 0 {
			exitPrice = round(price*0.5, 4)
		}
		qty := round(equity*cfg.RiskFraction/price, 6)
		if qty <= 0 {
			break
		}
		tr := metrics.Trade{
			EntryTime:  entryAt,
			ExitTime:   entryAt.Add(hold),
			Direction:  dir,
			EntryPrice: price,
			ExitPrice:  exitPrice,
			Quantity:   qty,
			ExitReason: exitReason(rng, dir, price, exitPrice, i == cfg.Trades-1),
		}.Normalize()
		if equity+tr.ProfitLoss <= 0 {
			break
		}
		equity += tr.ProfitLoss
		trades = append(trades, tr)
		curve = append(curve, metrics.EquityPoint{Timestamp: tr.ExitTime, Value: round(equity, 8)})
		price = exitPrice
	}

	span := curve[len(curve)-1].Timestamp.Sub(cfg.Start)
	return Scenario{
		Seed:           g.seed,
		InitialCapital: cfg.InitialCapital,
		PeriodDays:     math.Max(span.Hours()/24, 1),
		Trades:         trades,
		EquityCurve:    curve,
	}
}

func exitReason(rng *rand.Rand, dir metrics.Direction, entry, exit float64, last bool) metrics.ExitReason {
	if last {
		return metrics.ExitEndOfPeriod
	}
	pnl, _ := metrics.DeriveProfitLoss(dir, entry, exit, 1)
	switch {
	case rng.IntN(4) == 0:
		return metrics.ExitSignal
	case pnl > 0:
		return metrics.ExitTakeProfit
	default:
		return metrics.ExitStopLoss
	}
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
