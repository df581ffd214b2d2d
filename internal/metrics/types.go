package metrics

import "time"

// Direction 表示持仓方向。
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// ExitReason 记录平仓原因。
type ExitReason string

const (
	ExitTakeProfit  ExitReason = "take_profit"
	ExitStopLoss    ExitReason = "stop_loss"
	ExitSignal      ExitReason = "signal"
	ExitEndOfPeriod ExitReason = "end_of_period"
)

func (r ExitReason) Valid() bool {
	switch r {
	case ExitTakeProfit, ExitStopLoss, ExitSignal, ExitEndOfPeriod:
		return true
	}
	return false
}

// Trade 是一笔已平仓的模拟交易。
type Trade struct {
	EntryTime         time.Time  `json:"entry_time" yaml:"entry_time"`
	ExitTime          time.Time  `json:"exit_time" yaml:"exit_time"`
	Direction         Direction  `json:"direction" yaml:"direction"`
	EntryPrice        float64    `json:"entry_price" yaml:"entry_price"`
	ExitPrice         float64    `json:"exit_price" yaml:"exit_price"`
	Quantity          float64    `json:"quantity" yaml:"quantity"`
	ProfitLoss        float64    `json:"profit_loss" yaml:"profit_loss"`
	ProfitLossPercent float64    `json:"profit_loss_percent" yaml:"profit_loss_percent"`
	ExitReason        ExitReason `json:"exit_reason" yaml:"exit_reason"`
}

// HasPrices reports whether the trade carries a full price/quantity triple.
func (t Trade) HasPrices() bool {
	return t.EntryPrice > 0 && t.ExitPrice > 0 && t.Quantity > 0
}

// EquityPoint 是资金曲线上的一个采样点。
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Value     float64   `json:"value" yaml:"value"`
}

// Options 控制与采样周期相关的换算参数。
type Options struct {
	// AnnualizationFactor 是一年内的收益采样次数（日线 252，小时线 24*365 ...）。
	AnnualizationFactor float64 `json:"annualization_factor"`
	// MinPeriodDays 为年化收益计算时 periodDays 的下限。
	MinPeriodDays float64 `json:"min_period_days"`
	// TargetReturn 是 Sortino 下行偏差的阈值（单期收益）。
	TargetReturn float64 `json:"target_return"`
}

const (
	DefaultAnnualizationFactor = 252
	DefaultMinPeriodDays       = 1
)

func DefaultOptions() Options {
	return Options{
		AnnualizationFactor: DefaultAnnualizationFactor,
		MinPeriodDays:       DefaultMinPeriodDays,
	}
}

// Metrics 是一次回测的汇总指标，构造后不再修改。
// 指针字段为 nil 表示该指标无法定义（例如没有亏损交易时的 profit factor）。
type Metrics struct {
	TotalTrades     int `json:"total_trades"`
	WinningTrades   int `json:"winning_trades"`
	LosingTrades    int `json:"losing_trades"`
	BreakevenTrades int `json:"breakeven_trades"`

	WinRate      float64  `json:"win_rate"`
	GrossProfit  float64  `json:"gross_profit"`
	GrossLoss    float64  `json:"gross_loss"`
	ProfitFactor *float64 `json:"profit_factor"`
	AverageWin   float64  `json:"average_win"`
	AverageLoss  float64  `json:"average_loss"`

	MaxConsecutiveWins   int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int `json:"max_consecutive_losses"`

	FinalEquity             float64  `json:"final_equity"`
	TotalReturn             float64  `json:"total_return"`
	TotalReturnPercent      float64  `json:"total_return_percent"`
	AnnualizedReturnPercent *float64 `json:"annualized_return_percent"`
	MaxDrawdownPercent      float64  `json:"max_drawdown_percent"`

	ReturnPeriods int      `json:"return_periods"`
	SharpeRatio   *float64 `json:"sharpe_ratio"`
	SortinoRatio  *float64 `json:"sortino_ratio"`
}
