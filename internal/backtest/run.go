package backtest

import (
	"errors"
	"time"

	"tradedash/internal/metrics"
)

const (
	RunStatusPending = "pending"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// ErrRunNotFound 表示指定 id 的回测记录不存在。
var ErrRunNotFound = errors.New("backtest run not found")

// Run 表示一次已提交的回测评估。
type Run struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Status         string           `json:"status"`
	InitialCapital float64          `json:"initial_capital"`
	PeriodDays     float64          `json:"period_days"`
	Options        metrics.Options  `json:"options"`
	Trades         int              `json:"trades"`
	EquityPoints   int              `json:"equity_points"`
	Metrics        *metrics.Metrics `json:"metrics,omitempty"`
	Message        string           `json:"message,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	CompletedAt    time.Time        `json:"completed_at"`
}

// Result 是一次纯计算（不落库）的输出。
type Result struct {
	Key        string          `json:"key"`
	Cached     bool            `json:"cached"`
	PeriodDays float64         `json:"period_days"`
	Options    metrics.Options `json:"options"`
	Metrics    metrics.Metrics `json:"metrics"`
}

// TradeRecord 是落库后的交易行，Seq 保留提交时的顺序。
type TradeRecord struct {
	Seq int `json:"seq"`
	metrics.Trade
}

// EquityRecord 是落库后的资金曲线点。
type EquityRecord struct {
	Seq int `json:"seq"`
	metrics.EquityPoint
}
