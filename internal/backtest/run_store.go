package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradedash/internal/metrics"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

type runModel struct {
	ID              string         `gorm:"column:id;primaryKey"`
	Name            string         `gorm:"column:name"`
	Status          string         `gorm:"column:status;index"`
	InitialCapital  float64        `gorm:"column:initial_capital"`
	PeriodDays      float64        `gorm:"column:period_days"`
	Trades          int            `gorm:"column:trades"`
	EquityPoints    int            `gorm:"column:equity_points"`
	FinalEquity     float64        `gorm:"column:final_equity"`
	TotalReturn     float64        `gorm:"column:total_return"`
	WinRate         float64        `gorm:"column:win_rate"`
	MaxDrawdownPct  float64        `gorm:"column:max_drawdown_pct"`
	SharpeRatio     *float64       `gorm:"column:sharpe_ratio"`
	ProfitFactor    *float64       `gorm:"column:profit_factor"`
	OptionsJSON     datatypes.JSON `gorm:"column:options_json;type:TEXT"`
	MetricsJSON     datatypes.JSON `gorm:"column:metrics_json;type:TEXT"`
	Message         string         `gorm:"column:message"`
	CreatedAtUnix   int64          `gorm:"column:created_at;index"`
	UpdatedAtUnix   int64          `gorm:"column:updated_at"`
	CompletedAtUnix *int64         `gorm:"column:completed_at"`
}

func (runModel) TableName() string { return "backtest_runs" }

type tradeModel struct {
	ID            int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID         string  `gorm:"column:run_id;index:idx_trades_run,priority:1"`
	Seq           int     `gorm:"column:seq;index:idx_trades_run,priority:2"`
	EntryAtNs     *int64  `gorm:"column:entry_at_ns"`
	ExitAtNs      *int64  `gorm:"column:exit_at_ns"`
	Direction     string  `gorm:"column:direction"`
	EntryPrice    float64 `gorm:"column:entry_price"`
	ExitPrice     float64 `gorm:"column:exit_price"`
	Quantity      float64 `gorm:"column:quantity"`
	ProfitLoss    float64 `gorm:"column:profit_loss"`
	ProfitLossPct float64 `gorm:"column:profit_loss_pct"`
	ExitReason    string  `gorm:"column:exit_reason"`
}

func (tradeModel) TableName() string { return "backtest_trades" }

type equityModel struct {
	ID    int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID string  `gorm:"column:run_id;index:idx_equity_run,priority:1"`
	Seq   int     `gorm:"column:seq;index:idx_equity_run,priority:2"`
	TsNs  *int64  `gorm:"column:ts_ns"`
	Value float64 `gorm:"column:value"`
}

func (equityModel) TableName() string { return "backtest_equity" }

// ResultStore 管理 backtest_runs/trades/equity 三张表（GORM + 纯 Go SQLite 驱动）。
type ResultStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewResultStore(path string) (*ResultStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("result store path 不能为空")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}, &tradeModel{}, &equityModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &ResultStore{db: db, now: time.Now}, nil
}

func (s *ResultStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertRun 在一个事务内写入 run 及其交易、资金曲线。
func (s *ResultStore) InsertRun(ctx context.Context, run Run, trades []metrics.Trade, curve []metrics.EquityPoint) error {
	if err := CheckTimeRange(trades, curve); err != nil {
		return err
	}
	optsJSON, err := json.Marshal(run.Options)
	if err != nil {
		return err
	}
	now := s.now().UnixMilli()
	model := runModel{
		ID:             run.ID,
		Name:           run.Name,
		Status:         run.Status,
		InitialCapital: run.InitialCapital,
		PeriodDays:     run.PeriodDays,
		Trades:         len(trades),
		EquityPoints:   len(curve),
		OptionsJSON:    datatypes.JSON(optsJSON),
		Message:        run.Message,
		CreatedAtUnix:  now,
		UpdatedAtUnix:  now,
	}
	tradeRows := make([]tradeModel, len(trades))
	for i, t := range trades {
		tradeRows[i] = tradeModel{
			RunID:         run.ID,
			Seq:           i,
			EntryAtNs:     nanosOrNil(t.EntryTime),
			ExitAtNs:      nanosOrNil(t.ExitTime),
			Direction:     string(t.Direction),
			EntryPrice:    t.EntryPrice,
			ExitPrice:     t.ExitPrice,
			Quantity:      t.Quantity,
			ProfitLoss:    t.ProfitLoss,
			ProfitLossPct: t.ProfitLossPercent,
			ExitReason:    string(t.ExitReason),
		}
	}
	equityRows := make([]equityModel, len(curve))
	for i, p := range curve {
		equityRows[i] = equityModel{RunID: run.ID, Seq: i, TsNs: nanosOrNil(p.Timestamp), Value: p.Value}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		if len(tradeRows) > 0 {
			if err := tx.CreateInBatches(tradeRows, 500).Error; err != nil {
				return err
			}
		}
		if len(equityRows) > 0 {
			if err := tx.CreateInBatches(equityRows, 1000).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateRunResult 更新状态、参数与指标；m 为 nil 时清空指标列。
func (s *ResultStore) UpdateRunResult(ctx context.Context, id, status string, opts metrics.Options, m *metrics.Metrics, message string) error {
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	now := s.now().UnixMilli()
	updates := map[string]any{
		"status":           status,
		"options_json":     datatypes.JSON(optsJSON),
		"message":          message,
		"updated_at":       now,
		"metrics_json":     nil,
		"final_equity":     0,
		"total_return":     0,
		"win_rate":         0,
		"max_drawdown_pct": 0,
		"sharpe_ratio":     nil,
		"profit_factor":    nil,
	}
	if status == RunStatusDone || status == RunStatusFailed {
		updates["completed_at"] = now
	}
	if m != nil {
		raw, err := json.Marshal(m)
		if err != nil {
			return err
		}
		updates["metrics_json"] = datatypes.JSON(raw)
		updates["final_equity"] = m.FinalEquity
		updates["total_return"] = m.TotalReturn
		updates["win_rate"] = m.WinRate
		updates["max_drawdown_pct"] = m.MaxDrawdownPercent
		updates["sharpe_ratio"] = m.SharpeRatio
		updates["profit_factor"] = m.ProfitFactor
	}
	res := s.db.WithContext(ctx).Model(&runModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func (s *ResultStore) GetRun(ctx context.Context, id string) (Run, error) {
	var model runModel
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	return model.toRun()
}

func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var models []runModel
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Run, 0, len(models))
	for _, m := range models {
		run, err := m.toRun()
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

// ListTrades 分页返回交易；limit<=0 时不限制（重算时使用）。
func (s *ResultStore) ListTrades(ctx context.Context, runID string, offset, limit int) ([]TradeRecord, error) {
	q := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq ASC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []tradeModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]TradeRecord, len(rows))
	for i, r := range rows {
		out[i] = TradeRecord{Seq: r.Seq, Trade: metrics.Trade{
			EntryTime:         timeFromNanos(r.EntryAtNs),
			ExitTime:          timeFromNanos(r.ExitAtNs),
			Direction:         metrics.Direction(r.Direction),
			EntryPrice:        r.EntryPrice,
			ExitPrice:         r.ExitPrice,
			Quantity:          r.Quantity,
			ProfitLoss:        r.ProfitLoss,
			ProfitLossPercent: r.ProfitLossPct,
			ExitReason:        metrics.ExitReason(r.ExitReason),
		}}
	}
	return out, nil
}

// ListEquity 分页返回资金曲线；limit<=0 时不限制。
func (s *ResultStore) ListEquity(ctx context.Context, runID string, offset, limit int) ([]EquityRecord, error) {
	q := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq ASC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []equityModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]EquityRecord, len(rows))
	for i, r := range rows {
		out[i] = EquityRecord{Seq: r.Seq, EquityPoint: metrics.EquityPoint{Timestamp: timeFromNanos(r.TsNs), Value: r.Value}}
	}
	return out, nil
}

func (s *ResultStore) DeleteRun(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&tradeModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", id).Delete(&equityModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&runModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil
	})
}

func (m runModel) toRun() (Run, error) {
	run := Run{
		ID:             m.ID,
		Name:           m.Name,
		Status:         m.Status,
		InitialCapital: m.InitialCapital,
		PeriodDays:     m.PeriodDays,
		Trades:         m.Trades,
		EquityPoints:   m.EquityPoints,
		Message:        m.Message,
		CreatedAt:      timeFromMillis(m.CreatedAtUnix),
		UpdatedAt:      timeFromMillis(m.UpdatedAtUnix),
	}
	if m.CompletedAtUnix != nil {
		run.CompletedAt = timeFromMillis(*m.CompletedAtUnix)
	}
	if len(m.OptionsJSON) > 0 {
		if err := json.Unmarshal(m.OptionsJSON, &run.Options); err != nil {
			return Run{}, err
		}
	}
	if len(m.MetricsJSON) > 0 {
		var mt metrics.Metrics
		if err := json.Unmarshal(m.MetricsJSON, &mt); err != nil {
			return Run{}, err
		}
		run.Metrics = &mt
	}
	return run, nil
}

// nanosOrNil 用 NULL 表示未设置的时间，1970-01-01 的真实时间点存为 0。
func nanosOrNil(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ns := t.UnixNano()
	return &ns
}

func timeFromNanos(ns *int64) time.Time {
	if ns == nil {
		return time.Time{}
	}
	return time.Unix(0, *ns).UTC()
}

func timeFromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
