package backtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"tradedash/internal/logger"
	"tradedash/internal/metrics"
	"tradedash/internal/pkg/text"

	"github.com/google/uuid"
)

// maxMessageRunes 限制落库的失败原因长度。
const maxMessageRunes = 500

// RunRepository 是 Evaluator 依赖的持久化接口，ResultStore 为默认实现。
type RunRepository interface {
	InsertRun(ctx context.Context, run Run, trades []metrics.Trade, curve []metrics.EquityPoint) error
	UpdateRunResult(ctx context.Context, id, status string, opts metrics.Options, m *metrics.Metrics, message string) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListTrades(ctx context.Context, runID string, offset, limit int) ([]TradeRecord, error)
	ListEquity(ctx context.Context, runID string, offset, limit int) ([]EquityRecord, error)
	DeleteRun(ctx context.Context, id string) error
}

// EvaluatorConfig 描述 Evaluator 的依赖。
type EvaluatorConfig struct {
	Repo     RunRepository
	Options  metrics.Options
	MemoSize int
	Limits   Limits
}

// Evaluator 负责解析文档、计算指标（带缓存）并管理回测记录。
type Evaluator struct {
	repo   RunRepository
	memo   *Memo
	limits Limits
	log    logger.Component

	mu   sync.RWMutex
	opts metrics.Options
}

func NewEvaluator(cfg EvaluatorConfig) (*Evaluator, error) {
	if cfg.Repo == nil {
		return nil, fmt.Errorf("repo 不能为空")
	}
	opts := cfg.Options
	if opts == (metrics.Options{}) {
		opts = metrics.DefaultOptions()
	}
	if err := metrics.ValidateOptions(opts); err != nil {
		return nil, err
	}
	return &Evaluator{
		repo:   cfg.Repo,
		memo:   NewMemo(cfg.MemoSize),
		limits: cfg.Limits,
		log:    logger.With("backtest"),
		opts:   opts,
	}, nil
}

// Options 返回当前的基础计算参数。
func (e *Evaluator) Options() metrics.Options {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opts
}

// SetOptions 替换基础计算参数；已缓存的结果以参数为 key，无需清空。
func (e *Evaluator) SetOptions(opts metrics.Options) error {
	if err := metrics.ValidateOptions(opts); err != nil {
		return err
	}
	e.mu.Lock()
	e.opts = opts
	e.mu.Unlock()
	e.log.Infof("options updated: annualization_factor=%.2f min_period_days=%.2f target_return=%.4f",
		opts.AnnualizationFactor, opts.MinPeriodDays, opts.TargetReturn)
	return nil
}

// Decode 按 Evaluator 的规模限制解析文档。
func (e *Evaluator) Decode(raw []byte, format Format) (Document, error) {
	return DecodeDocument(raw, format, e.limits)
}

// Evaluate 只计算不落库。
func (e *Evaluator) Evaluate(ctx context.Context, doc Document) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	opts := doc.Options(e.Options())
	periodDays := doc.ResolvePeriodDays()
	return e.compute(doc.Trades, doc.EquityCurve, doc.InitialCapital, periodDays, opts)
}

func (e *Evaluator) compute(trades []metrics.Trade, curve []metrics.EquityPoint, capital, periodDays float64, opts metrics.Options) (Result, error) {
	key, err := MemoKey(trades, curve, capital, periodDays, opts)
	if err != nil {
		return Result{}, err
	}
	m, cached, err := e.memo.Do(key, func() (metrics.Metrics, error) {
		return metrics.Compute(trades, curve, capital, periodDays, opts)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Key: key, Cached: cached, PeriodDays: periodDays, Options: opts, Metrics: m}, nil
}

// Submit 保存输入并计算指标。计算失败时记录仍会保留，状态为 failed，
// 同时返回记录与错误。
func (e *Evaluator) Submit(ctx context.Context, doc Document) (Run, error) {
	opts := doc.Options(e.Options())
	run := Run{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(doc.Name),
		Status:         RunStatusPending,
		InitialCapital: doc.InitialCapital,
		PeriodDays:     doc.ResolvePeriodDays(),
		Options:        opts,
	}
	if err := e.repo.InsertRun(ctx, run, doc.Trades, doc.EquityCurve); err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	res, calcErr := e.compute(doc.Trades, doc.EquityCurve, run.InitialCapital, run.PeriodDays, opts)
	saved, err := e.finish(ctx, run.ID, opts, res, calcErr)
	if err != nil {
		return Run{}, err
	}
	if calcErr != nil {
		e.log.Warnf("run %s failed: %v", run.ID, calcErr)
		return saved, calcErr
	}
	e.log.Infof("run %s done: trades=%d points=%d final_equity=%.2f", run.ID, len(doc.Trades), len(doc.EquityCurve), res.Metrics.FinalEquity)
	return saved, nil
}

// Recompute 使用当前基础参数重新计算已保存的记录。
func (e *Evaluator) Recompute(ctx context.Context, id string) (Run, error) {
	run, err := e.repo.GetRun(ctx, id)
	if err != nil {
		return Run{}, err
	}
	tradeRows, err := e.repo.ListTrades(ctx, id, 0, 0)
	if err != nil {
		return Run{}, err
	}
	equityRows, err := e.repo.ListEquity(ctx, id, 0, 0)
	if err != nil {
		return Run{}, err
	}
	trades := make([]metrics.Trade, len(tradeRows))
	for i, r := range tradeRows {
		trades[i] = r.Trade
	}
	curve := make([]metrics.EquityPoint, len(equityRows))
	for i, r := range equityRows {
		curve[i] = r.EquityPoint
	}
	opts := e.Options()
	res, calcErr := e.compute(trades, curve, run.InitialCapital, run.PeriodDays, opts)
	saved, err := e.finish(ctx, id, opts, res, calcErr)
	if err != nil {
		return Run{}, err
	}
	return saved, calcErr
}

func (e *Evaluator) finish(ctx context.Context, id string, opts metrics.Options, res Result, calcErr error) (Run, error) {
	status, msg := RunStatusDone, ""
	var m *metrics.Metrics
	if calcErr != nil {
		if !metrics.IsInvalidInput(calcErr) && !errors.Is(calcErr, context.Canceled) {
			e.log.Errorf("run %s compute error: %v", id, calcErr)
		}
		status, msg = RunStatusFailed, text.Truncate(calcErr.Error(), maxMessageRunes)
	} else {
		m = &res.Metrics
	}
	if err := e.repo.UpdateRunResult(ctx, id, status, opts, m, msg); err != nil {
		return Run{}, fmt.Errorf("update run %s: %w", id, err)
	}
	return e.repo.GetRun(ctx, id)
}

func (e *Evaluator) GetRun(ctx context.Context, id string) (Run, error) {
	return e.repo.GetRun(ctx, id)
}

func (e *Evaluator) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	return e.repo.ListRuns(ctx, limit)
}

// ListTrades 分页查询交易，先确认记录存在以便区分 404 与空列表。
func (e *Evaluator) ListTrades(ctx context.Context, id string, offset, limit int) ([]TradeRecord, error) {
	if _, err := e.repo.GetRun(ctx, id); err != nil {
		return nil, err
	}
	return e.repo.ListTrades(ctx, id, offset, limit)
}

func (e *Evaluator) ListEquity(ctx context.Context, id string, offset, limit int) ([]EquityRecord, error) {
	if _, err := e.repo.GetRun(ctx, id); err != nil {
		return nil, err
	}
	return e.repo.ListEquity(ctx, id, offset, limit)
}

func (e *Evaluator) DeleteRun(ctx context.Context, id string) error {
	if err := e.repo.DeleteRun(ctx, id); err != nil {
		return err
	}
	e.log.Infof("run %s deleted", id)
	return nil
}

// MemoLen 返回缓存条目数。
func (e *Evaluator) MemoLen() int {
	return e.memo.Len()
}
