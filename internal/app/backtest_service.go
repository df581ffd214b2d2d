package app

import (
	"context"

	"tradedash/internal/backtest"
	"tradedash/internal/config"
	"tradedash/internal/logger"
	backtesthttp "tradedash/internal/transport/http/backtest"
)

// BacktestService 管理结果存储、评估器与 HTTP 暴露。
type BacktestService struct {
	results *backtest.ResultStore
	eval    *backtest.Evaluator
	server  *backtesthttp.Server
}

// Serve 阻塞运行 HTTP 服务直到 ctx 取消。
func (b *BacktestService) Serve(ctx context.Context) error {
	if b == nil || b.server == nil {
		<-ctx.Done()
		return nil
	}
	return b.server.Start(ctx)
}

// ApplyConfig 把热更新后的配置下发给评估器。
func (b *BacktestService) ApplyConfig(cfg *config.Config) {
	if b == nil || b.eval == nil || cfg == nil {
		return
	}
	if err := b.eval.SetOptions(cfg.Metrics.Options()); err != nil {
		logger.Warnf("忽略无效的指标参数: %v", err)
	}
}

// Evaluator exposes the evaluator for embedding callers.
func (b *BacktestService) Evaluator() *backtest.Evaluator {
	if b == nil {
		return nil
	}
	return b.eval
}
