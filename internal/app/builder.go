package app

import (
	"fmt"
	"strings"

	"tradedash/internal/backtest"
	"tradedash/internal/config"
	"tradedash/internal/logger"
	backtesthttp "tradedash/internal/transport/http/backtest"

	"github.com/google/wire"
)

// ConfigPath 是主配置文件路径，为空时不启用热更新。
type ConfigPath string

var providerSet = wire.NewSet(
	provideResultStore,
	wire.Bind(new(backtest.RunRepository), new(*backtest.ResultStore)),
	provideEvaluator,
	provideHTTPServer,
	provideBacktestService,
	provideWatcher,
	provideSummary,
	provideApp,
)

func provideResultStore(cfg *config.Config) (*backtest.ResultStore, func(), error) {
	store, err := backtest.NewResultStore(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化结果存储失败: %w", err)
	}
	logger.Infof("✓ 结果存储: %s", cfg.Store.Path)
	return store, func() { _ = store.Close() }, nil
}

func provideEvaluator(cfg *config.Config, repo backtest.RunRepository) (*backtest.Evaluator, error) {
	return backtest.NewEvaluator(backtest.EvaluatorConfig{
		Repo:     repo,
		Options:  cfg.Metrics.Options(),
		MemoSize: cfg.Backtest.MemoSize,
		Limits: backtest.Limits{
			MaxTrades:       cfg.Backtest.MaxTrades,
			MaxEquityPoints: cfg.Backtest.MaxEquityPoints,
		},
	})
}

func provideHTTPServer(cfg *config.Config, eval *backtest.Evaluator) (*backtesthttp.Server, error) {
	server, err := backtesthttp.NewServer(backtesthttp.Config{
		Addr:           cfg.App.HTTPAddr,
		Evaluator:      eval,
		FixtureCapital: cfg.Backtest.DefaultInitialCapital,
		MaxBodyBytes:   cfg.Backtest.MaxBodyBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化回测 HTTP 失败: %w", err)
	}
	return server, nil
}

func provideBacktestService(store *backtest.ResultStore, eval *backtest.Evaluator, server *backtesthttp.Server) *BacktestService {
	return &BacktestService{results: store, eval: eval, server: server}
}

// provideWatcher 在提供了配置路径时监听文件变更。
func provideWatcher(cfg *config.Config, path ConfigPath) (*config.Watcher, error) {
	p := strings.TrimSpace(string(path))
	if p == "" {
		return nil, nil
	}
	return config.NewWatcher(p, cfg)
}

func provideSummary(cfg *config.Config, path ConfigPath) *StartupSummary {
	return &StartupSummary{
		ConfigPath: string(path),
		Env:        cfg.App.Env,
		HTTPAddr:   cfg.App.HTTPAddr,
		LogLevel:   cfg.App.LogLevel,
		StorePath:  cfg.Store.Path,
		Options:    cfg.Metrics.Options(),
		Backtest:   cfg.Backtest,
	}
}

func provideApp(cfg *config.Config, svc *BacktestService, watcher *config.Watcher, summary *StartupSummary) *App {
	return &App{cfg: cfg, backtest: svc, watcher: watcher, Summary: summary}
}
