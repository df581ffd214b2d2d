package app

import (
	"context"
	"fmt"

	"tradedash/internal/backtest"
	"tradedash/internal/config"
	"tradedash/internal/logger"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动回测服务。
type App struct {
	cfg      *config.Config
	backtest *BacktestService
	watcher  *config.Watcher
	cleanup  func()
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。path 非空时启用配置热更新。
func NewApp(cfg *config.Config, path string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	app, cleanup, err := buildAppWithWire(cfg, ConfigPath(path))
	if err != nil {
		return nil, err
	}
	app.cleanup = cleanup
	return app, nil
}

// Run 启动 HTTP 服务并在退出时释放资源。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()

	if a.Summary != nil {
		a.Summary.Print()
	}
	if a.watcher != nil {
		a.watcher.Subscribe(func(c *config.Config) {
			logger.SetLevel(c.App.LogLevel)
			a.backtest.ApplyConfig(c)
		})
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.backtest.Serve(ctx); err != nil {
			return fmt.Errorf("backtest http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Close 解除配置监听并释放存储等资源，可重复调用。
func (a *App) Close() {
	if a == nil {
		return
	}
	a.watcher.Close()
	if a.cleanup == nil {
		return
	}
	a.cleanup()
	a.cleanup = nil
}

// Evaluator exposes the underlying evaluator (for tests and embedding).
func (a *App) Evaluator() *backtest.Evaluator {
	if a == nil {
		return nil
	}
	return a.backtest.Evaluator()
}
