package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Metrics.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	return nil
}

func (m *MetricsConfig) validate() error {
	if m.AnnualizationFactor <= 0 {
		return fmt.Errorf("metrics.annualization_factor must be > 0")
	}
	if m.MinPeriodDays < 0 {
		return fmt.Errorf("metrics.min_period_days must be >= 0")
	}
	if m.TargetReturn <= -1 {
		return fmt.Errorf("metrics.target_return must be > -1")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("store.path cannot be empty")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if b.MemoSize < 0 {
		return fmt.Errorf("backtest.memo_size must be >= 0")
	}
	if b.MaxTrades <= 0 {
		return fmt.Errorf("backtest.max_trades must be > 0")
	}
	if b.MaxEquityPoints <= 0 {
		return fmt.Errorf("backtest.max_equity_points must be > 0")
	}
	if b.MaxBodyBytes <= 0 {
		return fmt.Errorf("backtest.max_body_bytes must be > 0")
	}
	if b.DefaultInitialCapital <= 0 {
		return fmt.Errorf("backtest.default_initial_capital must be > 0")
	}
	return nil
}
