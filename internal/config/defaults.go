package config

import (
	"strings"

	"tradedash/internal/metrics"
)

// 默认值常量
const (
	defaultAppEnv              = "dev"
	defaultAppLogLevel         = "info"
	defaultAppHTTPAddr         = ":9991"
	defaultStorePath           = "data/backtest/runs.db"
	defaultMemoSize            = 256
	defaultMaxTrades           = 100_000
	defaultMaxEquityPoints     = 500_000
	defaultMaxBodyBytes        = 64 << 20
	defaultInitialCapital      = 10_000
	defaultAnnualizationFactor = metrics.DefaultAnnualizationFactor
	defaultMinPeriodDays       = metrics.DefaultMinPeriodDays
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Metrics.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (m *MetricsConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "metrics.annualization_factor",
			need:  func() bool { return m.AnnualizationFactor <= 0 },
			apply: func() { m.AnnualizationFactor = defaultAnnualizationFactor },
		},
		fieldDefault{
			key:   "metrics.min_period_days",
			need:  func() bool { return m.MinPeriodDays <= 0 },
			apply: func() { m.MinPeriodDays = defaultMinPeriodDays },
		},
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
	)
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "backtest.memo_size",
			need:  func() bool { return b.MemoSize <= 0 },
			apply: func() { b.MemoSize = defaultMemoSize },
		},
		fieldDefault{
			key:   "backtest.max_trades",
			need:  func() bool { return b.MaxTrades <= 0 },
			apply: func() { b.MaxTrades = defaultMaxTrades },
		},
		fieldDefault{
			key:   "backtest.max_equity_points",
			need:  func() bool { return b.MaxEquityPoints <= 0 },
			apply: func() { b.MaxEquityPoints = defaultMaxEquityPoints },
		},
		fieldDefault{
			key:   "backtest.max_body_bytes",
			need:  func() bool { return b.MaxBodyBytes <= 0 },
			apply: func() { b.MaxBodyBytes = defaultMaxBodyBytes },
		},
		fieldDefault{
			key:   "backtest.default_initial_capital",
			need:  func() bool { return b.DefaultInitialCapital <= 0 },
			apply: func() { b.DefaultInitialCapital = defaultInitialCapital },
		},
	)
}

// Default 返回未读取任何文件时的配置，供 CLI 子命令在缺省配置下运行。
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(make(keySet))
	return &cfg
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
