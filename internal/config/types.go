package config

import (
	"strings"

	"tradedash/internal/metrics"
)

// Config 是 tradedash 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Store    StoreConfig    `toml:"store"`
	Backtest BacktestConfig `toml:"backtest"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// MetricsConfig 对应 metrics.Options，可在运行期热更新。
type MetricsConfig struct {
	AnnualizationFactor float64 `toml:"annualization_factor"`
	MinPeriodDays       float64 `toml:"min_period_days"`
	TargetReturn        float64 `toml:"target_return"`
}

// Options 转换为计算参数。
func (m MetricsConfig) Options() metrics.Options {
	return metrics.Options{
		AnnualizationFactor: m.AnnualizationFactor,
		MinPeriodDays:       m.MinPeriodDays,
		TargetReturn:        m.TargetReturn,
	}
}

type StoreConfig struct {
	Path string `toml:"path"`
}

// BacktestConfig 控制评估服务的容量限制。
type BacktestConfig struct {
	MemoSize              int     `toml:"memo_size"`
	MaxTrades             int     `toml:"max_trades"`
	MaxEquityPoints       int     `toml:"max_equity_points"`
	MaxBodyBytes          int64   `toml:"max_body_bytes"`
	DefaultInitialCapital float64 `toml:"default_initial_capital"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
