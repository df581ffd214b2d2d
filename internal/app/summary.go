package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"tradedash/internal/config"
	"tradedash/internal/metrics"
)

type StartupSummary struct {
	ConfigPath string
	Env        string
	HTTPAddr   string
	LogLevel   string
	StorePath  string
	Options    metrics.Options
	Backtest   config.BacktestConfig
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[应用 (APP)]")
	fmt.Fprintf(w, "  配置文件: %s\n", orDash(s.ConfigPath))
	fmt.Fprintf(w, "  运行环境: %s\n", orDash(s.Env))
	fmt.Fprintf(w, "  HTTP 地址: %s\n", orDash(s.HTTPAddr))
	fmt.Fprintf(w, "  日志级别: %s\n", orDash(s.LogLevel))
	fmt.Fprintf(w, "  结果存储: %s\n", orDash(s.StorePath))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[指标参数 (METRICS)]")
	fmt.Fprintf(w, "  年化因子: %g\n", s.Options.AnnualizationFactor)
	fmt.Fprintf(w, "  最短周期(天): %g\n", s.Options.MinPeriodDays)
	fmt.Fprintf(w, "  Sortino 目标收益: %g\n", s.Options.TargetReturn)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[回测限制 (LIMITS)]")
	fmt.Fprintf(w, "  缓存容量: %d\n", s.Backtest.MemoSize)
	fmt.Fprintf(w, "  最大交易数: %d\n", s.Backtest.MaxTrades)
	fmt.Fprintf(w, "  最大资金曲线点数: %d\n", s.Backtest.MaxEquityPoints)
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
