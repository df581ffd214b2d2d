package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tradedash/internal/app"
	"tradedash/internal/backtest"
	"tradedash/internal/config"
	"tradedash/internal/fixture"
	"tradedash/internal/logger"
	"tradedash/internal/metrics"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/config.yaml"

var configPath string

func main() {
	cliApp := &cli.App{
		Name:  "tradedash",
		Usage: "backtest performance metrics service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Value:       defaultConfigPath,
				Usage:       "path to the YAML config file",
				EnvVars:     []string{"TRADEDASH_CONFIG"},
				Destination: &configPath,
			},
		},
		Commands: []*cli.Command{
			serveCommand,
			computeCommand,
			fixtureCommand,
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("运行失败: %v", err)
	}
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "start the HTTP API",
	Action: func(c *cli.Context) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("读取配置失败: %w", err)
		}
		logFile, err := setupLogOutput(cfg.App.LogPath)
		if err != nil {
			return fmt.Errorf("初始化日志文件失败: %w", err)
		}
		if logFile != nil {
			defer logFile.Close()
		}
		logger.SetLevel(cfg.App.LogLevel)
		logger.Infof("✓ 配置加载成功（环境=%s，配置=%s）", cfg.App.Env, configPath)

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()
		a, err := app.NewApp(cfg, configPath)
		if err != nil {
			return fmt.Errorf("初始化应用失败: %w", err)
		}
		return a.Run(ctx)
	},
}

var computeCommand = &cli.Command{
	Name:      "compute",
	Usage:     "compute metrics for a JSON or YAML backtest document",
	ArgsUsage: "<file|->",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "text", Usage: "text or json"},
		&cli.StringFlag{Name: "format", Usage: "input format (json|yaml), inferred from the extension by default"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.Exit("compute requires exactly one document path", 2)
		}
		cfg, err := loadOptionalConfig(configPath)
		if err != nil {
			return err
		}
		logger.SetLevel(cfg.App.LogLevel)

		src := c.Args().First()
		raw, err := readInput(src)
		if err != nil {
			return err
		}
		format := backtest.FormatFromPath(src)
		if f := strings.ToLower(strings.TrimSpace(c.String("format"))); f != "" {
			format = backtest.Format(f)
		}
		doc, err := backtest.DecodeDocument(raw, format, backtest.Limits{
			MaxTrades:       cfg.Backtest.MaxTrades,
			MaxEquityPoints: cfg.Backtest.MaxEquityPoints,
		})
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		m, err := metrics.Compute(doc.Trades, doc.EquityCurve, doc.InitialCapital, doc.ResolvePeriodDays(), doc.Options(cfg.Metrics.Options()))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return writeMetrics(c.App.Writer, c.String("output"), m)
	},
}

var fixtureCommand = &cli.Command{
	Name:  "fixture",
	Usage: "print a deterministic sample document",
	Flags: []cli.Flag{
		&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "random seed"},
		&cli.IntFlag{Name: "trades", Value: 20, Usage: "number of trades"},
		&cli.Float64Flag{Name: "capital", Usage: "initial capital (defaults to backtest.default_initial_capital)"},
		&cli.BoolFlag{Name: "yaml", Usage: "emit YAML instead of JSON"},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadOptionalConfig(configPath)
		if err != nil {
			return err
		}
		capital := c.Float64("capital")
		if capital <= 0 {
			capital = cfg.Backtest.DefaultInitialCapital
		}
		sc := fixture.NewGenerator(c.Uint64("seed"), fixture.Config{
			Trades:         c.Int("trades"),
			InitialCapital: capital,
		}).Scenario()
		if c.Bool("yaml") {
			enc := yaml.NewEncoder(c.App.Writer)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(sc)
		}
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(sc)
	},
}

// loadOptionalConfig 读取配置；文件不存在时使用默认值。
func loadOptionalConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	return cfg, nil
}

func readInput(src string) ([]byte, error) {
	if src == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(src)
}

func writeMetrics(w io.Writer, output string, m metrics.Metrics) error {
	switch strings.ToLower(output) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case "text", "":
		_, err := io.WriteString(w, backtest.FormatSummary(m))
		return err
	default:
		return cli.Exit(fmt.Sprintf("unknown output %q", output), 2)
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
