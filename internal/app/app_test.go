package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradedash/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.App.HTTPAddr = "127.0.0.1:0"
	cfg.Store.Path = filepath.Join(t.TempDir(), "runs.db")
	return cfg
}

func TestNewApp_NilConfig(t *testing.T) {
	_, err := NewApp(nil, "")
	require.Error(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(testConfig(t), "")
	require.NoError(t, err)
	app.Summary = nil
	require.NotNil(t, app.Evaluator())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_ConfigReloadUpdatesOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "app:\n  http_addr: \"127.0.0.1:0\"\nstore:\n  path: " + filepath.Join(dir, "runs.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	app, err := NewApp(cfg, path)
	require.NoError(t, err)
	app.Summary = nil
	require.NotNil(t, app.watcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(body+"metrics:\n  annualization_factor: 365\n"), 0o644))
	assert.Eventually(t, func() bool {
		return app.Evaluator().Options().AnnualizationFactor == 365
	}, 5*time.Second, 20*time.Millisecond)
}

func TestApp_CloseStopsConfigReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "app:\n  http_addr: \"127.0.0.1:0\"\nstore:\n  path: " + filepath.Join(dir, "runs.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	app, err := NewApp(cfg, path)
	require.NoError(t, err)
	app.Summary = nil
	ev := app.Evaluator()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	app.Close()

	require.NoError(t, os.WriteFile(path, []byte(body+"metrics:\n  annualization_factor: 365\n"), 0o644))
	assert.Never(t, func() bool {
		return ev.Options().AnnualizationFactor == 365
	}, 300*time.Millisecond, 20*time.Millisecond)
}

func TestStartupSummary(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer
	provideSummary(cfg, "configs/config.yaml").Fprint(&buf)
	out := buf.String()
	assert.Contains(t, out, "STARTUP SUMMARY")
	assert.Contains(t, out, "configs/config.yaml")
	assert.Contains(t, out, "年化因子: 252")
}
