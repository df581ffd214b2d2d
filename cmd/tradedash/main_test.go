package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"tradedash/internal/config"
	"tradedash/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptionalConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadOptionalConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Metrics, cfg.Metrics)
}

func TestWriteMetrics(t *testing.T) {
	m := metrics.Metrics{TotalTrades: 2}

	var text bytes.Buffer
	require.NoError(t, writeMetrics(&text, "text", m))
	assert.Contains(t, text.String(), "Sharpe ratio")
	assert.Contains(t, text.String(), "N/A")

	var js bytes.Buffer
	require.NoError(t, writeMetrics(&js, "json", m))
	assert.Contains(t, js.String(), `"sharpe_ratio": null`)

	require.Error(t, writeMetrics(&js, "xml", m))
}

func TestSetupLogOutput_EmptyPath(t *testing.T) {
	f, err := setupLogOutput("  ")
	require.NoError(t, err)
	assert.Nil(t, f)
}
