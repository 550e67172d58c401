package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketreplay/backtester/pkg/constant"
)

func TestLoadFromFileParsesRunConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
run:
  vt_symbol: "ETH.LOCAL"
  interval: "daily"
  start: "2024-01-01T00:00:00Z"
  end: "2024-06-01T00:00:00Z"
  rate: 0.0003
  slippage: 0.2
  size: 1
  pricetick: 0.5
  capital: 500000
  mode: "bar"
  risk_free: 0.02
  annual_days: 240
logging:
  level: "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "ETH.LOCAL", cfg.Run.VtSymbol)
	assert.Equal(t, "debug", cfg.Logging.Level)

	engineCfg, err := cfg.Run.ToEngineConfig()
	require.NoError(t, err)
	assert.Equal(t, constant.IntervalDaily, engineCfg.Interval)
	assert.Equal(t, constant.ModeBar, engineCfg.Mode)
	assert.Equal(t, 500000.0, engineCfg.Capital)
	assert.Equal(t, int64(240), engineCfg.AnnualDays)
	assert.False(t, engineCfg.Start.IsZero())
	assert.True(t, engineCfg.Start.Before(engineCfg.End))
}

func TestLoadFromFileMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestToEngineConfigRejectsBadTimestamp(t *testing.T) {
	r := RunConfig{VtSymbol: "ETH.LOCAL", Start: "not-a-time"}
	_, err := r.ToEngineConfig()
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("BACKTEST_RUN_VT_SYMBOL", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "DAILY", cfg.Run.Interval)
	assert.Equal(t, "BAR", cfg.Run.Mode)
	assert.Equal(t, 1_000_000.0, cfg.Run.Capital)
	assert.Equal(t, "info", cfg.Logging.Level)
}
