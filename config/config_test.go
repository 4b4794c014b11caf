package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Louatn/polymarket-trading-bot/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
simulation:
  initial_balance: 5000
  order_size: 25
  stake_mode: risk
  risk_tolerance: 0.7
  step_size: 0.05
  heartbeat_every: 10
  bot_name: TestBot
  preferred_categories:
    - crypto
  yes_bias: 0.8
  tick_interval_seconds: 3
advisor:
  model: gemini-2.5-flash
  timeout_seconds: 4
storage:
  dsn: ":memory:"
log:
  level: debug
  format: json
server:
  addr: ":9000"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 5000, cfg.Simulation.InitialBalance, 1e-9)
	assert.InDelta(t, 25, cfg.Simulation.OrderSize, 1e-9)
	assert.Equal(t, "risk", cfg.Simulation.StakeMode)
	assert.InDelta(t, 0.7, cfg.Simulation.RiskTolerance, 1e-9)
	assert.Equal(t, "TestBot", cfg.Simulation.BotName)
	assert.Equal(t, []string{"crypto"}, cfg.Simulation.PreferredCategories)
	assert.Equal(t, 3*time.Second, cfg.TickInterval())
	assert.Equal(t, 4*time.Second, cfg.AdvisorTimeout())
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "simulation:\n  bot_name: Minimal\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 10000, cfg.Simulation.InitialBalance, 1e-9)
	assert.InDelta(t, 50, cfg.Simulation.OrderSize, 1e-9)
	assert.Equal(t, "fixed", cfg.Simulation.StakeMode)
	assert.InDelta(t, 0.3, cfg.Simulation.RiskTolerance, 1e-9)
	assert.InDelta(t, 0.02, cfg.Simulation.StepSize, 1e-9)
	assert.Equal(t, 5, cfg.Simulation.HeartbeatEvery)
	assert.InDelta(t, 0.6, cfg.Simulation.YesBias, 1e-9)
	assert.Equal(t, 2*time.Second, cfg.TickInterval())
	assert.Equal(t, "https://gamma-api.polymarket.com", cfg.API.GammaBase)
	assert.Equal(t, "polybot.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")

	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("STORAGE_DSN", "/tmp/other.db")
	t.Setenv("ADVISOR_API_KEY", "secret")
	t.Setenv("INITIAL_BALANCE", "2500")
	t.Setenv("RISK_TOLERANCE", "0.9")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "/tmp/other.db", cfg.Storage.DSN)
	assert.Equal(t, "secret", cfg.Advisor.APIKey)
	assert.InDelta(t, 2500, cfg.Simulation.InitialBalance, 1e-9)
	assert.InDelta(t, 0.9, cfg.Simulation.RiskTolerance, 1e-9)
}

func TestLoad_InvalidEnvValues_Ignored(t *testing.T) {
	path := writeConfig(t, "simulation:\n  initial_balance: 5000\n")

	t.Setenv("INITIAL_BALANCE", "not-a-number")
	t.Setenv("RISK_TOLERANCE", "7.5") // out of range

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 5000, cfg.Simulation.InitialBalance, 1e-9)
	assert.InDelta(t, 0.3, cfg.Simulation.RiskTolerance, 1e-9)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "simulation: [not a map")
	_, err := config.Load(path)
	assert.Error(t, err)
}
