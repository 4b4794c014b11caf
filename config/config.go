package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full bot configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Advisor    AdvisorConfig    `yaml:"advisor"`
	API        APIConfig        `yaml:"api"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
}

// SimulationConfig controls the paper-trading simulation.
type SimulationConfig struct {
	InitialBalance      float64  `yaml:"initial_balance"`
	OrderSize           float64  `yaml:"order_size"`
	StakeMode           string   `yaml:"stake_mode"` // fixed | risk
	RiskTolerance       float64  `yaml:"risk_tolerance"`
	StepSize            float64  `yaml:"step_size"`
	HeartbeatEvery      int      `yaml:"heartbeat_every"`
	BotName             string   `yaml:"bot_name"`
	PreferredCategories []string `yaml:"preferred_categories"`
	YesBias             float64  `yaml:"yes_bias"`
	TickIntervalSeconds int      `yaml:"tick_interval_seconds"`
}

// AdvisorConfig points at the optional remote decision service. The API
// key only comes from the environment, never from YAML.
type AdvisorConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSec     float64 `yaml:"rate_per_sec"`
	APIKey         string  `yaml:"-"`
}

// APIConfig holds external API base URLs.
type APIConfig struct {
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig controls where data is persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads the YAML config file plus a .env file if present. Env
// values override YAML for the keys they map to.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// TickInterval returns the simulation cadence as a time.Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Simulation.TickIntervalSeconds) * time.Second
}

// AdvisorTimeout returns the advisor HTTP timeout as a time.Duration.
func (c *Config) AdvisorTimeout() time.Duration {
	return time.Duration(c.Advisor.TimeoutSeconds) * time.Second
}

// applyEnvOverrides overrides config values from the environment when
// the corresponding variables are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("ADVISOR_API_KEY"); v != "" {
		cfg.Advisor.APIKey = v
	}
	if v := os.Getenv("INITIAL_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Simulation.InitialBalance = f
		}
	}
	if v := os.Getenv("RISK_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.Simulation.RiskTolerance = f
		}
	}
}

// setDefaults fills in sensible values for anything left unset.
func setDefaults(cfg *Config) {
	if cfg.Simulation.InitialBalance <= 0 {
		cfg.Simulation.InitialBalance = 10000
	}
	if cfg.Simulation.OrderSize <= 0 {
		cfg.Simulation.OrderSize = 50
	}
	if cfg.Simulation.StakeMode == "" {
		cfg.Simulation.StakeMode = "fixed"
	}
	if cfg.Simulation.RiskTolerance <= 0 {
		cfg.Simulation.RiskTolerance = 0.3
	}
	if cfg.Simulation.StepSize <= 0 {
		cfg.Simulation.StepSize = 0.02
	}
	if cfg.Simulation.HeartbeatEvery <= 0 {
		cfg.Simulation.HeartbeatEvery = 5
	}
	if cfg.Simulation.BotName == "" {
		cfg.Simulation.BotName = "PolyBot"
	}
	if cfg.Simulation.YesBias <= 0 {
		cfg.Simulation.YesBias = 0.6
	}
	if cfg.Simulation.TickIntervalSeconds <= 0 {
		cfg.Simulation.TickIntervalSeconds = 2
	}
	if cfg.Advisor.TimeoutSeconds <= 0 {
		cfg.Advisor.TimeoutSeconds = 8
	}
	if cfg.Advisor.RatePerSec <= 0 {
		cfg.Advisor.RatePerSec = 2
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polybot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
}
