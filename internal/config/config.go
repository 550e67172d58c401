// Package config handles configuration loading for the backtester.
// It supports YAML config files with environment variable overrides:
// viper for file+env merging and mapstructure tags for the decode,
// for both the search-path load (Load) and the explicit-path load
// (LoadFromFile).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marketreplay/backtester/internal/engine"
	"github.com/marketreplay/backtester/pkg/constant"
)

// Config is the complete application configuration: the engine run
// parameters plus logging. Run is what set_parameters (spec §6)
// ultimately feeds; Logging controls the engineio.Logger's verbosity.
type Config struct {
	Run     RunConfig     `mapstructure:"run"     yaml:"run"     json:"run"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// RunConfig mirrors every recognized set_parameters option (spec §6).
// Start/End are RFC3339 strings in the file/env form and parsed to
// time.Time by ToEngineConfig.
type RunConfig struct {
	VtSymbol   string  `mapstructure:"vt_symbol"   yaml:"vt_symbol"   json:"vt_symbol"`
	Interval   string  `mapstructure:"interval"    yaml:"interval"    json:"interval"`
	Start      string  `mapstructure:"start"       yaml:"start"       json:"start"`
	End        string  `mapstructure:"end"         yaml:"end"         json:"end"`
	Rate       float64 `mapstructure:"rate"        yaml:"rate"        json:"rate"`
	Slippage   float64 `mapstructure:"slippage"    yaml:"slippage"    json:"slippage"`
	Size       float64 `mapstructure:"size"        yaml:"size"        json:"size"`
	PriceTick  float64 `mapstructure:"pricetick"   yaml:"pricetick"   json:"pricetick"`
	Capital    float64 `mapstructure:"capital"     yaml:"capital"     json:"capital"`
	Mode       string  `mapstructure:"mode"        yaml:"mode"        json:"mode"`
	RiskFree   float64 `mapstructure:"risk_free"   yaml:"risk_free"   json:"risk_free"`
	AnnualDays int64   `mapstructure:"annual_days" yaml:"annual_days" json:"annual_days"`
	HalfLife   int64   `mapstructure:"half_life"   yaml:"half_life"   json:"half_life"`
}

// LoggingConfig controls the engine's log sink verbosity.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level" json:"level"` // "debug", "info", "warn", "error"
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// ToEngineConfig converts the file/env-friendly RunConfig into an
// engine.Config, parsing Start/End and the Interval/Mode enums.
func (r RunConfig) ToEngineConfig() (engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.VtSymbol = r.VtSymbol
	cfg.Rate = r.Rate
	cfg.Slippage = r.Slippage
	cfg.Size = r.Size
	cfg.PriceTick = r.PriceTick
	cfg.Capital = r.Capital
	cfg.RiskFree = r.RiskFree
	cfg.HalfLife = r.HalfLife
	if r.AnnualDays != 0 {
		cfg.AnnualDays = r.AnnualDays
	}

	if r.Interval != "" {
		cfg.Interval = constant.Interval(strings.ToUpper(r.Interval))
	}
	if r.Mode != "" {
		cfg.Mode = constant.BacktestingMode(strings.ToUpper(r.Mode))
	}

	if r.Start != "" {
		start, err := time.Parse(timeLayout, r.Start)
		if err != nil {
			return engine.Config{}, fmt.Errorf("config: parse run.start %q: %w", r.Start, err)
		}
		cfg.Start = start
	}
	if r.End != "" {
		end, err := time.Parse(timeLayout, r.End)
		if err != nil {
			return engine.Config{}, fmt.Errorf("config: parse run.end %q: %w", r.End, err)
		}
		cfg.End = end
	}
	return cfg, nil
}

// Load reads configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.backtester/config.yaml (home directory)
//  3. /etc/backtester/config.yaml (system)
//
// Environment variables override config file values, format
// BACKTEST_<SECTION>_<KEY>, e.g. BACKTEST_RUN_VT_SYMBOL.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".backtester"))
	v.AddConfigPath("/etc/backtester")

	v.SetEnvPrefix("BACKTEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path, for an
// explicit --config flag, still through viper so a BACKTEST_
// environment variable overrides any key that appears in the file or
// has a default in setDefaults; keys present in neither are not read
// from the environment.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("BACKTEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run.interval", "DAILY")
	v.SetDefault("run.mode", "BAR")
	v.SetDefault("run.capital", 1_000_000)
	v.SetDefault("run.annual_days", 240)
	v.SetDefault("logging.level", "info")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
