// Package config provides configuration management for the option screener.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"option-screener/internal/errors"
	"option-screener/internal/logging"
	"option-screener/internal/models"
)

// EnvPrefix prefixes every environment override, e.g. SCREENER_RANKING_TOP_N.
const EnvPrefix = "SCREENER"

// Config holds all application configuration.
type Config struct {
	StrategyFilter StrategyFilterConfig `mapstructure:"strategy_filter"`
	ConfigFilter   FilterConfig         `mapstructure:"config_filter"`
	Ranking        RankingConfig        `mapstructure:"ranking"`
	Engine         EngineConfig         `mapstructure:"engine"`
	Log            logging.LogConfig    `mapstructure:"log"`
	Store          StoreConfig          `mapstructure:"store"`

	path string
}

// StrategyFilterConfig selects the strategy kinds to generate.
type StrategyFilterConfig struct {
	SingleCalls bool `mapstructure:"single_calls"`
	IronCondors bool `mapstructure:"iron_condors"`
	Straddles   bool `mapstructure:"straddles"`
	Strangles   bool `mapstructure:"strangles"`
}

// FilterConfig is the raw screening section. Absent or null keys mean no
// constraint; ranges are two-element [low, high] arrays.
type FilterConfig struct {
	MinVolume         *int64    `mapstructure:"min_volume"`
	MinOI             *int64    `mapstructure:"min_oi"`
	MinPrice          *float64  `mapstructure:"min_price"`
	Expiry            *string   `mapstructure:"expiry"`
	DaysToExpiryRange []int     `mapstructure:"days_to_expiry_range"`
	VolumeRatioRange  []float64 `mapstructure:"volume_ratio_range"`
	MaxBidAskSpread   *float64  `mapstructure:"max_bid_ask_spread"`

	Direction          *string   `mapstructure:"direction"`
	DebitRange         []float64 `mapstructure:"debit_range"`
	CreditRange        []float64 `mapstructure:"credit_range"`
	PotentialGainRange []float64 `mapstructure:"potential_gain_range"`
	PotentialLossRange []float64 `mapstructure:"potential_loss_range"`
	RRRange            []float64 `mapstructure:"rr_range"`
	NetDeltaRange      []float64 `mapstructure:"net_delta_range"`
	NetThetaRange      []float64 `mapstructure:"net_theta_range"`
	NetVegaRange       []float64 `mapstructure:"net_vega_range"`
	IVRange            []float64 `mapstructure:"iv_range"`
}

// RankingConfig controls ordering and truncation of results.
type RankingConfig struct {
	Key     string `mapstructure:"key"`
	TopN    int    `mapstructure:"top_n"`
	Reverse bool   `mapstructure:"reverse"`
}

// EngineConfig controls generation concurrency.
type EngineConfig struct {
	Workers int `mapstructure:"workers"`
}

// StoreConfig controls persistence of screening runs.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/option-screener"
	}
	return filepath.Join(home, ".config", "option-screener")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}

// Load reads the config file at path (format taken from the extension),
// applies .env and SCREENER_* environment overrides, and validates it.
// An empty path uses DefaultConfigPath.
func Load(path string) (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if path == "" {
		path = DefaultConfigPath()
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s not found (run 'screener config init' to create one): %w", path, err)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &Config{path: path}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := logging.DefaultLogConfig()
	v.SetDefault("ranking.key", "rr")
	v.SetDefault("ranking.top_n", 10)
	v.SetDefault("ranking.reverse", true)
	v.SetDefault("engine.workers", 1)
	v.SetDefault("log.level", def.Level)
	v.SetDefault("log.console", def.Console)
	v.SetDefault("log.file", def.File)
	v.SetDefault("log.file_path", def.FilePath)
	v.SetDefault("log.max_size", def.MaxSize)
	v.SetDefault("log.max_backups", def.MaxBackups)
	v.SetDefault("log.max_age", def.MaxAge)
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", filepath.Join(DefaultConfigDir(), "screener.db"))
}

// Path returns the file the configuration was read from.
func (c *Config) Path() string {
	return c.path
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := c.Filter(); err != nil {
		return err
	}
	if c.Ranking.TopN < 0 {
		return errors.NewValidationError("ranking.top_n", c.Ranking.TopN, "must be non-negative")
	}
	switch c.Ranking.Key {
	case "rr", "gain", "loss", "cost":
	default:
		return errors.NewValidationError("ranking.key", c.Ranking.Key, "must be one of rr, gain, loss, cost")
	}
	if c.Engine.Workers < 1 {
		return errors.NewValidationError("engine.workers", c.Engine.Workers, "must be at least 1")
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return errors.NewValidationError("store.path", c.Store.Path, "required when store is enabled")
	}
	return nil
}

// Strategies converts the strategy_filter section.
func (c *Config) Strategies() models.StrategyFilter {
	return models.StrategyFilter{
		SingleLegs:  c.StrategyFilter.SingleCalls,
		IronCondors: c.StrategyFilter.IronCondors,
		Straddles:   c.StrategyFilter.Straddles,
		Strangles:   c.StrategyFilter.Strangles,
	}
}

// Filter converts the config_filter section, rejecting malformed or
// inverted ranges.
func (c *Config) Filter() (models.ConfigFilter, error) {
	raw := c.ConfigFilter
	out := models.ConfigFilter{
		MinVolume:       raw.MinVolume,
		MinOpenInterest: raw.MinOI,
		MinPrice:        raw.MinPrice,
		Expiry:          raw.Expiry,
		MaxBidAskSpread: raw.MaxBidAskSpread,
	}

	if raw.DaysToExpiryRange != nil {
		if len(raw.DaysToExpiryRange) != 2 {
			return out, errors.NewValidationError("days_to_expiry_range", raw.DaysToExpiryRange, "must have exactly two elements")
		}
		out.DaysToExpiry = &models.IntRange{Low: raw.DaysToExpiryRange[0], High: raw.DaysToExpiryRange[1]}
	}

	if raw.Direction != nil && *raw.Direction != "" {
		d, err := models.ParseDirection(*raw.Direction)
		if err != nil {
			return out, errors.NewValidationError("direction", *raw.Direction, err.Error())
		}
		out.Direction = &d
	}

	ranges := []struct {
		name   string
		values []float64
		target **models.Range
	}{
		{"volume_ratio_range", raw.VolumeRatioRange, &out.VolumeRatio},
		{"debit_range", raw.DebitRange, &out.Debit},
		{"credit_range", raw.CreditRange, &out.Credit},
		{"potential_gain_range", raw.PotentialGainRange, &out.PotentialGain},
		{"potential_loss_range", raw.PotentialLossRange, &out.PotentialLoss},
		{"rr_range", raw.RRRange, &out.RiskReward},
		{"net_delta_range", raw.NetDeltaRange, &out.NetDelta},
		{"net_theta_range", raw.NetThetaRange, &out.NetTheta},
		{"net_vega_range", raw.NetVegaRange, &out.NetVega},
		{"iv_range", raw.IVRange, &out.IV},
	}
	for _, r := range ranges {
		if r.values == nil {
			continue
		}
		if len(r.values) != 2 {
			return out, errors.NewValidationError(r.name, r.values, "must have exactly two elements")
		}
		*r.target = &models.Range{Low: r.values[0], High: r.values[1]}
	}

	if inverted := out.InvertedRanges(); len(inverted) > 0 {
		return out, errors.NewValidationError(inverted[0], "low > high", "inverted range never matches")
	}
	return out, nil
}
