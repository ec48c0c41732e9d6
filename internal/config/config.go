package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/calibration"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/domain"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/policy"
	"github.com/tayfunkamaci/Credit-Card-Fraud-Detection/internal/store"
)

type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Model       ModelConfig       `yaml:"model" mapstructure:"model"`
	Policy      policy.Limits     `yaml:"policy" mapstructure:"policy"`
	Calibration CalibrationConfig `yaml:"calibration" mapstructure:"calibration"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Alerts      AlertsConfig      `yaml:"alerts" mapstructure:"alerts"`
	Scorer      ScorerConfig      `yaml:"scorer" mapstructure:"scorer"`
}

type ServerConfig struct {
	Port             int `yaml:"port" mapstructure:"port"`
	ReadTimeoutSecs  int `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type ModelConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type CalibrationConfig struct {
	CostFalsePositive float64 `yaml:"cost_false_positive" mapstructure:"cost_false_positive"`
	CostFalseNegative float64 `yaml:"cost_false_negative" mapstructure:"cost_false_negative"`
	GridStart         float64 `yaml:"grid_start" mapstructure:"grid_start"`
	GridStop          float64 `yaml:"grid_stop" mapstructure:"grid_stop"`
	GridStep          float64 `yaml:"grid_step" mapstructure:"grid_step"`
	Workers           int     `yaml:"workers" mapstructure:"workers"`
}

// CostModel returns the configured misclassification costs.
func (c CalibrationConfig) CostModel() domain.CostModel {
	return domain.CostModel{FalsePositive: c.CostFalsePositive, FalseNegative: c.CostFalseNegative}
}

// Grid builds the configured threshold grid.
func (c CalibrationConfig) Grid() ([]float64, error) {
	return calibration.Grid(c.GridStart, c.GridStop, c.GridStep)
}

type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

type AlertsConfig struct {
	WebhookURLs []string `yaml:"webhook_urls" mapstructure:"webhook_urls"`
	MinDecision string   `yaml:"min_decision" mapstructure:"min_decision"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-delivery timeout.
func (a AlertsConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

type ScorerConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FRAUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	limits := policy.DefaultLimits()
	cost := domain.DefaultCostModel()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_secs", 10)
	v.SetDefault("server.write_timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("model.path", "data/model.yaml")
	v.SetDefault("policy.high_amount", limits.HighAmount)
	v.SetDefault("policy.medium_amount", limits.MediumAmount)
	v.SetDefault("policy.fast_transaction_seconds", limits.FastTransactionSeconds)
	v.SetDefault("policy.night_start_hour", limits.NightStartHour)
	v.SetDefault("policy.night_end_hour", limits.NightEndHour)
	v.SetDefault("policy.block_score", limits.BlockScore)
	v.SetDefault("policy.challenge_score", limits.ChallengeScore)
	v.SetDefault("calibration.cost_false_positive", cost.FalsePositive)
	v.SetDefault("calibration.cost_false_negative", cost.FalseNegative)
	v.SetDefault("calibration.grid_start", calibration.DefaultGridStart)
	v.SetDefault("calibration.grid_stop", calibration.DefaultGridStop)
	v.SetDefault("calibration.grid_step", calibration.DefaultGridStep)
	v.SetDefault("calibration.workers", 4)
	v.SetDefault("store.driver", store.DriverMemory)
	v.SetDefault("store.dsn", "data/calibrations.db")
	v.SetDefault("alerts.webhook_urls", []string{})
	v.SetDefault("alerts.min_decision", string(domain.DecisionBlock))
	v.SetDefault("alerts.timeout_secs", 5)
	v.SetDefault("scorer.timeout_secs", 5)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port out of range (%d)", c.Server.Port)
	}
	if err := c.Policy.Validate(); err != nil {
		return eris.Wrap(err, "config: policy")
	}
	if err := c.Calibration.CostModel().Validate(); err != nil {
		return eris.Wrap(err, "config: calibration")
	}
	if _, err := c.Calibration.Grid(); err != nil {
		return eris.Wrap(err, "config: calibration grid")
	}
	if c.Calibration.Workers < 0 {
		return eris.Errorf("config: calibration.workers must be >= 0 (got %d)", c.Calibration.Workers)
	}
	switch c.Store.Driver {
	case store.DriverMemory:
	case store.DriverSQLite:
		if c.Store.DSN == "" {
			return eris.New("config: store.dsn is required for sqlite")
		}
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if !domain.Decision(c.Alerts.MinDecision).Valid() {
		return eris.Errorf("config: unknown alerts.min_decision %q", c.Alerts.MinDecision)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return eris.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
