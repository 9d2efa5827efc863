package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Crypto   CryptoConfig   `mapstructure:"crypto"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type AuthConfig struct {
	AdminKey   string `mapstructure:"admin_key"`
	CronSecret string `mapstructure:"cron_secret"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	LockPrefix string `mapstructure:"lock_prefix"`
}

type RunnerConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	SweepIntervalSec int  `mapstructure:"sweep_interval_sec"` // clamped 5..300
	CooldownSec      int  `mapstructure:"cooldown_sec"`
	LockTTLSec       int  `mapstructure:"lock_ttl_sec"`
	BreakerThreshold int  `mapstructure:"breaker_threshold"`
	AdminSimulate    bool `mapstructure:"admin_simulate"` // gates simulate-trade-result
	RateQPS          int  `mapstructure:"rate_qps"`
	RateBurst        int  `mapstructure:"rate_burst"`
}

type RiskConfig struct {
	DailyMaxLossUSDT     float64 `mapstructure:"daily_max_loss_usdt"`
	MaxTradesPerDay      int     `mapstructure:"max_trades_per_day"`
	MaxConsecutiveLosses int     `mapstructure:"max_consecutive_losses"`
	PauseDurationMin     int     `mapstructure:"pause_duration_min"`
}

type CryptoConfig struct {
	// EncryptionKey is hex or base64 encoded, 32 bytes decoded.
	EncryptionKey string `mapstructure:"encryption_key"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func (r RunnerConfig) SweepInterval() time.Duration {
	sec := r.SweepIntervalSec
	if sec < 5 {
		sec = 5
	}
	if sec > 300 {
		sec = 300
	}
	return time.Duration(sec) * time.Second
}

func (r RunnerConfig) Cooldown() time.Duration {
	return time.Duration(r.CooldownSec) * time.Second
}

func (r RunnerConfig) LockTTL() time.Duration {
	return time.Duration(r.LockTTLSec) * time.Second
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. TICKGATE_RUNNER_ENABLED, TICKGATE_CRYPTO_ENCRYPTION_KEY
	viper.SetEnvPrefix("tickgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("runner.enabled", false)
	viper.SetDefault("runner.sweep_interval_sec", 30)
	viper.SetDefault("runner.cooldown_sec", 30)
	viper.SetDefault("runner.lock_ttl_sec", 120)
	viper.SetDefault("runner.breaker_threshold", 3)
	viper.SetDefault("runner.admin_simulate", false)
	viper.SetDefault("runner.rate_qps", 20)
	viper.SetDefault("runner.rate_burst", 40)
	viper.SetDefault("risk.daily_max_loss_usdt", 50)
	viper.SetDefault("risk.max_trades_per_day", 20)
	viper.SetDefault("risk.max_consecutive_losses", 3)
	viper.SetDefault("risk.pause_duration_min", 1440)
	viper.SetDefault("redis.lock_prefix", "strategy_lock:")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
