package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Exchange Exchange `mapstructure:"exchange"`
	Trading  Trading  `mapstructure:"trading"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Exchange holds the configuration for the exchange connector.
type Exchange struct {
	BaseURL        string        `mapstructure:"base_url"`
	ApiKey         string        `mapstructure:"apiKey"`
	SecretKey      string        `mapstructure:"secretKey"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	OrderTimeout   time.Duration `mapstructure:"order_timeout"`
}

// Server holds the configuration for the HTTP API server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Trading holds the configuration for the suggestion and risk engine.
// Every field gets a resolved default at load time so callers never
// have to interpret zero values.
type Trading struct {
	SuggestionTTLMinutes int `mapstructure:"suggestion_ttl_minutes"`
	MilestoneTarget      int `mapstructure:"milestone_target"`

	ExpireSweepInterval    time.Duration `mapstructure:"expire_sweep_interval"`
	SafetySweepInterval    time.Duration `mapstructure:"safety_sweep_interval"`
	MilestoneSweepInterval time.Duration `mapstructure:"milestone_sweep_interval"`
	AutoExecuteInterval    time.Duration `mapstructure:"auto_execute_interval"`
	SignalSweepInterval    time.Duration `mapstructure:"signal_sweep_interval"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8085)
	viper.SetDefault("database.dsn", "trading.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")

	viper.SetDefault("exchange.rate_limit", 20)      // requests per second
	viper.SetDefault("exchange.rate_limit_burst", 5) // burst size
	viper.SetDefault("exchange.order_timeout", 5*time.Second)

	viper.SetDefault("trading.suggestion_ttl_minutes", 60)
	viper.SetDefault("trading.milestone_target", 500)
	viper.SetDefault("trading.expire_sweep_interval", time.Minute)
	viper.SetDefault("trading.safety_sweep_interval", 15*time.Minute)
	viper.SetDefault("trading.milestone_sweep_interval", time.Hour)
	viper.SetDefault("trading.auto_execute_interval", time.Minute)
	viper.SetDefault("trading.signal_sweep_interval", 5*time.Minute)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
