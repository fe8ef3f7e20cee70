package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Trading  Trading  `mapstructure:"trading"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Webhook  Webhook  `mapstructure:"webhook"`
}

// Server holds the configuration for the HTTP/WebSocket server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Trading holds the configuration for the strategy scheduler.
type Trading struct {
	// TickInterval is the scheduler cadence in seconds.
	TickInterval int `mapstructure:"tick_interval"`
	// ThrottleSeconds is the minimum time between two evaluations of the
	// same strategy, independent of the scheduler cadence.
	ThrottleSeconds int `mapstructure:"throttle_seconds"`
}

// Webhook holds the configuration for the optional webhook publisher.
// An empty URL disables webhook delivery.
type Webhook struct {
	URL            string  `mapstructure:"url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
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
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("database.dsn", "tradesim.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("trading.tick_interval", 60)
	viper.SetDefault("trading.throttle_seconds", 300)
	viper.SetDefault("webhook.timeout_seconds", 5)
	viper.SetDefault("webhook.rate_limit", 10) // requests per second
	viper.SetDefault("webhook.rate_limit_burst", 5)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
