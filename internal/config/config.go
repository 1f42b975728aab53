package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort        string        `mapstructure:"http_port"`
	MongoURI        string        `mapstructure:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	KafkaBrokers    []string      `mapstructure:"kafka_brokers"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
	LogPretty       bool          `mapstructure:"log_pretty"`
}

// Load reads config.yaml from the working directory when present and
// lets STOREFRONT_* environment variables override every key.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("http_port", "8080")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "miorah")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("storefront")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required (set STOREFRONT_JWT_SECRET)")
	}

	return &cfg, nil
}
