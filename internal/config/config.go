package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	AppPort       int           `mapstructure:"APP_PORT"`
	StoreBackend  string        `mapstructure:"STORE_BACKEND"`
	DatabasePath  string        `mapstructure:"DATABASE_PATH"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	FlushDelay    time.Duration `mapstructure:"FLUSH_DELAY"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	ShutdownGrace time.Duration `mapstructure:"SHUTDOWN_GRACE"`

	// ConfigFile is the .env file the values were read from, "" when only
	// the environment and defaults were used.
	ConfigFile string `mapstructure:"-"`
}

func LoadConfig() (*Config, error) {
	return load(viper.New(), ".", "./backend")
}

func load(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetDefault("APP_PORT", 8000)
	v.SetDefault("STORE_BACKEND", BackendSQLite)
	v.SetDefault("DATABASE_PATH", "/data/aria.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("FLUSH_DELAY", "500ms")
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("SHUTDOWN_GRACE", "10s")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	return &cfg, nil
}

// Validate checks the values viper cannot check by type.
func (c *Config) Validate() error {
	switch strings.ToLower(c.StoreBackend) {
	case BackendMemory, BackendSQLite, BackendRedis:
		c.StoreBackend = strings.ToLower(c.StoreBackend)
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.FlushDelay <= 0 {
		return fmt.Errorf("config: FLUSH_DELAY must be positive, got %s", c.FlushDelay)
	}
	return nil
}
