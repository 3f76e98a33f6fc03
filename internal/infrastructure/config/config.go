package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	sharedConfig "github.com/orris-inc/subsync/internal/shared/config"
)

type Config struct {
	Server         sharedConfig.ServerConfig         `mapstructure:"server"`
	Database       sharedConfig.DatabaseConfig       `mapstructure:"database"`
	Logger         sharedConfig.LoggerConfig         `mapstructure:"logger"`
	Redis          sharedConfig.RedisConfig          `mapstructure:"redis"`
	Notification   sharedConfig.NotificationConfig   `mapstructure:"notification"`
	Reconciliation sharedConfig.ReconciliationConfig `mapstructure:"reconciliation"`
	Dispatch       sharedConfig.DispatchConfig       `mapstructure:"dispatch"`
	Payment        sharedConfig.PaymentConfig        `mapstructure:"payment"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables. An explicit
// path takes precedence over the configs search directories; a missing
// config file leaves the defaults and environment in effect.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	// Set environment variable prefix and replacer
	v.SetEnvPrefix("SUBSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.timezone", "UTC")

	// Database defaults
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "subsync_dev")
	v.SetDefault("database.path", "")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Notification defaults, used until a policy is stored
	v.SetDefault("notification.enabled", true)
	v.SetDefault("notification.offset_amount", 3)
	v.SetDefault("notification.offset_unit", "day")
	v.SetDefault("notification.manual_renewal_mode", "notify")
	v.SetDefault("notification.policy_cache_ttl_seconds", 60)

	v.SetDefault("reconciliation.batch_size", 50)
	v.SetDefault("reconciliation.interval_minutes", 5)
	v.SetDefault("reconciliation.max_batches_per_run", 0)

	v.SetDefault("dispatch.batch_size", 100)
	v.SetDefault("dispatch.interval_seconds", 60)

	v.SetDefault("payment.default.suspension", true)
	v.SetDefault("payment.default.reactivation", true)
	v.SetDefault("payment.default.cancellation", true)
}
