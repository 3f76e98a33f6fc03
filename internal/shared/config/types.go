package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Mode     string `mapstructure:"mode" validate:"oneof=debug release test"`
	Timezone string `mapstructure:"timezone"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver" validate:"oneof=mysql sqlite"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	Path            string `mapstructure:"path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" validate:"gte=0"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// GetDSN returns the driver specific data source name.
func (d *DatabaseConfig) GetDSN() string {
	if d.Driver == "sqlite" {
		if d.Path == "" {
			return "file::memory:?cache=shared"
		}
		return d.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&collation=utf8mb4_general_ci&parseTime=true&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=console json"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// NotificationConfig holds the policy used when nothing has been stored yet.
type NotificationConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	OffsetAmount      int    `mapstructure:"offset_amount" validate:"gte=0"`
	OffsetUnit        string `mapstructure:"offset_unit" validate:"oneof=day week"`
	ManualRenewalMode string `mapstructure:"manual_renewal_mode" validate:"oneof=notify skip"`
	PolicyCacheTTL    int    `mapstructure:"policy_cache_ttl_seconds" validate:"gte=0"`
}

func (n *NotificationConfig) CacheTTL() time.Duration {
	return time.Duration(n.PolicyCacheTTL) * time.Second
}

type ReconciliationConfig struct {
	BatchSize        int `mapstructure:"batch_size" validate:"gt=0"`
	IntervalMinutes  int `mapstructure:"interval_minutes" validate:"gt=0"`
	MaxBatchesPerRun int `mapstructure:"max_batches_per_run" validate:"gte=0"`
}

func (r *ReconciliationConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMinutes) * time.Minute
}

type DispatchConfig struct {
	BatchSize       int `mapstructure:"batch_size" validate:"gt=0"`
	IntervalSeconds int `mapstructure:"interval_seconds" validate:"gt=0"`
}

func (d *DispatchConfig) Interval() time.Duration {
	return time.Duration(d.IntervalSeconds) * time.Second
}

// GatewayCapabilities lists the status changes a payment gateway supports.
type GatewayCapabilities struct {
	Suspension   bool `mapstructure:"suspension"`
	Reactivation bool `mapstructure:"reactivation"`
	Cancellation bool `mapstructure:"cancellation"`
}

type PaymentConfig struct {
	// Default applies to payment methods missing from Gateways.
	Default  GatewayCapabilities            `mapstructure:"default"`
	Gateways map[string]GatewayCapabilities `mapstructure:"gateways"`
}
