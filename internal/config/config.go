package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName            string        `mapstructure:"app_name"`
	Env                string        `mapstructure:"app_env"`
	LogLevel           string        `mapstructure:"log_level"`
	APIBaseURL         string        `mapstructure:"api_base_url"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	AccessToken        string        `mapstructure:"access_token"`
	TokenKey           string        `mapstructure:"token_key"`

	VehiclesFile        string        `mapstructure:"vehicles_file"`
	PublishersFile      string        `mapstructure:"publishers_file"`
	PollIntervalSeconds int64         `mapstructure:"poll_interval"`
	PollInterval        time.Duration `mapstructure:"-"`
	MetricsAddr         string        `mapstructure:"metrics_addr"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	TokenTTLSeconds        int64         `mapstructure:"token_ttl_seconds"`
	SnapshotTTLSeconds     int64         `mapstructure:"snapshot_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	TokenTTL               time.Duration `mapstructure:"-"`
	SnapshotTTL            time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("myskoda")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "myskoda")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_base_url", "https://mysmob.api.connect.skoda-auto.cz")
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("access_token", "")
	v.SetDefault("token_key", "default")
	v.SetDefault("vehicles_file", "./configs/vehicles.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("poll_interval", 300) // seconds
	v.SetDefault("metrics_addr", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/myskoda.db")
	v.SetDefault("token_ttl_seconds", int64(time.Hour/time.Second))
	v.SetDefault("snapshot_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
}

func (c *Config) normalize() error {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	c.AccessToken = strings.TrimSpace(c.AccessToken)
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url must not be empty")
	}

	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	c.HTTPTimeout = time.Duration(c.HTTPTimeoutSeconds) * time.Second

	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("invalid poll_interval (must be positive seconds)")
	}
	c.PollInterval = time.Duration(c.PollIntervalSeconds) * time.Second

	if c.TokenTTLSeconds <= 0 {
		return fmt.Errorf("invalid token_ttl_seconds (must be positive seconds)")
	}
	if c.SnapshotTTLSeconds <= 0 {
		return fmt.Errorf("invalid snapshot_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	c.TokenTTL = time.Duration(c.TokenTTLSeconds) * time.Second
	c.SnapshotTTL = time.Duration(c.SnapshotTTLSeconds) * time.Second
	c.StorageCleanupInterval = time.Duration(c.StorageCleanupSeconds) * time.Second

	return nil
}
