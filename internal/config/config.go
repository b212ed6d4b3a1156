package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"` // guards POST /refresh; empty disables the check
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// CacheConfig controls the snapshot cache and its refresh schedule.
type CacheConfig struct {
	// Freshness is how long a snapshot is served without rebuilding.
	Freshness time.Duration `yaml:"freshness"`
	// Staleness is the age past which the health check forces a refresh.
	Staleness time.Duration `yaml:"staleness"`
	// DailyRefreshHour/Minute is the local wall-clock time of the daily
	// forced refresh. The scrape pipeline finishes shortly before it.
	// 00:00 is read as unset and falls back to the 10:05 default; the
	// earliest configurable fire time is 00:01.
	DailyRefreshHour   int `yaml:"daily_refresh_hour"`
	DailyRefreshMinute int `yaml:"daily_refresh_minute"`
	// HealthInterval is the cadence of the smart-refresh check.
	HealthInterval time.Duration `yaml:"health_interval"`
	// RetryDelay is the wait before retrying a failed daily refresh.
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Cache.Freshness == 0 {
		cfg.Cache.Freshness = 6 * time.Hour
	}
	if cfg.Cache.Staleness == 0 {
		cfg.Cache.Staleness = 12 * time.Hour
	}
	// Hour and minute default together so an early-morning schedule
	// like 00:30 survives; only the 00:00 zero value reads as unset.
	if cfg.Cache.DailyRefreshHour == 0 && cfg.Cache.DailyRefreshMinute == 0 {
		cfg.Cache.DailyRefreshHour = 10
		cfg.Cache.DailyRefreshMinute = 5
	}
	if cfg.Cache.HealthInterval == 0 {
		cfg.Cache.HealthInterval = 5 * time.Minute
	}
	if cfg.Cache.RetryDelay == 0 {
		cfg.Cache.RetryDelay = 5 * time.Minute
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GJM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GJM_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("GJM_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("GJM_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("GJM_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("GJM_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("GJM_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("GJM_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("GJM_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("GJM_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("GJM_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("GJM_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("GJM_CACHE_FRESHNESS"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.Freshness = d
		}
	}
	if v := os.Getenv("GJM_CACHE_STALENESS"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.Staleness = d
		}
	}
}
