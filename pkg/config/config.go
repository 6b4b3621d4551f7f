package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `env:"RESTO_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"RESTO_PG_PORT" env-default:"5432"`
	Database string `env:"RESTO_PG_DATABASE" env-default:"resto_db"`
	User     string `env:"RESTO_PG_USER" env-default:"resto"`
	Password string `env:"RESTO_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"RESTO_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// SecurityConfig holds two-factor and lockout policy settings
type SecurityConfig struct {
	Issuer            string        `env:"SECURITY_TOTP_ISSUER" env-default:"resto-secure"`
	MaxFailedAttempts int           `env:"SECURITY_MAX_FAILED_ATTEMPTS" env-default:"5"`
	LockoutDuration   time.Duration `env:"SECURITY_LOCKOUT_DURATION" env-default:"30m"`
}

// SessionsConfig holds session registry settings
type SessionsConfig struct {
	TTL        time.Duration `env:"SESSION_TTL" env-default:"24h"`
	MaxActive  int           `env:"SESSION_MAX_ACTIVE" env-default:"5"`
	HistoryAge time.Duration `env:"SESSION_HISTORY_LOOKBACK" env-default:"720h"`
}

// BackupConfig holds backup scheduler settings
type BackupConfig struct {
	SchedulerInterval time.Duration `env:"BACKUP_SCHEDULER_INTERVAL" env-default:"1h"`
}

// SMTPConfig holds outbound mail settings for security alerts
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST" env-default:""`
	Port     int    `env:"SMTP_PORT" env-default:"587"`
	TLS      bool   `env:"SMTP_TLS" env-default:"true"`
	Username string `env:"SMTP_USERNAME" env-default:""`
	Password string `env:"SMTP_PASSWORD" env-default:""`
	From     string `env:"SMTP_FROM" env-default:"security@resto.example"`
}

// JWTConfig holds token verification settings
type JWTConfig struct {
	Secret string `env:"JWT_SECRET" env-default:"resto-dev-secret-change-in-production"`
}

// Config is the full service configuration, populated from the environment
type Config struct {
	Database DatabaseConfig
	Security SecurityConfig
	Sessions SessionsConfig
	Backup   BackupConfig
	SMTP     SMTPConfig
	JWT      JWTConfig
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	return &cfg, nil
}
