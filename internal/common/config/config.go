// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Mail     MailConfig     `mapstructure:"mail"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Mail providers selectable via mail.provider.
const (
	MailProviderSMTP = "smtp"
	MailProviderSES  = "ses"
)

// MailConfig selects and configures the outgoing mail transport.
type MailConfig struct {
	Provider  string     `mapstructure:"provider"`
	FromEmail string     `mapstructure:"from_email"`
	SMTP      SMTPConfig `mapstructure:"smtp"`
	SES       SESConfig  `mapstructure:"ses"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

type SESConfig struct {
	Region string `mapstructure:"region"`
}

// DispatchConfig holds the daily follow-up run settings.
type DispatchConfig struct {
	// ScheduleTime is the local wall-clock fire time, "15:04:05" layout.
	ScheduleTime string `mapstructure:"schedule_time"`
	// Timezone fixes the day boundary for both the trigger and the
	// "ended yesterday" computation, so a host timezone change cannot
	// skip or double a day.
	Timezone       string        `mapstructure:"timezone"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	MetricsAddress string        `mapstructure:"metrics_address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
