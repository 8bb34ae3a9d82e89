// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable env override like AFTEREVENT_MAIL_FROM_EMAIL
	viper.SetEnvPrefix("AFTEREVENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env != "" {
		viper.SetConfigName(fmt.Sprintf("config.%s", env))
		_ = viper.MergeInConfig() // ignore error if not found
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or the project root, so
// the binary and tests can run from any package directory.
func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "afterevent-mailer"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}

	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = MailProviderSMTP
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = 587
	}
	if cfg.Mail.SES.Region == "" {
		cfg.Mail.SES.Region = "us-east-1"
	}

	if cfg.Dispatch.ScheduleTime == "" {
		cfg.Dispatch.ScheduleTime = "06:00:00"
	}
	if cfg.Dispatch.Timezone == "" {
		cfg.Dispatch.Timezone = "UTC"
	}
	if cfg.Dispatch.SendTimeout == 0 {
		cfg.Dispatch.SendTimeout = 30 * time.Second
	}
	if cfg.Dispatch.LockTTL == 0 {
		cfg.Dispatch.LockTTL = 36 * time.Hour
	}
	if cfg.Dispatch.MetricsAddress == "" {
		cfg.Dispatch.MetricsAddress = ":8080"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Mail.Provider {
	case MailProviderSMTP, MailProviderSES:
	default:
		return fmt.Errorf("mail.provider must be %q or %q, got %q",
			MailProviderSMTP, MailProviderSES, cfg.Mail.Provider)
	}

	if cfg.Mail.FromEmail == "" {
		return fmt.Errorf("mail.from_email is required")
	}
	if cfg.Mail.Provider == MailProviderSMTP && cfg.Mail.SMTP.Host == "" {
		return fmt.Errorf("mail.smtp.host is required for the smtp provider")
	}

	if _, err := time.Parse("15:04:05", cfg.Dispatch.ScheduleTime); err != nil {
		return fmt.Errorf("dispatch.schedule_time must use the 15:04:05 layout: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Dispatch.Timezone); err != nil {
		return fmt.Errorf("dispatch.timezone: %w", err)
	}
	if cfg.Dispatch.SendTimeout <= 0 {
		return fmt.Errorf("dispatch.send_timeout must be positive")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}

	return nil
}
