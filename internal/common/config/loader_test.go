// internal/common/config/loader_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	cfg := &Config{}
	cfg.Database.Postgres.Host = "localhost"
	cfg.Mail.FromEmail = "events@example.com"
	cfg.Mail.SMTP.Host = "localhost"
	applyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "afterevent-mailer", cfg.App.Name)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, MailProviderSMTP, cfg.Mail.Provider)
	assert.Equal(t, "06:00:00", cfg.Dispatch.ScheduleTime)
	assert.Equal(t, "UTC", cfg.Dispatch.Timezone)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.SendTimeout)
	assert.Equal(t, 36*time.Hour, cfg.Dispatch.LockTTL)
	assert.Equal(t, ":8080", cfg.Dispatch.MetricsAddress)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, validateConfig(validTestConfig()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mail provider", func(c *Config) { c.Mail.Provider = "carrier-pigeon" }},
		{"missing from email", func(c *Config) { c.Mail.FromEmail = "" }},
		{"smtp provider without host", func(c *Config) { c.Mail.SMTP.Host = "" }},
		{"bad schedule time layout", func(c *Config) { c.Dispatch.ScheduleTime = "6am" }},
		{"unknown timezone", func(c *Config) { c.Dispatch.Timezone = "Mars/Olympus" }},
		{"non-positive send timeout", func(c *Config) { c.Dispatch.SendTimeout = -time.Second }},
		{"missing postgres host", func(c *Config) { c.Database.Postgres.Host = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		Database: "afterevent",
		User:     "svc",
		Password: "secret",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=secret dbname=afterevent sslmode=require",
		p.GetDSN())
}

func TestSESProviderDoesNotRequireSMTPHost(t *testing.T) {
	cfg := validTestConfig()
	cfg.Mail.Provider = MailProviderSES
	cfg.Mail.SMTP.Host = ""
	assert.NoError(t, validateConfig(cfg))
}
