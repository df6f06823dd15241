// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// StoreConfig selects the persistence driver for the distribution module.
type StoreConfig interface {
	GetStoreDriver() string
	GetStoreSeedPath() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// WebhookConfig provides the shared secret of the payment settlement webhook.
type WebhookConfig interface {
	GetPaymentWebhookSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSweepInterval() time.Duration
	GetCadenceInterval() time.Duration
}

// DistributionConfig provides the lead rationing parameters.
type DistributionConfig interface {
	GetDistributionFanout() int
	GetResponseWindow() time.Duration
	GetEligibilityCap() int
	GetLeadCostCredits() int
	GetCompletionLeadCostCredits() int
	GetRedistributionWindow() time.Duration
	GetSweepBatchSize() int
}

// CadenceConfig provides reminder and follow-up step definitions.
type CadenceConfig interface {
	GetReminderSteps() []CadenceStep
	GetFollowupSteps() []CadenceStep
	GetCadenceBatchSize() int
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetAppBaseURL() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	StoreDriver          string
	StoreSeedPath        string
	JWTAccessSecret      string
	PaymentWebhookSecret string
	CORSAllowAll         bool
	CORSOrigins          []string
	CORSAllowCreds       bool
	AppBaseURL           string
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int

	DistributionFanout        int
	ResponseWindow            time.Duration
	EligibilityCap            int
	LeadCostCredits           int
	CompletionLeadCostCredits int
	RedistributionWindow      time.Duration
	SweepInterval             time.Duration
	SweepBatchSize            int

	CadenceInterval  time.Duration
	CadenceBatchSize int
	ReminderSteps    []CadenceStep
	FollowupSteps    []CadenceStep

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// StoreConfig implementation
func (c *Config) GetStoreDriver() string   { return c.StoreDriver }
func (c *Config) GetStoreSeedPath() string { return c.StoreSeedPath }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// WebhookConfig implementation
func (c *Config) GetPaymentWebhookSecret() string { return c.PaymentWebhookSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string               { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool         { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string         { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int          { return c.AsynqConcurrency }
func (c *Config) GetSweepInterval() time.Duration   { return c.SweepInterval }
func (c *Config) GetCadenceInterval() time.Duration { return c.CadenceInterval }

// DistributionConfig implementation
func (c *Config) GetDistributionFanout() int             { return c.DistributionFanout }
func (c *Config) GetResponseWindow() time.Duration       { return c.ResponseWindow }
func (c *Config) GetEligibilityCap() int                 { return c.EligibilityCap }
func (c *Config) GetLeadCostCredits() int                { return c.LeadCostCredits }
func (c *Config) GetCompletionLeadCostCredits() int      { return c.CompletionLeadCostCredits }
func (c *Config) GetRedistributionWindow() time.Duration { return c.RedistributionWindow }
func (c *Config) GetSweepBatchSize() int                 { return c.SweepBatchSize }

// CadenceConfig implementation
func (c *Config) GetReminderSteps() []CadenceStep { return c.ReminderSteps }
func (c *Config) GetFollowupSteps() []CadenceStep { return c.FollowupSteps }
func (c *Config) GetCadenceBatchSize() int        { return c.CadenceBatchSize }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetAppBaseURL() string       { return c.AppBaseURL }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		StoreDriver:          strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		StoreSeedPath:        getEnv("STORE_SEED_PATH", ""),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		PaymentWebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		CORSAllowCreds:       strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:           getEnv("APP_BASE_URL", "http://localhost:4200"),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "distribution"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		DistributionFanout:        mustInt(getEnv("DISTRIBUTION_FANOUT", "3")),
		ResponseWindow:            mustDuration(getEnv("RESPONSE_WINDOW", "24h")),
		EligibilityCap:            mustInt(getEnv("ELIGIBILITY_CAP", "20")),
		LeadCostCredits:           mustInt(getEnv("LEAD_COST_CREDITS", "1")),
		CompletionLeadCostCredits: mustInt(getEnv("COMPLETION_LEAD_COST_CREDITS", "1")),
		RedistributionWindow:      mustDuration(getEnv("REDISTRIBUTION_WINDOW", "168h")),
		SweepInterval:             mustDuration(getEnv("SWEEP_INTERVAL", "5m")),
		SweepBatchSize:            mustInt(getEnv("SWEEP_BATCH_SIZE", "200")),

		CadenceInterval:  mustDuration(getEnv("CADENCE_INTERVAL", "15m")),
		CadenceBatchSize: mustInt(getEnv("CADENCE_BATCH_SIZE", "500")),

		EmailEnabled:     emailEnabled && smtpHost != "",
		SMTPHost:         smtpHost,
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "InsulationPal"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
	}

	reminders, err := parseSteps("reminder", getEnv("REMINDER_STEPS", "2h,4h,24h"))
	if err != nil {
		return nil, err
	}
	followups, err := parseSteps("followup", getEnv("FOLLOWUP_STEPS", "72h,120h"))
	if err != nil {
		return nil, err
	}
	cfg.ReminderSteps = reminders
	cfg.FollowupSteps = followups

	if path := getEnv("CADENCE_CONFIG_PATH", ""); path != "" {
		file, err := LoadCadenceFile(path)
		if err != nil {
			return nil, err
		}
		if len(file.Reminders) > 0 {
			cfg.ReminderSteps = file.Reminders
		}
		if len(file.Followups) > 0 {
			cfg.FollowupSteps = file.Followups
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.DistributionFanout < 1 {
		return fmt.Errorf("DISTRIBUTION_FANOUT must be at least 1")
	}
	if c.ResponseWindow <= 0 {
		return fmt.Errorf("RESPONSE_WINDOW must be a positive duration")
	}
	if c.EligibilityCap < c.DistributionFanout {
		return fmt.Errorf("ELIGIBILITY_CAP must not be lower than DISTRIBUTION_FANOUT")
	}
	if c.LeadCostCredits < 1 || c.CompletionLeadCostCredits < 1 {
		return fmt.Errorf("lead cost credits must be at least 1")
	}
	if c.SweepInterval <= 0 || c.CadenceInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL and CADENCE_INTERVAL must be positive durations")
	}
	if c.EmailEnabled && c.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
