package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection and document paths
	DataBackend  string
	DataDir      string
	SQLiteDBPath string
	RecordsPath  string
	SettingsPath string

	// Remote content API (contentapi backend)
	ContentAPIURL     string
	ContentAPIToken   string
	ContentAPIBranch  string
	ContentAPITimeout time.Duration

	// Admin sessions
	AdminPassphrase     string
	AdminPassphraseHash string
	SessionTTL          time.Duration
	PolicyPath          string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets summary mirror
	GoogleSpreadsheetID      string
	GoogleSummarySheet       string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Worker
	MonthlyCloseSpec     string
	CacheCleanupInterval time.Duration
}

// Backends lists the accepted DATA_BACKEND values.
var Backends = []string{"memory", "file", "sqlite", "contentapi"}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", "file"),
		DataDir:      getEnv("DATA_DIR", "."),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/nomina.db"),
		RecordsPath:  getEnv("RECORDS_PATH", "data/entries.csv"),
		SettingsPath: getEnv("SETTINGS_PATH", "data/settings.yaml"),

		ContentAPIURL:     getEnv("CONTENT_API_URL", ""),
		ContentAPIToken:   getEnv("CONTENT_API_TOKEN", ""),
		ContentAPIBranch:  getEnv("CONTENT_API_BRANCH", "main"),
		ContentAPITimeout: getEnvDuration("CONTENT_API_TIMEOUT", 15*time.Second),

		AdminPassphrase:     getEnv("ADMIN_PASSPHRASE", ""),
		AdminPassphraseHash: getEnv("ADMIN_PASSPHRASE_HASH", ""),
		SessionTTL:          getEnvDuration("SESSION_TTL", 8*time.Hour),
		PolicyPath:          getEnv("POLICY_PATH", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "nomina"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "summary_sync"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSummarySheet:       getEnv("GOOGLE_SUMMARY_SHEET_NAME", "Resumen"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		MonthlyCloseSpec:     getEnv("MONTHLY_CLOSE_CRON", "0 6 1 * *"),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	isValidBackend := false
	for _, backend := range Backends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "file":
		if c.DataDir == "" {
			errors = append(errors, "DATA_DIR cannot be empty when using file backend")
		}
	case "contentapi":
		if c.ContentAPIURL == "" {
			errors = append(errors, "CONTENT_API_URL is required when using contentapi backend")
		} else if u, err := url.Parse(c.ContentAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid CONTENT_API_URL '%s': must be an http(s) URL", c.ContentAPIURL))
		}
		if c.ContentAPITimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid content API timeout %v: must be positive", c.ContentAPITimeout))
		}
	}

	if strings.TrimSpace(c.RecordsPath) == "" {
		errors = append(errors, "RECORDS_PATH cannot be empty")
	}
	if strings.TrimSpace(c.SettingsPath) == "" {
		errors = append(errors, "SETTINGS_PATH cannot be empty")
	}
	if c.RecordsPath != "" && c.RecordsPath == c.SettingsPath {
		errors = append(errors, "RECORDS_PATH and SETTINGS_PATH must differ")
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.AdminPassphrase != "" && c.AdminPassphraseHash != "" {
		errors = append(errors, "set only one of ADMIN_PASSPHRASE and ADMIN_PASSPHRASE_HASH")
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Google Sheets mirror is optional; when enabled it needs credentials
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided with GOOGLE_SPREADSHEET_ID")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.MonthlyCloseSpec != "" {
		if _, err := cron.ParseStandard(c.MonthlyCloseSpec); err != nil {
			errors = append(errors, fmt.Sprintf("invalid MONTHLY_CLOSE_CRON '%s': %v", c.MonthlyCloseSpec, err))
		}
	}
	if c.CacheCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker adds the requirements of the summary worker binary.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.AMQPURL == "" {
		return fmt.Errorf("configuration validation failed:\n- AMQP_URL is required for the worker")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
