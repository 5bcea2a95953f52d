package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tahmidmalekzoha/rawjournal/internal/adapters/logger"
	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
)

// Report output formats accepted by REPORT_FORMAT and the --format flag.
const (
	ReportText = "text"
	ReportJSON = "json"
	ReportYAML = "yaml"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat logger.Format

	// Journal defaults
	DefaultAccount string
	DefaultPeriod  domain.Period
	WeekStart      time.Weekday // First day of the "week" period
	DefaultLotSize float64      // Position size for imported rows that carry none

	// Reports
	ReportCache  bool
	ReportFormat string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/rawjournal.db")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat, err = logger.ParseFormat(getEnv("LOG_FORMAT", string(logger.FormatText)))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LOG_FORMAT: %v", err))
	}

	// Journal defaults
	cfg.DefaultAccount = strings.TrimSpace(getEnv("DEFAULT_ACCOUNT", "default"))
	if cfg.DefaultAccount == "" {
		errs = append(errs, "DEFAULT_ACCOUNT must not be blank")
	}

	cfg.DefaultPeriod, err = domain.ParsePeriod(getEnv("DEFAULT_PERIOD", string(domain.PeriodAll)))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_PERIOD: %v", err))
	}

	cfg.WeekStart, err = parseWeekStart(getEnv("WEEK_START", "monday"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid WEEK_START: %v", err))
	}

	cfg.DefaultLotSize, err = getEnvAsFloatRequired("DEFAULT_LOT_SIZE", 0.01)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_LOT_SIZE: %v", err))
	} else if cfg.DefaultLotSize <= 0 {
		errs = append(errs, "DEFAULT_LOT_SIZE must be positive")
	}

	// Reports
	cfg.ReportCache, err = getEnvAsBoolRequired("REPORT_CACHE", true)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid REPORT_CACHE: %v", err))
	}

	cfg.ReportFormat = strings.ToLower(getEnv("REPORT_FORMAT", ReportText))
	if err := ValidateReportFormat(cfg.ReportFormat); err != nil {
		errs = append(errs, fmt.Sprintf("invalid REPORT_FORMAT: %v", err))
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// ValidateReportFormat accepts text, json and yaml.
func ValidateReportFormat(format string) error {
	switch format {
	case ReportText, ReportJSON, ReportYAML:
		return nil
	default:
		return fmt.Errorf("unknown report format %q (want text, json or yaml)", format)
	}
}

func parseWeekStart(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monday", "mon":
		return time.Monday, nil
	case "sunday", "sun":
		return time.Sunday, nil
	default:
		return time.Monday, fmt.Errorf("unknown week start %q (want monday or sunday)", s)
	}
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBoolRequired(key string, defaultValue bool) (bool, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
