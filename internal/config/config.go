package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"finanzas/internal/core"
)

const (
	BackendAPI    = "api"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port string

	// Finance API
	APIBaseURL    string
	APIToken      string
	APITokenFile  string
	APITimeout    time.Duration
	APIMaxRetries int

	// Backend selection
	DataBackend string
	DataDir     string

	// Screens
	ExchangeRate string
	ItemsPerPage int

	// Journal
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	LogLevel string
}

// File is the optional configuration file. Keys mirror the environment
// variables in lower case; environment values win over file values.
type File struct {
	Port                     string `json:"port" yaml:"port" toml:"port"`
	APIBaseURL               string `json:"api_base_url" yaml:"api_base_url" toml:"api_base_url"`
	APIToken                 string `json:"api_token" yaml:"api_token" toml:"api_token"`
	APITokenFile             string `json:"api_token_file" yaml:"api_token_file" toml:"api_token_file"`
	APITimeout               string `json:"api_timeout" yaml:"api_timeout" toml:"api_timeout"`
	APIMaxRetries            string `json:"api_max_retries" yaml:"api_max_retries" toml:"api_max_retries"`
	DataBackend              string `json:"data_backend" yaml:"data_backend" toml:"data_backend"`
	DataDir                  string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	ExchangeRate             string `json:"exchange_rate" yaml:"exchange_rate" toml:"exchange_rate"`
	ItemsPerPage             string `json:"items_per_page" yaml:"items_per_page" toml:"items_per_page"`
	SQLiteDBPath             string `json:"sqlite_db_path" yaml:"sqlite_db_path" toml:"sqlite_db_path"`
	AMQPURL                  string `json:"amqp_url" yaml:"amqp_url" toml:"amqp_url"`
	AMQPExchange             string `json:"amqp_exchange" yaml:"amqp_exchange" toml:"amqp_exchange"`
	AMQPQueue                string `json:"amqp_queue" yaml:"amqp_queue" toml:"amqp_queue"`
	GoogleSpreadsheetID      string `json:"google_spreadsheet_id" yaml:"google_spreadsheet_id" toml:"google_spreadsheet_id"`
	GoogleSheetName          string `json:"google_sheet_name" yaml:"google_sheet_name" toml:"google_sheet_name"`
	GoogleServiceAccountFile string `json:"google_service_account_file" yaml:"google_service_account_file" toml:"google_service_account_file"`
	LogLevel                 string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Load reads the configuration from the environment. When CONFIG_FILE is
// set, that file supplies the defaults.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile reads path (if not empty) and overlays the environment on top.
func LoadFile(path string) (*Config, error) {
	var f File
	if path != "" {
		loaded, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		f = *loaded
	}
	return fromEnv(f), nil
}

// ReadFile decodes a TOML, YAML or JSON configuration file by extension.
func ReadFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}
	return &f, nil
}

func fromEnv(f File) *Config {
	return &Config{
		Port: getEnv("PORT", or(f.Port, "8081")),

		APIBaseURL:    getEnv("API_BASE_URL", or(f.APIBaseURL, "http://localhost:8000")),
		APIToken:      getEnv("API_TOKEN", f.APIToken),
		APITokenFile:  getEnv("API_TOKEN_FILE", f.APITokenFile),
		APITimeout:    getEnvDuration("API_TIMEOUT", parseDuration(f.APITimeout, 15*time.Second)),
		APIMaxRetries: getEnvInt("API_MAX_RETRIES", parseInt(f.APIMaxRetries, 3)),

		DataBackend: getEnv("DATA_BACKEND", or(f.DataBackend, BackendAPI)),
		DataDir:     getEnv("DATA_DIR", or(f.DataDir, "data")),

		ExchangeRate: getEnv("EXCHANGE_RATE", or(f.ExchangeRate, "1")),
		ItemsPerPage: getEnvInt("ITEMS_PER_PAGE", parseInt(f.ItemsPerPage, 3)),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", or(f.SQLiteDBPath, "./data/finanzas.db")),

		AMQPURL:      getEnv("AMQP_URL", f.AMQPURL),
		AMQPExchange: getEnv("AMQP_EXCHANGE", or(f.AMQPExchange, "finanzas")),
		AMQPQueue:    getEnv("AMQP_QUEUE", or(f.AMQPQueue, "finanzas_mutations")),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", f.GoogleSpreadsheetID),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", or(f.GoogleSheetName, "Balances")),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", f.GoogleServiceAccountFile),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		LogLevel: getEnv("LOG_LEVEL", or(f.LogLevel, "info")),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendAPI:
		if u, err := url.Parse(c.APIBaseURL); err != nil || c.APIBaseURL == "" {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s'", c.APIBaseURL))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
		if c.APITokenFile != "" {
			if _, err := os.Stat(c.APITokenFile); err != nil {
				errors = append(errors, fmt.Sprintf("API token file does not exist: %s", c.APITokenFile))
			}
		}
	case BackendMemory:
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using memory backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendAPI, BackendMemory))
	}

	if c.APITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at least 1 second", c.APITimeout))
	}
	if c.APIMaxRetries < 0 || c.APIMaxRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid API max retries %d: must be between 0 and 10", c.APIMaxRetries))
	}

	if _, err := core.ParseExchangeRate(c.ExchangeRate); err != nil {
		errors = append(errors, fmt.Sprintf("invalid exchange rate '%s': %v", c.ExchangeRate, err))
	}
	if c.ItemsPerPage < 1 || c.ItemsPerPage > 24 {
		errors = append(errors, fmt.Sprintf("invalid items per page %d: must be between 1 and 24", c.ItemsPerPage))
	}

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

	if _, err := c.SlogLevel(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Token returns the API token, reading APITokenFile when no inline token is set.
func (c *Config) Token() (string, error) {
	if c.APIToken != "" || c.APITokenFile == "" {
		return c.APIToken, nil
	}
	data, err := os.ReadFile(c.APITokenFile)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Rate returns the configured exchange rate.
func (c *Config) Rate() (decimal.Decimal, error) {
	return core.ParseExchangeRate(c.ExchangeRate)
}

// SheetsEnabled reports whether Google Sheets export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != "" && (c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != "")
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel)
	}
	return lvl, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	return parseInt(os.Getenv(key), defaultValue)
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return parseDuration(os.Getenv(key), defaultValue)
}

func parseInt(value string, defaultValue int) int {
	if value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
