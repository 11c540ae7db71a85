// Package config provides configuration loading and validation for the service and CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Defaults applied by Load.
const (
	DefaultPort           = 8080
	DefaultOracleTimeout  = 20 * time.Second
	DefaultQuestionCount  = 5
	MaxQuestionCount      = 10
	DefaultMaxUploadBytes = 5 << 20
)

// Config represents the service configuration. Values come from the
// environment (Load) and may be overlaid by a JSON file (LoadFile + Merge).
type Config struct {
	Port         int    `json:"port,omitempty"`
	DatabaseURL  string `json:"database_url,omitempty"`  // PostgreSQL connection URL
	StoreBackend string `json:"store_backend,omitempty"` // postgres or memory

	// Oracle
	APIKey           string   `json:"api_key,omitempty"`   // Gemini API key; empty disables the oracle
	LLMModel         string   `json:"llm_model,omitempty"` // Overrides every model tier
	OracleTimeout    Duration `json:"oracle_timeout,omitempty"`
	QuestionCount    int      `json:"question_count,omitempty"`
	QuestionBankPath string   `json:"question_bank_path,omitempty"` // YAML fallback bank; empty uses the embedded one

	// Logging
	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"` // console or json

	// HTTP
	CORSOrigins    []string `json:"cors_origins,omitempty"`
	MaxUploadBytes int64    `json:"max_upload_bytes,omitempty"`

	// Admin bootstrap at serve start
	DefaultAdminEmail    string `json:"default_admin_email,omitempty"`
	DefaultAdminPassword string `json:"default_admin_password,omitempty"`
	DefaultAdminName     string `json:"default_admin_name,omitempty"`
}

// Duration is a time.Duration that reads as a Go duration string ("20s") in JSON.
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset. It fails only on values that cannot be parsed.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		StoreBackend:         getEnv("STORE_BACKEND", StorePostgres),
		APIKey:               os.Getenv("GEMINI_API_KEY"),
		LLMModel:             os.Getenv("LLM_MODEL"),
		QuestionBankPath:     os.Getenv("QUESTION_BANK_PATH"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		CORSOrigins:          splitList(os.Getenv("CORS_ORIGINS")),
		DefaultAdminEmail:    os.Getenv("DEFAULT_ADMIN_EMAIL"),
		DefaultAdminPassword: os.Getenv("DEFAULT_ADMIN_PASSWORD"),
		DefaultAdminName:     getEnv("DEFAULT_ADMIN_NAME", "Administrator"),
	}

	var errs []error
	var err error
	if cfg.Port, err = envInt("PORT", DefaultPort); err != nil {
		errs = append(errs, err)
	}
	if cfg.QuestionCount, err = envInt("INTERVIEW_QUESTION_COUNT", DefaultQuestionCount); err != nil {
		errs = append(errs, err)
	}
	maxUpload, err := envInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	cfg.OracleTimeout = Duration(DefaultOracleTimeout)
	if v := os.Getenv("ORACLE_TIMEOUT"); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			errs = append(errs, fmt.Errorf("invalid ORACLE_TIMEOUT: %v", perr))
		} else {
			cfg.OracleTimeout = Duration(d)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// LoadFile is LoadConfig under the name the CLI uses.
func LoadFile(path string) (*Config, error) {
	return LoadConfig(path)
}

// Validate checks that the configuration has usable values and reports every
// problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config error: 'port' must be between 1 and 65535, got %d", c.Port))
	}
	switch c.StoreBackend {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("config error: 'database_url' is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("config error: 'store_backend' must be %q or %q, got %q", StorePostgres, StoreMemory, c.StoreBackend))
	}
	if c.QuestionCount < 1 || c.QuestionCount > MaxQuestionCount {
		errs = append(errs, fmt.Errorf("config error: 'question_count' must be between 1 and %d, got %d", MaxQuestionCount, c.QuestionCount))
	}
	if c.OracleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config error: 'oracle_timeout' must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("config error: 'max_upload_bytes' must be positive"))
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("config error: 'log_format' must be console or json, got %q", c.LogFormat))
	}
	if c.QuestionBankPath != "" {
		if _, err := os.Stat(c.QuestionBankPath); os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("config error: question bank file not found: %s", c.QuestionBankPath))
		}
	}
	if (c.DefaultAdminEmail == "") != (c.DefaultAdminPassword == "") {
		errs = append(errs, fmt.Errorf("config error: 'default_admin_email' and 'default_admin_password' must be set together"))
	}

	return errors.Join(errs...)
}

// Merge returns a copy of c with every non-zero field of override applied.
// This is how file values overlay the environment.
func (c *Config) Merge(override *Config) Config {
	result := *c
	if override == nil {
		return result
	}

	if override.Port != 0 {
		result.Port = override.Port
	}
	if override.DatabaseURL != "" {
		result.DatabaseURL = override.DatabaseURL
	}
	if override.StoreBackend != "" {
		result.StoreBackend = override.StoreBackend
	}
	if override.APIKey != "" {
		result.APIKey = override.APIKey
	}
	if override.LLMModel != "" {
		result.LLMModel = override.LLMModel
	}
	if override.OracleTimeout != 0 {
		result.OracleTimeout = override.OracleTimeout
	}
	if override.QuestionCount != 0 {
		result.QuestionCount = override.QuestionCount
	}
	if override.QuestionBankPath != "" {
		result.QuestionBankPath = override.QuestionBankPath
	}
	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}
	if override.LogFormat != "" {
		result.LogFormat = override.LogFormat
	}
	if len(override.CORSOrigins) > 0 {
		result.CORSOrigins = append([]string(nil), override.CORSOrigins...)
	}
	if override.MaxUploadBytes != 0 {
		result.MaxUploadBytes = override.MaxUploadBytes
	}
	if override.DefaultAdminEmail != "" {
		result.DefaultAdminEmail = override.DefaultAdminEmail
	}
	if override.DefaultAdminPassword != "" {
		result.DefaultAdminPassword = override.DefaultAdminPassword
	}
	if override.DefaultAdminName != "" {
		result.DefaultAdminName = override.DefaultAdminName
	}

	return result
}

// OracleEnabled reports whether an API key is configured.
func (c *Config) OracleEnabled() bool {
	return c.APIKey != ""
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
