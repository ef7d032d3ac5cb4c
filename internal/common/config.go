package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Raster   RasterConfig   `yaml:"raster"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig holds storage-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // "postgres" or "sqlite"
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// LLMConfig holds model-call configuration. APIKeys carries the full
// credential set used for rotation; order matters for tie-breaking.
type LLMConfig struct {
	Provider     string        `yaml:"provider"` // "gemini" or "claude"
	Model        string        `yaml:"model"`
	APIKeys      []string      `yaml:"api_keys"`
	Temperature  float32       `yaml:"temperature"`
	TopK         float32       `yaml:"top_k"`
	TopP         float32       `yaml:"top_p"`
	MaxTokens    int           `yaml:"max_tokens"`
	Timeout      time.Duration `yaml:"timeout"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// RasterConfig holds page-rendering configuration
type RasterConfig struct {
	Pdftoppm string `yaml:"pdftoppm"`
	DPI      int    `yaml:"dpi"`
	MaxPages int    `yaml:"max_pages"`
}

// PipelineConfig holds orchestration configuration
type PipelineConfig struct {
	Mode            string        `yaml:"mode"` // "two-pass" or "single-pass"
	StructuralDelay time.Duration `yaml:"structural_delay"`
	ExtractionDelay time.Duration `yaml:"extraction_delay"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "sqlite"),
			DSN:              getEnv("DB_URL", "exam-extractor.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		LLM: LLMConfig{
			Provider:     getEnv("LLM_PROVIDER", "gemini"),
			Model:        getEnv("LLM_MODEL", ""),
			APIKeys:      getEnvAsList("LLM_API_KEYS", nil),
			Temperature:  getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			TopK:         getEnvAsFloat32("LLM_TOP_K", 10),
			TopP:         getEnvAsFloat32("LLM_TOP_P", 0.8),
			MaxTokens:    getEnvAsInt("LLM_MAX_TOKENS", 8192),
			Timeout:      getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
			RetryBackoff: getEnvAsDuration("LLM_RETRY_BACKOFF", 2*time.Second),
		},
		Raster: RasterConfig{
			Pdftoppm: getEnv("PDFTOPPM_BIN", "pdftoppm"),
			DPI:      getEnvAsInt("RASTER_DPI", 200),
			MaxPages: getEnvAsInt("RASTER_MAX_PAGES", 0),
		},
		Pipeline: PipelineConfig{
			Mode:            getEnv("PIPELINE_MODE", "two-pass"),
			StructuralDelay: getEnvAsDuration("PIPELINE_STRUCTURAL_DELAY", 1*time.Second),
			ExtractionDelay: getEnvAsDuration("PIPELINE_EXTRACTION_DELAY", 2*time.Second),
		},
	}
}

// ApplyFile overlays values from a YAML config file onto c. Env-derived
// values survive for fields the file leaves unset.
func (c *Config) ApplyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if len(c.LLM.APIKeys) == 0 {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEYS is required (comma-separated)", ErrNoCredentials)
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown DB_DRIVER %q", c.Database.Driver), ErrInvalidInput)
	}
	switch c.Pipeline.Mode {
	case "two-pass", "single-pass":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown PIPELINE_MODE %q", c.Pipeline.Mode), ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
