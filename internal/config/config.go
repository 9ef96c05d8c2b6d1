package config

import (
	"fmt"
	"os"
	"strconv"

	"medocr/internal/logger"
)

// Vision providers selectable via OCR_PROVIDER.
const (
	ProviderTogether = "together"
	ProviderGoogle   = "google"
)

type Config struct {
	// Vision model configuration
	OCRProvider        string
	TogetherModel      string
	TogetherBaseURL    string
	OCRCredentialsPath string

	// Storage configuration. DictionaryBucket holds the reference
	// dictionary and the result tables; images arrive in the bucket
	// named by the upload event.
	DictionaryBucket string
	DictionaryKey    string
	ResultsPrefix    string
	IngestPrefix     string

	// Retry configuration
	MaxRetries       int
	RetryBackoffBase float64

	// Optional S3-compatible endpoint configuration
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool

	// Logging configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		OCRProvider:        getEnv("OCR_PROVIDER", ProviderTogether),
		TogetherModel:      getEnv("TOGETHER_MODEL", "meta-llama/Llama-3.2-90B-Vision-Instruct-Turbo"),
		TogetherBaseURL:    getEnv("TOGETHER_BASE_URL", "https://api.together.xyz/v1"),
		OCRCredentialsPath: getEnv("OCR_CREDENTIALS_PATH", "/var/task/workspace/resources/credentials/ocr_credentials.json"),
		DictionaryBucket:   getEnv("DICTIONARY_BUCKET", ""),
		DictionaryKey:      getEnv("DICTIONARY_KEY", "diccionarios/diccionario_medicamentos.csv"),
		ResultsPrefix:      getEnv("RESULTS_PREFIX", "resultados/"),
		IngestPrefix:       getEnv("INGEST_PREFIX", "convertidas/"),
		MaxRetries:         getEnvInt("MAX_RETRIES", 5),
		RetryBackoffBase:   getEnvFloat("RETRY_BACKOFF_BASE", 1.6),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3Region:           getEnv("S3_REGION", ""),
		S3AccessKeyID:      getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey:  getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3UsePathStyle:     getEnvBool("S3_USE_PATH_STYLE", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:      getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:          getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DictionaryBucket == "" {
		return fmt.Errorf("DICTIONARY_BUCKET is required")
	}
	if c.OCRProvider != ProviderTogether && c.OCRProvider != ProviderGoogle {
		return fmt.Errorf("OCR_PROVIDER must be %q or %q", ProviderTogether, ProviderGoogle)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("MAX_RETRIES must be positive")
	}
	if c.RetryBackoffBase <= 0 {
		return fmt.Errorf("RETRY_BACKOFF_BASE must be positive")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
