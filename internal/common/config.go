package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tatxtion/hstay-ai/constants"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Extraction  ExtractionConfig
	OCR         OCRConfig
	LLM         LLMConfig
	Download    DownloadConfig
	ObjectStore ObjectStoreConfig
	Database    DatabaseConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
}

// ExtractionConfig holds document intake configuration.
type ExtractionConfig struct {
	ImageDirectory    string
	AllowedExtensions []string
	OCRPreviewChars   int
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract     string
	Pdftotext     string
	Pdftoppm      string
	TesseractLang string
	TessdataDir   string
	DPI           int
	MaxPages      int
}

// LLMConfig holds span-extractor configuration
type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// DownloadConfig bounds remote document fetches.
type DownloadConfig struct {
	MaxBytes int64
	Timeout  time.Duration
}

// ObjectStoreConfig holds S3-compatible object store access; Enabled only
// when an endpoint is configured.
type ObjectStoreConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// DatabaseConfig holds the optional audit store; Enabled only when a DSN is
// configured.
type DatabaseConfig struct {
	Enabled          bool
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// LoadConfig loads configuration from environment variables. A local .env
// file, when present, seeds the environment first.
func LoadConfig() *Config {
	_ = godotenv.Load()

	endpoint := getEnv("OBJECT_STORE_ENDPOINT", "")
	dsn := getEnv("DB_URL", "")
	return &Config{
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Extraction: ExtractionConfig{
			ImageDirectory:    getEnv("IMAGE_DIRECTORY", "./img"),
			AllowedExtensions: getEnvAsList("ALLOWED_EXTENSIONS", constants.DefaultAllowedExtensions),
			OCRPreviewChars:   getEnvAsInt("OCR_PREVIEW_CHARS", 240),
		},
		OCR: OCRConfig{
			Tesseract:     getEnv("TESSERACT", "tesseract"),
			Pdftotext:     getEnv("PDFTOTEXT", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM", "pdftoppm"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
		},
		Download: DownloadConfig{
			MaxBytes: getEnvAsInt64("DOWNLOAD_MAX_BYTES", 20*1024*1024),
			Timeout:  getEnvAsDuration("DOWNLOAD_TIMEOUT", 30*time.Second),
		},
		ObjectStore: ObjectStoreConfig{
			Enabled:   endpoint != "",
			Endpoint:  endpoint,
			Region:    getEnv("OBJECT_STORE_REGION", "us-east-1"),
			AccessKey: getEnv("OBJECT_STORE_ACCESS_KEY", ""),
			SecretKey: getEnv("OBJECT_STORE_SECRET_KEY", ""),
			UseSSL:    getEnvAsBool("OBJECT_STORE_USE_SSL", true),
		},
		Database: DatabaseConfig{
			Enabled:          dsn != "",
			DSN:              dsn,
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
	}
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
		if p = constants.NormalizeExt(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError(CodeConfigError, "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfigError, "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Extraction.ImageDirectory == "" {
		return NewAppError(CodeConfigError, "IMAGE_DIRECTORY is required", ErrInvalidInput)
	}
	if c.ObjectStore.Enabled && (c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "") {
		return NewAppError(CodeConfigError, "object store credentials are required when OBJECT_STORE_ENDPOINT is set", ErrInvalidInput)
	}
	return nil
}
