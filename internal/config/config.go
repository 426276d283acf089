/**
 * Configuration for the Annotation Worker
 *
 * Loads configuration from environment variables matching .env.nexus
 */

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds worker configuration
type Config struct {
	// Redis queue configuration
	RedisURL  string
	QueueName string
	// QueueDriver selects the transport: "asynq" or "redis-list"
	QueueDriver string

	// PostgreSQL configuration
	DatabaseURL string

	// Qdrant vector database configuration
	QdrantURL        string
	QdrantCollection string

	// Object storage API and bucket layout
	StorageAPIURL     string
	UploadsBucket     string
	DigestsBucket     string
	PageOCRBucket     string
	PageImagesBucket  string
	ChatContextBucket string
	ChatHistoryBucket string

	// API keys
	OpenAIAPIKey  string
	OpenAIBaseURL string
	VoyageAPIKey  string

	// Worker configuration
	WorkerConcurrency int
	ProcessingTimeout int64 // milliseconds

	// Extraction tuning
	TesseractLanguage  string
	DuplicateThreshold float64
	RasterDPI          int
	OCRConcurrency     int
	TempDir            string

	// Annotation tuning
	MinimumBatchWords int
	StalenessWindow   int // seconds
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:    getEnvOrDefault("REDIS_URL", "redis://nexus-redis:6379"),
		QueueName:   getEnvOrDefault("QUEUE_NAME", "annotation:jobs"),
		QueueDriver: getEnvOrDefault("QUEUE_DRIVER", "asynq"),

		DatabaseURL: getEnvOrThrow("DATABASE_URL"),

		QdrantURL:        getEnvOrDefault("QDRANT_URL", "nexus-qdrant:6334"),
		QdrantCollection: getEnvOrDefault("QDRANT_COLLECTION", "annotation_spans"),

		StorageAPIURL:     getEnvOrDefault("STORAGE_API_URL", "http://nexus-storage:8096"),
		UploadsBucket:     getEnvOrDefault("UPLOADS_BUCKET", "uploads"),
		DigestsBucket:     getEnvOrDefault("DIGESTS_BUCKET", "digests"),
		PageOCRBucket:     getEnvOrDefault("PAGE_OCR_BUCKET", "page-ocr"),
		PageImagesBucket:  getEnvOrDefault("PAGE_IMAGES_BUCKET", "page-images"),
		ChatContextBucket: getEnvOrDefault("CHAT_CONTEXT_BUCKET", "chat-context"),
		ChatHistoryBucket: getEnvOrDefault("CHAT_HISTORY_BUCKET", "chat-history"),

		OpenAIAPIKey:  getEnvOrThrow("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnvOrDefault("OPENAI_BASE_URL", ""),
		VoyageAPIKey:  getEnvOrThrow("VOYAGE_API_KEY"),

		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 10),
		ProcessingTimeout: getEnvAsInt64OrDefault("PROCESSING_TIMEOUT", 300000), // 5 minutes

		TesseractLanguage:  getEnvOrDefault("TESSERACT_LANGUAGE", "eng"),
		DuplicateThreshold: getEnvAsFloatOrDefault("DUPLICATE_THRESHOLD", 0.75),
		RasterDPI:          getEnvAsIntOrDefault("RASTER_DPI", 150),
		OCRConcurrency:     getEnvAsIntOrDefault("OCR_CONCURRENCY", 4),
		TempDir:            getEnvOrDefault("TEMP_DIR", "/tmp/annotation"),

		MinimumBatchWords: getEnvAsIntOrDefault("MINIMUM_BATCH_WORDS", 75),
		StalenessWindow:   getEnvAsIntOrDefault("STALENESS_WINDOW", 600), // 10 minutes
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.VoyageAPIKey == "" {
		return fmt.Errorf("VOYAGE_API_KEY is required")
	}

	if c.QueueDriver != "asynq" && c.QueueDriver != "redis-list" {
		return fmt.Errorf("QUEUE_DRIVER must be asynq or redis-list, got %q", c.QueueDriver)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.DuplicateThreshold <= 0 || c.DuplicateThreshold > 1 {
		return fmt.Errorf("DUPLICATE_THRESHOLD must be in (0, 1], got %f", c.DuplicateThreshold)
	}

	if c.RasterDPI < 72 || c.RasterDPI > 600 {
		return fmt.Errorf("RASTER_DPI must be between 72 and 600, got %d", c.RasterDPI)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrThrow gets environment variable or panics
func getEnvOrThrow(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
