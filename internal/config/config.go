package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Search cluster
	OpenSearchURL        string
	OpenSearchUser       string
	OpenSearchPassword   string
	OpenSearchCompress   bool
	OpenSearchTimeout    time.Duration
	OpenSearchMaxRetries int
	BulkChunkSize        int

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Routing and failure ledger
	IndexRegistryPath string
	LedgerPath        string

	// Table reconstruction
	MinDataColumns   int
	TableBorderAttr  string
	TableBorderValue string

	// Disclosure source
	DartAPIKey  string
	DartBaseURL string

	// Rule documents
	PDFFallbackPdftotext bool
	RulesIndex           string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("API_KEY"),

		OpenSearchURL:        envOr("OPENSEARCH_URL", "http://localhost:9200"),
		OpenSearchUser:       os.Getenv("OPENSEARCH_USER"),
		OpenSearchPassword:   os.Getenv("OPENSEARCH_PASSWORD"),
		OpenSearchCompress:   envBool("OPENSEARCH_COMPRESS", true),
		OpenSearchTimeout:    envDuration("OPENSEARCH_TIMEOUT", 60*time.Second),
		OpenSearchMaxRetries: envInt("OPENSEARCH_MAX_RETRIES", 3),
		BulkChunkSize:        envInt("BULK_CHUNK_SIZE", 500),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		IndexRegistryPath: os.Getenv("INDEX_REGISTRY_PATH"),
		LedgerPath:        envOr("LEDGER_PATH", "failed_docs.db"),

		MinDataColumns:   envInt("MIN_DATA_COLUMNS", 2),
		TableBorderAttr:  envOr("TABLE_BORDER_ATTR", "BORDER"),
		TableBorderValue: envOr("TABLE_BORDER_VALUE", "1"),

		DartAPIKey:  os.Getenv("DART_API_KEY"),
		DartBaseURL: envOr("DART_BASE_URL", "https://opendart.fss.or.kr/api"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
		RulesIndex:           envOr("RULES_INDEX", "standard"),
	}

	if cfg.OpenSearchTimeout <= 0 {
		cfg.OpenSearchTimeout = 60 * time.Second
	}
	if cfg.OpenSearchMaxRetries < 0 {
		cfg.OpenSearchMaxRetries = 3
	}
	if cfg.BulkChunkSize <= 0 {
		cfg.BulkChunkSize = 500
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.MinDataColumns <= 0 {
		cfg.MinDataColumns = 2
	}

	return cfg
}

// Validate checks the settings shared by every entry point.
func (c Config) Validate() error {
	if c.OpenSearchURL == "" {
		return fmt.Errorf("OPENSEARCH_URL is required")
	}
	if c.LedgerPath == "" {
		return fmt.Errorf("LEDGER_PATH is required")
	}
	if c.TableBorderAttr == "" {
		return fmt.Errorf("TABLE_BORDER_ATTR is required")
	}
	return nil
}

// ValidateServer additionally checks what the HTTP service needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
