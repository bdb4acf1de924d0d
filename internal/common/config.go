package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Crawler     CrawlerConfig `toml:"crawler"`
	Batch       BatchConfig   `toml:"batch"`
	Schema      SchemaConfig  `toml:"schema"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
}

// CrawlerConfig bounds a single site crawl and the fetch path.
type CrawlerConfig struct {
	UserAgent           string        `toml:"user_agent"`
	MaxPagesPerSite     int           `toml:"max_pages_per_site" validate:"gt=0"`
	MaxCrawlDepth       int           `toml:"max_crawl_depth" validate:"gte=0"`
	PerDomainInterval   time.Duration `toml:"per_domain_interval" validate:"gte=0"`
	PageTimeout         time.Duration `toml:"page_timeout" validate:"gt=0"`
	SiteTimeout         time.Duration `toml:"site_timeout" validate:"gt=0"`
	MaxRetries          int           `toml:"max_retries" validate:"gte=0"`
	MaxBodySize         int           `toml:"max_body_size" validate:"gt=0"`
	FollowExternalLinks bool          `toml:"follow_external_links"`
	RespectRobotsTxt    bool          `toml:"respect_robots_txt"`
	IncludePatterns     []string      `toml:"include_patterns"`
	ExcludePatterns     []string      `toml:"exclude_patterns"`
	TypeRules           []TypeRule    `toml:"type_rules"` // overrides the built-in page-type table when set
}

// TypeRule maps a URL-path pattern (regex) to a page type.
type TypeRule struct {
	Pattern string `toml:"pattern" validate:"required"`
	Type    string `toml:"type" validate:"required"`
}

// BatchConfig bounds a batch session across sites.
type BatchConfig struct {
	Concurrency    int `toml:"concurrency" validate:"gt=0"`
	MemoryBudgetMB int `toml:"memory_budget_mb" validate:"gte=0"` // 0 disables the budget check
	ProgressBuffer int `toml:"progress_buffer" validate:"gt=0"`
}

// SchemaConfig points at an optional field-schema file (.yaml/.yml/.toml/.json).
// When empty the built-in restaurant schema is used.
type SchemaConfig struct {
	Path string `toml:"path"`
}

// StorageConfig configures the optional badger-backed result store.
type StorageConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Crawler: CrawlerConfig{
			UserAgent:           "Mozilla/5.0 (compatible; Forager/1.0; +https://github.com/ternarybob/forager)",
			MaxPagesPerSite:     10,
			MaxCrawlDepth:       2,
			PerDomainInterval:   2 * time.Second,
			PageTimeout:         30 * time.Second,
			SiteTimeout:         5 * time.Minute,
			MaxRetries:          3,
			MaxBodySize:         10 * 1024 * 1024, // 10MB
			FollowExternalLinks: false,
			RespectRobotsTxt:    true,
		},
		Batch: BatchConfig{
			Concurrency:    5,
			MemoryBudgetMB: 0,
			ProgressBuffer: 256,
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    "./data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier files, environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FORAGER_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if v := os.Getenv("FORAGER_MAX_PAGES_PER_SITE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Crawler.MaxPagesPerSite = n
		}
	}
	if v := os.Getenv("FORAGER_MAX_CRAWL_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Crawler.MaxCrawlDepth = n
		}
	}
	if v := os.Getenv("FORAGER_PER_DOMAIN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Crawler.PerDomainInterval = d
		}
	}
	if v := os.Getenv("FORAGER_PAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Crawler.PageTimeout = d
		}
	}
	if v := os.Getenv("FORAGER_SITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Crawler.SiteTimeout = d
		}
	}
	if v := os.Getenv("FORAGER_BATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Batch.Concurrency = n
		}
	}
	if v := os.Getenv("FORAGER_STORAGE_PATH"); v != "" {
		config.Storage.Path = v
		config.Storage.Enabled = true
	}
	if v := os.Getenv("FORAGER_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// Validate checks the configuration before any crawling starts. Invalid
// configuration (negative timeouts, zero limits) is a programmer error and
// fails the run outright.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction checks if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
