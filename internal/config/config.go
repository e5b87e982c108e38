package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Modes accepted by Config.Mode.
const (
	ModeSequential = "sequential"
	ModeConcurrent = "concurrent"
	ModeBatch      = "batch"
)

// Fetchers accepted by Config.Fetcher.
const (
	FetcherHTTP    = "http"
	FetcherWget    = "wget"
	FetcherAria2   = "aria2"
	FetcherCatalog = "catalog"
)

// Config defines configuration for the slidefetch CLI.
type Config struct {
	URLFile      string        `yaml:"url_file"`
	OutDir       string        `yaml:"outdir"`
	LogDir       string        `yaml:"logdir"`
	Mode         string        `yaml:"mode"`
	Concurrency  int           `yaml:"concurrency"`
	BatchSize    int           `yaml:"batch_size"`
	SkipExisting bool          `yaml:"skip_existing"`
	Overwrite    bool          `yaml:"overwrite"`
	DryRun       bool          `yaml:"dry_run"`
	AltSuffix    string        `yaml:"alt_suffix"`
	Fetcher      string        `yaml:"fetcher"`
	Progress     bool          `yaml:"progress"`
	Retry        RetryConfig   `yaml:"retry"`
	Catalog      CatalogConfig `yaml:"catalog"`
}

// RetryConfig defines HTTP retry behavior.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// CatalogConfig defines the catalog API to query.
type CatalogConfig struct {
	API               string  `yaml:"api"`
	Project           string  `yaml:"project"`
	DataType          string  `yaml:"data_type"`
	Max               int     `yaml:"max"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		OutDir:       ".",
		LogDir:       ".logs",
		Mode:         ModeConcurrent,
		Concurrency:  4,
		BatchSize:    10,
		SkipExisting: true,
		AltSuffix:    ".svs",
		Fetcher:      FetcherHTTP,
		Retry: RetryConfig{
			Attempts:   5,
			Backoff:    time.Second,
			MaxBackoff: 30 * time.Second,
		},
		Catalog: CatalogConfig{
			API:               "https://api.gdc.cancer.gov",
			Project:           "TCGA-BRCA",
			DataType:          "Slide Image",
			RequestsPerSecond: 4,
		},
	}
}

// yamlConfig mirrors Config for YAML unmarshaling. Pointer fields
// distinguish "absent" from a zero value, and durations load from
// strings.
type yamlConfig struct {
	URLFile      string            `yaml:"url_file"`
	OutDir       string            `yaml:"outdir"`
	LogDir       string            `yaml:"logdir"`
	Mode         string            `yaml:"mode"`
	Concurrency  int               `yaml:"concurrency"`
	BatchSize    int               `yaml:"batch_size"`
	SkipExisting *bool             `yaml:"skip_existing"`
	Overwrite    bool              `yaml:"overwrite"`
	DryRun       bool              `yaml:"dry_run"`
	AltSuffix    *string           `yaml:"alt_suffix"`
	Fetcher      string            `yaml:"fetcher"`
	Progress     bool              `yaml:"progress"`
	Retry        yamlRetryConfig   `yaml:"retry"`
	Catalog      yamlCatalogConfig `yaml:"catalog"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

type yamlCatalogConfig struct {
	API               string  `yaml:"api"`
	Project           string  `yaml:"project"`
	DataType          string  `yaml:"data_type"`
	Max               int     `yaml:"max"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// LoadFromFile loads configuration from a YAML file on top of the
// defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return yc.apply(Default())
}

func (yc yamlConfig) apply(cfg Config) (Config, error) {
	if yc.URLFile != "" {
		cfg.URLFile = yc.URLFile
	}
	if yc.OutDir != "" {
		cfg.OutDir = yc.OutDir
	}
	if yc.LogDir != "" {
		cfg.LogDir = yc.LogDir
	}
	if yc.Mode != "" {
		cfg.Mode = yc.Mode
	}
	if yc.Concurrency != 0 {
		cfg.Concurrency = yc.Concurrency
	}
	if yc.BatchSize != 0 {
		cfg.BatchSize = yc.BatchSize
	}
	if yc.SkipExisting != nil {
		cfg.SkipExisting = *yc.SkipExisting
	}
	cfg.Overwrite = cfg.Overwrite || yc.Overwrite
	cfg.DryRun = cfg.DryRun || yc.DryRun
	cfg.Progress = cfg.Progress || yc.Progress
	if yc.AltSuffix != nil {
		cfg.AltSuffix = *yc.AltSuffix
	}
	if yc.Fetcher != "" {
		cfg.Fetcher = yc.Fetcher
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.Backoff != "" {
		d, err := time.ParseDuration(yc.Retry.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.backoff: %w", err)
		}
		cfg.Retry.Backoff = d
	}
	if yc.Retry.MaxBackoff != "" {
		d, err := time.ParseDuration(yc.Retry.MaxBackoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}
	if yc.Catalog.API != "" {
		cfg.Catalog.API = yc.Catalog.API
	}
	if yc.Catalog.Project != "" {
		cfg.Catalog.Project = yc.Catalog.Project
	}
	if yc.Catalog.DataType != "" {
		cfg.Catalog.DataType = yc.Catalog.DataType
	}
	if yc.Catalog.Max != 0 {
		cfg.Catalog.Max = yc.Catalog.Max
	}
	if yc.Catalog.RequestsPerSecond != 0 {
		cfg.Catalog.RequestsPerSecond = yc.Catalog.RequestsPerSecond
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the SLIDEFETCH_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("SLIDEFETCH_URL_FILE"); v != "" {
		c.URLFile = v
	}
	if v := os.Getenv("SLIDEFETCH_OUTDIR"); v != "" {
		c.OutDir = v
	}
	if v := os.Getenv("SLIDEFETCH_LOGDIR"); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv("SLIDEFETCH_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("SLIDEFETCH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SLIDEFETCH_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	if v := os.Getenv("SLIDEFETCH_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SLIDEFETCH_BATCH_SIZE: %w", err)
		}
		c.BatchSize = n
	}
	if v := os.Getenv("SLIDEFETCH_SKIP_EXISTING"); v != "" {
		c.SkipExisting = v == "true" || v == "1"
	}
	if v := os.Getenv("SLIDEFETCH_OVERWRITE"); v != "" {
		c.Overwrite = v == "true" || v == "1"
	}
	if v := os.Getenv("SLIDEFETCH_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("SLIDEFETCH_FETCHER"); v != "" {
		c.Fetcher = v
	}
	if v := os.Getenv("SLIDEFETCH_CATALOG_API"); v != "" {
		c.Catalog.API = v
	}
	if v := os.Getenv("SLIDEFETCH_CATALOG_PROJECT"); v != "" {
		c.Catalog.Project = v
	}
	if v := os.Getenv("SLIDEFETCH_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SLIDEFETCH_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}
	if v := os.Getenv("SLIDEFETCH_RETRY_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SLIDEFETCH_RETRY_BACKOFF: %w", err)
		}
		c.Retry.Backoff = d
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSequential, ModeConcurrent, ModeBatch:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	switch c.Fetcher {
	case FetcherHTTP, FetcherWget, FetcherAria2, FetcherCatalog:
	default:
		return fmt.Errorf("config: unknown fetcher %q", c.Fetcher)
	}
	if c.OutDir == "" {
		return errors.New("config: outdir is required")
	}
	if c.Concurrency <= 0 {
		return errors.New("config: concurrency must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.New("config: batch_size must be positive")
	}
	if c.AltSuffix != "" && !strings.HasPrefix(c.AltSuffix, ".") {
		return errors.New("config: alt_suffix must start with a dot")
	}
	return nil
}

// Merge merges override values into c, returning a new Config. Zero
// values in override are ignored; SkipExisting defaults to true, so
// only a false override is meaningful there.
func (c Config) Merge(override Config) Config {
	if override.URLFile != "" {
		c.URLFile = override.URLFile
	}
	if override.OutDir != "" {
		c.OutDir = override.OutDir
	}
	if override.LogDir != "" {
		c.LogDir = override.LogDir
	}
	if override.Mode != "" {
		c.Mode = override.Mode
	}
	if override.Concurrency != 0 {
		c.Concurrency = override.Concurrency
	}
	if override.BatchSize != 0 {
		c.BatchSize = override.BatchSize
	}
	if !override.SkipExisting {
		c.SkipExisting = false
	}
	if override.Overwrite {
		c.Overwrite = true
	}
	if override.DryRun {
		c.DryRun = true
	}
	if override.Progress {
		c.Progress = true
	}
	if override.AltSuffix != "" {
		c.AltSuffix = override.AltSuffix
	}
	if override.Fetcher != "" {
		c.Fetcher = override.Fetcher
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	if override.Catalog.API != "" {
		c.Catalog.API = override.Catalog.API
	}
	if override.Catalog.Project != "" {
		c.Catalog.Project = override.Catalog.Project
	}
	if override.Catalog.DataType != "" {
		c.Catalog.DataType = override.Catalog.DataType
	}
	if override.Catalog.Max != 0 {
		c.Catalog.Max = override.Catalog.Max
	}
	if override.Catalog.RequestsPerSecond != 0 {
		c.Catalog.RequestsPerSecond = override.Catalog.RequestsPerSecond
	}
	return c
}
