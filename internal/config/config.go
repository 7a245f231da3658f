// Package config loads harvest settings from defaults, a .env file, an
// optional YAML file, environment variables and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tkilaker/newsharvest/internal/browser"
	"github.com/tkilaker/newsharvest/internal/query"
	"github.com/tkilaker/newsharvest/internal/seeds"
)

// Configuration validation errors.
var (
	ErrNoKeywords          = errors.New("at least one keyword is required")
	ErrInvalidSort         = errors.New("sort must be one of: relevance, newest, oldest")
	ErrInvalidScope        = errors.New("scope must be one of: all, title")
	ErrInvalidDates        = errors.New("start_date and end_date must be YYYYMMDD with start_date <= end_date")
	ErrInvalidMaxPages     = errors.New("max_pages must be -1 or at least 1")
	ErrInvalidRecycle      = errors.New("recycle_every must be at least 1")
	ErrNegativeDelay       = errors.New("page_delay and article_delay must be non-negative")
	ErrInvalidDriver       = errors.New("browser.driver must be 'rod' or 'http'")
	ErrInvalidTimeout      = errors.New("browser.timeout must be positive")
	ErrMissingOutputPath   = errors.New("output.seeds, output.articles and output.errors are required")
	ErrInvalidOutputFormat = errors.New("output tables must end in .csv or .xlsx")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat    = errors.New("logging.format must be one of: auto, text, json")
)

// Browser drivers.
const (
	DriverRod  = "rod"
	DriverHTTP = "http"
)

// DotEnvFile is read into the environment before overrides are applied.
var DotEnvFile = ".env"

// Config holds all harvest configuration.
type Config struct {
	Keywords  []string `yaml:"keywords"`
	Sort      string   `yaml:"sort"`
	Scope     string   `yaml:"scope"`
	StartDate string   `yaml:"start_date"`
	EndDate   string   `yaml:"end_date"`

	SearchURL    string `yaml:"search_url"`
	NextSelector string `yaml:"next_selector"`
	// MaxPages caps result pages per query URL; -1 reads until the pager ends.
	MaxPages     int           `yaml:"max_pages"`
	RecycleEvery int           `yaml:"recycle_every"`
	PageDelay    time.Duration `yaml:"page_delay"`
	ArticleDelay time.Duration `yaml:"article_delay"`

	Browser BrowserConfig `yaml:"browser"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`

	// StatusAddr enables the status server when non-empty.
	StatusAddr string `yaml:"status_addr"`
}

// BrowserConfig selects and tunes the page driver.
type BrowserConfig struct {
	Driver      string        `yaml:"driver"`
	Bin         string        `yaml:"bin"`
	Headless    bool          `yaml:"headless"`
	UserDataDir string        `yaml:"user_data_dir"`
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
}

// OutputConfig names the files a run reads and writes.
type OutputConfig struct {
	Seeds     string `yaml:"seeds"`
	Articles  string `yaml:"articles"`
	Errors    string `yaml:"errors"`
	Feed      string `yaml:"feed"`
	FeedTitle string `yaml:"feed_title"`
	FeedLink  string `yaml:"feed_link"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Override mutates a loaded configuration before validation.
type Override func(*Config)

// Default returns the settings of a carbon-neutrality harvest over 2020.
func Default() *Config {
	return &Config{
		Keywords:     []string{"탄소 중립", "탄소 절감", "탄소 저감", "넷 제로"},
		Sort:         "newest",
		Scope:        "all",
		StartDate:    "20200101",
		EndDate:      "20201231",
		SearchURL:    query.DefaultSearchURL,
		NextSelector: seeds.DefaultNextSelector,
		MaxPages:     seeds.Unbounded,
		RecycleEvery: 100,
		PageDelay:    time.Second,
		ArticleDelay: time.Second,
		Browser: BrowserConfig{
			Driver:    DriverRod,
			Headless:  true,
			Timeout:   browser.DefaultTimeout,
			UserAgent: browser.DefaultUserAgent,
		},
		Output: OutputConfig{
			Seeds:     "seed_url.xlsx",
			Articles:  "news.xlsx",
			Errors:    "errors.xlsx",
			FeedTitle: "newsharvest",
			FeedLink:  "http://localhost:8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load builds the configuration: defaults, then the .env file, then the YAML
// file at path (skipped when empty), then HARVEST_* environment variables,
// then overrides. The result is validated.
func Load(path string, overrides ...Override) (*Config, error) {
	if _, err := os.Stat(DotEnvFile); err == nil {
		if err := godotenv.Load(DotEnvFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	cfg.applyEnv()
	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Keywords = getEnvAsList("HARVEST_KEYWORDS", c.Keywords)
	c.StartDate = getEnv("HARVEST_START", c.StartDate)
	c.EndDate = getEnv("HARVEST_END", c.EndDate)
	c.Sort = getEnv("HARVEST_SORT", c.Sort)
	c.Scope = getEnv("HARVEST_SCOPE", c.Scope)
	c.MaxPages = getEnvAsInt("HARVEST_MAX_PAGES", c.MaxPages)
	c.RecycleEvery = getEnvAsInt("HARVEST_RECYCLE_EVERY", c.RecycleEvery)
	c.Browser.Driver = getEnv("HARVEST_DRIVER", c.Browser.Driver)
	c.Browser.Headless = getEnvAsBool("HARVEST_HEADLESS", c.Browser.Headless)
	c.Browser.Bin = getEnv("HARVEST_BROWSER_BIN", c.Browser.Bin)
	c.StatusAddr = getEnv("HARVEST_STATUS_ADDR", c.StatusAddr)
	c.Logging.Level = getEnv("HARVEST_LOG_LEVEL", c.Logging.Level)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 {
		return ErrNoKeywords
	}
	for i, kw := range c.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("%w: keywords[%d] is blank", ErrNoKeywords, i)
		}
	}

	if _, err := c.SortMode(); err != nil {
		return err
	}
	if _, err := c.ScopeMode(); err != nil {
		return err
	}
	if _, err := c.DateRange(); err != nil {
		return err
	}

	if c.MaxPages == 0 || c.MaxPages < seeds.Unbounded {
		return ErrInvalidMaxPages
	}
	if c.RecycleEvery < 1 {
		return ErrInvalidRecycle
	}
	if c.PageDelay < 0 || c.ArticleDelay < 0 {
		return ErrNegativeDelay
	}

	switch c.Browser.Driver {
	case DriverRod, DriverHTTP:
	default:
		return ErrInvalidDriver
	}
	if c.Browser.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	for _, p := range []string{c.Output.Seeds, c.Output.Articles, c.Output.Errors} {
		if p == "" {
			return ErrMissingOutputPath
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".csv", ".xlsx":
		default:
			return fmt.Errorf("%w: %s", ErrInvalidOutputFormat, p)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "auto", "text", "json":
	default:
		return ErrInvalidLogFormat
	}

	return nil
}

// SortMode returns the configured result ordering.
func (c *Config) SortMode() (query.SortMode, error) {
	s, err := query.ParseSort(c.Sort)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSort, err)
	}
	return s, nil
}

// ScopeMode returns the configured search scope.
func (c *Config) ScopeMode() (query.Scope, error) {
	s, err := query.ParseScope(c.Scope)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScope, err)
	}
	return s, nil
}

// DateRange returns the configured search window.
func (c *Config) DateRange() (query.DateRange, error) {
	r, err := query.NewDateRange(c.StartDate, c.EndDate)
	if err != nil {
		return query.DateRange{}, fmt.Errorf("%w: %w", ErrInvalidDates, err)
	}
	return r, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated variable, dropping blank items.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
