package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/azure/last30days/internal/scoring"
	"github.com/azure/last30days/internal/storage"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const appName = "last30days"

// Source selections
const (
	SourcesAuto   = "auto"
	SourcesReddit = "reddit"
	SourcesX      = "x"
	SourcesBoth   = "both"
	SourcesNone   = "none"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// API keys and model pins
	OpenAIAPIKey string
	XAIAPIKey    string
	OpenAIModel  string
	XAIModel     string

	// Cache and output
	CacheBackend     string // "file", "sqlite" or "azure"
	CacheDir         string
	CacheTTL         time.Duration
	OutputDir        string
	StorageAccount   string
	StorageContainer string

	// Reddit thread enrichment
	RedditRPS         float64
	EnrichConcurrency int

	// Scoring
	Weights scoring.Weights

	// Watched topics refreshed by the server
	WatchTopics   []string
	WatchSchedule string
	TimeZone      string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// fileConfig is the optional YAML overlay.
type fileConfig struct {
	OpenAIModel string           `yaml:"openai_model"`
	XAIModel    string           `yaml:"xai_model"`
	Scoring     *scoring.Weights `yaml:"scoring"`
	Watch       struct {
		Topics   []string `yaml:"topics"`
		Schedule string   `yaml:"schedule"`
	} `yaml:"watch"`
}

// Dir is the per-user configuration directory.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// EnvPath is the per-user .env file holding API keys.
func EnvPath() string {
	return filepath.Join(Dir(), ".env")
}

// DefaultConfigPath is the YAML overlay read when LAST30DAYS_CONFIG is unset.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load loads configuration from .env files, the YAML overlay, and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	loadDotEnv("./.env", EnvPath())

	overlay, err := loadFile(getEnv("LAST30DAYS_CONFIG", DefaultConfigPath()))
	if err != nil {
		return nil, err
	}

	weights := scoring.DefaultConfig().Weights
	if overlay.Scoring != nil {
		weights = *overlay.Scoring
	}

	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		XAIAPIKey:    getEnv("XAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", overlay.OpenAIModel),
		XAIModel:     getEnv("XAI_MODEL", overlay.XAIModel),

		CacheBackend:     getEnv("CACHE_BACKEND", storage.BackendFile),
		CacheDir:         getEnv("CACHE_DIR", filepath.Join(xdg.CacheHome, appName)),
		CacheTTL:         time.Duration(getIntEnv("CACHE_TTL_HOURS", 24)) * time.Hour,
		OutputDir:        getEnv("OUTPUT_DIR", filepath.Join(xdg.DataHome, appName, "out")),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", appName),

		RedditRPS:         getFloatEnv("REDDIT_RPS", 1),
		EnrichConcurrency: getIntEnv("ENRICH_CONCURRENCY", 4),

		Weights: scoring.Weights{
			Relevance:  getFloatEnv("SCORE_WEIGHT_RELEVANCE", weights.Relevance),
			Recency:    getFloatEnv("SCORE_WEIGHT_RECENCY", weights.Recency),
			Engagement: getFloatEnv("SCORE_WEIGHT_ENGAGEMENT", weights.Engagement),
		},

		WatchTopics:   getSliceEnv("WATCH_TOPICS", overlay.Watch.Topics),
		WatchSchedule: getEnv("WATCH_SCHEDULE", orDefault(overlay.Watch.Schedule, "0 7 * * *")),
		TimeZone:      getEnv("TIMEZONE", "UTC"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logrus.Warnf("Failed to load %s: %v", p, err)
		} else {
			logrus.Debugf("Loaded environment from %s", p)
		}
	}
}

func loadFile(path string) (*fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &fc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &fc, nil
}

func (c *Config) validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}

	switch c.CacheBackend {
	case storage.BackendFile, storage.BackendSQLite:
	case storage.BackendAzure:
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when CACHE_BACKEND is 'azure'")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be 'file', 'sqlite' or 'azure'")
	}

	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL_HOURS must not be negative")
	}
	if c.RedditRPS <= 0 {
		return fmt.Errorf("REDDIT_RPS must be positive")
	}

	if len(c.WatchTopics) > 0 {
		if _, err := cron.ParseStandard(c.WatchSchedule); err != nil {
			return fmt.Errorf("WATCH_SCHEDULE is not a valid cron expression: %w", err)
		}
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// StorageOptions returns the cache backend settings.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:        c.CacheBackend,
		Dir:            c.CacheDir,
		AzureAccount:   c.StorageAccount,
		AzureContainer: c.StorageContainer,
	}
}

// ScoringConfig returns the scoring policy with the configured weights.
func (c *Config) ScoringConfig() scoring.Config {
	sc := scoring.DefaultConfig()
	sc.Weights = c.Weights
	return sc
}

// NotificationsEnabled reports whether any delivery channel is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != ""
}

// AvailableSources reports which sources the configured keys allow.
func (c *Config) AvailableSources() string {
	switch {
	case c.OpenAIAPIKey != "" && c.XAIAPIKey != "":
		return SourcesBoth
	case c.OpenAIAPIKey != "":
		return SourcesReddit
	case c.XAIAPIKey != "":
		return SourcesX
	}
	return SourcesNone
}

// ValidateSources resolves a requested selection against the available one.
// "auto" becomes whatever is available.
func ValidateSources(requested, available string) (string, error) {
	switch requested {
	case SourcesAuto, SourcesReddit, SourcesX, SourcesBoth:
	default:
		return "", fmt.Errorf("invalid source selection %q (use auto, reddit, x or both)", requested)
	}

	if available == SourcesNone {
		return "", fmt.Errorf("no API keys configured; add OPENAI_API_KEY and/or XAI_API_KEY to %s", EnvPath())
	}

	switch requested {
	case SourcesAuto:
		return available, nil
	case SourcesBoth:
		if available != SourcesBoth {
			missing := "XAI_API_KEY"
			if available == SourcesX {
				missing = "OPENAI_API_KEY"
			}
			return "", fmt.Errorf("requested both sources but only %s is available; set %s", available, missing)
		}
	case SourcesReddit:
		if available == SourcesX {
			return "", fmt.Errorf("requested reddit but OPENAI_API_KEY is not set")
		}
	case SourcesX:
		if available == SourcesReddit {
			return "", fmt.Errorf("requested x but XAI_API_KEY is not set")
		}
	}
	return requested, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
