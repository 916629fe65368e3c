package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration. Deployment-level values
// live here (credentials, dataset ids, sheet names); operator-tunable run
// parameters live in the Settings sheet and are read once per run.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Source      SourceConfig    `toml:"source"`
	Sheets      SheetsConfig    `toml:"sheets"`
	Provider    ProviderConfig  `toml:"provider"`
	LLM         LLMConfig       `toml:"llm"`
	Claude      ClaudeConfig    `toml:"claude"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

// SourceConfig identifies the source platform this instance collects for.
type SourceConfig struct {
	Name           string `toml:"name"`            // Human-readable name recorded in batch labels
	PlatformPrefix string `toml:"platform_prefix"` // Catalog rows whose platform tag does not start with this prefix are skipped
}

// SheetsConfig locates the shared spreadsheet and its tabs.
type SheetsConfig struct {
	CredentialsFile string `toml:"credentials_file" validate:"required"`
	SpreadsheetID   string `toml:"spreadsheet_id" validate:"required"`
	SettingsSheet   string `toml:"settings_sheet"`
	ClustersSheet   string `toml:"clusters_sheet"`
	DataSheet       string `toml:"data_sheet"`
	LogsSheet       string `toml:"logs_sheet"`
}

// ProviderConfig configures the scraping provider's dataset API.
type ProviderConfig struct {
	APIKey            string `toml:"api_key" validate:"required"`
	BaseURL           string `toml:"base_url"`
	CollectDatasetID  string `toml:"collect_dataset_id" validate:"required"`
	DiscoverDatasetID string `toml:"discover_dataset_id"` // Falls back to collect_dataset_id when empty
	RequestTimeout    string `toml:"request_timeout"`     // e.g. "180s"
	LimitPerItem      int    `toml:"limit_per_item"`      // Default per-item record limit
	ClusterCap        int    `toml:"cluster_cap"`         // Default per-cluster record cap, 0 = unlimited
}

// LLMConfig selects the classification backend.
type LLMConfig struct {
	Provider          string `toml:"provider" validate:"oneof=claude gemini"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// ClaudeConfig configures the Anthropic Claude backend.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
}

// GeminiConfig configures the Google Gemini backend.
type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

// SchedulerConfig controls unattended repeated runs.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format
}

// LoggingConfig controls console/file log output.
type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// NewDefaultConfig returns the configuration defaults applied before any
// file or environment override.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Source: SourceConfig{
			Name:           "YouTube",
			PlatformPrefix: "youtube",
		},
		Sheets: SheetsConfig{
			SettingsSheet: "Settings",
			ClustersSheet: "Clusters",
			DataSheet:     "Posts",
			LogsSheet:     "Logs",
		},
		Provider: ProviderConfig{
			BaseURL:        "https://api.brightdata.com/datasets/v3",
			RequestTimeout: "180s",
			LimitPerItem:   50,
			ClusterCap:     1000,
		},
		LLM: LLMConfig{
			Provider:          "claude",
			RequestsPerMinute: 60,
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 64,
			Timeout:   "60s",
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.0-flash",
			Timeout: "60s",
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 * * * *",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration with the priority chain
// defaults -> file1 -> file2 -> ... -> environment. Later files override
// earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if config.Provider.DiscoverDatasetID == "" {
		config.Provider.DiscoverDatasetID = config.Provider.CollectDatasetID
	}

	return config, nil
}

// applyEnvOverrides applies COLLIGO_* environment variables over file
// values. Secrets are the expected use; anything else belongs in the file.
func applyEnvOverrides(config *Config) {
	overrides := map[string]*string{
		"COLLIGO_SHEETS_CREDENTIALS_FILE": &config.Sheets.CredentialsFile,
		"COLLIGO_SHEETS_SPREADSHEET_ID":   &config.Sheets.SpreadsheetID,
		"COLLIGO_PROVIDER_API_KEY":        &config.Provider.APIKey,
		"COLLIGO_CLAUDE_API_KEY":          &config.Claude.APIKey,
		"COLLIGO_GEMINI_API_KEY":          &config.Gemini.APIKey,
		"COLLIGO_LLM_PROVIDER":            &config.LLM.Provider,
		"COLLIGO_LOG_LEVEL":               &config.Logging.Level,
	}
	for key, target := range overrides {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*target = v
		}
	}
	// Well-known provider key names are honored as fallbacks
	if config.Claude.APIKey == "" {
		config.Claude.APIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	}
	if config.Gemini.APIKey == "" {
		config.Gemini.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
}
