package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalConfig = `
[sheets]
credentials_file = "creds.json"
spreadsheet_id = "sheet-123"

[provider]
api_key = "bd-key"
collect_dataset_id = "ds_collect"
`

func TestLoadFromFilesDefaults(t *testing.T) {
	path := writeConfigFile(t, "colligo.toml", minimalConfig)

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "YouTube", cfg.Source.Name)
	assert.Equal(t, "youtube", cfg.Source.PlatformPrefix)
	assert.Equal(t, "Posts", cfg.Sheets.DataSheet)
	assert.Equal(t, "https://api.brightdata.com/datasets/v3", cfg.Provider.BaseURL)
	assert.Equal(t, 50, cfg.Provider.LimitPerItem)
	assert.Equal(t, "claude", cfg.LLM.Provider)
	assert.Equal(t, "0 * * * *", cfg.Scheduler.Schedule)
}

func TestLoadFromFilesDiscoverFallback(t *testing.T) {
	path := writeConfigFile(t, "colligo.toml", minimalConfig)

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)
	assert.Equal(t, "ds_collect", cfg.Provider.DiscoverDatasetID)
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	base := writeConfigFile(t, "base.toml", minimalConfig)
	override := writeConfigFile(t, "override.toml", `
[source]
name = "TikTok"
platform_prefix = "tiktok"

[provider]
api_key = "bd-key"
collect_dataset_id = "ds_collect"
discover_dataset_id = "ds_discover"
`)

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, "TikTok", cfg.Source.Name)
	assert.Equal(t, "ds_discover", cfg.Provider.DiscoverDatasetID)
}

func TestLoadFromFilesMissingRequired(t *testing.T) {
	path := writeConfigFile(t, "colligo.toml", `
[sheets]
spreadsheet_id = "sheet-123"
`)

	_, err := LoadFromFiles(path)
	assert.Error(t, err)
}

func TestLoadFromFilesInvalidLLMProvider(t *testing.T) {
	path := writeConfigFile(t, "colligo.toml", minimalConfig+`
[llm]
provider = "gpt"
`)

	_, err := LoadFromFiles(path)
	assert.Error(t, err)
}

func TestLoadFromFilesEnvOverride(t *testing.T) {
	path := writeConfigFile(t, "colligo.toml", minimalConfig)
	t.Setenv("COLLIGO_PROVIDER_API_KEY", "env-key")
	t.Setenv("COLLIGO_LLM_PROVIDER", "gemini")

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Provider.APIKey)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
