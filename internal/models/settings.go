package models

import "strconv"

// Settings sheet keys. The Settings sheet is operator-editable; absent or
// malformed values fall back to hardcoded defaults, last write wins.
const (
	SettingStatusPollSec   = "status_poll_sec"
	SettingProviderWaitMin = "provider_wait_min"
	SettingClusterCap      = "max_records_per_cluster"
	SettingLimitPerItem    = "provider_limit_per_item"
	SettingRegion          = "region"
	SettingTargetColumn    = "label_target_column"
	SettingLabelColumn     = "label_column"
	SettingLabelPrompt     = "label_prompt"
	SettingLabelLogEvery   = "label_log_every"
	SettingLastCluster     = "last_cluster_name"
)

// DefaultLabelPrompt is used when the Settings sheet carries no prompt.
const DefaultLabelPrompt = "Only Y or N. If the text is fully in English or empty, answer Y. If it contains any non-English letters, answer N."

// Settings is the flat key/value mapping read from the Settings sheet once
// per run.
type Settings map[string]string

// Get returns the value for key, or def when the key is absent or blank.
func (s Settings) Get(key, def string) string {
	if v, ok := s[key]; ok && v != "" {
		return v
	}
	return def
}

// GetInt returns the integer value for key, or def when the key is absent
// or not parseable as an integer.
func (s Settings) GetInt(key string, def int) int {
	v, ok := s[key]
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
