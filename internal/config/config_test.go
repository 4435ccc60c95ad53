package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fahim22542/Testing-Projects/internal/filtertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filtercheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range knownKeys() {
		t.Setenv(key, "")
	}
}

func TestLoad_FileThenEnvThenSet(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
base_url: https://retail.example.com
email: qa@example.com
password: secret
strategy: exhaustive
headless: false
limits:
  region: 2
  point: 3
labels:
  point: Point
settle_timeout: 20s
log:
  level: debug
report:
  json: out/report.json
`)
	t.Setenv(KeyStrategy, "sampled")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://retail.example.com", cfg.GetString(KeyBaseURL, ""))
	assert.Equal(t, "sampled", cfg.GetString(KeyStrategy, ""), "env must override the file")
	assert.False(t, cfg.GetBool(KeyHeadless, true))
	assert.Equal(t, 2, cfg.GetInt(LimitKey(filtertest.Region), 0))
	assert.Equal(t, 20*time.Second, cfg.GetDuration(KeySettleTimeout, 0))

	cfg.Set(KeyStrategy, "exhaustive")
	settings, err := cfg.RunSettings()
	require.NoError(t, err)

	assert.Equal(t, filtertest.StrategyExhaustive, settings.Strategy)
	assert.Equal(t, filtertest.Limits{2, 0, 0, 0, 3}, settings.Limits)
	assert.Equal(t, "Point", settings.Labels[filtertest.Point])
	assert.Equal(t, "Filter by Region", settings.Labels[filtertest.Region])
	assert.Equal(t, "debug", settings.LogLevel)
	assert.Equal(t, "out/report.json", settings.ReportJSON)
	assert.Equal(t, DefaultSection, settings.Section)
	assert.Equal(t, DefaultMaxPagePasses, settings.MaxPagePasses)
}

func TestLoad_WithoutFileUsesEnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyBaseURL, "http://localhost:3000")

	cfg, err := Load("")
	require.NoError(t, err)

	settings, err := cfg.RunSettings()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", settings.BaseURL)
	assert.True(t, settings.Headless)
	assert.Equal(t, filtertest.StrategySampled, settings.Strategy)
	assert.Equal(t, DefaultSettleDelay, settings.SettleDelay)
}

func TestLoad_RejectsUnknownDimensionInFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "base_url: http://x\nlimits:\n  zone: 1\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "zone")
}

func TestLoad_RejectsNegativeLimitInFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "base_url: http://x\nlimits:\n  area: -2\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "limits: limit for area must not be negative")
}

func TestSetLimits_OverridesOnlyNamedDimensions(t *testing.T) {
	cfg := &Config{values: map[string]string{
		KeyBaseURL:                     "https://retail.example.com",
		LimitKey(filtertest.Point):     "4",
		LimitKey(filtertest.Territory): "7",
	}}

	require.NoError(t, cfg.SetLimits(map[string]int{"Region": 2, "territory": 0}))

	settings, err := cfg.RunSettings()
	require.NoError(t, err)
	assert.Equal(t, filtertest.Limits{2, 0, 0, 0, 4}, settings.Limits)

	assert.Error(t, cfg.SetLimits(map[string]int{"region": 1, "zone": 1}))
	assert.Equal(t, 2, cfg.GetInt(LimitKey(filtertest.Region), 0), "a rejected override must leave earlier caps alone")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunSettings_Validation(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]string
		wantErr string
	}{
		{"missing_base_url", map[string]string{}, "BaseURL"},
		{"bad_strategy", map[string]string{KeyStrategy: "random"}, "Strategy"},
		{"negative_limit", map[string]string{LimitKey(filtertest.Area): "-1"}, "Limits"},
		{"password_required_with_email", map[string]string{KeyEmail: "qa@example.com"}, "Password"},
		{"zero_pass_bound", map[string]string{KeyMaxPagePasses: "0"}, "MaxPagePasses"},
		{"bad_log_format", map[string]string{KeyLogFormat: "xml"}, "LogFormat"},
		{"unparsable_int", map[string]string{KeyMaxPagePasses: "many"}, "not an integer"},
		{"unparsable_duration", map[string]string{KeySettleTimeout: "soon"}, "not a duration"},
		{"unparsable_bool", map[string]string{KeyHeadless: "maybe"}, "not a boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{values: map[string]string{KeyBaseURL: "https://retail.example.com"}}
			if tt.name == "missing_base_url" {
				delete(cfg.values, KeyBaseURL)
			}
			for k, v := range tt.values {
				cfg.Set(k, v)
			}

			_, err := cfg.RunSettings()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettings_RedactedMasksPassword(t *testing.T) {
	s := &Settings{BaseURL: "http://x", Password: "secret"}
	fields := s.Redacted()

	assert.Equal(t, "***", fields["password"])
}
