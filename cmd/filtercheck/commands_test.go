package main

import (
	"testing"

	"github.com/fahim22542/Testing-Projects/internal/config"
	"github.com/fahim22542/Testing-Projects/internal/filtertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsTarget(t *testing.T) {
	assert.Equal(t, "retail.example.com:8443", metricsTarget("https://retail.example.com:8443/login"))
	assert.Equal(t, "not a url", metricsTarget("not a url"))
}

func TestLoadSettings_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv(config.KeyBaseURL, "https://retail.example.com")
	t.Setenv(config.KeyStrategy, "sampled")
	t.Setenv(config.LimitKey(filtertest.Point), "4")

	flags := runCmd.Flags()
	require.NoError(t, flags.Set("strategy", "exhaustive"))
	require.NoError(t, flags.Set("limit", "region=2"))
	t.Cleanup(func() {
		for _, name := range []string{"strategy", "limit"} {
			flags.Lookup(name).Changed = false
		}
		strategy = ""
		limits = nil
	})

	settings, err := loadSettings(runCmd)
	require.NoError(t, err)

	assert.Equal(t, filtertest.StrategyExhaustive, settings.Strategy)
	assert.Equal(t, 2, settings.Limits.Cap(filtertest.Region))
	assert.Equal(t, 4, settings.Limits.Cap(filtertest.Point))
}

func TestLoadSettings_RejectsUnknownLimitDimension(t *testing.T) {
	t.Setenv(config.KeyBaseURL, "https://retail.example.com")

	flags := exploreCmd.Flags()
	require.NoError(t, flags.Set("limit", "zone=1"))
	t.Cleanup(func() {
		flags.Lookup("limit").Changed = false
		limits = nil
	})

	_, err := loadSettings(exploreCmd)
	assert.ErrorContains(t, err, "--limit")
}

func TestCommandsAreRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["explore"])
	assert.True(t, names["check"])
}
