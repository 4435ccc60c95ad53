package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fahim22542/Testing-Projects/internal/filtertest"
	"gopkg.in/yaml.v3"
)

const envPrefix = "FILTERCHECK_"

const (
	KeyBaseURL         = envPrefix + "BASE_URL"
	KeyEmail           = envPrefix + "EMAIL"
	KeyPassword        = envPrefix + "PASSWORD"
	KeySection         = envPrefix + "SECTION"
	KeyHeadless        = envPrefix + "HEADLESS"
	KeyStrategy        = envPrefix + "STRATEGY"
	KeySettleTimeout   = envPrefix + "SETTLE_TIMEOUT"
	KeySettleDelay     = envPrefix + "SETTLE_DELAY"
	KeySelectorTimeout = envPrefix + "SELECTOR_TIMEOUT"
	KeyMaxPagePasses   = envPrefix + "MAX_PAGE_PASSES"
	KeyLogLevel        = envPrefix + "LOG_LEVEL"
	KeyLogFormat       = envPrefix + "LOG_FORMAT"
	KeyMetricsFile     = envPrefix + "METRICS_FILE"
	KeyReportJSON      = envPrefix + "REPORT_JSON"
	KeyReportArrow     = envPrefix + "REPORT_ARROW"
)

// LimitKey is the key holding the option cap for d
func LimitKey(d filtertest.Dimension) string {
	return envPrefix + "LIMIT_" + strings.ToUpper(d.String())
}

// LabelKey is the key holding the control label for d
func LabelKey(d filtertest.Dimension) string {
	return envPrefix + "LABEL_" + strings.ToUpper(d.String())
}

func knownKeys() []string {
	keys := []string{
		KeyBaseURL,
		KeyEmail,
		KeyPassword,
		KeySection,
		KeyHeadless,
		KeyStrategy,
		KeySettleTimeout,
		KeySettleDelay,
		KeySelectorTimeout,
		KeyMaxPagePasses,
		KeyLogLevel,
		KeyLogFormat,
		KeyMetricsFile,
		KeyReportJSON,
		KeyReportArrow,
	}
	for _, d := range filtertest.Dimensions {
		keys = append(keys, LimitKey(d), LabelKey(d))
	}
	return keys
}

type Config struct {
	values map[string]string
}

// Load reads the optional YAML file at path and then the environment.
// Environment values override the file.
func Load(path string) (*Config, error) {
	cfg := &Config{
		values: make(map[string]string),
	}

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadFromEnv()
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var raw FileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	normalized, err := NormalizeConfig(raw)
	if err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	for k, v := range normalized {
		c.values[k] = v
	}
	return nil
}

func (c *Config) loadFromEnv() {
	for _, envVar := range knownKeys() {
		if value := os.Getenv(envVar); value != "" {
			c.values[envVar] = value
		}
	}
}

// FileConfig is the YAML layout of a config file
type FileConfig struct {
	BaseURL         string            `yaml:"base_url"`
	Email           string            `yaml:"email"`
	Password        string            `yaml:"password"`
	Section         string            `yaml:"section"`
	Headless        *bool             `yaml:"headless"`
	Strategy        string            `yaml:"strategy"`
	Limits          map[string]int    `yaml:"limits"`
	Labels          map[string]string `yaml:"labels"`
	SettleTimeout   string            `yaml:"settle_timeout"`
	SettleDelay     string            `yaml:"settle_delay"`
	SelectorTimeout string            `yaml:"selector_timeout"`
	MaxPagePasses   int               `yaml:"max_page_passes"`
	Log             LogFileConfig     `yaml:"log"`
	MetricsFile     string            `yaml:"metrics_file"`
	Report          ReportFileConfig  `yaml:"report"`
}

type LogFileConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ReportFileConfig struct {
	JSON  string `yaml:"json"`
	Arrow string `yaml:"arrow"`
}

// NormalizeConfig converts the file format to internal keys. Empty values
// are left out so they do not mask defaults.
func NormalizeConfig(raw FileConfig) (map[string]string, error) {
	config := make(map[string]string)

	set := func(key, value string) {
		if value != "" {
			config[key] = value
		}
	}

	set(KeyBaseURL, raw.BaseURL)
	set(KeyEmail, raw.Email)
	set(KeyPassword, raw.Password)
	set(KeySection, raw.Section)
	if raw.Headless != nil {
		config[KeyHeadless] = strconv.FormatBool(*raw.Headless)
	}
	set(KeyStrategy, raw.Strategy)
	set(KeySettleTimeout, raw.SettleTimeout)
	set(KeySettleDelay, raw.SettleDelay)
	set(KeySelectorTimeout, raw.SelectorTimeout)
	if raw.MaxPagePasses != 0 {
		config[KeyMaxPagePasses] = strconv.Itoa(raw.MaxPagePasses)
	}
	set(KeyLogLevel, raw.Log.Level)
	set(KeyLogFormat, raw.Log.Format)
	set(KeyMetricsFile, raw.MetricsFile)
	set(KeyReportJSON, raw.Report.JSON)
	set(KeyReportArrow, raw.Report.Arrow)

	caps, err := limitValues(raw.Limits)
	if err != nil {
		return nil, fmt.Errorf("limits: %w", err)
	}
	for k, v := range caps {
		config[k] = v
	}
	for name, label := range raw.Labels {
		d, err := filtertest.ParseDimension(name)
		if err != nil {
			return nil, fmt.Errorf("labels: %w", err)
		}
		set(LabelKey(d), label)
	}

	return config, nil
}

func limitValues(m map[string]int) (map[string]string, error) {
	caps, err := filtertest.ParseLimits(m)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(caps))
	for d, limit := range caps {
		values[LimitKey(d)] = strconv.Itoa(limit)
	}
	return values, nil
}

// Set overrides a single key, used for command line flags
func (c *Config) Set(key, value string) {
	c.values[key] = value
}

// SetLimits overrides the caps of the dimensions named in m. Nothing is
// changed when any name or cap is invalid.
func (c *Config) SetLimits(m map[string]int) error {
	values, err := limitValues(m)
	if err != nil {
		return err
	}
	for k, v := range values {
		c.values[k] = v
	}
	return nil
}

func (c *Config) GetString(key, defaultValue string) string {
	if value, exists := c.values[key]; exists {
		return value
	}
	return defaultValue
}

func (c *Config) GetInt(key string, defaultValue int) int {
	if value, exists := c.values[key]; exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) GetBool(key string, defaultValue bool) bool {
	if value, exists := c.values[key]; exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (c *Config) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := c.values[key]; exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
