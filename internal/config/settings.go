package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fahim22542/Testing-Projects/internal/filtertest"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultSection         = "Retailers"
	DefaultSettleTimeout   = 10 * time.Second
	DefaultSettleDelay     = 2 * time.Second
	DefaultSelectorTimeout = 5 * time.Second
	DefaultMaxPagePasses   = 500
)

var settingsValidate = validator.New()

// Settings is the typed, validated view of a Config
type Settings struct {
	BaseURL  string `validate:"required,url"`
	Email    string `validate:"omitempty,email"`
	Password string `validate:"required_with=Email"`
	// Section is the navigation button that opens the filtered table
	Section  string `validate:"required"`
	Headless bool

	Strategy filtertest.Strategy `validate:"oneof=sampled exhaustive"`
	Limits   filtertest.Limits   `validate:"dive,gte=0"`
	Labels   filtertest.DimensionLabels

	SettleTimeout   time.Duration `validate:"gt=0"`
	SettleDelay     time.Duration `validate:"gte=0"`
	SelectorTimeout time.Duration `validate:"gt=0"`
	MaxPagePasses   int           `validate:"gte=1"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	MetricsFile string
	ReportJSON  string
	ReportArrow string
}

// RunSettings resolves every key with its default and validates the result
func (c *Config) RunSettings() (*Settings, error) {
	if err := c.checkTypes(); err != nil {
		return nil, err
	}

	s := &Settings{
		BaseURL:         c.GetString(KeyBaseURL, ""),
		Email:           c.GetString(KeyEmail, ""),
		Password:        c.GetString(KeyPassword, ""),
		Section:         c.GetString(KeySection, DefaultSection),
		Headless:        c.GetBool(KeyHeadless, true),
		Strategy:        filtertest.Strategy(strings.ToLower(c.GetString(KeyStrategy, string(filtertest.StrategySampled)))),
		SettleTimeout:   c.GetDuration(KeySettleTimeout, DefaultSettleTimeout),
		SettleDelay:     c.GetDuration(KeySettleDelay, DefaultSettleDelay),
		SelectorTimeout: c.GetDuration(KeySelectorTimeout, DefaultSelectorTimeout),
		MaxPagePasses:   c.GetInt(KeyMaxPagePasses, DefaultMaxPagePasses),
		LogLevel:        strings.ToLower(c.GetString(KeyLogLevel, "info")),
		LogFormat:       strings.ToLower(c.GetString(KeyLogFormat, "console")),
		MetricsFile:     c.GetString(KeyMetricsFile, ""),
		ReportJSON:      c.GetString(KeyReportJSON, ""),
		ReportArrow:     c.GetString(KeyReportArrow, ""),
	}
	for _, d := range filtertest.Dimensions {
		s.Limits[d] = c.GetInt(LimitKey(d), 0)
		s.Labels[d] = c.GetString(LabelKey(d), filtertest.DefaultLabels.For(d))
	}

	if err := settingsValidate.Struct(s); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// checkTypes rejects values that the typed getters would silently replace
// with their defaults
func (c *Config) checkTypes() error {
	var errs []error

	ints := []string{KeyMaxPagePasses}
	for _, d := range filtertest.Dimensions {
		ints = append(ints, LimitKey(d))
	}
	for _, key := range ints {
		if v, ok := c.values[key]; ok {
			if _, err := strconv.Atoi(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
			}
		}
	}

	if v, ok := c.values[KeyHeadless]; ok {
		if _, err := strconv.ParseBool(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a boolean", KeyHeadless, v))
		}
	}

	for _, key := range []string{KeySettleTimeout, KeySettleDelay, KeySelectorTimeout} {
		if v, ok := c.values[key]; ok {
			if _, err := time.ParseDuration(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a duration", key, v))
			}
		}
	}

	return errors.Join(errs...)
}

// Redacted returns the settings as loggable fields with the password masked
func (s *Settings) Redacted() map[string]interface{} {
	password := ""
	if s.Password != "" {
		password = "***"
	}
	return map[string]interface{}{
		"base_url":        s.BaseURL,
		"email":           s.Email,
		"password":        password,
		"section":         s.Section,
		"headless":        s.Headless,
		"strategy":        string(s.Strategy),
		"limits":          s.Limits[:],
		"settle_timeout":  s.SettleTimeout.String(),
		"max_page_passes": s.MaxPagePasses,
	}
}
