// Package logging provides structured logging for filter test runs
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunLogger wraps zap.Logger with helpers for filter test events
type RunLogger struct {
	*zap.Logger
	fields map[string]interface{}
}

// Config holds logging configuration
type Config struct {
	Level       string            `json:"level" yaml:"level"`
	Format      string            `json:"format" yaml:"format"` // "json" or "console"
	OutputPath  string            `json:"output_path" yaml:"output_path"`
	Fields      map[string]string `json:"fields" yaml:"fields"`
	Development bool              `json:"development" yaml:"development"`
}

// NewLogger creates a new structured logger
func NewLogger(config Config) (*RunLogger, error) {
	var zapConfig zap.Config

	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(config.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if config.Format == "console" {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig.Encoding = "json"
	}

	if config.OutputPath != "" {
		zapConfig.OutputPaths = []string{config.OutputPath}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{}, len(config.Fields))
	zapFields := make([]zap.Field, 0, len(config.Fields))
	for k, v := range config.Fields {
		fields[k] = v
		zapFields = append(zapFields, zap.String(k, v))
	}

	return &RunLogger{
		Logger: logger.With(zapFields...),
		fields: fields,
	}, nil
}

// Fields returns a copy of the context fields attached to the logger
func (l *RunLogger) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		out[k] = v
	}
	return out
}

// WithField adds a field to the logger context
func (l *RunLogger) WithField(key string, value interface{}) *RunLogger {
	newFields := l.Fields()
	newFields[key] = value

	return &RunLogger{
		Logger: l.Logger.With(zap.Any(key, value)),
		fields: newFields,
	}
}

// WithFields adds multiple fields to the logger context
func (l *RunLogger) WithFields(fields map[string]interface{}) *RunLogger {
	newFields := l.Fields()
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		newFields[k] = v
		zapFields = append(zapFields, zap.Any(k, v))
	}

	return &RunLogger{
		Logger: l.Logger.With(zapFields...),
		fields: newFields,
	}
}

// LogRunEvent logs a lifecycle event of a run (login, explore, verify, report)
func (l *RunLogger) LogRunEvent(event string, fields map[string]interface{}) {
	allFields := map[string]interface{}{
		"event": event,
	}
	for k, v := range fields {
		allFields[k] = v
	}

	l.WithFields(allFields).Info("Run event")
}

// LogPerformanceMetric logs performance-related metrics
func (l *RunLogger) LogPerformanceMetric(metric string, value interface{}, unit string) {
	l.WithFields(map[string]interface{}{
		"metric": metric,
		"value":  value,
		"unit":   unit,
		"type":   "performance",
	}).Info("Performance metric")
}

// LogComplianceIssue logs a chain whose result set leaked records from
// outside the applied filters
func (l *RunLogger) LogComplianceIssue(chain string, invalid, total int) {
	l.WithFields(map[string]interface{}{
		"chain":   chain,
		"invalid": invalid,
		"total":   total,
		"type":    "filter_compliance",
	}).Warn("Filter compliance issue")
}

// Sync flushes any buffered log entries
func (l *RunLogger) Sync() error {
	return l.Logger.Sync()
}
