package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fahim22542/Testing-Projects/internal/browser"
	"github.com/fahim22542/Testing-Projects/internal/config"
	"github.com/fahim22542/Testing-Projects/internal/filtertest"
	"github.com/fahim22542/Testing-Projects/internal/logging"
	"github.com/fahim22542/Testing-Projects/internal/metrics"
	"github.com/fahim22542/Testing-Projects/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errChainsFailed = errors.New("one or more filter chains returned records outside their filters")

var (
	rootCmd = &cobra.Command{
		Use:   "filtercheck",
		Short: "Checks that dependent filters of a web table return only matching rows",
		Long: `filtercheck logs into a web application, discovers every complete
combination of its Region, Area, Distribution house, Territory and Point
filters, applies each one and verifies every returned row against it.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Discover all filter chains, test each one and report the outcome",
		Args:  cobra.NoArgs,
		RunE:  runFilterCheck,
	}

	exploreCmd = &cobra.Command{
		Use:   "explore",
		Short: "Discover and print complete filter chains without testing them",
		Args:  cobra.NoArgs,
		RunE:  runExplore,
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Verify login works and the root filter offers options",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}

	configPath  string
	logLevel    string
	logFormat   string
	headless    bool
	metricsFile string

	strategy  string
	limits    map[string]int
	jsonOut   string
	arrowOut  string
	maxPasses int
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "log format (console, json)")
	pf.BoolVar(&headless, "headless", true, "run the browser without a window")
	pf.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")

	for _, cmd := range []*cobra.Command{runCmd, exploreCmd} {
		cmd.Flags().StringToIntVar(&limits, "limit", nil, "cap options per dimension, e.g. region=2,point=5")
	}

	runCmd.Flags().StringVarP(&strategy, "strategy", "s", "", "page collection strategy (sampled, exhaustive)")
	runCmd.Flags().StringVar(&jsonOut, "json-out", "", "write the full report as JSON")
	runCmd.Flags().StringVar(&arrowOut, "arrow-out", "", "write chain results and issues as Arrow IPC files")
	runCmd.Flags().IntVar(&maxPasses, "max-page-passes", 0, "bound on exhaustive pagination passes")

	rootCmd.AddCommand(runCmd, exploreCmd, checkCmd)
}

// loadSettings layers the config file, the environment and changed flags
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	setIfChanged := func(flag, key, value string) {
		if flags.Changed(flag) {
			cfg.Set(key, value)
		}
	}
	setIfChanged("log-level", config.KeyLogLevel, logLevel)
	setIfChanged("log-format", config.KeyLogFormat, logFormat)
	setIfChanged("headless", config.KeyHeadless, strconv.FormatBool(headless))
	setIfChanged("metrics-file", config.KeyMetricsFile, metricsFile)
	setIfChanged("strategy", config.KeyStrategy, strategy)
	setIfChanged("json-out", config.KeyReportJSON, jsonOut)
	setIfChanged("arrow-out", config.KeyReportArrow, arrowOut)
	setIfChanged("max-page-passes", config.KeyMaxPagePasses, strconv.Itoa(maxPasses))

	if flags.Changed("limit") {
		if err := cfg.SetLimits(limits); err != nil {
			return nil, fmt.Errorf("--limit: %w", err)
		}
	}

	return cfg.RunSettings()
}

func newLogger(settings *config.Settings) (*logging.RunLogger, error) {
	return logging.NewLogger(logging.Config{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		Fields: map[string]string{"service": "filtercheck"},
	})
}

// metricsTarget labels metrics with the host under test
func metricsTarget(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return baseURL
}

// session bundles what every command needs once the browser is on the
// filtered table
type session struct {
	settings *config.Settings
	logger   *logging.RunLogger
	metrics  *metrics.RunMetrics
	browser  *browser.Driver
	driver   filtertest.Driver
}

func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.LogRunEvent("settings_loaded", settings.Redacted())

	drv, err := browser.New(browser.Options{
		BaseURL:         settings.BaseURL,
		Headless:        settings.Headless,
		Labels:          settings.Labels,
		SettleDelay:     settings.SettleDelay,
		SelectorTimeout: settings.SelectorTimeout,
	}, logger.Named("browser"))
	if err != nil {
		logger.Sync()
		return nil, err
	}

	if err := drv.Login(ctx, settings.Email, settings.Password); err != nil {
		drv.Close()
		logger.Sync()
		return nil, err
	}
	if err := drv.OpenSection(ctx, settings.Section); err != nil {
		drv.Close()
		logger.Sync()
		return nil, err
	}

	m := metrics.NewRunMetrics(metricsTarget(settings.BaseURL))
	return &session{
		settings: settings,
		logger:   logger,
		metrics:  m,
		browser:  drv,
		driver:   filtertest.NewInstrumentedDriver(drv, logger.Named("driver"), m),
	}, nil
}

func (s *session) close() {
	s.browser.Close()
	if s.settings.MetricsFile != "" {
		if err := metrics.WriteTextfile(s.settings.MetricsFile); err != nil {
			s.logger.Error("Failed to write metrics textfile",
				zap.String("path", s.settings.MetricsFile), zap.Error(err))
		}
	}
	s.logger.Sync()
}

func (s *session) runner() (*filtertest.Runner, error) {
	return filtertest.NewRunner(s.driver, filtertest.Options{
		Labels:        s.settings.Labels,
		Limits:        s.settings.Limits,
		Strategy:      s.settings.Strategy,
		SettleTimeout: s.settings.SettleTimeout,
		MaxPagePasses: s.settings.MaxPagePasses,
	}, s.logger.Logger, s.metrics)
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runFilterCheck(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	runner, err := sess.runner()
	if err != nil {
		return err
	}

	timer := metrics.NewTimer()
	rep, runErr := runner.Run(ctx)
	sess.logger.LogPerformanceMetric("run_duration", timer.Duration().Seconds(), "seconds")

	if rep != nil {
		for _, res := range rep.Failed() {
			sess.logger.LogComplianceIssue(res.Chain.String(), len(res.Verification.InvalidRecords), res.DataCount)
		}
		if err := writeReports(cmd, sess, rep); err != nil {
			return err
		}
	}

	if runErr != nil {
		sess.logger.Warn("Run interrupted, report is partial", zap.Error(runErr))
		return runErr
	}
	if rep.Summary.Failed > 0 {
		return errChainsFailed
	}
	return nil
}

func writeReports(cmd *cobra.Command, sess *session, rep *filtertest.RunReport) error {
	if err := report.WriteConsole(cmd.OutOrStdout(), rep); err != nil {
		return fmt.Errorf("failed to print report: %w", err)
	}

	if path := sess.settings.ReportJSON; path != "" {
		if err := report.WriteJSON(path, rep); err != nil {
			return err
		}
		sess.logger.LogRunEvent("report_written", map[string]interface{}{"format": "json", "path": path})
	}

	if path := sess.settings.ReportArrow; path != "" {
		if err := report.WriteArrow(path, rep); err != nil {
			return err
		}
		sess.logger.LogRunEvent("report_written", map[string]interface{}{
			"format": "arrow",
			"path":   path,
			"issues": report.IssuesPath(path),
		})
	}
	return nil
}

func runExplore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	runner, err := sess.runner()
	if err != nil {
		return err
	}

	exploration, err := runner.Explore(ctx)
	if exploration != nil {
		if werr := report.WriteChains(cmd.OutOrStdout(), exploration); werr != nil {
			return werr
		}
	}
	return err
}

// runCheck is the health check: login succeeds and the root filter
// offers at least one option
func runCheck(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	sess, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	label := sess.settings.Labels.For(filtertest.Region)
	options := sess.driver.ListOptions(ctx, label)
	if len(options) == 0 {
		return fmt.Errorf("health check failed: %q offered no options", label)
	}

	sess.logger.LogRunEvent("health_check_passed", map[string]interface{}{
		"label":   label,
		"options": len(options),
	})
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %q offers %d options\n", label, len(options))
	return nil
}
