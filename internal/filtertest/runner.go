package filtertest

import (
	"context"
	"time"

	"github.com/fahim22542/Testing-Projects/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxIssuesLogged caps the per-chain issues echoed to the log
const maxIssuesLogged = 3

// Options configures a full run
type Options struct {
	RunID         string
	Labels        DimensionLabels
	Limits        Limits
	Strategy      Strategy
	SettleTimeout time.Duration
	MaxPagePasses int
}

// Runner sequences exploration, chain application, collection and
// verification against a single UI session.
type Runner struct {
	opts      Options
	driver    Driver
	sel       *selector
	explorer  *Explorer
	collector *Collector
	logger    *zap.Logger
	metrics   *metrics.RunMetrics
}

func NewRunner(driver Driver, opts Options, logger *zap.Logger, m *metrics.RunMetrics) (*Runner, error) {
	strategy, err := ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
	}
	opts.Strategy = strategy
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}

	logger = logger.With(zap.String("run_id", opts.RunID))

	return &Runner{
		opts:   opts,
		driver: driver,
		sel: &selector{
			driver:        driver,
			labels:        opts.Labels,
			settleTimeout: opts.SettleTimeout,
			logger:        logger,
		},
		explorer: NewExplorer(driver, ExplorerOptions{
			Labels:        opts.Labels,
			Limits:        opts.Limits,
			SettleTimeout: opts.SettleTimeout,
		}, logger.Named("explorer"), m),
		collector: NewCollector(driver, CollectorOptions{
			SettleTimeout: opts.SettleTimeout,
			MaxPagePasses: opts.MaxPagePasses,
		}, logger.Named("collector"), m),
		logger:  logger,
		metrics: m,
	}, nil
}

// Explore only discovers chains without testing them
func (r *Runner) Explore(ctx context.Context) (*Exploration, error) {
	return r.explorer.Explore(ctx)
}

// Run discovers all chains and tests each one. A run that finds no chains is
// a valid outcome with an empty summary. Only context cancellation is
// returned as an error, together with the partial report.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     r.opts.RunID,
		Strategy:  r.opts.Strategy,
		StartedAt: time.Now(),
	}
	defer func() {
		report.FinishedAt = time.Now()
		report.Summary = summarize(report.Results, len(report.SkippedChains))
	}()

	exploration, err := r.explorer.Explore(ctx)
	report.Exploration = exploration
	if err != nil {
		return report, err
	}

	if len(exploration.Chains) == 0 {
		r.logger.Warn("No complete filter chains could be built",
			zap.Bool("root_empty", exploration.RootEmpty))
		return report, nil
	}

	r.logger.Info("Testing complete filter combinations",
		zap.Int("chains", len(exploration.Chains)),
		zap.String("strategy", string(r.opts.Strategy)))

	for i, chain := range exploration.Chains {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		log := r.logger.With(
			zap.Int("test", i+1),
			zap.Int("of", len(exploration.Chains)),
			zap.Stringer("chain", chain))

		result, ok, err := r.testChain(ctx, chain, log)
		if err != nil {
			return report, err
		}
		if !ok {
			report.SkippedChains = append(report.SkippedChains, chain)
			continue
		}
		report.Results = append(report.Results, *result)
	}

	return report, nil
}

// ApplyChain resets the filters and selects every value of the chain in
// dimension order. An incomplete chain is refused before the filters are touched.
func (r *Runner) ApplyChain(ctx context.Context, chain Chain) bool {
	if !chain.Complete() {
		r.logger.Warn("Refusing to apply incomplete filter chain", zap.Stringer("chain", chain))
		return false
	}
	return r.sel.apply(ctx, chain.Values())
}

func (r *Runner) testChain(ctx context.Context, chain Chain, log *zap.Logger) (*ChainResult, bool, error) {
	if !r.ApplyChain(ctx, chain) {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		r.metrics.RecordSelectionFailure("apply")
		log.Warn("Failed to apply complete filter chain")
		return nil, false, nil
	}

	r.driver.AwaitSettled(ctx, r.opts.SettleTimeout)

	rs, err := r.collector.Collect(ctx, chain, r.opts.Strategy)
	if err != nil {
		return nil, false, err
	}

	verification := Verify(rs.Records, chain)
	result := &ChainResult{
		Chain:        chain,
		Strategy:     rs.Strategy,
		DataCount:    rs.Count(),
		PagesRead:    rs.PagesRead,
		PageFailures: rs.PageFailures,
		Truncated:    rs.Truncated,
		Verification: verification,
	}
	r.metrics.RecordVerification(result.Passed(), len(verification.InvalidRecords))

	log.Info("Chain verified",
		zap.Int("records", result.DataCount),
		zap.Int("valid", verification.ValidRecords),
		zap.Int("invalid", len(verification.InvalidRecords)))

	for i, invalid := range verification.InvalidRecords {
		if i == maxIssuesLogged {
			break
		}
		log.Warn("Record violates filter chain",
			zap.String("code", invalid.Record.Code),
			zap.Strings("issues", invalid.Issues))
	}

	return result, true, nil
}
