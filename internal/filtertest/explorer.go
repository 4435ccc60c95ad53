package filtertest

import (
	"context"
	"time"

	"github.com/fahim22542/Testing-Projects/internal/metrics"
	"go.uber.org/zap"
)

// ExplorerOptions configures chain discovery
type ExplorerOptions struct {
	Labels        DimensionLabels
	Limits        Limits
	SettleTimeout time.Duration
}

// Explorer discovers every complete filter chain by driving the live UI
// through each upstream prefix and re-reading the downstream option set.
type Explorer struct {
	driver  Driver
	sel     *selector
	limits  Limits
	labels  DimensionLabels
	logger  *zap.Logger
	metrics *metrics.RunMetrics
}

// NewExplorer creates a new Explorer instance
func NewExplorer(driver Driver, opts ExplorerOptions, logger *zap.Logger, m *metrics.RunMetrics) *Explorer {
	return &Explorer{
		driver: driver,
		sel: &selector{
			driver:        driver,
			labels:        opts.Labels,
			settleTimeout: opts.SettleTimeout,
			logger:        logger,
		},
		limits:  opts.Limits,
		labels:  opts.Labels,
		logger:  logger,
		metrics: m,
	}
}

// Explore walks the dimension tree depth-first and returns all complete
// chains. An empty root option set is reported through RootEmpty, not as an
// error; the only error returned is context cancellation.
func (e *Explorer) Explore(ctx context.Context) (*Exploration, error) {
	result := &Exploration{}

	e.logger.Info("Building complete filter chains",
		zap.Ints("limits", e.limits[:]))

	if err := e.walk(ctx, nil, result); err != nil {
		return result, err
	}

	if result.RootEmpty {
		e.logger.Warn("No options found for the root filter",
			zap.String("dimension", Region.String()),
			zap.String("label", e.labels.For(Region)))
	}

	e.logger.Info("Built complete filter chains",
		zap.Int("chains", len(result.Chains)),
		zap.Int("option_queries", result.OptionQueries),
		zap.Int("skipped_branches", result.SkippedBranches))

	return result, nil
}

func (e *Explorer) walk(ctx context.Context, prefix []string, result *Exploration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	depth := Dimension(len(prefix))

	// Never trust UI state left behind by a sibling branch
	if !e.sel.apply(ctx, prefix) {
		if err := ctx.Err(); err != nil {
			return err
		}
		result.SkippedBranches++
		e.metrics.RecordSelectionFailure("explore")
		return nil
	}

	options := e.options(ctx, depth, result)
	if depth == Region && len(options) == 0 {
		result.RootEmpty = true
		return nil
	}

	e.logger.Debug("Discovered options",
		zap.String("dimension", depth.String()),
		zap.Strings("prefix", prefix),
		zap.Int("count", len(options)))

	for _, opt := range options {
		values := make([]string, len(prefix)+1)
		copy(values, prefix)
		values[len(prefix)] = opt

		if depth.Last() {
			chain, err := NewChain(values...)
			if err != nil {
				e.logger.Warn("Discarding incomplete chain", zap.Strings("values", values), zap.Error(err))
				continue
			}
			result.Chains = append(result.Chains, chain)
			e.metrics.RecordChainDiscovered()
			continue
		}

		if err := e.walk(ctx, values, result); err != nil {
			return err
		}
	}

	return nil
}

func (e *Explorer) options(ctx context.Context, d Dimension, result *Exploration) []string {
	result.OptionQueries++
	options := normalizeOptions(e.driver.ListOptions(ctx, e.labels.For(d)))
	e.metrics.RecordOptionQuery(d.String(), len(options))

	if k := e.limits.Cap(d); k > 0 && len(options) > k {
		options = options[:k]
	}
	return options
}
