package filtertest

import (
	"context"
	"fmt"
	"time"

	"github.com/fahim22542/Testing-Projects/internal/metrics"
	"go.uber.org/zap"
)

const (
	defaultMaxPagePasses = 500
)

// CollectorOptions configures result collection
type CollectorOptions struct {
	SettleTimeout time.Duration
	// MaxPagePasses bounds exhaustive pagination on views whose page state
	// never stops producing "new" rows
	MaxPagePasses int
}

// Collector reads the result table for an applied chain
type Collector struct {
	driver        Driver
	settleTimeout time.Duration
	maxPasses     int
	logger        *zap.Logger
	metrics       *metrics.RunMetrics
}

func NewCollector(driver Driver, opts CollectorOptions, logger *zap.Logger, m *metrics.RunMetrics) *Collector {
	maxPasses := opts.MaxPagePasses
	if maxPasses <= 0 {
		maxPasses = defaultMaxPagePasses
	}
	return &Collector{
		driver:        driver,
		settleTimeout: opts.SettleTimeout,
		maxPasses:     maxPasses,
		logger:        logger,
		metrics:       m,
	}
}

// Collect gathers the deduplicated record set for a chain that has already
// been applied. The view is left on whichever page collection ended on.
func (c *Collector) Collect(ctx context.Context, chain Chain, strategy Strategy) (*ResultSet, error) {
	timer := metrics.NewTimer()
	rs := &ResultSet{Chain: chain, Strategy: strategy}
	set := newRecordSet()

	var err error
	switch strategy {
	case StrategySampled:
		err = c.collectSampled(ctx, rs, set)
	case StrategyExhaustive:
		err = c.collectExhaustive(ctx, rs, set)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	if err != nil {
		return nil, err
	}

	rs.Records = set.records
	c.metrics.RecordCollection(string(strategy), len(rs.Records), timer.Duration())

	c.logger.Info("Completed collection",
		zap.String("strategy", string(strategy)),
		zap.Int("records", len(rs.Records)),
		zap.Int("pages_read", rs.PagesRead),
		zap.Int("page_failures", rs.PageFailures),
		zap.Bool("truncated", rs.Truncated))

	return rs, nil
}

// collectSampled reads the first and the highest numbered page only
func (c *Collector) collectSampled(ctx context.Context, rs *ResultSet, set *recordSet) error {
	first := c.readPage(ctx, rs)
	set.addAll(first)
	c.logger.Debug("Fetched first page", zap.Int("records", len(first)))

	if err := ctx.Err(); err != nil {
		return err
	}

	last := highestPage(c.driver.ListPageNumbers(ctx))
	if last <= 1 {
		c.logger.Debug("No numbered pagination beyond the first page")
		return nil
	}

	if !c.driver.GoToPage(ctx, last) {
		c.logger.Warn("Could not open last page", zap.Int("page", last))
		return nil
	}

	page := c.readPage(ctx, rs)
	added := set.addAll(page)
	c.logger.Debug("Fetched last page",
		zap.Int("page", last),
		zap.Int("records", len(page)),
		zap.Int("new_records", added))

	return nil
}

// collectExhaustive advances with the next control while it yields new rows
// and falls back to unvisited numbered controls. It stops after a pass that
// adds nothing new.
func (c *Collector) collectExhaustive(ctx context.Context, rs *ResultSet, set *recordSet) error {
	set.addAll(c.readPage(ctx, rs))

	visited := make(map[int]bool)

	for pass := 0; ; pass++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pass >= c.maxPasses {
			rs.Truncated = true
			c.logger.Warn("Pagination pass bound reached, stopping collection",
				zap.Int("max_passes", c.maxPasses),
				zap.Int("records", set.len()))
			return nil
		}

		if c.driver.HasNextPage(ctx) && c.driver.GoNext(ctx) {
			if added := set.addAll(c.readPage(ctx, rs)); added > 0 {
				c.logger.Debug("Advanced with next control",
					zap.Int("new_records", added),
					zap.Int("total", set.len()))
				continue
			}
		}

		advanced := false
		for _, n := range c.driver.ListPageNumbers(ctx) {
			if visited[n] {
				continue
			}
			visited[n] = true

			if !c.driver.GoToPage(ctx, n) {
				c.logger.Debug("Page control did not respond", zap.Int("page", n))
				continue
			}
			if added := set.addAll(c.readPage(ctx, rs)); added > 0 {
				advanced = true
				c.logger.Debug("Advanced with page control",
					zap.Int("page", n),
					zap.Int("new_records", added),
					zap.Int("total", set.len()))
			}
		}

		if !advanced {
			c.logger.Debug("No more pages or data repeated", zap.Int("passes", pass+1))
			return nil
		}
	}
}

// readPage waits for the view to settle and reads it. A failed read
// contributes no records.
func (c *Collector) readPage(ctx context.Context, rs *ResultSet) []Record {
	c.driver.AwaitSettled(ctx, c.settleTimeout)

	records, err := c.driver.ReadCurrentPage(ctx)
	rs.PagesRead++
	c.metrics.RecordPageRead(string(rs.Strategy), err == nil)
	if err != nil {
		rs.PageFailures++
		c.logger.Warn("Failed to read result page", zap.Error(err))
		return nil
	}
	return records
}

func highestPage(pages []int) int {
	highest := 0
	for _, p := range pages {
		if p > highest {
			highest = p
		}
	}
	return highest
}

// recordSet keeps unique records in first-seen order
type recordSet struct {
	seen    map[Record]struct{}
	records []Record
}

func newRecordSet() *recordSet {
	return &recordSet{seen: make(map[Record]struct{})}
}

// addAll adds records not yet present and returns how many were new
func (s *recordSet) addAll(records []Record) int {
	added := 0
	for _, r := range records {
		if _, ok := s.seen[r]; ok {
			continue
		}
		s.seen[r] = struct{}{}
		s.records = append(s.records, r)
		added++
	}
	return added
}

func (s *recordSet) len() int {
	return len(s.records)
}
