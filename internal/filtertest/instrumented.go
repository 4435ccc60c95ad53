package filtertest

import (
	"context"
	"time"

	"github.com/fahim22542/Testing-Projects/internal/metrics"
	"go.uber.org/zap"
)

var _ Driver = (*InstrumentedDriver)(nil)

// InstrumentedDriver wraps a Driver, logging and timing every call
type InstrumentedDriver struct {
	driver  Driver
	logger  *zap.Logger
	metrics *metrics.RunMetrics
}

func NewInstrumentedDriver(driver Driver, logger *zap.Logger, m *metrics.RunMetrics) *InstrumentedDriver {
	return &InstrumentedDriver{
		driver:  driver,
		logger:  logger,
		metrics: m,
	}
}

func (d *InstrumentedDriver) observe(op string, start time.Time, ok bool, fields ...zap.Field) {
	elapsed := time.Since(start)
	d.metrics.RecordDriverCall(op, ok, elapsed)
	fields = append(fields, zap.Bool("ok", ok), zap.Duration("elapsed", elapsed))
	d.logger.Debug(op, fields...)
}

func (d *InstrumentedDriver) ListOptions(ctx context.Context, label string) []string {
	start := time.Now()
	options := d.driver.ListOptions(ctx, label)
	d.observe("list_options", start, len(options) > 0,
		zap.String("label", label),
		zap.Int("options", len(options)))
	return options
}

func (d *InstrumentedDriver) SelectOption(ctx context.Context, label, value string) bool {
	start := time.Now()
	ok := d.driver.SelectOption(ctx, label, value)
	d.observe("select_option", start, ok,
		zap.String("label", label),
		zap.String("value", value))
	return ok
}

func (d *InstrumentedDriver) ClearAll(ctx context.Context) {
	start := time.Now()
	d.driver.ClearAll(ctx)
	d.observe("clear_all", start, true)
}

func (d *InstrumentedDriver) ReadCurrentPage(ctx context.Context) ([]Record, error) {
	start := time.Now()
	records, err := d.driver.ReadCurrentPage(ctx)
	fields := []zap.Field{zap.Int("records", len(records))}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	d.observe("read_page", start, err == nil, fields...)
	return records, err
}

func (d *InstrumentedDriver) HasNextPage(ctx context.Context) bool {
	start := time.Now()
	ok := d.driver.HasNextPage(ctx)
	d.observe("has_next_page", start, ok)
	return ok
}

func (d *InstrumentedDriver) GoNext(ctx context.Context) bool {
	start := time.Now()
	ok := d.driver.GoNext(ctx)
	d.observe("go_next", start, ok)
	return ok
}

func (d *InstrumentedDriver) ListPageNumbers(ctx context.Context) []int {
	start := time.Now()
	pages := d.driver.ListPageNumbers(ctx)
	d.observe("list_page_numbers", start, true, zap.Ints("pages", pages))
	return pages
}

func (d *InstrumentedDriver) GoToPage(ctx context.Context, n int) bool {
	start := time.Now()
	ok := d.driver.GoToPage(ctx, n)
	d.observe("go_to_page", start, ok, zap.Int("page", n))
	return ok
}

func (d *InstrumentedDriver) AwaitSettled(ctx context.Context, timeout time.Duration) {
	start := time.Now()
	d.driver.AwaitSettled(ctx, timeout)
	d.observe("await_settled", start, true, zap.Duration("timeout", timeout))
}
