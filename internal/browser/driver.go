// Package browser drives the filter panel of a live web application through
// a headless Chrome session.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/fahim22542/Testing-Projects/internal/filtertest"
	"go.uber.org/zap"
)

const (
	markControl = "control"
	markOption  = "option"
	markButton  = "button"
	markInput   = "input"
	markPage    = "page"

	// dropdownDelay lets the panel react to a chosen option
	dropdownDelay = time.Second
	// keyDelay separates keyboard steps while clearing a control
	keyDelay     = 200 * time.Millisecond
	pollInterval = 250 * time.Millisecond
)

var (
	errNotFound      = errors.New("element not found")
	errStillLoading  = errors.New("loading indicator still visible")
	errTableNotFound = errors.New("result table not found")
)

var _ filtertest.Driver = (*Driver)(nil)

// Options configures the browser session
type Options struct {
	BaseURL  string
	Headless bool
	Labels   filtertest.DimensionLabels
	// SettleDelay is slept after loading indicators disappear
	SettleDelay     time.Duration
	SelectorTimeout time.Duration
	// ExecPath overrides the browser binary when set
	ExecPath string
}

// Driver implements filtertest.Driver over chromedp
type Driver struct {
	opts          Options
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	logger        *zap.Logger
}

// New starts a browser and opens an empty tab
func New(opts Options, logger *zap.Logger) (*Driver, error) {
	if opts.SelectorTimeout <= 0 {
		opts.SelectorTimeout = 5 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(1440, 900),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info("Browser started", zap.Bool("headless", opts.Headless))

	return &Driver{
		opts:          opts,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		logger:        logger,
	}, nil
}

// Close shuts the browser down
func (d *Driver) Close() {
	d.browserCancel()
	d.allocCancel()
}

// run executes actions on the browser tab, bounded by timeout and by ctx
func (d *Driver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(d.browserCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tctx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (d *Driver) eval(ctx context.Context, js string, out interface{}) error {
	return d.run(ctx, d.opts.SelectorTimeout, chromedp.Evaluate(js, out))
}

// mark runs a marking script and reports errNotFound when it matched nothing
func (d *Driver) mark(ctx context.Context, js string) error {
	var found bool
	if err := d.eval(ctx, js, &found); err != nil {
		return err
	}
	if !found {
		return errNotFound
	}
	return nil
}

func (d *Driver) clickMarked(ctx context.Context, name string) error {
	return d.run(ctx, d.opts.SelectorTimeout,
		chromedp.Click(markedSelector(name), chromedp.ByQuery, chromedp.NodeVisible))
}

// clickMarkedWithFallback clicks with real mouse events and falls back to a
// script click when something overlays the element
func (d *Driver) clickMarkedWithFallback(ctx context.Context, name string) error {
	return firstSuccess(ctx, d.logger,
		attempt{"click", func(ctx context.Context) error {
			return d.clickMarked(ctx, name)
		}},
		attempt{"js_click", func(ctx context.Context) error {
			return d.mark(ctx, jsClickJS(name))
		}},
	)
}

func (d *Driver) press(ctx context.Context, key string, opts ...chromedp.KeyOption) error {
	return d.run(ctx, d.opts.SelectorTimeout, chromedp.KeyEvent(key, opts...))
}

func (d *Driver) sleep(ctx context.Context, delay time.Duration) {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Login opens the base URL and submits the credential form
func (d *Driver) Login(ctx context.Context, email, password string) error {
	if err := d.run(ctx, 60*time.Second, chromedp.Navigate(d.opts.BaseURL)); err != nil {
		return fmt.Errorf("failed to open %s: %w", d.opts.BaseURL, err)
	}
	if email == "" {
		d.logger.Info("No credentials configured, skipping login")
		return nil
	}

	if err := d.fill(ctx, "Email", email); err != nil {
		return fmt.Errorf("failed to fill email: %w", err)
	}
	if err := d.fill(ctx, "Password", password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	if err := d.clickButton(ctx, "Login"); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	d.logger.Info("Logged in", zap.String("email", email))
	return nil
}

// OpenSection clicks the navigation button that shows the filtered table
func (d *Driver) OpenSection(ctx context.Context, name string) error {
	if err := d.clickButton(ctx, name); err != nil {
		return fmt.Errorf("failed to open section %q: %w", name, err)
	}
	d.AwaitSettled(ctx, d.opts.SelectorTimeout*3)
	return nil
}

func (d *Driver) fill(ctx context.Context, name, value string) error {
	if err := d.waitMark(ctx, markTextboxJS(name, markInput)); err != nil {
		return err
	}
	return d.run(ctx, d.opts.SelectorTimeout,
		chromedp.SendKeys(markedSelector(markInput), value, chromedp.ByQuery))
}

func (d *Driver) clickButton(ctx context.Context, name string) error {
	if err := d.waitMark(ctx, markButtonJS(name, markButton)); err != nil {
		return err
	}
	return d.clickMarkedWithFallback(ctx, markButton)
}

// poll calls check every pollInterval until it reports done, fails, or the
// selector timeout elapses. Running out of time yields errNotFound.
func (d *Driver) poll(ctx context.Context, check func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(d.opts.SelectorTimeout)
	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return errNotFound
		}
		d.sleep(ctx, pollInterval)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// waitMark retries a marking script until it matches or the selector
// timeout elapses
func (d *Driver) waitMark(ctx context.Context, js string) error {
	return d.poll(ctx, func(ctx context.Context) (bool, error) {
		err := d.mark(ctx, js)
		if errors.Is(err, errNotFound) {
			return false, nil
		}
		return err == nil, err
	})
}

// waitOptions reads the open option list, waiting for it to render. A list
// that stays empty until the selector timeout is reported as empty.
func (d *Driver) waitOptions(ctx context.Context) ([]string, error) {
	var options []string
	err := d.poll(ctx, func(ctx context.Context) (bool, error) {
		options = nil
		if err := d.eval(ctx, visibleOptionsJS(), &options); err != nil {
			return false, err
		}
		return len(options) > 0, nil
	})
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	return options, err
}

func (d *Driver) openControl(ctx context.Context, label string) error {
	if err := d.mark(ctx, markTextboxJS(label, markControl)); err != nil {
		return fmt.Errorf("control %q: %w", label, err)
	}
	if err := d.clickMarked(ctx, markControl); err != nil {
		return fmt.Errorf("control %q: %w", label, err)
	}
	return nil
}

// closeDropdown tries Escape, then toggling the control, then clicking the
// page body
func (d *Driver) closeDropdown(ctx context.Context) {
	err := firstSuccess(ctx, d.logger,
		attempt{"escape", func(ctx context.Context) error {
			if err := d.press(ctx, kb.Escape); err != nil {
				return err
			}
			return d.ensureClosed(ctx)
		}},
		attempt{"toggle_control", func(ctx context.Context) error {
			if err := d.clickMarked(ctx, markControl); err != nil {
				return err
			}
			return d.ensureClosed(ctx)
		}},
		attempt{"click_body", func(ctx context.Context) error {
			return d.run(ctx, d.opts.SelectorTimeout, chromedp.Click("body", chromedp.ByQuery))
		}},
	)
	if err != nil {
		d.logger.Debug("Could not close dropdown", zap.Error(err))
	}
}

func (d *Driver) ensureClosed(ctx context.Context) error {
	d.sleep(ctx, 500*time.Millisecond)
	var open []string
	if err := d.eval(ctx, visibleOptionsJS(), &open); err != nil {
		return err
	}
	if len(open) > 0 {
		return errors.New("dropdown still open")
	}
	return nil
}

func (d *Driver) ListOptions(ctx context.Context, label string) []string {
	if err := d.openControl(ctx, label); err != nil {
		d.logger.Warn("Failed to open filter control", zap.String("label", label), zap.Error(err))
		return nil
	}
	defer d.closeDropdown(ctx)

	options, err := d.waitOptions(ctx)
	if err != nil {
		d.logger.Warn("Failed to read filter options", zap.String("label", label), zap.Error(err))
		return nil
	}
	if len(options) == 0 {
		d.logger.Debug("No options rendered", zap.String("label", label),
			zap.Duration("waited", d.opts.SelectorTimeout))
	}
	return options
}

func (d *Driver) SelectOption(ctx context.Context, label, value string) bool {
	if err := d.openControl(ctx, label); err != nil {
		d.logger.Warn("Failed to open filter control", zap.String("label", label), zap.Error(err))
		return false
	}

	if err := d.waitMark(ctx, markOptionJS(value, markOption)); err != nil {
		d.logger.Debug("Option not offered",
			zap.String("label", label),
			zap.String("value", value),
			zap.Error(err))
		d.closeDropdown(ctx)
		return false
	}

	if err := d.clickMarkedWithFallback(ctx, markOption); err != nil {
		d.logger.Warn("Failed to click option",
			zap.String("label", label),
			zap.String("value", value),
			zap.Error(err))
		d.closeDropdown(ctx)
		return false
	}
	d.sleep(ctx, dropdownDelay)
	return true
}

// ClearAll empties every filter control by selecting its text and deleting it
func (d *Driver) ClearAll(ctx context.Context) {
	if err := d.press(ctx, kb.Escape); err != nil {
		d.logger.Debug("Escape failed", zap.Error(err))
	}

	for _, dim := range filtertest.Dimensions {
		label := d.opts.Labels.For(dim)
		if err := d.clearControl(ctx, label); err != nil {
			d.logger.Debug("Failed to clear filter control", zap.String("label", label), zap.Error(err))
		}
	}

	if err := d.press(ctx, kb.Escape); err != nil {
		d.logger.Debug("Escape failed", zap.Error(err))
	}
	d.sleep(ctx, time.Second)
}

func (d *Driver) clearControl(ctx context.Context, label string) error {
	if err := d.mark(ctx, markTextboxJS(label, markControl)); err != nil {
		return err
	}
	if err := d.clickMarked(ctx, markControl); err != nil {
		return err
	}
	d.sleep(ctx, keyDelay)

	if err := d.press(ctx, "a", chromedp.KeyModifiers(input.ModifierCtrl)); err != nil {
		return err
	}
	if err := d.press(ctx, kb.Delete); err != nil {
		return err
	}
	d.sleep(ctx, keyDelay)
	return d.press(ctx, kb.Escape)
}

func (d *Driver) ReadCurrentPage(ctx context.Context) ([]filtertest.Record, error) {
	if err := d.run(ctx, d.opts.SelectorTimeout*2, chromedp.WaitReady("table", chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", errTableNotFound, err)
	}

	var rows [][]string
	if err := d.eval(ctx, tableRowsJS(), &rows); err != nil {
		return nil, fmt.Errorf("failed to read table rows: %w", err)
	}

	records := make([]filtertest.Record, 0, len(rows))
	for _, cells := range rows {
		if record, ok := filtertest.ParseRow(cells); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

func (d *Driver) HasNextPage(ctx context.Context) bool {
	var enabled bool
	if err := d.eval(ctx, hasNextJS(), &enabled); err != nil {
		return false
	}
	return enabled
}

func (d *Driver) GoNext(ctx context.Context) bool {
	if err := d.mark(ctx, markButtonJS("Next", markButton)); err != nil {
		return false
	}
	if err := d.clickMarkedWithFallback(ctx, markButton); err != nil {
		d.logger.Warn("Failed to click next page", zap.Error(err))
		return false
	}
	return true
}

func (d *Driver) ListPageNumbers(ctx context.Context) []int {
	var pages []int
	if err := d.eval(ctx, pageNumbersJS(), &pages); err != nil {
		d.logger.Debug("Failed to read pagination", zap.Error(err))
		return nil
	}
	return pages
}

func (d *Driver) GoToPage(ctx context.Context, n int) bool {
	if err := d.mark(ctx, markPageJS(n, markPage)); err != nil {
		return false
	}
	d.sleep(ctx, 500*time.Millisecond)
	if err := d.clickMarkedWithFallback(ctx, markPage); err != nil {
		d.logger.Warn("Failed to click page button", zap.Int("page", n), zap.Error(err))
		return false
	}
	return true
}

// AwaitSettled polls until no loading indicator is visible or timeout
// elapses, then sleeps the configured settle delay. A timeout is not an
// error: the caller reads whatever the page shows.
func (d *Driver) AwaitSettled(ctx context.Context, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for {
		var loading bool
		err := d.eval(ctx, loadingVisibleJS(), &loading)
		if err == nil && !loading {
			break
		}
		if ctx.Err() != nil {
			return
		}
		if time.Now().After(deadline) {
			if err == nil {
				err = errStillLoading
			}
			d.logger.Debug("Page did not settle before timeout",
				zap.Duration("timeout", timeout), zap.Error(err))
			break
		}
		d.sleep(ctx, pollInterval)
	}
	d.sleep(ctx, d.opts.SettleDelay)
}
