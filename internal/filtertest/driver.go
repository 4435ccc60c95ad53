package filtertest

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Driver is the UI capability the engine consumes. Implementations swallow
// transient UI errors and report them only as false or empty results.
type Driver interface {
	// ListOptions opens the control, returns visible non-empty de-duplicated
	// option labels and closes the control again
	ListOptions(ctx context.Context, label string) []string

	// SelectOption clicks the first option whose label contains value or is
	// contained by it. It returns false, leaving the control closed, when
	// nothing matches.
	SelectOption(ctx context.Context, label, value string) bool

	// ClearAll resets every filter control and closes any open one
	ClearAll(ctx context.Context)

	// ReadCurrentPage reads the body rows of the result table. Rows that
	// cannot fill every record column are skipped.
	ReadCurrentPage(ctx context.Context) ([]Record, error)

	HasNextPage(ctx context.Context) bool
	GoNext(ctx context.Context) bool

	// ListPageNumbers returns the visible numbered pagination controls
	ListPageNumbers(ctx context.Context) []int
	GoToPage(ctx context.Context, n int) bool

	// AwaitSettled blocks until loading indicators are gone or timeout elapses
	AwaitSettled(ctx context.Context, timeout time.Duration)
}

// selector applies chain prefixes through a Driver
type selector struct {
	driver        Driver
	labels        DimensionLabels
	settleTimeout time.Duration
	logger        *zap.Logger
}

// apply resets the filters and selects values in dimension order starting
// from the root. It stops at the first rejected selection.
func (s *selector) apply(ctx context.Context, values []string) bool {
	s.driver.ClearAll(ctx)
	for i, value := range values {
		if ctx.Err() != nil {
			return false
		}
		d := Dimension(i)
		if !s.driver.SelectOption(ctx, s.labels.For(d), value) {
			s.logger.Warn("Filter selection rejected",
				zap.String("dimension", d.String()),
				zap.String("value", value),
				zap.Strings("prefix", values[:i]))
			return false
		}
		s.driver.AwaitSettled(ctx, s.settleTimeout)
	}
	return true
}

// normalizeOptions trims labels, drops blanks and removes duplicates while
// keeping discovery order. Dedup is scoped to this one option query.
func normalizeOptions(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, opt := range raw {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		if _, dup := seen[opt]; dup {
			continue
		}
		seen[opt] = struct{}{}
		out = append(out, opt)
	}
	return out
}
