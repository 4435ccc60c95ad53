package browser

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// attempt is one way of performing a UI action
type attempt struct {
	name string
	run  func(context.Context) error
}

// firstSuccess runs attempts in order and stops at the first that succeeds.
// The joined errors of every failed attempt are returned when none does.
func firstSuccess(ctx context.Context, logger *zap.Logger, attempts ...attempt) error {
	var errs []error
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := a.run(ctx)
		if err == nil {
			return nil
		}
		logger.Debug("Browser action failed", zap.String("attempt", a.name), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
	}
	return errors.Join(errs...)
}
