package service

import (
	"context"
	"errors"
	"time"

	dErrors "referrals/pkg/domain-errors"
	"referrals/pkg/platform/sentinel"
)

// runInTx executes fn in a transaction, retrying storage conflicts
// (serialization failures, deadlocks) a bounded number of times. Business
// rejections returned by fn are never retried.
func (s *Service) runInTx(ctx context.Context, op string, fn func(store Store) error) error {
	var err error
	for attempt := 0; attempt <= s.maxTxRetries; attempt++ {
		if attempt > 0 {
			s.observeRetry(op)
			if waitErr := sleepCtx(ctx, s.retryBackoff*time.Duration(attempt)); waitErr != nil {
				return dErrors.Wrap(waitErr, dErrors.CodeTimeout, "transaction aborted: context cancelled")
			}
		}
		err = s.tx.RunInTx(ctx, fn)
		if err == nil || !errors.Is(err, sentinel.ErrConflict) {
			return translateTxErr(err)
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "transaction conflict, retrying",
				"operation", op,
				"attempt", attempt+1,
				"error", err,
			)
		}
	}
	return dErrors.Wrap(err, dErrors.CodeRetryExhausted, "too much contention, try again")
}

func (s *Service) readSnapshot(ctx context.Context, fn func(store Store) error) error {
	return translateTxErr(s.tx.ReadSnapshot(ctx, fn))
}

// translateTxErr maps context failures raised by the tx boundary itself.
func translateTxErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
