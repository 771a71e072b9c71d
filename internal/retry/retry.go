package retry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cca-polling/internal/logger"
)

type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Do runs fn until it succeeds or the policy's attempts are used up,
// doubling the delay between attempts up to MaxDelay. It stops early if the
// context is canceled.
func Do(ctx context.Context, p Policy, name string, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	var err error
	delay := p.BaseDelay

	for i := 1; i <= p.Attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == p.Attempts {
			break
		}

		logger.Warn("retrying", zap.String("op", name), zap.Int("attempt", i), zap.Duration("backoff", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
