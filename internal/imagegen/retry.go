package imagegen

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"remodel/internal/domain"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retrier executes one upstream call, retrying transient (server-side)
// failures with exponential backoff: BaseDelay * 2^(attempt-1), without
// jitter.
type Retrier struct {
	gen         Generator
	maxAttempts int
	baseDelay   time.Duration
	sleep       Sleeper
	logger      zerolog.Logger
}

// RetrierOptions tunes a Retrier; zero values select the defaults.
type RetrierOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       Sleeper
	Logger      *zerolog.Logger
}

func NewRetrier(gen Generator, opts RetrierOptions) *Retrier {
	r := &Retrier{
		gen:         gen,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		sleep:       opts.Sleep,
		logger:      zerolog.Nop(),
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = DefaultMaxAttempts
	}
	if r.baseDelay <= 0 {
		r.baseDelay = DefaultBaseDelay
	}
	if r.sleep == nil {
		r.sleep = sleepContext
	}
	if opts.Logger != nil {
		r.logger = *opts.Logger
	}
	return r
}

// Call returns the raw upstream response unmodified on success. Non-transient
// failures, and the failure of the final attempt, are returned immediately.
func (r *Retrier) Call(ctx context.Context, req Request) (*Response, error) {
	policy := r.policy()
	for attempt := 1; ; attempt++ {
		resp, err := r.gen.GenerateContent(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			return nil, err
		}
		r.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", r.maxAttempts).
			Dur("delay", delay).
			Msg("imagegen: transient upstream failure, retrying")
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// policy yields the wait before each retry and Stop once maxAttempts calls
// have been made. Waits go through r.sleep so tests can observe them.
func (r *Retrier) policy() backoff.BackOff {
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(r.baseDelay),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxInterval(time.Duration(math.MaxInt64)),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithMaxRetries(exp, uint64(r.maxAttempts-1))
}

// IsTransient reports whether err signals an upstream internal fault.
func IsTransient(err error) bool {
	return errors.Is(err, domain.ErrTransientUpstream)
}
